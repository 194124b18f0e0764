package client

import (
	"context"
	"encoding/json"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/events"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/nodepool"
	"github.com/iota-go/client/retry"
	"github.com/iota-go/client/statestore"
	"github.com/iota-go/client/transfer"
	"github.com/iota-go/client/xcrypto"
)

// Client is the façade a user interacts with: everything in spec.md §2's
// data-flow diagram ("Builder -> Node Pool ... -> exposes Client façade ->
// user calls") lives behind this type. It is safe for concurrent use; the
// Node Pool and Retry Controller already guard their own shared state.
type Client struct {
	cfg Config

	pool     *nodepool.Pool
	engine   *transfer.Engine
	retryCtl *retry.Controller
	state    statestore.Adapter

	mux *events.Multiplexer
}

func newClient(cfg Config, pool *nodepool.Pool) *Client {
	state := cfg.StateAdapter
	if state == nil {
		state = statestore.NewMemory()
	}

	c := &Client{
		cfg: cfg,
		pool: pool,
		engine: &transfer.Engine{
			Network:          cfg.Network,
			LocalPoW:         cfg.LocalPoW,
			TargetDifficulty: cfg.TargetDifficulty,
		},
		retryCtl: retry.NewController(cfg.LocalPoW, cfg.TargetDifficulty),
		state:    state,
	}

	if cfg.SubscriptionsEnabled {
		c.mux = events.New(pool, events.DefaultConfig())
		c.mux.Start()
	}

	return c
}

// Close stops the Node Pool's monitor and, if active, the subscription
// multiplexer. It does not affect any in-flight Send call.
func (c *Client) Close() error {
	if c.mux != nil {
		c.mux.Stop()
	}
	return c.pool.Stop()
}

// Send implements spec.md §4.5.5: a value transfer, a pure indexation
// payload, or a transaction with an embedded indexation payload, depending
// on which fields of req are set.
func (c *Client) Send(ctx context.Context, req transfer.SendRequest) (transfer.SendResult, error) {
	return nodepool.Do(c.pool, func(node *nodeclient.Client) (transfer.SendResult, error) {
		return c.engine.Send(ctx, node, req)
	})
}

// GetBalance implements spec.md §4.5.3.
func (c *Client) GetBalance(ctx context.Context, seed xcrypto.Seed, path xcrypto.Bip32Path, start uint32) (uint64, error) {
	return nodepool.Do(c.pool, func(node *nodeclient.Client) (uint64, error) {
		return transfer.GetBalance(ctx, node, seed, path, c.cfg.Network, start)
	})
}

// unspentAddrResult bundles GetUnspentAddress's two return values so the
// call can be routed through nodepool.Do's single-result signature.
type unspentAddrResult struct {
	Addr  codec.Address
	Index uint32
}

// GetUnspentAddress implements spec.md §4.5.2.
func (c *Client) GetUnspentAddress(ctx context.Context, seed xcrypto.Seed, path xcrypto.Bip32Path, start uint32) (codec.Address, uint32, error) {
	res, err := nodepool.Do(c.pool, func(node *nodeclient.Client) (unspentAddrResult, error) {
		addr, idx, err := transfer.GetUnspentAddress(ctx, node, seed, path, c.cfg.Network, start)
		return unspentAddrResult{Addr: addr, Index: idx}, err
	})
	if err != nil {
		return codec.Address{}, 0, err
	}
	return res.Addr, res.Index, nil
}

// GetAddressBalances implements spec.md §4.5.4, issuing a quorum query per
// address when quorum mode is configured (spec.md §4.4), otherwise a plain
// single-node fan-out.
func (c *Client) GetAddressBalances(ctx context.Context, addresses []codec.Address) (map[string]uint64, error) {
	if c.cfg.QuorumSize >= 2 {
		return c.getAddressBalancesQuorum(ctx, addresses)
	}

	return nodepool.Do(c.pool, func(node *nodeclient.Client) (map[string]uint64, error) {
		return transfer.GetAddressBalances(ctx, node, c.cfg.Network, addresses)
	})
}

func (c *Client) getAddressBalancesQuorum(ctx context.Context, addresses []codec.Address) (map[string]uint64, error) {
	out := make(map[string]uint64, len(addresses))

	for _, addr := range addresses {
		addrStr, err := addr.String(c.cfg.Network)
		if err != nil {
			return nil, iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
		}

		raw, err := c.pool.QuorumBytes(ctx, func(ctx context.Context, cl *nodeclient.Client) ([]byte, error) {
			bal, err := cl.GetAddressBalance(ctx, addrStr)
			if err != nil {
				return nil, err
			}
			return json.Marshal(bal)
		})
		if err != nil {
			return nil, iotaerr.AddressQueryFailed(addrStr, err)
		}

		var bal nodeclient.AddressBalance
		if err := json.Unmarshal(raw, &bal); err != nil {
			return nil, iotaerr.AddressQueryFailed(addrStr, err)
		}
		out[addrStr] = bal.Balance
	}

	return out, nil
}

// Retry implements spec.md §4.6's retry(message_id) workflow: inspect
// confirmation state, then reattach or promote as the node's metadata
// directs.
func (c *Client) Retry(ctx context.Context, id codec.MessageId) (codec.MessageId, codec.Message, error) {
	res, err := nodepool.Do(c.pool, func(node *nodeclient.Client) (retryResult, error) {
		newID, msg, err := c.retryCtl.Retry(ctx, node, id)
		return retryResult{ID: newID, Msg: msg}, err
	})
	if err != nil {
		return codec.MessageId{}, codec.Message{}, err
	}
	// Only a reattachment extends the chain; a promotion is not recorded.
	if chain := c.retryCtl.Chain.Reattachments(id); len(chain) > 0 && chain[len(chain)-1] == res.ID {
		c.persistReattachment(id, res.ID)
	}
	return res.ID, res.Msg, nil
}

// retryResult bundles Retry's two return values so the call can be routed
// through nodepool.Do's single-result signature.
type retryResult struct {
	ID  codec.MessageId
	Msg codec.Message
}

// persistReattachment best-effort mirrors a reattachment into the
// configured state adapter (spec.md §9); failures here never affect the
// caller's result, matching the core's stance that the state adapter is an
// opaque, optional capability.
func (c *Client) persistReattachment(root, next codec.MessageId) {
	key := "reattach:" + root.String()
	existing, _, err := c.state.Load(key)
	if err != nil {
		log.Warnf("client: state adapter load failed for %s: %v", key, err)
		return
	}
	var chain []string
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &chain); err != nil {
			log.Warnf("client: state adapter returned malformed chain for %s: %v", key, err)
			chain = nil
		}
	}
	chain = append(chain, next.String())
	encoded, err := json.Marshal(chain)
	if err != nil {
		return
	}
	if err := c.state.Save(key, encoded); err != nil {
		log.Warnf("client: state adapter save failed for %s: %v", key, err)
	}
}

// Reattachments returns the ReattachmentChain's in-memory record of every
// message id root has been reattached as.
func (c *Client) Reattachments(root codec.MessageId) []codec.MessageId {
	return c.retryCtl.Chain.Reattachments(root)
}

// Subscribe registers cb against topic on the subscription multiplexer
// (spec.md §4.7). It returns an error if subscriptions were not enabled via
// WithSubscriptions(true).
func (c *Client) Subscribe(topic string, cb events.Callback) error {
	if c.mux == nil {
		return iotaerr.New(iotaerr.KindInvalidTopic, "subscriptions are not enabled on this client")
	}
	return c.mux.Subscribe(topic, cb)
}

// Unsubscribe removes callbacks for topic (all topics if topic == "").
func (c *Client) Unsubscribe(topic string) error {
	if c.mux == nil {
		return nil
	}
	return c.mux.Unsubscribe(topic)
}
