package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/nodepool"
	"github.com/iota-go/client/statestore"
)

// Builder assembles a Config through a chain of With* calls and produces a
// started Client via Build, mirroring lnd.go's load-config-then-wire-
// subsystems-in-order shape.
type Builder struct {
	cfg           Config
	clientFactory func(url string) *nodeclient.Client
}

// NewBuilder starts a Builder with spec.md §6.2's defaults for network.
func NewBuilder(network codec.Network) *Builder {
	return &Builder{cfg: DefaultConfig(network)}
}

// WithNode adds a single explicit node URL.
func (b *Builder) WithNode(url string) *Builder {
	b.cfg.Nodes = append(b.cfg.Nodes, url)
	return b
}

// WithNodes adds one or more explicit node URLs.
func (b *Builder) WithNodes(urls ...string) *Builder {
	b.cfg.Nodes = append(b.cfg.Nodes, urls...)
	return b
}

// WithNodePoolURLs adds one or more URLs that themselves resolve to a list
// of node URLs (spec.md §6.2's node_pool_urls).
func (b *Builder) WithNodePoolURLs(urls ...string) *Builder {
	b.cfg.NodePoolURLs = append(b.cfg.NodePoolURLs, urls...)
	return b
}

// WithNodeSyncInterval overrides the monitor's probe cadence.
func (b *Builder) WithNodeSyncInterval(d time.Duration) *Builder {
	b.cfg.NodeSyncInterval = d
	return b
}

// WithGetInfoTimeout overrides the per-call GetInfo timeout.
func (b *Builder) WithGetInfoTimeout(d time.Duration) *Builder {
	b.cfg.GetInfoTimeout = d
	return b
}

// WithGetHealthTimeout overrides the per-call GetHealth timeout.
func (b *Builder) WithGetHealthTimeout(d time.Duration) *Builder {
	b.cfg.GetHealthTimeout = d
	return b
}

// WithGetMilestoneTimeout overrides the per-call GetMilestone timeout.
func (b *Builder) WithGetMilestoneTimeout(d time.Duration) *Builder {
	b.cfg.GetMilestoneTimeout = d
	return b
}

// WithGetTipsTimeout overrides the per-call GetTips timeout.
func (b *Builder) WithGetTipsTimeout(d time.Duration) *Builder {
	b.cfg.GetTipsTimeout = d
	return b
}

// WithPostMessageTimeouts overrides the regular and remote-PoW submit
// timeouts.
func (b *Builder) WithPostMessageTimeouts(normal, remotePoW time.Duration) *Builder {
	b.cfg.PostMessageTimeout = normal
	b.cfg.PostMessageRemotePoWTimeout = remotePoW
	return b
}

// WithLocalPoW toggles local PoW computation. When false, the pool only
// admits remote-PoW-capable nodes to the synced set (spec.md §4.4 check 4).
func (b *Builder) WithLocalPoW(v bool) *Builder {
	b.cfg.LocalPoW = v
	return b
}

// WithTargetDifficulty overrides the PoW target difficulty used for local
// PoW searches.
func (b *Builder) WithTargetDifficulty(d int) *Builder {
	b.cfg.TargetDifficulty = d
	return b
}

// WithQuorum enables quorum mode for balance/output queries (spec.md
// §4.4). size must be >= 2.
func (b *Builder) WithQuorum(size int, threshold float64) *Builder {
	b.cfg.QuorumSize = size
	b.cfg.QuorumThreshold = threshold
	return b
}

// WithSubscriptions enables the MQTT subscription multiplexer.
func (b *Builder) WithSubscriptions(enabled bool) *Builder {
	b.cfg.SubscriptionsEnabled = enabled
	return b
}

// WithMQTTPort overrides the pool-wide default broker port a healthy node
// is assumed to expose for subscriptions (spec.md §4.4 check 5, §4.7).
func (b *Builder) WithMQTTPort(port int) *Builder {
	b.cfg.MQTTPort = port
	return b
}

// WithMQTTPortOverride records the broker port a specific node URL exposes,
// for deployments where the port isn't advertised in that node's NodeInfo.
func (b *Builder) WithMQTTPortOverride(url string, port int) *Builder {
	if b.cfg.MQTTPortOverrides == nil {
		b.cfg.MQTTPortOverrides = make(map[string]int)
	}
	b.cfg.MQTTPortOverrides[url] = port
	return b
}

// WithStateAdapter installs a pluggable persistence hook (spec.md §9). The
// Client writes only reattachment chains through it (see
// persistReattachment); any other use is left to the host application.
func (b *Builder) WithStateAdapter(a statestore.Adapter) *Builder {
	b.cfg.StateAdapter = a
	return b
}

// WithMetricsRegistry registers the pool's Prometheus gauges/counters
// against reg instead of leaving them unregistered.
func (b *Builder) WithMetricsRegistry(reg *prometheus.Registry) *Builder {
	b.cfg.MetricsRegistry = reg
	return b
}

// WithUnhealthyCallback registers a callback invoked once the Node Pool's
// synced set is found empty by three checks in a row (one second apart), distinct
// from the per-call KindNoSyncedNodes error a caller already sees from
// Send/GetBalance/etc.
func (b *Builder) WithUnhealthyCallback(cb func(reason string)) *Builder {
	b.cfg.OnUnhealthy = cb
	return b
}

// withClientFactory overrides how *nodeclient.Client values are
// constructed; exposed for tests that need to inject a fake HTTP transport.
func (b *Builder) withClientFactory(f func(url string) *nodeclient.Client) *Builder {
	b.clientFactory = f
	return b
}

// validate applies spec.md §6.2's configuration checks, entirely without
// contacting the network (spec.md §7: "validation errors are returned
// without ever contacting the network").
func (b *Builder) validate() error {
	if len(b.cfg.Nodes) == 0 && len(b.cfg.NodePoolURLs) == 0 {
		return iotaerr.New(iotaerr.KindNoNodesConfigured,
			"at least one of node, nodes, or node_pool_urls must be set")
	}

	if b.cfg.Network > codec.NetworkDevnet {
		return iotaerr.Newf(iotaerr.KindInvalidNetwork, "unknown network %s", b.cfg.Network)
	}

	timeouts := []time.Duration{
		b.cfg.NodeSyncInterval, b.cfg.GetInfoTimeout, b.cfg.GetHealthTimeout,
		b.cfg.GetMilestoneTimeout, b.cfg.GetTipsTimeout, b.cfg.PostMessageTimeout,
		b.cfg.PostMessageRemotePoWTimeout,
	}
	for _, d := range timeouts {
		if d <= 0 {
			return iotaerr.New(iotaerr.KindInvalidTimeout, "all configured timeouts must be > 0")
		}
	}

	return nil
}

// Build validates the configuration, resolves node_pool_urls, and starts
// the Node Pool's background monitor, returning a ready-to-use Client.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	urls := append([]string{}, b.cfg.Nodes...)
	for _, poolURL := range b.cfg.NodePoolURLs {
		resolved, err := fetchNodePoolURLs(ctx, poolURL)
		if err != nil {
			log.Warnf("builder: failed to resolve node_pool_urls entry %s: %v", poolURL, err)
			continue
		}
		urls = append(urls, resolved...)
	}
	if len(urls) == 0 {
		return nil, iotaerr.New(iotaerr.KindNoNodesConfigured, "no node URLs resolved")
	}

	timeouts := nodeclient.Timeouts{
		GetHealth:            b.cfg.GetHealthTimeout,
		GetInfo:              b.cfg.GetInfoTimeout,
		GetTips:               b.cfg.GetTipsTimeout,
		GetMilestone:          b.cfg.GetMilestoneTimeout,
		PostMessage:           b.cfg.PostMessageTimeout,
		PostMessageRemotePoW:  b.cfg.PostMessageRemotePoWTimeout,
		GetOutput:             b.cfg.GetInfoTimeout,
		GetAddress:            b.cfg.GetInfoTimeout,
		GetMessage:            b.cfg.GetInfoTimeout,
	}

	factory := b.clientFactory
	if factory == nil {
		factory = func(url string) *nodeclient.Client {
			return nodeclient.NewClient(url, timeouts)
		}
	}

	poolCfg := nodepool.Config{
		Network:           b.cfg.Network,
		NodeSyncInterval:  b.cfg.NodeSyncInterval,
		GetInfoTimeout:    b.cfg.GetInfoTimeout,
		LocalPoW:          b.cfg.LocalPoW,
		SubscriptionsOn:   b.cfg.SubscriptionsEnabled,
		QuorumSize:        b.cfg.QuorumSize,
		QuorumThreshold:   b.cfg.QuorumThreshold,
		BulkShardLimit:    100,
		MQTTPort:          b.cfg.MQTTPort,
		MQTTPortOverrides: b.cfg.MQTTPortOverrides,
		OnUnhealthy:       b.cfg.OnUnhealthy,
	}

	pool := nodepool.New(urls, poolCfg, factory, b.cfg.MetricsRegistry)
	if err := pool.Start(); err != nil {
		return nil, err
	}

	return newClient(b.cfg, pool), nil
}

// fetchNodePoolURLs resolves one node_pool_urls entry. The endpoint is
// expected to return a bare JSON array of node URLs.
func fetchNodePoolURLs(ctx context.Context, poolURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, poolURL, nil)
	if err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, iotaerr.HTTPStatus(resp.StatusCode)
	}

	var urls []string
	if err := json.NewDecoder(resp.Body).Decode(&urls); err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	return urls, nil
}
