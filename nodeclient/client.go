package nodeclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
)

// Client issues typed RPC calls against a single node's REST endpoints
// (spec.md §4.3, §6.1). It holds no pool-selection logic — that belongs to
// the nodepool package, which owns one Client per known node, the same
// one-object-per-remote-peer shape the teacher uses for its per-peer
// brontide connections.
type Client struct {
	baseURL  string
	timeouts Timeouts
	http     *http.Client
}

// NewClient builds a Client for the given node base URL (e.g.
// "https://node.example.org"). opts configures the underlying transport for
// Tor and TLS-pinning node deployments.
func NewClient(baseURL string, timeouts Timeouts, opts ...DialOption) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	for _, opt := range opts {
		opt(transport)
	}
	return &Client{
		baseURL:  baseURL,
		timeouts: timeouts,
		http:     &http.Client{Transport: transport},
	}
}

// do executes req with the given per-operation timeout layered onto ctx,
// mapping failures onto the Timeout/Transport/HttpStatus taxonomy spec.md
// §4.3 requires.
func (c *Client) do(ctx context.Context, req *http.Request, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, iotaerr.Wrap(iotaerr.KindTimeout, ctx.Err())
		}
		return nil, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, iotaerr.HTTPStatus(resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	resp, err := c.do(ctx, req, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	return nil
}

// GetHealth calls GET /health.
func (c *Client) GetHealth(ctx context.Context) (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	resp, err := c.do(ctx, req, c.timeouts.GetHealth)
	if err != nil {
		var ierr *iotaerr.Error
		if errors.As(err, &ierr) && ierr.Kind == iotaerr.KindHTTPStatus {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// GetInfo calls GET /api/v1/info.
func (c *Client) GetInfo(ctx context.Context) (NodeInfo, error) {
	var info NodeInfo
	if err := c.getJSON(ctx, "/api/v1/info", c.timeouts.GetInfo, &info); err != nil {
		return NodeInfo{}, err
	}
	return info, nil
}

// GetTips calls GET /api/v1/tips.
func (c *Client) GetTips(ctx context.Context) (Tips, error) {
	var wire tipsWire
	if err := c.getJSON(ctx, "/api/v1/tips", c.timeouts.GetTips, &wire); err != nil {
		return Tips{}, err
	}
	if len(wire.TipMessageIds) != 2 {
		return Tips{}, iotaerr.Newf(iotaerr.KindMalformedResponse,
			"expected 2 tip message ids, got %d", len(wire.TipMessageIds))
	}
	p1, err := parseMessageID(wire.TipMessageIds[0])
	if err != nil {
		return Tips{}, err
	}
	p2, err := parseMessageID(wire.TipMessageIds[1])
	if err != nil {
		return Tips{}, err
	}
	return Tips{Parent1: p1, Parent2: p2}, nil
}

// PostMessage calls POST /api/v1/messages with canonical message bytes.
// remotePoW selects between the regular and the (longer) remote-PoW
// timeout, per spec.md §6.2.
func (c *Client) PostMessage(ctx context.Context, msgBytes []byte, remotePoW bool) (codec.MessageId, error) {
	timeout := c.timeouts.PostMessage
	if remotePoW {
		timeout = c.timeouts.PostMessageRemotePoW
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/messages", bytes.NewReader(msgBytes))
	if err != nil {
		return codec.MessageId{}, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, req, timeout)
	if err != nil {
		return codec.MessageId{}, err
	}
	defer resp.Body.Close()

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return codec.MessageId{}, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	id, err := parseMessageID(out.MessageID)
	if err == nil {
		log.Debugf("posted message %s to %s (remotePoW=%t)", id, c.baseURL, remotePoW)
	}
	return id, err
}

// GetOutput calls GET /api/v1/outputs/{outputId}.
func (c *Client) GetOutput(ctx context.Context, outputID string) (OutputMetadata, error) {
	var out OutputMetadata
	if err := c.getJSON(ctx, "/api/v1/outputs/"+outputID, c.timeouts.GetOutput, &out); err != nil {
		return OutputMetadata{}, err
	}
	return out, nil
}

// GetAddressBalance calls GET /api/v1/addresses/{addr}/balance.
func (c *Client) GetAddressBalance(ctx context.Context, addr string) (AddressBalance, error) {
	var out AddressBalance
	if err := c.getJSON(ctx, "/api/v1/addresses/"+addr+"/balance", c.timeouts.GetAddress, &out); err != nil {
		return AddressBalance{}, err
	}
	return out, nil
}

// GetAddressOutputs calls GET /api/v1/addresses/{addr}/outputs.
func (c *Client) GetAddressOutputs(ctx context.Context, addr string) (AddressOutputs, error) {
	var out AddressOutputs
	if err := c.getJSON(ctx, "/api/v1/addresses/"+addr+"/outputs", c.timeouts.GetAddress, &out); err != nil {
		return AddressOutputs{}, err
	}
	return out, nil
}

// GetMessageMetadata calls GET /api/v1/messages/{id}/metadata.
func (c *Client) GetMessageMetadata(ctx context.Context, id string) (MessageMetadata, error) {
	var out MessageMetadata
	if err := c.getJSON(ctx, "/api/v1/messages/"+id+"/metadata", c.timeouts.GetMessage, &out); err != nil {
		return MessageMetadata{}, err
	}
	return out, nil
}

// GetMessageChildren calls GET /api/v1/messages/{id}/children.
func (c *Client) GetMessageChildren(ctx context.Context, id string) (MessageChildren, error) {
	var out MessageChildren
	if err := c.getJSON(ctx, "/api/v1/messages/"+id+"/children", c.timeouts.GetMessage, &out); err != nil {
		return MessageChildren{}, err
	}
	return out, nil
}

// GetMessageRaw calls GET /api/v1/messages/{id}/raw and decodes the
// canonical binary message via the codec package.
func (c *Client) GetMessageRaw(ctx context.Context, id string) (codec.Message, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/messages/"+id+"/raw", nil)
	if err != nil {
		return codec.Message{}, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	resp, err := c.do(ctx, req, c.timeouts.GetMessage)
	if err != nil {
		return codec.Message{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return codec.Message{}, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	msg, err := codec.DecodeMessageBytes(raw)
	if err != nil {
		return codec.Message{}, err
	}
	return msg, nil
}

// GetMessageData calls GET /api/v1/messages/{id} and returns the message's
// semantic fields without the raw wire encoding.
func (c *Client) GetMessageData(ctx context.Context, id string) (MessageMetadata, error) {
	var out MessageMetadata
	if err := c.getJSON(ctx, "/api/v1/messages/"+id, c.timeouts.GetMessage, &out); err != nil {
		return MessageMetadata{}, err
	}
	return out, nil
}

// GetMilestone calls GET /api/v1/milestones/{index}.
func (c *Client) GetMilestone(ctx context.Context, index uint32) (Milestone, error) {
	var out Milestone
	path := fmt.Sprintf("/api/v1/milestones/%d", index)
	if err := c.getJSON(ctx, path, c.timeouts.GetMilestone, &out); err != nil {
		return Milestone{}, err
	}
	return out, nil
}

func parseMessageID(s string) (codec.MessageId, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return codec.MessageId{}, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	var id codec.MessageId
	if len(raw) != len(id) {
		return codec.MessageId{}, iotaerr.Newf(iotaerr.KindMalformedResponse,
			"message id must be %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
