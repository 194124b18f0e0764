package nodepool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
)

func testPool(t *testing.T, urls []string, cfg Config) *Pool {
	t.Helper()
	p := New(urls, cfg, func(url string) *nodeclient.Client {
		return nodeclient.NewClient(url, nodeclient.DefaultTimeouts())
	}, nil)
	return p
}

func TestEvaluate_HealthyMatchingNetwork(t *testing.T) {
	p := testPool(t, []string{"http://a"}, DefaultConfig(codec.NetworkMainnet))

	reason, ok := p.evaluate(nodeclient.NodeInfo{
		IsHealthy: true,
		Network:   codec.NetworkMainnet.String(),
	}, nil)
	require.True(t, ok)
	require.Empty(t, reason)
}

func TestEvaluate_NetworkMismatch(t *testing.T) {
	p := testPool(t, []string{"http://a"}, DefaultConfig(codec.NetworkMainnet))

	_, ok := p.evaluate(nodeclient.NodeInfo{
		IsHealthy: true,
		Network:   codec.NetworkDevnet.String(),
	}, nil)
	require.False(t, ok)
}

func TestEvaluate_TransportError(t *testing.T) {
	p := testPool(t, []string{"http://a"}, DefaultConfig(codec.NetworkMainnet))

	reason, ok := p.evaluate(nodeclient.NodeInfo{}, errors.New("connection refused"))
	require.False(t, ok)
	require.Contains(t, reason, "connection refused")
}

func TestSelect_NoSyncedNodesFails(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))

	_, err := p.Select()
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindNoSyncedNodes))
}

func TestSelect_PicksFromSyncedSet(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy

	client, err := p.Select()
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestMostCommon_MajorityWins(t *testing.T) {
	responses := [][]byte{[]byte("100"), []byte("100"), []byte("101")}
	best, count := mostCommon(responses)
	require.Equal(t, []byte("100"), best)
	require.Equal(t, 2, count)
}

// TestProbeOne_StampsLastProbeAtFromInjectedClock verifies the pool reads
// its timestamp from cfg.Clock rather than the wall clock, so a caller can
// assert deterministic probe timing in tests.
func TestProbeOne_StampsLastProbeAtFromInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testClk := clock.NewTestClock(fixed)

	cfg := DefaultConfig(codec.NetworkMainnet)
	cfg.Clock = testClk
	p := testPool(t, []string{"http://a"}, cfg)

	p.probeOne("http://a")

	p.mu.RLock()
	stamped := p.nodes["http://a"].LastProbeAt
	p.mu.RUnlock()
	require.Equal(t, fixed, stamped)
}

func TestResolveMQTTPort_OverrideWinsOverFeatureAndDefault(t *testing.T) {
	cfg := DefaultConfig(codec.NetworkMainnet)
	cfg.MQTTPortOverrides = map[string]int{"http://a": 9001}
	p := testPool(t, []string{"http://a"}, cfg)

	port := p.resolveMQTTPort("http://a", nodeclient.NodeInfo{Features: []string{"mqtt:1884"}})
	require.Equal(t, 9001, port)
}

func TestResolveMQTTPort_FallsBackToFeatureEntry(t *testing.T) {
	cfg := DefaultConfig(codec.NetworkMainnet)
	p := testPool(t, []string{"http://a"}, cfg)

	port := p.resolveMQTTPort("http://a", nodeclient.NodeInfo{Features: []string{"noRemotePoW", "mqtt:1884"}})
	require.Equal(t, 1884, port)
}

func TestResolveMQTTPort_FallsBackToPoolDefault(t *testing.T) {
	cfg := DefaultConfig(codec.NetworkMainnet)
	p := testPool(t, []string{"http://a"}, cfg)

	port := p.resolveMQTTPort("http://a", nodeclient.NodeInfo{})
	require.Equal(t, cfg.MQTTPort, port)
}

// TestProbeOne_PopulatesMQTTPortFromFeatures guards against a regression of
// the bug where a healthy node's MQTTPort was always hardcoded to 0,
// silently starving the subscription multiplexer of broker candidates.
func TestProbeOne_PopulatesMQTTPortFromFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isHealthy": true,
			"network":   codec.NetworkMainnet.String(),
			"features":  []string{"mqtt:1883"},
		})
	}))
	defer srv.Close()

	cfg := DefaultConfig(codec.NetworkMainnet)
	cfg.MQTTPort = 0
	p := testPool(t, []string{srv.URL}, cfg)

	p.probeOne(srv.URL)

	p.mu.RLock()
	node := p.nodes[srv.URL]
	p.mu.RUnlock()
	require.Equal(t, HealthHealthy, node.Health)
	require.Equal(t, 1883, node.MQTTPort)
}

func TestSelectExcluding_SkipsExcludedNodes(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy
	p.nodes["http://b"].Health = HealthHealthy

	client, url, err := p.SelectExcluding(map[string]bool{"http://a": true})
	require.NoError(t, err)
	require.Equal(t, "http://b", url)
	require.NotNil(t, client)
}

func TestSelectExcluding_NoCandidatesLeftFails(t *testing.T) {
	p := testPool(t, []string{"http://a"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy

	_, _, err := p.SelectExcluding(map[string]bool{"http://a": true})
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindNoSyncedNodes))
}

func TestDo_RetriesAgainstAnotherNodeOnTransportError(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy
	p.nodes["http://b"].Health = HealthHealthy

	tried := make(map[string]bool)
	result, err := Do(p, func(c *nodeclient.Client) (string, error) {
		for url, cl := range p.clients {
			if cl == c {
				if len(tried) == 0 {
					tried[url] = true
					return "", iotaerr.New(iotaerr.KindTransport, "connection reset")
				}
				return url, nil
			}
		}
		return "", errors.New("unreachable")
	})
	require.NoError(t, err)
	require.NotEmpty(t, result)
	require.Len(t, tried, 1)
}

func TestDo_NonRetryableErrorReturnsImmediately(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy
	p.nodes["http://b"].Health = HealthHealthy

	calls := 0
	_, err := Do(p, func(c *nodeclient.Client) (string, error) {
		calls++
		return "", iotaerr.New(iotaerr.KindInsufficientBalance, "not enough funds")
	})
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindInsufficientBalance))
	require.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsAndSurfacesLastError(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b"}, DefaultConfig(codec.NetworkMainnet))
	p.nodes["http://a"].Health = HealthHealthy
	p.nodes["http://b"].Health = HealthHealthy

	calls := 0
	_, err := Do(p, func(c *nodeclient.Client) (string, error) {
		calls++
		return "", iotaerr.New(iotaerr.KindTimeout, "deadline exceeded")
	})
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindTimeout))
	require.Equal(t, 2, calls)
}

func TestQuorumBytes_BelowThresholdFails(t *testing.T) {
	p := testPool(t, []string{"http://a", "http://b", "http://c"}, Config{
		QuorumSize:      3,
		QuorumThreshold: 1.0,
	})
	for _, n := range p.nodes {
		n.Health = HealthHealthy
	}

	responses := [][]byte{[]byte("100"), []byte("100"), []byte("101")}
	call := 0
	_, err := p.QuorumBytes(context.Background(), func(ctx context.Context, c *nodeclient.Client) ([]byte, error) {
		r := responses[call]
		call++
		return r, nil
	})
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindQuorumFailed))
}
