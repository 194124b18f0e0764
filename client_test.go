package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/transfer"
)

func TestBuild_NoNodesConfiguredFails(t *testing.T) {
	_, err := NewBuilder(codec.NetworkMainnet).Build(context.Background())
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindNoNodesConfigured))
}

func TestBuild_InvalidTimeoutFails(t *testing.T) {
	_, err := NewBuilder(codec.NetworkMainnet).
		WithNode("http://localhost").
		WithNodeSyncInterval(0).
		Build(context.Background())
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindInvalidTimeout))
}

// mockNode starts an httptest server that looks healthy and synced to a
// Node Pool, with fixed tips and a capture of whatever gets posted.
func mockNode(t *testing.T, network codec.Network) (*httptest.Server, *[]byte) {
	t.Helper()

	var h0, h1 codec.MessageId
	h0[0], h1[0] = 0xAA, 0xBB
	var posted []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/info":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"isHealthy": true,
				"network":   network.String(),
			})
		case r.URL.Path == "/api/v1/tips":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"tipMessageIds": []string{fmt.Sprintf("%x", h0[:]), fmt.Sprintf("%x", h1[:])},
			})
		case r.URL.Path == "/api/v1/messages" && r.Method == http.MethodPost:
			buf, _ := io.ReadAll(r.Body)
			posted = buf
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messageId": strings.Repeat("00", 32),
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &posted
}

// TestClient_SendPureIndexationEndToEnd exercises spec.md §8 scenario 1
// through the full Builder -> Client -> Node Pool -> Transfer Engine path.
func TestClient_SendPureIndexationEndToEnd(t *testing.T) {
	srv, posted := mockNode(t, codec.NetworkMainnet)

	c, err := NewBuilder(codec.NetworkMainnet).
		WithNode(srv.URL).
		WithNodeSyncInterval(50 * time.Millisecond).
		WithTargetDifficulty(0).
		Build(context.Background())
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		_, err := c.pool.Select()
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	result, err := c.Send(context.Background(), transfer.SendRequest{
		Value:          0,
		IndexationKey:  "TEST",
		IndexationData: []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	require.NotNil(t, *posted)

	msg, err := codec.DecodeMessageBytes(*posted)
	require.NoError(t, err)
	idx, ok := msg.Payload.(codec.Indexation)
	require.True(t, ok)
	require.Equal(t, "TEST", idx.Index)
	require.Equal(t, codec.MessageId{}, result.MessageID)
}

// TestClient_SendInvalidRequestFails covers spec.md §8's boundary case:
// send(value=0, indexation_key=None) is rejected without touching the
// network.
func TestClient_SendInvalidRequestFails(t *testing.T) {
	srv, _ := mockNode(t, codec.NetworkMainnet)

	c, err := NewBuilder(codec.NetworkMainnet).
		WithNode(srv.URL).
		WithNodeSyncInterval(50 * time.Millisecond).
		Build(context.Background())
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		_, err := c.pool.Select()
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = c.Send(context.Background(), transfer.SendRequest{Value: 0})
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindInvalidSendRequest))
}
