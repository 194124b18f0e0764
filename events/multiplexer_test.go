package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodepool"
)

func TestValidateTopicLiterals(t *testing.T) {
	for _, topic := range []string{
		"milestones/latest", "milestones/solid", "messages", "messages/referenced",
	} {
		require.NoError(t, ValidateTopic(topic))
	}
}

func TestValidateTopicTemplated(t *testing.T) {
	ok := []string{
		"messages/abcd1234/metadata",
		"outputs/ffff0000",
		"addresses/iota1qqq/outputs",
		"messages/indexation/MYINDEX",
	}
	for _, topic := range ok {
		require.NoError(t, ValidateTopic(topic), topic)
	}

	bad := []string{
		"",
		"milestones",
		"messages//metadata",
		"outputs/",
		"addresses//outputs",
		"something/else",
	}
	for _, topic := range bad {
		require.Error(t, ValidateTopic(topic), topic)
	}
}

func TestDecodeEventByTopic(t *testing.T) {
	ev, err := decodeEvent("milestones/latest", []byte(`{"index":42,"messageId":"abc","timestamp":100}`))
	require.NoError(t, err)
	ms, ok := ev.(MilestoneEvent)
	require.True(t, ok)
	require.EqualValues(t, 42, ms.Index)

	_, err = decodeEvent("messages/abc/metadata", []byte(`{"messageId":"abc","shouldPromote":true}`))
	require.NoError(t, err)

	_, err = decodeEvent("messages/indexation/TEST", []byte(`{"messageId":"abc","index":"TEST"}`))
	require.NoError(t, err)

	_, err = decodeEvent("unsupported/topic", []byte(`{}`))
	require.Error(t, err)
}

// TestPickNode_AdmitsSyncedNodeWithMQTTPort guards against a regression of
// the bug where synced nodes always carried MQTTPort == 0, which made
// pickNode reject every candidate and left the multiplexer permanently
// unable to connect.
func TestPickNode_AdmitsSyncedNodeWithMQTTPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isHealthy": true,
			"network":   codec.NetworkMainnet.String(),
			"features":  []string{"mqtt:1883"},
		})
	}))
	defer srv.Close()

	cfg := nodepool.DefaultConfig(codec.NetworkMainnet)
	cfg.NodeSyncInterval = 20 * time.Millisecond
	pool := nodepool.New([]string{srv.URL}, cfg, nil, nil)
	require.NoError(t, pool.Start())
	defer pool.Stop()

	require.Eventually(t, func() bool {
		synced := pool.Synced()
		return len(synced) == 1 && synced[0].MQTTPort > 0
	}, waitTimeout, waitTick)

	m := New(pool, DefaultConfig())
	node, err := m.pickNode()
	require.NoError(t, err)
	require.Equal(t, srv.URL, node.URL)
	require.Equal(t, 1883, node.MQTTPort)
}

// TestPickNode_NoMQTTPortFailsNoSyncedNodes covers the prior (buggy)
// configuration directly: a synced node with MQTTPort == 0 must never be
// handed out as a broker candidate.
func TestPickNode_NoMQTTPortFailsNoSyncedNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isHealthy": true,
			"network":   codec.NetworkMainnet.String(),
		})
	}))
	defer srv.Close()

	cfg := nodepool.DefaultConfig(codec.NetworkMainnet)
	cfg.NodeSyncInterval = 20 * time.Millisecond
	cfg.MQTTPort = 0
	pool := nodepool.New([]string{srv.URL}, cfg, nil, nil)
	require.NoError(t, pool.Start())
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return len(pool.Synced()) == 1
	}, waitTimeout, waitTick)

	m := New(pool, DefaultConfig())
	_, err := m.pickNode()
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindNoSyncedNodes))
}

// TestDispatcherOrdering verifies spec.md §8: duplicate subscribers on the
// same topic are both invoked, in registration order, once per event.
func TestDispatcherOrdering(t *testing.T) {
	d := newDispatcher()
	defer d.close()

	var order []string
	first := d.register("messages", func(topic string, event interface{}) {
		order = append(order, "first:"+event.(string))
	})
	require.True(t, first)

	second := d.register("messages", func(topic string, event interface{}) {
		order = append(order, "second:"+event.(string))
	})
	require.False(t, second)

	d.deliver("messages", "A")
	d.deliver("messages", "B")

	require.Eventually(t, func() bool {
		return len(order) == 4
	}, waitTimeout, waitTick)

	require.Equal(t, []string{"first:A", "second:A", "first:B", "second:B"}, order)
}

// TestUnsubscribeWithoutSubscribeIsNoop covers spec.md §8's boundary case.
func TestUnsubscribeWithoutSubscribeIsNoop(t *testing.T) {
	d := newDispatcher()
	defer d.close()

	emptied := d.unregister("messages")
	require.Empty(t, emptied)
}

// TestResubscribeRestoresBehavior covers spec.md §8: subscribe, unsubscribe,
// subscribe again restores delivery.
func TestResubscribeRestoresBehavior(t *testing.T) {
	d := newDispatcher()
	defer d.close()

	var got []string
	d.register("messages", func(topic string, event interface{}) {
		got = append(got, event.(string))
	})
	emptied := d.unregister("messages")
	require.Equal(t, []string{"messages"}, emptied)

	d.deliver("messages", "dropped") // no active queue: silently ignored

	d.register("messages", func(topic string, event interface{}) {
		got = append(got, event.(string))
	})
	d.deliver("messages", "delivered")

	require.Eventually(t, func() bool {
		return len(got) == 1
	}, waitTimeout, waitTick)
	require.Equal(t, []string{"delivered"}, got)
}
