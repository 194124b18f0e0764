package retry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
)

func messageIDFromIndex(b byte) codec.MessageId {
	var id codec.MessageId
	id[0] = b
	return id
}

// TestRetry_AlreadyConfirmedRejectsWithoutPosting reproduces spec.md §8's
// property: retry(id) where metadata.confirmed must never reach the network
// with a POST.
func TestRetry_AlreadyConfirmedRejectsWithoutPosting(t *testing.T) {
	posted := false
	idx := uint32(5)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/metadata"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messageId":                  "00",
				"referencedByMilestoneIndex": idx,
			})
		case r.URL.Path == "/api/v1/messages" && r.Method == http.MethodPost:
			posted = true
			json.NewEncoder(w).Encode(map[string]interface{}{"messageId": strings.Repeat("00", 32)})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := nodeclient.NewClient(srv.URL, nodeclient.DefaultTimeouts())
	c := NewController(true, 0)

	_, _, err := c.Retry(context.Background(), client, messageIDFromIndex(1))
	require.Error(t, err)
	require.True(t, iotaerr.Is(err, iotaerr.KindAlreadyConfirmed))
	require.False(t, posted)
}

// TestRetry_PromoteWhenRequired reproduces spec.md §8 scenario 5.
func TestRetry_PromoteWhenRequired(t *testing.T) {
	var tip codec.MessageId
	tip[0] = 0x42

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/metadata"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"shouldPromote": true,
			})
		case r.URL.Path == "/api/v1/tips":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"tipMessageIds": []string{hexOf(tip), hexOf(tip)},
			})
		case r.URL.Path == "/api/v1/messages" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]interface{}{"messageId": strings.Repeat("00", 32)})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := nodeclient.NewClient(srv.URL, nodeclient.DefaultTimeouts())
	c := NewController(true, 0)

	newID, msg, err := c.Retry(context.Background(), client, messageIDFromIndex(1))
	require.NoError(t, err)
	require.Equal(t, codec.MessageId{}, newID)
	idx, ok := msg.Payload.(codec.Indexation)
	require.True(t, ok)
	require.Equal(t, "PROMOTE", idx.Index)
}

// TestRetry_ReattachWhenUnconfirmed reproduces spec.md §8 scenario 4: a
// shouldReattach message is re-posted under fresh tips and the chain
// registry records original -> new.
func TestRetry_ReattachWhenUnconfirmed(t *testing.T) {
	var h2, h3 codec.MessageId
	h2[0], h3[0] = 0x02, 0x03

	original := messageIDFromIndex(1)
	originalMsg := codec.Message{
		Parent1: messageIDFromIndex(0xF0),
		Parent2: messageIDFromIndex(0xF1),
		Payload: codec.Indexation{Index: "KEEP"},
	}
	originalBytes, err := codec.EncodeMessage(originalMsg)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/metadata"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"shouldReattach": true,
			})
		case strings.HasSuffix(r.URL.Path, "/raw"):
			w.Write(originalBytes)
		case r.URL.Path == "/api/v1/tips":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"tipMessageIds": []string{hexOf(h2), hexOf(h3)},
			})
		case r.URL.Path == "/api/v1/messages" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]interface{}{"messageId": strings.Repeat("01", 32)})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := nodeclient.NewClient(srv.URL, nodeclient.DefaultTimeouts())
	c := NewController(true, 0)

	newID, msg, err := c.Retry(context.Background(), client, original)
	require.NoError(t, err)
	require.Equal(t, h2, msg.Parent1)
	require.Equal(t, h3, msg.Parent2)
	idx, ok := msg.Payload.(codec.Indexation)
	require.True(t, ok)
	require.Equal(t, "KEEP", idx.Index)

	chained := c.Chain.Reattachments(original)
	require.Equal(t, []codec.MessageId{newID}, chained)
}

func hexOf(id codec.MessageId) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range id {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
