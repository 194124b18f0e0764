package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/xcrypto"
)

func testSeed(t *testing.T) xcrypto.Seed {
	t.Helper()
	seed, err := xcrypto.NewSeedFromHex(strings.Repeat("ab", 32))
	require.NoError(t, err)
	return seed
}

// TestGetBalance_TerminatesAtFirstZero reproduces spec.md §8 scenario 2:
// addresses at indices 0..4 have balances [10, 5, 0, 7, 3]; get_balance must
// return 15, stopping at index 2.
func TestGetBalance_TerminatesAtFirstZero(t *testing.T) {
	seed := testSeed(t)
	path := xcrypto.NewBip32Path(0, 0)
	network := codec.NetworkMainnet

	balances := map[string]uint64{}
	wanted := []uint64{10, 5, 0, 7, 3}
	for i, b := range wanted {
		addr := deriveAddress(seed, path, uint32(i))
		s, err := addr.String(network)
		require.NoError(t, err)
		balances[s] = b
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/balance"):
			addr := addressFromPath(r.URL.Path, "/balance")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"address": addr,
				"balance": balances[addr],
			})
		case strings.HasSuffix(r.URL.Path, "/outputs"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"address":   addressFromPath(r.URL.Path, "/outputs"),
				"outputIds": []string{},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := nodeclient.NewClient(srv.URL, nodeclient.DefaultTimeouts())
	total, err := GetBalance(context.Background(), client, seed, path, network, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(15), total)
}

// TestValidateSuppliedOutputs_RejectsMismatchedAddress covers spec.md
// §4.5.5 step 3: a caller-supplied input override whose Address doesn't
// match what path || AddressIndex' actually derives to must be rejected.
func TestValidateSuppliedOutputs_RejectsMismatchedAddress(t *testing.T) {
	seed := testSeed(t)
	path := xcrypto.NewBip32Path(0, 0)

	wrongAddr := deriveAddress(seed, path, 99)
	outputs := []UnspentOutput{{AddressIndex: 0, Address: wrongAddr, Amount: 10}}

	err := validateSuppliedOutputs(seed, path, outputs)
	require.Error(t, err)
}

func TestValidateSuppliedOutputs_AcceptsMatchingAddress(t *testing.T) {
	seed := testSeed(t)
	path := xcrypto.NewBip32Path(0, 0)

	addr := deriveAddress(seed, path, 0)
	outputs := []UnspentOutput{{AddressIndex: 0, Address: addr, Amount: 10}}

	require.NoError(t, validateSuppliedOutputs(seed, path, outputs))
}

func addressFromPath(path, suffix string) string {
	trimmed := strings.TrimSuffix(path, suffix)
	idx := strings.LastIndex(trimmed, "/")
	return trimmed[idx+1:]
}

// TestSend_PureIndexation reproduces spec.md §8 scenario 1: a
// value=0/indexation-only send against a single mock node with fixed tips
// and PoW target 0.
func TestSend_PureIndexation(t *testing.T) {
	var h0, h1 codec.MessageId
	h0[0], h1[0] = 0xAA, 0xBB

	var posted []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
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
	defer srv.Close()

	client := nodeclient.NewClient(srv.URL, nodeclient.DefaultTimeouts())
	engine := &Engine{Network: codec.NetworkMainnet, LocalPoW: true, TargetDifficulty: 0}

	result, err := engine.Send(context.Background(), client, SendRequest{
		Value:         0,
		IndexationKey: "TEST",
		IndexationData: []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	require.NotNil(t, posted)

	msg, err := codec.DecodeMessageBytes(posted)
	require.NoError(t, err)
	idx, ok := msg.Payload.(codec.Indexation)
	require.True(t, ok)
	require.Equal(t, "TEST", idx.Index)
	require.Equal(t, []byte{0x01, 0x02}, idx.Data)
	require.Equal(t, h0, msg.Parent1)
	require.Equal(t, h1, msg.Parent2)
	require.Equal(t, codec.MessageId{}, result.MessageID)
}
