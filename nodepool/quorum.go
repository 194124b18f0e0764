package nodepool

import (
	"bytes"
	"context"
	"math/rand"

	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
)

// QuorumBytes implements spec.md §4.4's quorum mode: fetch is issued against
// QuorumSize distinct randomly-chosen synced nodes and the result is
// accepted only if at least QuorumThreshold of the responses are
// byte-identical to each other. Quorum mode is only engaged when
// QuorumSize >= 2; callers should check that before calling this.
func (p *Pool) QuorumBytes(ctx context.Context, fetch func(ctx context.Context, c *nodeclient.Client) ([]byte, error)) ([]byte, error) {
	synced := p.Synced()
	if len(synced) < p.cfg.QuorumSize {
		return nil, iotaerr.New(iotaerr.KindNoSyncedNodes,
			"not enough synced nodes to satisfy quorum")
	}

	chosen := pickDistinct(synced, p.cfg.QuorumSize)

	p.mu.RLock()
	clients := make([]*nodeclient.Client, len(chosen))
	for i, n := range chosen {
		clients[i] = p.clients[n.URL]
	}
	p.mu.RUnlock()

	responses := make([][]byte, len(clients))
	for i, c := range clients {
		b, err := fetch(ctx, c)
		if err != nil {
			return nil, err
		}
		responses[i] = b
	}

	best, count := mostCommon(responses)
	threshold := float64(count) / float64(len(responses))
	if threshold < p.cfg.QuorumThreshold {
		return nil, iotaerr.New(iotaerr.KindQuorumFailed, "quorum responses did not agree")
	}
	return best, nil
}

func pickDistinct(nodes []Node, n int) []Node {
	shuffled := make([]Node, len(nodes))
	copy(shuffled, nodes)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func mostCommon(responses [][]byte) ([]byte, int) {
	var best []byte
	bestCount := 0
	for i, r := range responses {
		count := 0
		for _, other := range responses {
			if bytes.Equal(r, other) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = responses[i]
		}
	}
	return best, bestCount
}
