// Package retry implements the retry controller (spec.md §4.6): deciding
// whether an unconfirmed message needs to be reattached or promoted, and
// maintaining the reattachment-chain registry that records the result.
package retry

import (
	"sync"

	"github.com/iota-go/client/codec"
)

// ReattachmentChain records, for each original message id, every message id
// it has since been reattached as (spec.md §9: "reattachment chains
// logically form a forest ... represent via a mapping from root MessageId
// to an appended list of MessageIds; no back-pointers").
type ReattachmentChain struct {
	mu    sync.RWMutex
	chain map[codec.MessageId][]codec.MessageId
}

// NewReattachmentChain returns an empty registry.
func NewReattachmentChain() *ReattachmentChain {
	return &ReattachmentChain{chain: make(map[codec.MessageId][]codec.MessageId)}
}

// Append records that root was reattached as next.
func (c *ReattachmentChain) Append(root, next codec.MessageId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain[root] = append(c.chain[root], next)
}

// Reattachments returns the ids root has been reattached as, in append
// order.
func (c *ReattachmentChain) Reattachments(root codec.MessageId) []codec.MessageId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]codec.MessageId, len(c.chain[root]))
	copy(out, c.chain[root])
	return out
}
