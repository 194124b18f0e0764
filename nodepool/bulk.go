package nodepool

import (
	"context"

	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"golang.org/x/sync/errgroup"
)

// BulkFetch implements spec.md §4.4's sharded bulk fan-out: ids exceeding a
// single node's BulkShardLimit are split into ordered chunks and assigned
// round-robin across the synced set, fetched concurrently (one goroutine
// per shard, golang.org/x/sync/errgroup for first-error cancellation), then
// merged back in input order.
func BulkFetch[T any](ctx context.Context, p *Pool, ids []string, fetch func(ctx context.Context, c *nodeclient.Client, ids []string) ([]T, error)) ([]T, error) {
	synced := p.Synced()
	if len(synced) == 0 {
		return nil, iotaerr.New(iotaerr.KindNoSyncedNodes, "no synced nodes available")
	}

	limit := p.cfg.BulkShardLimit
	if limit <= 0 {
		limit = len(ids)
	}

	var shards [][]string
	for i := 0; i < len(ids); i += limit {
		end := i + limit
		if end > len(ids) {
			end = len(ids)
		}
		shards = append(shards, ids[i:end])
	}

	p.mu.RLock()
	clients := make([]*nodeclient.Client, len(synced))
	for i, n := range synced {
		clients[i] = p.clients[n.URL]
	}
	p.mu.RUnlock()

	results := make([][]T, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		client := clients[i%len(clients)]
		g.Go(func() error {
			res, err := fetch(gctx, client, shard)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []T
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
