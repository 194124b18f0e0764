package transfer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/xcrypto"
)

// windowEntry is one scanned address's resolved outputs/balance.
type windowEntry struct {
	Index   uint32
	Address codec.Address
	Outputs nodeclient.AddressOutputs
	Balance uint64
}

// scanWindow derives the next gapLimit addresses starting at startIndex and
// resolves each one's outputs and balance concurrently (spec.md §4.5.1:
// "query outputs for them in parallel ... then decide based on the returned
// balances").
func scanWindow(
	ctx context.Context,
	client *nodeclient.Client,
	seed xcrypto.Seed,
	path xcrypto.Bip32Path,
	network codec.Network,
	startIndex uint32,
) ([]windowEntry, error) {
	entries := make([]windowEntry, gapLimit)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < gapLimit; i++ {
		i := i
		idx := startIndex + uint32(i)
		addr := deriveAddress(seed, path, idx)
		entries[i] = windowEntry{Index: idx, Address: addr}

		g.Go(func() error {
			addrStr, err := addr.String(network)
			if err != nil {
				return err
			}

			outs, err := client.GetAddressOutputs(gctx, addrStr)
			if err != nil {
				return err
			}
			bal, err := client.GetAddressBalance(gctx, addrStr)
			if err != nil {
				return err
			}

			entries[i].Outputs = outs
			entries[i].Balance = bal.Balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetUnspentAddress scans forward from start until it finds an address with
// no output history, per spec.md §4.5.2. It slides by gapLimit windows with
// no overall cap — callers bound iteration by external policy.
func GetUnspentAddress(
	ctx context.Context,
	client *nodeclient.Client,
	seed xcrypto.Seed,
	path xcrypto.Bip32Path,
	network codec.Network,
	start uint32,
) (codec.Address, uint32, error) {
	if err := xcrypto.ValidateWalletChainDepth(path); err != nil {
		return codec.Address{}, 0, err
	}

	for windowStart := start; ; windowStart += gapLimit {
		entries, err := scanWindow(ctx, client, seed, path, network, windowStart)
		if err != nil {
			return codec.Address{}, 0, err
		}
		for _, e := range entries {
			if len(e.Outputs.OutputIDs) == 0 {
				return e.Address, e.Index, nil
			}
		}
	}
}

// GetBalance scans and accumulates confirmed balances, terminating at the
// first zero-balance address (spec.md §4.5.3).
func GetBalance(
	ctx context.Context,
	client *nodeclient.Client,
	seed xcrypto.Seed,
	path xcrypto.Bip32Path,
	network codec.Network,
	start uint32,
) (uint64, error) {
	if err := xcrypto.ValidateWalletChainDepth(path); err != nil {
		return 0, err
	}

	var total uint64
	for windowStart := start; ; windowStart += gapLimit {
		entries, err := scanWindow(ctx, client, seed, path, network, windowStart)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.Balance == 0 {
				return total, nil
			}
			total += e.Balance
		}
	}
}

// collectUnspentOutputs scans forward accumulating spendable inputs until
// their total reaches at least target, used by Send's greedy input
// selection (spec.md §4.5.5 step 3).
func collectUnspentOutputs(
	ctx context.Context,
	client *nodeclient.Client,
	seed xcrypto.Seed,
	path xcrypto.Bip32Path,
	network codec.Network,
	target uint64,
) ([]UnspentOutput, uint32, error) {
	var (
		selected  []UnspentOutput
		sum       uint64
		maxIndex  uint32
	)

	for windowStart := uint32(0); ; windowStart += gapLimit {
		entries, err := scanWindow(ctx, client, seed, path, network, windowStart)
		if err != nil {
			return nil, 0, err
		}

		progressed := false
		for _, e := range entries {
			if e.Balance == 0 {
				continue
			}
			progressed = true

			// An address can hold more than one unspent output; resolve
			// each individually via GetOutput instead of attributing the
			// whole address Balance to a single representative input.
			for _, outID := range e.Outputs.OutputIDs {
				input, decErr := codec.ParseOutputID(outID)
				if decErr != nil {
					return nil, 0, decErr
				}

				meta, err := client.GetOutput(ctx, outID)
				if err != nil {
					return nil, 0, err
				}
				if meta.IsSpent {
					continue
				}

				selected = append(selected, UnspentOutput{
					Input:        input,
					Address:      e.Address,
					AddressIndex: e.Index,
					Amount:       meta.Amount,
				})
				if e.Index > maxIndex {
					maxIndex = e.Index
				}
				sum += meta.Amount
				if sum >= target {
					return selected, maxIndex, nil
				}
			}
		}
		if !progressed && sum == 0 && windowStart > 0 {
			return nil, 0, iotaerr.New(iotaerr.KindNoUnspentOutput, "no unspent outputs found")
		}
	}
}
