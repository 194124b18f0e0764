package transfer

import (
	"context"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
)

// GetAddressBalances implements spec.md §4.5.4: a pure fan-out to the
// balance endpoint for an explicit address list, validating each address
// before dispatch. If any single lookup fails, no partial results are
// returned.
func GetAddressBalances(
	ctx context.Context,
	client *nodeclient.Client,
	network codec.Network,
	addresses []codec.Address,
) (map[string]uint64, error) {
	out := make(map[string]uint64, len(addresses))

	for _, addr := range addresses {
		addrStr, err := addr.String(network)
		if err != nil {
			return nil, iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
		}

		bal, err := client.GetAddressBalance(ctx, addrStr)
		if err != nil {
			return nil, iotaerr.AddressQueryFailed(addrStr, err)
		}
		out[addrStr] = bal.Balance
	}

	return out, nil
}
