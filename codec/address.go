package codec

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/iota-go/client/iotaerr"
)

// String encodes the address as a checksummed bech32 string scoped to net,
// the same construction zpay32/invoice.go uses for payment request strings:
// a network-specific human-readable part plus a bech32 checksum over the
// 5-bit-converted payload.
func (a Address) String(net Network) (string, error) {
	payload := make([]byte, 0, len(a.Bytes)+1)
	payload = append(payload, byte(a.Kind))
	payload = append(payload, a.Bytes...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
	}
	encoded, err := bech32.Encode(net.hrp(), converted)
	if err != nil {
		return "", iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
	}
	return encoded, nil
}

// ParseAddress decodes and validates a bech32 address string against the
// expected network, rejecting checksum failures, unknown HRPs, and unknown
// address-kind discriminants.
func ParseAddress(s string, net Network) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
	}
	if hrp != net.hrp() {
		return Address{}, iotaerr.Newf(iotaerr.KindInvalidAddress,
			"address %q does not belong to network %s", s, net)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, iotaerr.Wrap(iotaerr.KindInvalidAddress, err)
	}
	if len(payload) < 1 {
		return Address{}, iotaerr.New(iotaerr.KindInvalidAddress, "empty address payload")
	}

	kind := AddressKind(payload[0])
	body := payload[1:]
	switch kind {
	case AddressEd25519:
		if len(body) != 32 {
			return Address{}, iotaerr.Newf(iotaerr.KindInvalidAddress,
				"ed25519 address must be 32 bytes, got %d", len(body))
		}
	case AddressWots:
		if len(body) == 0 {
			return Address{}, iotaerr.New(iotaerr.KindInvalidAddress, "empty wots address body")
		}
	default:
		return Address{}, iotaerr.Newf(iotaerr.KindInvalidAddress,
			"unknown address kind discriminant %d", kind)
	}

	return Address{Kind: kind, Bytes: body}, nil
}
