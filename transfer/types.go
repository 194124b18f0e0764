// Package transfer implements the value-transfer pipeline (spec.md §4.5):
// the gap-limit address scan, balance queries, and the send() operation
// that assembles, signs, proof-of-works, and posts a Message.
package transfer

import (
	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/xcrypto"
)

// gapLimit is the window size the scan primitive advances by (spec.md
// §4.5.1): generate this many addresses, resolve their outputs concurrently,
// then decide whether to slide further.
const gapLimit = 20

// UnspentOutput is one input candidate discovered by the address scan:
// enough to build a UTXOInput and to re-derive its signing key later.
type UnspentOutput struct {
	Input        codec.UTXOInput
	Address      codec.Address
	AddressIndex uint32
	Amount       uint64
}

// deriveAddress computes the Address at wallet-chain path || index'
// (spec.md §4.5.1: public_key(derive(seed, path || k')) hashed to an
// Address).
func deriveAddress(seed xcrypto.Seed, path xcrypto.Bip32Path, index uint32) codec.Address {
	privSeed := xcrypto.Derive(seed, path.Child(index))
	pub := xcrypto.PublicKey(privSeed)
	hash := xcrypto.PublicKeyHash(pub)
	return codec.NewEd25519Address(hash)
}

// SendRequest is the argument bundle for Send (spec.md §4.5.5).
type SendRequest struct {
	Seed            *xcrypto.Seed
	Address         *codec.Address
	Value           uint64
	Path            xcrypto.Bip32Path
	Outputs         []UnspentOutput // user-supplied input override, optional
	IndexationKey   string
	IndexationData  []byte
}

// SendResult is what Send returns on success.
type SendResult struct {
	MessageID codec.MessageId
	Message   codec.Message
}
