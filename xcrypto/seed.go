// Package xcrypto adapts the external Ed25519/Blake2b primitives and
// implements the SLIP-10 (Ed25519 curve) BIP32-style hardened derivation and
// proof-of-work search described in spec.md §4.2. Everything here is a thin
// wrapper around golang.org/x/crypto (the teacher's own crypto dependency)
// plus stdlib crypto/ed25519, crypto/hmac and crypto/sha512 for the one
// piece of this component — SLIP-10 derivation — that has no mainstream Go
// third-party implementation (see DESIGN.md).
package xcrypto

import (
	"encoding/hex"

	"github.com/iota-go/client/iotaerr"
)

// SeedLen is the required length, in bytes, of a Seed.
const SeedLen = 32

// Seed is an opaque 32-byte secret (spec.md §3). It is never logged or
// serialized; Bytes() is only exposed for the duration of a single call
// (the derivation/signing operations that need it), matching the "acquired
// within a single call and released before return" discipline of spec.md §5.
type Seed struct {
	b [SeedLen]byte
}

// NewSeedFromHex parses a hex-encoded seed, rejecting anything that doesn't
// decode to exactly SeedLen bytes.
func NewSeedFromHex(s string) (Seed, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Seed{}, iotaerr.Wrap(iotaerr.KindInvalidSeed, err)
	}
	if len(raw) != SeedLen {
		return Seed{}, iotaerr.Newf(iotaerr.KindInvalidSeed,
			"seed must be %d bytes, got %d", SeedLen, len(raw))
	}
	var s32 Seed
	copy(s32.b[:], raw)
	return s32, nil
}

// Bytes returns the raw seed bytes. Callers must not retain the returned
// slice beyond the scope of the current call.
func (s Seed) Bytes() []byte {
	return s.b[:]
}

// Zero overwrites the seed's backing array with zeroes. Call this as soon
// as a call's derivations are complete.
func (s *Seed) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
}
