package xcrypto

import (
	"crypto/ed25519"
)

// PublicKey derives the Ed25519 public key for a private-key seed produced
// by Derive.
func PublicKey(privSeed [32]byte) [32]byte {
	priv := ed25519.NewKeyFromSeed(privSeed[:])
	pub := priv.Public().(ed25519.PublicKey)
	var out [32]byte
	copy(out[:], pub)
	return out
}

// Sign produces a detached Ed25519 signature over hash using the private
// key derived from privSeed (spec.md §4.2). The "hash" here is always an
// essence hash (codec.EssenceHash) in this client's usage.
func Sign(privSeed [32]byte, hash []byte) [64]byte {
	priv := ed25519.NewKeyFromSeed(privSeed[:])
	sig := ed25519.Sign(priv, hash)
	var out [64]byte
	copy(out[:], sig)
	return out
}

// Verify checks an Ed25519 signature against a public key and message hash.
func Verify(pubKey [32]byte, hash []byte, sig [64]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pubKey[:]), hash, sig[:])
}

// PublicKeyHash returns the address-form hash of a public key. spec.md §3
// defines an Ed25519 Address as a "32-byte public-key hash"; for Ed25519
// keys (already 32 bytes) that hash is the Blake2b-256 digest of the raw
// public key, giving addresses a fixed width independent of key encoding.
func PublicKeyHash(pubKey [32]byte) [32]byte {
	return Blake2b256(pubKey[:])
}
