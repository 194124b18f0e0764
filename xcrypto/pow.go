package xcrypto

import (
	"context"
	"encoding/binary"
	"math/big"
)

// checkpointInterval is how many nonce attempts ProofOfWork tries between
// checks of the cancellation context, per spec.md §5: "PoW computation is
// CPU-bound and may suspend only at a caller-provided cancellation
// checkpoint (polled each N hash attempts)".
const checkpointInterval = 4096

// TrailingZeroTrits returns the number of trailing zero base-3 digits of
// hash, read as a big-endian unsigned integer. This is the PoW scoring
// function spec.md §4.2 calls "trailing-zero-trits count of Blake2b-256";
// the PoW algorithm itself is a black-box primitive (spec.md §1), so the
// exact trit-encoding scheme is this client's own, internally consistent
// choice rather than a reproduction of any particular node's trit codec.
func TrailingZeroTrits(hash [32]byte) int {
	n := new(big.Int).SetBytes(hash[:])
	three := big.NewInt(3)
	mod := new(big.Int)

	count := 0
	for n.Sign() != 0 {
		n.DivMod(n, three, mod)
		if mod.Sign() != 0 {
			break
		}
		count++
	}
	return count
}

// ProofOfWork searches for a nonce such that TrailingZeroTrits(Blake2b256(msg
// with that nonce)) >= targetDifficulty, per spec.md §4.2. base must be the
// canonical encoding of the message with its trailing 8 bytes reserved for
// the little-endian nonce (codec.Message always places Nonce last, so
// callers pass the full encoded message and this function overwrites only
// those final 8 bytes on each attempt instead of re-encoding the whole
// message per try).
//
// The search runs until it finds a satisfying nonce or ctx is cancelled, in
// which case it returns ctx.Err() — surfaced by callers as a Cancelled
// error per spec.md §5.
func ProofOfWork(ctx context.Context, base []byte, targetDifficulty int) (uint64, error) {
	if len(base) < 8 {
		panic("xcrypto: ProofOfWork base too short to hold a nonce")
	}
	nonceOffset := len(base) - 8

	for nonce := uint64(0); ; nonce++ {
		if nonce%checkpointInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}

		binary.LittleEndian.PutUint64(base[nonceOffset:], nonce)
		hash := Blake2b256(base)
		if TrailingZeroTrits(hash) >= targetDifficulty {
			return nonce, nil
		}
	}
}
