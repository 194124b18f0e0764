package xcrypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/iota-go/client/iotaerr"
)

// hardenedOffset is added to every index in a Bip32Path: SLIP-0010's
// Ed25519 curve variant supports only hardened derivation, so every index
// is implicitly hardened and the offset is never optional.
const hardenedOffset = uint32(1) << 31

// Bip32Path is an ordered sequence of hardened child indices (spec.md §3).
// The two-element "wallet chain" prefix (m/0'/0') has depth 2; a full
// address path appends one more hardened index to reach depth 3.
type Bip32Path struct {
	indices []uint32
}

// NewBip32Path builds a path from already-hardened-intent indices (the
// apostrophe is implied, not stored).
func NewBip32Path(indices ...uint32) Bip32Path {
	cp := make([]uint32, len(indices))
	copy(cp, indices)
	return Bip32Path{indices: cp}
}

// ParseBip32Path parses strings of the form "m/0'/0'", requiring every
// segment after "m" to be hardened (suffixed with ').
func ParseBip32Path(s string) (Bip32Path, error) {
	segments := strings.Split(s, "/")
	if len(segments) < 1 || segments[0] != "m" {
		return Bip32Path{}, iotaerr.Newf(iotaerr.KindInvalidBip32Path,
			"path %q must start with \"m\"", s)
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		if !strings.HasSuffix(seg, "'") {
			return Bip32Path{}, iotaerr.Newf(iotaerr.KindInvalidBip32Path,
				"segment %q must be hardened (end with ')", seg)
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(seg, "'"), 10, 32)
		if err != nil {
			return Bip32Path{}, iotaerr.Wrap(iotaerr.KindInvalidBip32Path, err)
		}
		indices = append(indices, uint32(n))
	}
	return Bip32Path{indices: indices}, nil
}

// Depth returns the number of hardened indices in the path.
func (p Bip32Path) Depth() int {
	return len(p.indices)
}

// Child returns a new path with index appended, one level deeper.
func (p Bip32Path) Child(index uint32) Bip32Path {
	extended := make([]uint32, len(p.indices)+1)
	copy(extended, p.indices)
	extended[len(p.indices)] = index
	return Bip32Path{indices: extended}
}

// String renders the path in "m/0'/0'" form.
func (p Bip32Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p.indices {
		fmt.Fprintf(&b, "/%d'", idx)
	}
	return b.String()
}

// ValidateWalletChainDepth enforces spec.md §4.5.5 step 1: the wallet-chain
// prefix used for sending must have exactly depth 2.
func ValidateWalletChainDepth(p Bip32Path) error {
	if p.Depth() != 2 {
		return iotaerr.Newf(iotaerr.KindInvalidBip32Path,
			"wallet chain path must have depth 2, got %d", p.Depth())
	}
	return nil
}

const ed25519SeedHMACKey = "ed25519 seed"

// Derive computes the deterministic 32-byte Ed25519 private-key seed for
// seed/path, via SLIP-0010's Ed25519 curve variant: hardened-only HMAC-SHA512
// chaining starting from a master key/chain-code pair derived from the
// master seed. Every BIP32Path produced by this module is implicitly
// hardened, matching SLIP-0010's requirement that Ed25519 never supports
// normal (non-hardened) derivation.
func Derive(seed Seed, path Bip32Path) [32]byte {
	key, chainCode := masterKey(seed.Bytes())
	for _, index := range path.indices {
		key, chainCode = deriveChild(key, chainCode, index)
	}
	return key
}

func masterKey(seed []byte) (key, chainCode [32]byte) {
	mac := hmac.New(sha512.New, []byte(ed25519SeedHMACKey))
	mac.Write(seed)
	i := mac.Sum(nil)
	copy(key[:], i[:32])
	copy(chainCode[:], i[32:])
	return key, chainCode
}

func deriveChild(key, chainCode [32]byte, index uint32) (childKey, childChainCode [32]byte) {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, key[:]...)

	var idxBytes [4]byte
	binary.BigEndian.PutUint32(idxBytes[:], index+hardenedOffset)
	data = append(data, idxBytes[:]...)

	mac := hmac.New(sha512.New, chainCode[:])
	mac.Write(data)
	i := mac.Sum(nil)
	copy(childKey[:], i[:32])
	copy(childChainCode[:], i[32:])
	return childKey, childChainCode
}
