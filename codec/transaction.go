package codec

import "io"

// UnlockBlockKind tags which concrete UnlockBlock variant is present.
type UnlockBlockKind uint8

const (
	UnlockSignature UnlockBlockKind = iota
	UnlockReference
)

// UnlockBlock authorizes spending the input at the same index within the
// essence's input list (spec.md §3). A Signature unlock carries a direct
// Ed25519 signature over the essence hash; a Reference unlock instead
// points at an earlier unlock block whose signature already unlocks the
// same address, avoiding a redundant second signature when one address
// funds multiple inputs.
type UnlockBlock struct {
	Kind UnlockBlockKind

	// Populated when Kind == UnlockSignature.
	PublicKey [32]byte
	Signature [64]byte

	// Populated when Kind == UnlockReference.
	ReferenceIndex uint16
}

func (u UnlockBlock) Encode(w io.Writer) error {
	if err := writeUint8(w, uint8(u.Kind)); err != nil {
		return err
	}
	switch u.Kind {
	case UnlockSignature:
		if err := writeFixedBytes(w, u.PublicKey[:]); err != nil {
			return err
		}
		return writeFixedBytes(w, u.Signature[:])
	case UnlockReference:
		return writeUint16(w, u.ReferenceIndex)
	default:
		return malformed("unknown unlock block kind %d", u.Kind)
	}
}

func decodeUnlockBlock(r io.Reader) (UnlockBlock, error) {
	var u UnlockBlock
	kind, err := readUint8(r)
	if err != nil {
		return u, err
	}
	u.Kind = UnlockBlockKind(kind)
	switch u.Kind {
	case UnlockSignature:
		pk, err := readFixedBytes(r, 32)
		if err != nil {
			return u, err
		}
		copy(u.PublicKey[:], pk)

		sig, err := readFixedBytes(r, 64)
		if err != nil {
			return u, err
		}
		copy(u.Signature[:], sig)
	case UnlockReference:
		idx, err := readUint16(r)
		if err != nil {
			return u, err
		}
		u.ReferenceIndex = idx
	default:
		return u, malformed("unknown unlock block discriminant %d", kind)
	}
	return u, nil
}

// Transaction spends the inputs named in its essence to the outputs it
// defines, authorized by one unlock block per input (spec.md §3).
type Transaction struct {
	Essence      TransactionEssence
	UnlockBlocks []UnlockBlock
}

func (Transaction) Kind() PayloadKind { return PayloadTransaction }

func (t Transaction) Encode(w io.Writer) error {
	if len(t.UnlockBlocks) != len(t.Essence.Inputs) {
		return malformed("unlock block count %d does not match input count %d",
			len(t.UnlockBlocks), len(t.Essence.Inputs))
	}
	if err := t.Essence.Encode(w); err != nil {
		return err
	}
	for _, u := range t.UnlockBlocks {
		if err := u.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func decodeTransaction(r io.Reader) (Transaction, error) {
	var t Transaction

	essence, err := DecodeTransactionEssence(r)
	if err != nil {
		return t, err
	}
	t.Essence = essence

	t.UnlockBlocks = make([]UnlockBlock, len(essence.Inputs))
	for i := range t.UnlockBlocks {
		u, err := decodeUnlockBlock(r)
		if err != nil {
			return t, err
		}
		t.UnlockBlocks[i] = u
	}

	if len(t.UnlockBlocks) != len(t.Essence.Inputs) {
		return t, malformed("unlock block count %d does not match input count %d",
			len(t.UnlockBlocks), len(t.Essence.Inputs))
	}

	// Every Reference unlock must point at an earlier Signature unlock
	// block; forward references or references to another Reference are
	// rejected (spec.md §8's unlock-block well-formedness property).
	for i, u := range t.UnlockBlocks {
		if u.Kind != UnlockReference {
			continue
		}
		if int(u.ReferenceIndex) >= i {
			return t, malformed("reference unlock at index %d points forward/at itself (%d)",
				i, u.ReferenceIndex)
		}
		if t.UnlockBlocks[u.ReferenceIndex].Kind != UnlockSignature {
			return t, malformed("reference unlock at index %d does not target a signature unlock", i)
		}
	}

	return t, nil
}
