package codec

import (
	"encoding/hex"
	"io"

	"github.com/iota-go/client/iotaerr"
)

// UTXOInput references a previously created output by the id of the
// transaction that produced it and its index within that transaction's
// output list (spec.md §3).
type UTXOInput struct {
	TransactionId TransactionId
	Index         uint16
}

// Encode writes the 34-byte fixed encoding of the input: 32-byte
// transaction id followed by a little-endian u16 index.
func (u UTXOInput) Encode(w io.Writer) error {
	if err := writeFixedBytes(w, u.TransactionId[:]); err != nil {
		return err
	}
	return writeUint16(w, u.Index)
}

// DecodeUTXOInput reads a UTXOInput, rejecting an index outside 0..=126.
func DecodeUTXOInput(r io.Reader) (UTXOInput, error) {
	var u UTXOInput
	txid, err := readFixedBytes(r, 32)
	if err != nil {
		return u, err
	}
	copy(u.TransactionId[:], txid)

	idx, err := readUint16(r)
	if err != nil {
		return u, err
	}
	if idx > MaxUTXOIndex {
		return u, malformed("utxo input index %d exceeds max %d", idx, MaxUTXOIndex)
	}
	u.Index = idx
	return u, nil
}

// OutputIDString renders a UTXOInput as the 34-byte hex string a node's
// REST API uses to key its /api/v1/outputs/{outputId} resource: the 32-byte
// transaction id followed by a big-endian u16 index.
func (u UTXOInput) OutputIDString() string {
	var buf [34]byte
	copy(buf[:32], u.TransactionId[:])
	buf[32] = byte(u.Index >> 8)
	buf[33] = byte(u.Index)
	return hex.EncodeToString(buf[:])
}

// ParseOutputID parses the hex output-id string format back into a
// UTXOInput.
func ParseOutputID(s string) (UTXOInput, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return UTXOInput{}, iotaerr.Wrap(iotaerr.KindMalformedResponse, err)
	}
	if len(raw) != 34 {
		return UTXOInput{}, iotaerr.Newf(iotaerr.KindMalformedResponse,
			"output id must be 34 bytes, got %d", len(raw))
	}
	var u UTXOInput
	copy(u.TransactionId[:], raw[:32])
	u.Index = uint16(raw[32])<<8 | uint16(raw[33])
	return u, nil
}

// SignatureLockedSingleOutput locks an amount to a single address, spendable
// by whoever can produce an unlock block for that address (spec.md §3).
type SignatureLockedSingleOutput struct {
	Address Address
	Amount  uint64
}

// Encode writes the discriminant-tagged address followed by the amount.
// It does not check the amount itself, so a caller can still serialize a
// not-yet-validated value; a zero amount is rejected by
// DecodeSignatureLockedSingleOutput and, when encoding a whole essence, by
// TransactionEssence.Encode.
func (o SignatureLockedSingleOutput) Encode(w io.Writer) error {
	if err := writeUint8(w, uint8(o.Address.Kind)); err != nil {
		return err
	}
	if err := writeVarBytes(w, o.Address.Bytes, 128); err != nil {
		return err
	}
	return writeUint64(w, o.Amount)
}

// DecodeSignatureLockedSingleOutput reads an output, failing with
// MalformedMessage if the amount is zero or the address kind is unknown.
func DecodeSignatureLockedSingleOutput(r io.Reader) (SignatureLockedSingleOutput, error) {
	var o SignatureLockedSingleOutput

	kind, err := readUint8(r)
	if err != nil {
		return o, err
	}
	switch AddressKind(kind) {
	case AddressEd25519, AddressWots:
	default:
		return o, malformed("unknown address kind discriminant %d", kind)
	}

	body, err := readVarBytes(r, 128)
	if err != nil {
		return o, err
	}
	o.Address = Address{Kind: AddressKind(kind), Bytes: body}

	amount, err := readUint64(r)
	if err != nil {
		return o, err
	}
	if amount == 0 {
		return o, iotaerr.New(iotaerr.KindMalformedMessage, "output amount must be non-zero")
	}
	o.Amount = amount

	return o, nil
}
