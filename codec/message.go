package codec

import (
	"bytes"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Message is the fundamental Tangle unit: two parent references, a payload,
// and a proof-of-work nonce (spec.md §3). The nonce's validity against a
// target difficulty is a property of xcrypto's PoW search, not the codec;
// the codec only frames and hashes the bytes.
type Message struct {
	Parent1 MessageId
	Parent2 MessageId
	Payload Payload
	Nonce   uint64
}

// Encode writes the canonical binary form of m: both parents, the
// discriminant-tagged payload, then the little-endian nonce.
func (m Message) Encode(w io.Writer) error {
	if err := writeFixedBytes(w, m.Parent1[:]); err != nil {
		return err
	}
	if err := writeFixedBytes(w, m.Parent2[:]); err != nil {
		return err
	}
	if err := encodePayload(w, m.Payload); err != nil {
		return err
	}
	return writeUint64(w, m.Nonce)
}

// DecodeMessage reads a Message from r, failing with MalformedMessage on any
// of the conditions spec.md §4.1 enumerates (propagated up from the nested
// decoders).
func DecodeMessage(r io.Reader) (Message, error) {
	var m Message

	p1, err := readFixedBytes(r, 32)
	if err != nil {
		return m, err
	}
	copy(m.Parent1[:], p1)

	p2, err := readFixedBytes(r, 32)
	if err != nil {
		return m, err
	}
	copy(m.Parent2[:], p2)

	payload, err := decodePayload(r)
	if err != nil {
		return m, err
	}
	m.Payload = payload

	nonce, err := readUint64(r)
	if err != nil {
		return m, err
	}
	m.Nonce = nonce

	return m, nil
}

// EncodeMessage is a convenience wrapper returning m's canonical bytes.
func EncodeMessage(m Message) ([]byte, error) {
	return encodeToBytes(m.Encode)
}

// DecodeMessageBytes decodes a Message from a standalone byte slice,
// rejecting any trailing bytes left over after a well-formed decode (a
// length-prefix or count that under-reads the buffer is itself a sign of a
// malformed message, per spec.md §4.1).
func DecodeMessageBytes(b []byte) (Message, error) {
	r := bytes.NewReader(b)
	m, err := DecodeMessage(r)
	if err != nil {
		return m, err
	}
	if r.Len() != 0 {
		return m, malformed("%d trailing bytes after decoding message", r.Len())
	}
	return m, nil
}

// MessageID returns the Blake2b-256 digest of m's canonical encoding
// (spec.md §4.1).
func MessageID(m Message) (MessageId, error) {
	enc, err := EncodeMessage(m)
	if err != nil {
		return MessageId{}, err
	}
	return blake2b.Sum256(enc), nil
}

// EssenceHash returns the Blake2b-256 digest of essence's canonical
// encoding: the value each Ed25519 unlock signs (spec.md §4.1).
func EssenceHash(e TransactionEssence) ([32]byte, error) {
	enc, err := encodeToBytes(e.Encode)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(enc), nil
}
