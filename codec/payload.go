package codec

import (
	"io"
	"unicode/utf8"
)

// PayloadKind tags which concrete Payload variant a Message or embedded
// essence payload carries.
type PayloadKind uint8

const (
	PayloadTransaction PayloadKind = iota
	PayloadMilestone
	PayloadIndexation
)

// Payload is the tagged variant described in spec.md §3.
type Payload interface {
	Kind() PayloadKind
	Encode(w io.Writer) error
}

// Indexation attaches an application-defined key to arbitrary data so it can
// be found later by index lookups (spec.md §3).
type Indexation struct {
	Index string
	Data  []byte
}

func (Indexation) Kind() PayloadKind { return PayloadIndexation }

// Encode writes the UTF-8 index key followed by the data blob, both
// u16-length-prefixed.
func (i Indexation) Encode(w io.Writer) error {
	if err := writeVarBytes(w, []byte(i.Index), MaxIndexationKeyLen); err != nil {
		return err
	}
	return writeVarBytes(w, i.Data, MaxIndexationDataLen)
}

func decodeIndexation(r io.Reader) (Indexation, error) {
	var idx Indexation

	keyBytes, err := readVarBytes(r, MaxIndexationKeyLen)
	if err != nil {
		return idx, err
	}
	if len(keyBytes) < MinIndexationKeyLen {
		return idx, malformed("indexation key shorter than %d bytes", MinIndexationKeyLen)
	}
	if !utf8.Valid(keyBytes) {
		return idx, malformed("indexation key is not valid UTF-8")
	}
	idx.Index = string(keyBytes)

	data, err := readVarBytes(r, MaxIndexationDataLen)
	if err != nil {
		return idx, err
	}
	idx.Data = data

	return idx, nil
}

// Milestone is a node-signed message confirming a subgraph of prior
// messages (spec.md §3, GLOSSARY). Per spec.md §9's open question, the
// node-reported "message_ids" field is treated as a single MessageId despite
// its plural name.
type Milestone struct {
	Index     uint32
	MessageId MessageId
}

func (Milestone) Kind() PayloadKind { return PayloadMilestone }

func (m Milestone) Encode(w io.Writer) error {
	if err := writeUint32(w, m.Index); err != nil {
		return err
	}
	return writeFixedBytes(w, m.MessageId[:])
}

func decodeMilestone(r io.Reader) (Milestone, error) {
	var m Milestone
	idx, err := readUint32(r)
	if err != nil {
		return m, err
	}
	m.Index = idx

	id, err := readFixedBytes(r, 32)
	if err != nil {
		return m, err
	}
	copy(m.MessageId[:], id)
	return m, nil
}

// encodePayload writes the one-byte discriminant followed by p's body.
func encodePayload(w io.Writer, p Payload) error {
	if err := writeUint8(w, uint8(p.Kind())); err != nil {
		return err
	}
	return p.Encode(w)
}

// decodePayload reads a discriminant-tagged payload, failing with
// MalformedMessage on an unrecognized discriminant.
func decodePayload(r io.Reader) (Payload, error) {
	kind, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	switch PayloadKind(kind) {
	case PayloadTransaction:
		return decodeTransaction(r)
	case PayloadMilestone:
		return decodeMilestone(r)
	case PayloadIndexation:
		return decodeIndexation(r)
	default:
		return nil, malformed("unknown payload discriminant %d", kind)
	}
}
