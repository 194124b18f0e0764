package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/iota-go/client/iotaerr"
)

// byteOrder is little-endian throughout, per spec.md §4.1. channeldb picks
// big-endian for its bolt cursor keys; we don't have that constraint, so we
// follow the wire format's own stated byte order instead.
var byteOrder = binary.LittleEndian

func malformed(format string, args ...interface{}) error {
	return iotaerr.Newf(iotaerr.KindMalformedMessage, format, args...)
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, malformed("reading uint8: %v", err)
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, malformed("reading uint16: %v", err)
	}
	return byteOrder.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, malformed("reading uint32: %v", err)
	}
	return byteOrder.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, malformed("reading uint64: %v", err)
	}
	return byteOrder.Uint64(b[:]), nil
}

func writeFixedBytes(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

func readFixedBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, malformed("reading %d fixed bytes: %v", n, err)
	}
	return b, nil
}

// writeVarBytes writes a u16-length-prefixed byte blob (used for address
// bodies and indexation data/keys).
func writeVarBytes(w io.Writer, b []byte, maxLen int) error {
	if len(b) > maxLen {
		return malformed("var bytes length %d exceeds max %d", len(b), maxLen)
	}
	if err := writeUint16(w, uint16(len(b))); err != nil {
		return err
	}
	return writeFixedBytes(w, b)
}

// readVarBytes reads a u16-length-prefixed byte blob, rejecting a
// length-prefix that claims more data than remains in the buffer.
func readVarBytes(r io.Reader, maxLen int) ([]byte, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if int(n) > maxLen {
		return nil, malformed("var bytes length-prefix %d exceeds max %d", n, maxLen)
	}
	return readFixedBytes(r, int(n))
}

// encodeToBytes runs enc against a fresh buffer and returns its contents,
// the same temporary-buffer idiom lnwire.WriteMessage uses before writing
// out the final framed message.
func encodeToBytes(enc func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
