package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleAddress(b byte) Address {
	var body [32]byte
	for i := range body {
		body[i] = b
	}
	return NewEd25519Address(body)
}

func sampleEssence(t *testing.T) TransactionEssence {
	t.Helper()
	return TransactionEssence{
		Inputs: []UTXOInput{
			{TransactionId: MessageId{0x01}, Index: 0},
		},
		Outputs: []SignatureLockedSingleOutput{
			{Address: sampleAddress(0xAA), Amount: 100},
		},
	}
}

func sampleTransaction(t *testing.T) Transaction {
	t.Helper()
	return Transaction{
		Essence: sampleEssence(t),
		UnlockBlocks: []UnlockBlock{
			{Kind: UnlockSignature, PublicKey: [32]byte{0xBB}, Signature: [64]byte{0xCC}},
		},
	}
}

func TestMessageEncodeDecodeRoundTrip_Transaction(t *testing.T) {
	msg := Message{
		Parent1: MessageId{0x01},
		Parent2: MessageId{0x02},
		Payload: sampleTransaction(t),
		Nonce:   42,
	}

	enc, err := EncodeMessage(msg)
	require.NoError(t, err)

	dec, err := DecodeMessageBytes(enc)
	require.NoError(t, err)
	require.Equal(t, msg, dec)

	id, err := MessageID(msg)
	require.NoError(t, err)
	require.Len(t, id[:], 32)
}

func TestMessageEncodeDecodeRoundTrip_Indexation(t *testing.T) {
	msg := Message{
		Parent1: MessageId{0x03},
		Parent2: MessageId{0x04},
		Payload: Indexation{Index: "TEST", Data: []byte{0x01, 0x02}},
		Nonce:   7,
	}

	enc, err := EncodeMessage(msg)
	require.NoError(t, err)

	dec, err := DecodeMessageBytes(enc)
	require.NoError(t, err)
	require.Equal(t, msg, dec)
}

func TestMessageEncodeDecodeRoundTrip_Milestone(t *testing.T) {
	msg := Message{
		Parent1: MessageId{0x05},
		Parent2: MessageId{0x06},
		Payload: Milestone{Index: 1234, MessageId: MessageId{0x07}},
		Nonce:   1,
	}

	enc, err := EncodeMessage(msg)
	require.NoError(t, err)

	dec, err := DecodeMessageBytes(enc)
	require.NoError(t, err)
	require.Equal(t, msg, dec)
}

func TestDecodeMessage_UnknownPayloadDiscriminant(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 64)) // two zeroed parents
	buf.WriteByte(0xFF)         // unknown payload discriminant

	_, err := DecodeMessage(&buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MalformedMessage")
}

func TestDecodeMessage_TruncatedLengthPrefix(t *testing.T) {
	msg := Message{
		Parent1: MessageId{0x01},
		Parent2: MessageId{0x02},
		Payload: Indexation{Index: "X", Data: []byte{0x01, 0x02, 0x03, 0x04}},
		Nonce:   1,
	}
	enc, err := EncodeMessage(msg)
	require.NoError(t, err)

	// Drop the 8-byte nonce and the last 2 data bytes so the data
	// length-prefix (4) claims more than remains.
	truncated := enc[:len(enc)-8-2]
	_, err = DecodeMessageBytes(truncated)
	require.Error(t, err)
}

func TestTransaction_UnlockBlockCountMismatch(t *testing.T) {
	tx := sampleTransaction(t)
	tx.UnlockBlocks = nil

	var buf bytes.Buffer
	err := tx.Encode(&buf)
	require.Error(t, err)
}

func TestOutput_ZeroAmountRejected(t *testing.T) {
	essence := sampleEssence(t)
	essence.Outputs[0].Amount = 0

	var buf bytes.Buffer
	err := essence.Encode(&buf)
	require.Error(t, err)
}

func TestReferenceUnlock_MustPointToEarlierSignature(t *testing.T) {
	essence := TransactionEssence{
		Inputs: []UTXOInput{
			{TransactionId: MessageId{0x01}, Index: 0},
			{TransactionId: MessageId{0x01}, Index: 1},
		},
		Outputs: []SignatureLockedSingleOutput{
			{Address: sampleAddress(0xAA), Amount: 100},
		},
	}
	tx := Transaction{
		Essence: essence,
		UnlockBlocks: []UnlockBlock{
			{Kind: UnlockReference, ReferenceIndex: 1},
			{Kind: UnlockSignature, PublicKey: [32]byte{0xBB}, Signature: [64]byte{0xCC}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, tx.Encode(&buf))
	_, err := decodeTransaction(&buf)
	require.Error(t, err)
}

func TestAddress_Bech32RoundTrip(t *testing.T) {
	addr := sampleAddress(0x42)

	s, err := addr.String(NetworkMainnet)
	require.NoError(t, err)

	parsed, err := ParseAddress(s, NetworkMainnet)
	require.NoError(t, err)
	require.True(t, addr.Equal(parsed))

	_, err = ParseAddress(s, NetworkDevnet)
	require.Error(t, err)
}
