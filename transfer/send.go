package transfer

import (
	"bytes"
	"context"
	"sort"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
	"github.com/iota-go/client/xcrypto"
)

// Engine assembles, signs, proof-of-works and posts messages (spec.md
// §4.5.5). One Engine is shared across calls; it carries no per-call state.
type Engine struct {
	Network          codec.Network
	LocalPoW         bool
	TargetDifficulty int
}

// Send implements spec.md §4.5.5's decision table and both its transaction
// and pure-indexation paths.
func (e *Engine) Send(ctx context.Context, client *nodeclient.Client, req SendRequest) (SendResult, error) {
	switch {
	case req.Seed != nil && req.Address != nil && req.Value > 0:
		return e.sendTransaction(ctx, client, req)
	case req.Seed == nil && req.Address == nil && req.Value == 0 && req.IndexationKey != "":
		return e.sendIndexationOnly(ctx, client, req)
	default:
		return SendResult{}, iotaerr.New(iotaerr.KindInvalidSendRequest,
			"request does not match a supported send shape")
	}
}

func (e *Engine) sendTransaction(ctx context.Context, client *nodeclient.Client, req SendRequest) (SendResult, error) {
	if err := xcrypto.ValidateWalletChainDepth(req.Path); err != nil {
		return SendResult{}, err
	}

	available, err := GetBalance(ctx, client, *req.Seed, req.Path, e.Network, 0)
	if err != nil {
		return SendResult{}, err
	}
	if available < req.Value {
		return SendResult{}, iotaerr.New(iotaerr.KindInsufficientBalance,
			"available balance is lower than requested value")
	}

	inputs := req.Outputs
	if inputs != nil {
		if err := validateSuppliedOutputs(*req.Seed, req.Path, inputs); err != nil {
			return SendResult{}, err
		}
	}

	maxIndex := uint32(0)
	for _, in := range inputs {
		if in.AddressIndex > maxIndex {
			maxIndex = in.AddressIndex
		}
	}
	if inputs == nil {
		inputs, maxIndex, err = collectUnspentOutputs(ctx, client, *req.Seed, req.Path, e.Network, req.Value)
		if err != nil {
			return SendResult{}, err
		}
	}

	var sum uint64
	for _, in := range inputs {
		sum += in.Amount
	}
	change := sum - req.Value

	outputs := []codec.SignatureLockedSingleOutput{{Address: *req.Address, Amount: req.Value}}
	if change > 0 {
		changeAddr, _, err := GetUnspentAddress(ctx, client, *req.Seed, req.Path, e.Network, maxIndex+1)
		if err != nil {
			return SendResult{}, err
		}
		outputs = append(outputs, codec.SignatureLockedSingleOutput{Address: changeAddr, Amount: change})
	}

	var embedded *codec.Indexation
	if req.IndexationKey != "" {
		embedded = &codec.Indexation{Index: req.IndexationKey, Data: req.IndexationData}
	}

	resolved := make([]codec.InputAmount, len(inputs))
	for i, in := range inputs {
		resolved[i] = codec.InputAmount{Input: in.Input, Amount: in.Amount}
	}
	if err := codec.ValidateBalance(resolved, outputs); err != nil {
		return SendResult{}, err
	}

	sortedInputs := make([]UnspentOutput, len(inputs))
	copy(sortedInputs, inputs)
	sort.Slice(sortedInputs, func(i, j int) bool {
		a, b := sortedInputs[i].Input, sortedInputs[j].Input
		if c := bytes.Compare(a.TransactionId[:], b.TransactionId[:]); c != 0 {
			return c < 0
		}
		return a.Index < b.Index
	})

	essence := codec.TransactionEssence{
		Outputs:            outputs,
		EmbeddedIndexation: embedded,
	}
	for _, in := range sortedInputs {
		essence.Inputs = append(essence.Inputs, in.Input)
	}

	essenceHash, err := codec.EssenceHash(essence)
	if err != nil {
		return SendResult{}, err
	}

	unlockBlocks := signInputs(*req.Seed, req.Path, sortedInputs, essenceHash)

	tx := codec.Transaction{Essence: essence, UnlockBlocks: unlockBlocks}
	return e.postWithFreshTips(ctx, client, tx)
}

// validateSuppliedOutputs rejects a caller-supplied input override whose
// claimed Address doesn't match what path || AddressIndex' actually derives
// to (spec.md §4.5.5 step 3): a caller cannot smuggle in an input from an
// address outside the seed's own derivation tree.
func validateSuppliedOutputs(seed xcrypto.Seed, path xcrypto.Bip32Path, outputs []UnspentOutput) error {
	for _, out := range outputs {
		want := deriveAddress(seed, path, out.AddressIndex)
		if want.Kind != out.Address.Kind || !bytes.Equal(want.Bytes, out.Address.Bytes) {
			return iotaerr.Newf(iotaerr.KindInvalidSendRequest,
				"supplied output at address index %d does not match the seed-derived address", out.AddressIndex)
		}
	}
	return nil
}

func (e *Engine) sendIndexationOnly(ctx context.Context, client *nodeclient.Client, req SendRequest) (SendResult, error) {
	payload := codec.Indexation{Index: req.IndexationKey, Data: req.IndexationData}
	return e.postWithFreshTips(ctx, client, payload)
}

// signInputs produces one unlock block per input in essence order: the
// first input from a given address gets a Signature unlock, every
// subsequent input from the same address gets a Reference unlock pointing
// back at it (spec.md §4.5.5 step 6).
func signInputs(seed xcrypto.Seed, path xcrypto.Bip32Path, inputs []UnspentOutput, essenceHash [32]byte) []codec.UnlockBlock {
	blocks := make([]codec.UnlockBlock, len(inputs))
	firstSeen := make(map[uint32]uint16)

	for i, in := range inputs {
		if firstIdx, ok := firstSeen[in.AddressIndex]; ok {
			blocks[i] = codec.UnlockBlock{Kind: codec.UnlockReference, ReferenceIndex: firstIdx}
			continue
		}

		privSeed := xcrypto.Derive(seed, path.Child(in.AddressIndex))
		pub := xcrypto.PublicKey(privSeed)
		sig := xcrypto.Sign(privSeed, essenceHash[:])

		blocks[i] = codec.UnlockBlock{
			Kind:      codec.UnlockSignature,
			PublicKey: pub,
			Signature: sig,
		}
		firstSeen[in.AddressIndex] = uint16(i)
	}
	return blocks
}

// postWithFreshTips fetches tips, builds the message, runs PoW per the
// pool's local_pow configuration, and posts it (spec.md §4.5.5 steps 7-9).
func (e *Engine) postWithFreshTips(ctx context.Context, client *nodeclient.Client, payload codec.Payload) (SendResult, error) {
	tips, err := client.GetTips(ctx)
	if err != nil {
		return SendResult{}, err
	}

	msg := codec.Message{Parent1: tips.Parent1, Parent2: tips.Parent2, Payload: payload}

	if e.LocalPoW {
		encoded, err := codec.EncodeMessage(msg)
		if err != nil {
			return SendResult{}, err
		}
		nonce, err := xcrypto.ProofOfWork(ctx, encoded, e.TargetDifficulty)
		if err != nil {
			if ctx.Err() != nil {
				return SendResult{}, iotaerr.Wrap(iotaerr.KindCancelled, ctx.Err())
			}
			return SendResult{}, err
		}
		msg.Nonce = nonce

		id, err := client.PostMessage(ctx, encoded, false)
		if err != nil {
			return SendResult{}, err
		}
		log.Debugf("sent message %s with local PoW (difficulty %d)", id, e.TargetDifficulty)
		return SendResult{MessageID: id, Message: msg}, nil
	}

	encoded, err := codec.EncodeMessage(msg)
	if err != nil {
		return SendResult{}, err
	}
	id, err := client.PostMessage(ctx, encoded, true)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: id, Message: msg}, nil
}

