package codec

import "io"

// TransactionEssence is the signed portion of a Transaction (spec.md §3):
// an ordered list of inputs, an ordered list of outputs, and an optional
// embedded Indexation payload. Ordering is caller-determined (spec.md
// §4.5.5 step 5 sorts inputs ascending by (transaction_id, index) and never
// reorders outputs); the codec preserves whatever order it is given.
type TransactionEssence struct {
	Inputs  []UTXOInput
	Outputs []SignatureLockedSingleOutput

	// EmbeddedIndexation is nil when no indexation payload is attached.
	EmbeddedIndexation *Indexation
}

func (e TransactionEssence) Encode(w io.Writer) error {
	if len(e.Inputs) < 1 || len(e.Inputs) > MaxInputsPerEssence {
		return malformed("essence has %d inputs, want 1..=%d", len(e.Inputs), MaxInputsPerEssence)
	}
	if len(e.Outputs) < 1 || len(e.Outputs) > MaxOutputsPerEssence {
		return malformed("essence has %d outputs, want 1..=%d", len(e.Outputs), MaxOutputsPerEssence)
	}

	if err := writeUint16(w, uint16(len(e.Inputs))); err != nil {
		return err
	}
	for _, in := range e.Inputs {
		if err := in.Encode(w); err != nil {
			return err
		}
	}

	if err := writeUint16(w, uint16(len(e.Outputs))); err != nil {
		return err
	}
	var outputTotal uint64
	for _, out := range e.Outputs {
		if out.Amount == 0 {
			return malformed("output amount must be non-zero")
		}
		outputTotal += out.Amount
		if err := out.Encode(w); err != nil {
			return err
		}
	}

	if e.EmbeddedIndexation == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	return encodePayload(w, *e.EmbeddedIndexation)
}

// DecodeTransactionEssence reads an essence, rejecting input/output counts
// outside the permitted 1..=127 range and zero-amount outputs, per
// spec.md §4.1.
func DecodeTransactionEssence(r io.Reader) (TransactionEssence, error) {
	var e TransactionEssence

	numInputs, err := readUint16(r)
	if err != nil {
		return e, err
	}
	if numInputs < 1 || int(numInputs) > MaxInputsPerEssence {
		return e, malformed("essence declares %d inputs, want 1..=%d", numInputs, MaxInputsPerEssence)
	}
	e.Inputs = make([]UTXOInput, numInputs)
	for i := range e.Inputs {
		in, err := DecodeUTXOInput(r)
		if err != nil {
			return e, err
		}
		e.Inputs[i] = in
	}

	numOutputs, err := readUint16(r)
	if err != nil {
		return e, err
	}
	if numOutputs < 1 || int(numOutputs) > MaxOutputsPerEssence {
		return e, malformed("essence declares %d outputs, want 1..=%d", numOutputs, MaxOutputsPerEssence)
	}
	e.Outputs = make([]SignatureLockedSingleOutput, numOutputs)
	for i := range e.Outputs {
		out, err := DecodeSignatureLockedSingleOutput(r)
		if err != nil {
			return e, err
		}
		e.Outputs[i] = out
	}

	hasPayload, err := readUint8(r)
	if err != nil {
		return e, err
	}
	switch hasPayload {
	case 0:
	case 1:
		p, err := decodePayload(r)
		if err != nil {
			return e, err
		}
		idx, ok := p.(Indexation)
		if !ok {
			return e, malformed("essence embedded payload must be Indexation")
		}
		e.EmbeddedIndexation = &idx
	default:
		return e, malformed("invalid essence payload presence flag %d", hasPayload)
	}

	return e, nil
}

// InputAmount is resolved balance tracking for an input used while building
// an essence; it is not part of the wire encoding (inputs only carry an id
// and index on the wire, per spec.md §3).
type InputAmount struct {
	Input  UTXOInput
	Amount uint64
}

// ValidateBalance enforces spec.md §3's essence invariant: the sum of
// output amounts may not exceed the sum of resolved input amounts, and both
// sums must be strictly positive. Callers (the transfer engine) supply the
// resolved input amounts since the wire encoding itself carries no amount
// for inputs.
func ValidateBalance(resolvedInputs []InputAmount, outputs []SignatureLockedSingleOutput) error {
	var inTotal, outTotal uint64
	for _, in := range resolvedInputs {
		inTotal += in.Amount
	}
	for _, out := range outputs {
		if out.Amount == 0 {
			return malformed("output amount must be non-zero")
		}
		outTotal += out.Amount
	}
	if outTotal == 0 {
		return malformed("essence has zero total output amount")
	}
	if outTotal > inTotal {
		return malformed("essence outputs (%d) exceed resolved inputs (%d)", outTotal, inTotal)
	}
	return nil
}
