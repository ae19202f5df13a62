package ops

import "github.com/loom-ml/loom/internal/tensor"

// ExpandOp represents an explicit broadcast: output repeats the input along
// size-1 (and newly added leading) dimensions to fill a larger shape.
//
// Forward:
//
//	output = Expand(input, shape)
//
// Backward:
//
//	grad_input = sum of grad_output over every expanded dimension
//
// Each input element was copied into several output positions, so its
// gradient is the sum of the gradients at those positions.
type ExpandOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpandOp creates a new ExpandOp.
func NewExpandOp(input, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *ExpandOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *ExpandOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward reduces the output gradient back onto the input shape.
func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := reduceBroadcast(outputGrad, op.input.Shape(), backend)
	return []*tensor.RawTensor{gradInput}
}
