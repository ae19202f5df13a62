package ops

import "github.com/loom-ml/loom/internal/tensor"

// SumOp represents a full reduction: output = sum of all elements of x,
// held in a single-element tensor.
//
// Backward pass:
//
//	grad_x = broadcast(grad_y, x.shape)
//
// Every input element contributes with weight 1, so the scalar gradient is
// simply repeated over the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		input:  input,
		output: output,
	}
}

// Backward broadcasts the single-element output gradient over the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := backend.Expand(outputGrad, op.input.Shape())
	return []*tensor.RawTensor{gradInput}
}

// Inputs returns the input tensors [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the single-element sum tensor.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
