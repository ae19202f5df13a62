package ops

import "github.com/loom-ml/loom/internal/tensor"

// TransposeOp represents an axis permutation.
//
// Forward:
//
//	output = transpose(input, axes)
//
// Backward:
//
//	grad_input = transpose(grad_output, inverse_axes)
//
// The recorded axes must be explicit (the default reversal is resolved
// before recording), so the inverse permutation is always well defined.
type TransposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		input:  input,
		output: output,
		axes:   axes,
	}
}

// Backward transposes the output gradient with the inverse permutation.
// For a plain 2D swap the permutation is its own inverse.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}

	inputGrad := backend.Transpose(outputGrad, inverse...)

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
