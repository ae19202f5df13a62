package ops

import "github.com/loom-ml/loom/internal/tensor"

// SoftmaxOp represents the softmax operation along a dimension.
//
// Forward (for each slice along dim):
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// Backward:
//
//	The Jacobian of softmax is:
//	∂softmax_i/∂x_j = softmax_i * (δ_ij - softmax_j)
//
//	Chain rule gives, per slice:
//	∂L/∂x_j = softmax_j * (∂L/∂softmax_j - Σ_i (∂L/∂softmax_i * softmax_i))
//
// The dim is stored in normalized (non-negative) form so the backward
// reduction runs along the same axis the forward pass used.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // cached softmax output for backward
	dim    int
}

// NewSoftmaxOp creates a new softmax operation.
func NewSoftmaxOp(input, output *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{
		input:  input,
		output: output,
		dim:    dim,
	}
}

// Inputs returns the input tensors.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to the input.
//
// Per slice along dim:
//
//	grad_input = s * (grad_output - Σ(grad_output * s))
//
// where s is the cached softmax output and the sum runs along dim. The
// subtraction broadcasts the kept reduced dimension back over the slice.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := op.output

	weighted := backend.Mul(outputGrad, s)
	sums := backend.SumDim(weighted, op.dim, true)
	centered := backend.Sub(outputGrad, sums)
	gradInput := backend.Mul(centered, s)

	return []*tensor.RawTensor{gradInput}
}
