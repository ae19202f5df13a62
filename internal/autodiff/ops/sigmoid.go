package ops

import "github.com/loom-ml/loom/internal/tensor"

// SigmoidOp represents the sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // σ(x), cached for backward
}

// NewSigmoidOp creates a new sigmoid operation.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient for sigmoid.
//
// d(σ(x))/dx = σ(x) * (1 - σ(x)) = σ(x) - σ(x)², so with the forward
// output s already in hand:
//
//	grad_input = grad_output * (s - s²)
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := op.output
	sSquared := backend.Mul(s, s)
	derivative := backend.Sub(s, sSquared)
	gradInput := backend.Mul(outputGrad, derivative)
	return []*tensor.RawTensor{gradInput}
}
