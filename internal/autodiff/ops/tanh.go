package ops

import "github.com/loom-ml/loom/internal/tensor"

// TanhOp represents the hyperbolic tangent activation: tanh(x).
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // tanh(x), cached for backward
}

// NewTanhOp creates a new tanh operation.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient for tanh.
//
// d(tanh(x))/dx = 1 - tanh²(x), so with the forward output t already
// in hand:
//
//	grad_input = grad_output * (1 - t²) = grad_output - grad_output * t²
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	t := op.output
	tSquared := backend.Mul(t, t)
	scaled := backend.Mul(outputGrad, tSquared)
	gradInput := backend.Sub(outputGrad, scaled)
	return []*tensor.RawTensor{gradInput}
}
