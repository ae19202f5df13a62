package ops

import "github.com/loom-ml/loom/internal/tensor"

// ScalarOp represents tensor-scalar arithmetic: output = f(input, s) where s
// is a plain Go number, not a tensor. One op type covers AddScalar, SubScalar,
// MulScalar and DivScalar because their derivative with respect to the input
// is a constant:
//
//	d(x + s)/dx = 1    d(x - s)/dx = 1
//	d(x * s)/dx = s    d(x / s)/dx = 1/s
//
// The scale is that constant; no gradient flows to the scalar itself.
type ScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scale  float64 // d(output)/d(input)
}

// NewScalarOp creates a new ScalarOp with the given derivative scale.
func NewScalarOp(input, output *tensor.RawTensor, scale float64) *ScalarOp {
	return &ScalarOp{
		input:  input,
		output: output,
		scale:  scale,
	}
}

// Inputs returns the input tensors.
func (op *ScalarOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *ScalarOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward scales the output gradient by the constant derivative.
func (op *ScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.scale == 1 {
		return []*tensor.RawTensor{outputGrad.Clone()}
	}
	gradInput := backend.MulScalar(outputGrad, op.scale)
	return []*tensor.RawTensor{gradInput}
}
