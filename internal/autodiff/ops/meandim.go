package ops

import "github.com/loom-ml/loom/internal/tensor"

// MeanDimOp represents a reduction mean along a dimension: output = mean(x, dim).
//
// Forward:
//
//	y = mean(x, dim, keepDim) = sum(x, dim, keepDim) / size[dim]
//
// Backward:
//
//	grad_x = broadcast(grad_y, x.shape) / size[dim]
//
// The dim is stored in normalized (non-negative) form and the size of the
// reduced dimension is captured at record time for the backward scale.
type MeanDimOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor   // mean(x, dim)
	dim     int
	keepDim bool
	dimSize int
}

// NewMeanDimOp creates a new MeanDimOp.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
		dimSize: x.Shape()[dim],
	}
}

// Backward computes input gradients for mean reduction.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad

	if !op.keepDim && len(grad.Shape()) != len(x.Shape()) {
		grad = backend.Unsqueeze(grad, op.dim)
	}

	gradX := backend.Expand(grad, x.Shape())
	gradX = backend.DivScalar(gradX, float64(op.dimSize))

	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor mean(x, dim).
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
