// Package ops defines the differentiable operations recorded on the gradient tape.
//
// Each operation captures its input and output tensors during the forward
// pass and knows how to turn an output gradient into input gradients during
// the backward pass:
//   - AddOp / SubOp / MulOp / DivOp: element-wise arithmetic, broadcast aware
//   - MatMulOp / BatchMatMulOp: d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad
//   - ExpOp / LogOp / SqrtOp: element-wise math
//   - ReLUOp / SigmoidOp / TanhOp / SoftmaxOp: activations
//   - SumOp / SumDimOp / MeanDimOp: reductions
//   - ReshapeOp / TransposeOp / ExpandOp: shape moves
//   - ScalarOp: tensor-scalar arithmetic with a constant derivative
//   - CrossEntropyOp: fused softmax + negative log-likelihood loss
package ops

import "github.com/loom-ml/loom/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
