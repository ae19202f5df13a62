package ops

import "github.com/loom-ml/loom/internal/tensor"

// BatchMatMulOp represents a batched matrix multiplication: output = a @ b,
// where the last two dimensions are multiplied and all leading dimensions
// are batch dimensions.
//
// Backward pass (per batch):
//   - d(A@B)/dA = outputGrad @ B^T
//   - d(A@B)/dB = A^T @ outputGrad
type BatchMatMulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor   // a @ b
}

// NewBatchMatMulOp creates a new BatchMatMulOp.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for batch matmul, transposing only the
// trailing two dimensions of each operand.
func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	ndim := len(a.Shape())
	axes := make([]int, ndim)
	for i := 0; i < ndim-2; i++ {
		axes[i] = i
	}
	axes[ndim-2] = ndim - 1
	axes[ndim-1] = ndim - 2

	bT := backend.Transpose(b, axes...)
	aT := backend.Transpose(a, axes...)

	gradA := backend.BatchMatMul(outputGrad, bT)
	gradB := backend.BatchMatMul(aT, outputGrad)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a @ b.
func (op *BatchMatMulOp) Output() *tensor.RawTensor {
	return op.output
}
