package ops

import "github.com/loom-ml/loom/internal/tensor"

// reduceBroadcast sums a gradient down to the target shape, undoing the
// broadcasting that happened in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
//
// Broadcasting aligns shapes from the right, so leading gradient dimensions
// with no counterpart in the target are summed away first, then every
// dimension where the target is 1 but the gradient is larger.
//
// When the shapes already match the gradient is cloned, so the caller always
// owns the returned tensor and accumulation cannot alias the upstream grad.
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad.Clone()
	}

	result := grad
	for len(result.Shape()) > len(target) {
		result = backend.SumDim(result, 0, false)
	}
	for i, size := range target {
		if size == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}
	if !result.Shape().Equal(target) {
		result = backend.Reshape(result, target)
	}
	return result
}

// negateGradient returns -grad.
func negateGradient(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, -1.0)
}
