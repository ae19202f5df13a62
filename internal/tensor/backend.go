package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: pure Go kernels with broadcasting and inplace fast paths
//   - WebGPU: GPU compute via WGSL shaders (windows only)
//   - Autodiff: decorator that wraps another backend and records a gradient tape
//
// The autodiff decorator must satisfy this interface too, so everything here
// either has a defined gradient or is gradient-transparent.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul performs batched matrix multiplication for 3D/4D tensors.
	// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
	// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor // broadcast to shape
	Unsqueeze(x *RawTensor, dim int) *RawTensor  // add dimension of size 1
	Squeeze(x *RawTensor, dim int) *RawTensor    // remove dimension of size 1

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor  // exponential
	Log(x *RawTensor) *RawTensor  // natural logarithm
	Sqrt(x *RawTensor) *RawTensor // square root

	// Activation functions
	ReLU(x *RawTensor) *RawTensor             // max(0, x)
	Sigmoid(x *RawTensor) *RawTensor          // 1 / (1 + exp(-x))
	Tanh(x *RawTensor) *RawTensor             // hyperbolic tangent
	Softmax(x *RawTensor, dim int) *RawTensor // softmax along dimension

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension
	Argmax(x *RawTensor, dim int) *RawTensor                // index of maximum along dimension

	// Type conversion
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// CrossEntropy computes the mean negative log-likelihood of int32 class
	// targets under softmax(logits). Logits are [batch, classes], targets are
	// [batch], the result is a single-element tensor.
	CrossEntropy(logits, targets *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
