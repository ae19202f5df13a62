package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple backend for testing.
// It implements all operations naively for correctness verification.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// elementWise performs element-wise operations with broadcasting.
func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	numElements := outShape.NumElements()

	// Convert to float64 for generic processing
	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, numElements)

	for i := 0; i < numElements; i++ {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())

		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// unaryWise applies op to every element.
func (m *MockBackend) unaryWise(t *RawTensor, op func(float64) float64) *RawTensor {
	result, err := NewRaw(t.Shape(), t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(t)
	for i, v := range data {
		data[i] = op(v)
	}
	m.fromFloat64Slice(data, result)
	return result
}

// MatMul performs matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic("MatMul only supports 2D tensors in mock backend")
	}

	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("incompatible shapes for MatMul: %v @ %v", aShape, bShape))
	}

	M, K := aShape[0], aShape[1]
	N := bShape[1]

	result, err := NewRaw(Shape{M, N}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, M*N)

	// Naive matrix multiplication
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			resultData[i*N+j] = sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// BatchMatMul performs batched matrix multiplication over the last two dims.
func (m *MockBackend) BatchMatMul(a, b *RawTensor) *RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) < 3 || len(aShape) != len(bShape) {
		panic(fmt.Sprintf("BatchMatMul requires tensors of equal rank >= 3, got %v and %v", aShape, bShape))
	}

	batch := 1
	for i := 0; i < len(aShape)-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("BatchMatMul: batch dimension %d mismatch: %d vs %d", i, aShape[i], bShape[i]))
		}
		batch *= aShape[i]
	}

	M, K := aShape[len(aShape)-2], aShape[len(aShape)-1]
	if bShape[len(bShape)-2] != K {
		panic(fmt.Sprintf("incompatible shapes for BatchMatMul: %v @ %v", aShape, bShape))
	}
	N := bShape[len(bShape)-1]

	outShape := make(Shape, 0, len(aShape))
	outShape = append(outShape, aShape[:len(aShape)-2]...)
	outShape = append(outShape, M, N)

	result, err := NewRaw(outShape, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, outShape.NumElements())

	for bi := 0; bi < batch; bi++ {
		aOff := bi * M * K
		bOff := bi * K * N
		oOff := bi * M * N
		for i := 0; i < M; i++ {
			for j := 0; j < N; j++ {
				sum := 0.0
				for k := 0; k < K; k++ {
					sum += aData[aOff+i*K+k] * bData[bOff+k*N+j]
				}
				resultData[oOff+i*N+j] = sum
			}
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Reshape changes tensor shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("cannot reshape tensor with %d elements to shape %v (%d elements)",
			t.NumElements(), newShape, newShape.NumElements()))
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose transposes tensor dimensions.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}

	if len(axes) != len(shape) {
		panic(fmt.Sprintf("axes length %d doesn't match tensor dimensions %d", len(axes), len(shape)))
	}

	newShape := make(Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			panic(fmt.Sprintf("axis %d out of bounds for tensor with %d dimensions", axis, len(shape)))
		}
		newShape[i] = shape[axis]
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	tData := m.toFloat64Slice(t)
	resultData := make([]float64, t.NumElements())

	oldStrides := shape.ComputeStrides()
	newStrides := newShape.ComputeStrides()

	for i := 0; i < t.NumElements(); i++ {
		// Convert flat index to multi-dimensional indices
		indices := make([]int, len(shape))
		temp := i
		for j := 0; j < len(shape); j++ {
			indices[j] = temp / oldStrides[j]
			temp %= oldStrides[j]
		}

		// Permute indices
		newIdx := 0
		for j, axis := range axes {
			newIdx += indices[axis] * newStrides[j]
		}

		resultData[newIdx] = tData[i]
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Expand broadcasts the tensor to a larger shape.
func (m *MockBackend) Expand(t *RawTensor, newShape Shape) *RawTensor {
	inShape := t.Shape()
	if len(newShape) < len(inShape) {
		panic(fmt.Sprintf("expand: target shape %v has fewer dimensions than %v", newShape, inShape))
	}

	offset := len(newShape) - len(inShape)
	for i, s := range inShape {
		if s != 1 && s != newShape[offset+i] {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d", i, s, newShape[offset+i]))
		}
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(t)
	resultData := make([]float64, newShape.NumElements())
	for i := range resultData {
		resultData[i] = data[m.broadcastIndex(i, newShape, inShape)]
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Unsqueeze inserts a dimension of size 1.
func (m *MockBackend) Unsqueeze(t *RawTensor, dim int) *RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dim %d out of range for shape %v", dim, shape))
	}

	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return m.Reshape(t, newShape)
}

// Squeeze removes a dimension of size 1.
func (m *MockBackend) Squeeze(t *RawTensor, dim int) *RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("squeeze: dim %d out of range for shape %v", dim, shape))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}

	newShape := make(Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	if len(newShape) == 0 {
		newShape = Shape{1}
	}
	return m.Reshape(t, newShape)
}

// AddScalar adds a scalar to every element.
func (m *MockBackend) AddScalar(t *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.unaryWise(t, func(x float64) float64 { return x + s })
}

// SubScalar subtracts a scalar from every element.
func (m *MockBackend) SubScalar(t *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.unaryWise(t, func(x float64) float64 { return x - s })
}

// MulScalar multiplies every element by a scalar.
func (m *MockBackend) MulScalar(t *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.unaryWise(t, func(x float64) float64 { return x * s })
}

// DivScalar divides every element by a scalar.
func (m *MockBackend) DivScalar(t *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.unaryWise(t, func(x float64) float64 { return x / s })
}

// Exp computes the element-wise exponential.
func (m *MockBackend) Exp(t *RawTensor) *RawTensor {
	return m.unaryWise(t, math.Exp)
}

// Log computes the element-wise natural logarithm.
func (m *MockBackend) Log(t *RawTensor) *RawTensor {
	return m.unaryWise(t, math.Log)
}

// Sqrt computes the element-wise square root.
func (m *MockBackend) Sqrt(t *RawTensor) *RawTensor {
	return m.unaryWise(t, math.Sqrt)
}

// ReLU applies max(0, x) element-wise.
func (m *MockBackend) ReLU(t *RawTensor) *RawTensor {
	return m.unaryWise(t, func(x float64) float64 { return math.Max(0, x) })
}

// Sigmoid applies 1/(1+exp(-x)) element-wise.
func (m *MockBackend) Sigmoid(t *RawTensor) *RawTensor {
	return m.unaryWise(t, func(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) })
}

// Tanh applies the hyperbolic tangent element-wise.
func (m *MockBackend) Tanh(t *RawTensor) *RawTensor {
	return m.unaryWise(t, math.Tanh)
}

// Softmax normalizes along dim into a probability distribution.
func (m *MockBackend) Softmax(t *RawTensor, dim int) *RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("softmax: dim %d out of range for shape %v", dim, shape))
	}

	result, err := NewRaw(shape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := t.NumElements() / (dimSize * inner)

	data := m.toFloat64Slice(t)
	out := make([]float64, len(data))

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			// Max-shift for numerical stability
			maxVal := math.Inf(-1)
			for d := 0; d < dimSize; d++ {
				if v := data[base+d*inner]; v > maxVal {
					maxVal = v
				}
			}
			sum := 0.0
			for d := 0; d < dimSize; d++ {
				e := math.Exp(data[base+d*inner] - maxVal)
				out[base+d*inner] = e
				sum += e
			}
			for d := 0; d < dimSize; d++ {
				out[base+d*inner] /= sum
			}
		}
	}

	m.fromFloat64Slice(out, result)
	return result
}

// Sum reduces all elements to a single-element tensor.
func (m *MockBackend) Sum(t *RawTensor) *RawTensor {
	data := m.toFloat64Slice(t)
	total := 0.0
	for _, v := range data {
		total += v
	}

	result, err := NewRaw(Shape{1}, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice([]float64{total}, result)
	return result
}

// SumDim sums along a dimension.
func (m *MockBackend) SumDim(t *RawTensor, dim int, keepDim bool) *RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumdim: dim %d out of range for shape %v", dim, shape))
	}

	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := t.NumElements() / (dimSize * inner)

	outShape := reducedShape(shape, dim, keepDim)
	result, err := NewRaw(outShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(t)
	out := make([]float64, outShape.NumElements())
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			sum := 0.0
			for d := 0; d < dimSize; d++ {
				sum += data[o*dimSize*inner+d*inner+in]
			}
			out[o*inner+in] = sum
		}
	}

	m.fromFloat64Slice(out, result)
	return result
}

// MeanDim averages along a dimension.
func (m *MockBackend) MeanDim(t *RawTensor, dim int, keepDim bool) *RawTensor {
	shape := t.Shape()
	d := dim
	if d < 0 {
		d += len(shape)
	}
	if d < 0 || d >= len(shape) {
		panic(fmt.Sprintf("meandim: dim %d out of range for shape %v", dim, shape))
	}

	result := m.SumDim(t, dim, keepDim)
	data := m.toFloat64Slice(result)
	n := float64(shape[d])
	for i := range data {
		data[i] /= n
	}
	m.fromFloat64Slice(data, result)
	return result
}

// Argmax returns the indices of the maximum values along a dimension.
func (m *MockBackend) Argmax(t *RawTensor, dim int) *RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("argmax: dim %d out of range for shape %v", dim, shape))
	}

	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := t.NumElements() / (dimSize * inner)

	outShape := reducedShape(shape, dim, false)
	result, err := NewRaw(outShape, Int32, m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(t)
	out := result.AsInt32()
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best := 0
			bestVal := data[o*dimSize*inner+in]
			for d := 1; d < dimSize; d++ {
				if v := data[o*dimSize*inner+d*inner+in]; v > bestVal {
					bestVal = v
					best = d
				}
			}
			out[o*inner+in] = int32(best) //nolint:gosec // G115: dim index fits in int32.
		}
	}
	return result
}

// Cast converts the tensor to a different data type.
func (m *MockBackend) Cast(t *RawTensor, dtype DataType) *RawTensor {
	result, err := NewRaw(t.Shape(), dtype, m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice(m.toFloat64Slice(t), result)
	return result
}

// CrossEntropy computes the mean negative log-likelihood of targets under
// softmax(logits). Logits are [batch, classes], targets are int32 [batch].
func (m *MockBackend) CrossEntropy(logits, targets *RawTensor) *RawTensor {
	lShape := logits.Shape()
	if len(lShape) != 2 {
		panic(fmt.Sprintf("cross entropy: logits must be 2D [batch, classes], got %v", lShape))
	}
	tShape := targets.Shape()
	if len(tShape) != 1 || tShape[0] != lShape[0] {
		panic(fmt.Sprintf("cross entropy: targets must be 1D [%d], got %v", lShape[0], tShape))
	}

	batch, classes := lShape[0], lShape[1]
	data := m.toFloat64Slice(logits)
	tgt := targets.AsInt32()

	total := 0.0
	for i := 0; i < batch; i++ {
		row := data[i*classes : (i+1)*classes]
		maxVal := row[0]
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for _, v := range row {
			sum += math.Exp(v - maxVal)
		}
		logSumExp := maxVal + math.Log(sum)
		total += logSumExp - row[tgt[i]]
	}

	result, err := NewRaw(Shape{1}, logits.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice([]float64{total / float64(batch)}, result)
	return result
}

// Helper functions

// reducedShape drops (or keeps as size 1) the reduced dimension.
// A full reduction of a 1D tensor yields Shape{1}.
func reducedShape(shape Shape, dim int, keepDim bool) Shape {
	out := make(Shape, 0, len(shape))
	for i, s := range shape {
		if i == dim {
			if keepDim {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		out = Shape{1}
	}
	return out
}

func (m *MockBackend) scalarToFloat64(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	default:
		panic(fmt.Sprintf("unsupported scalar type: %T", scalar))
	}
}

func (m *MockBackend) toFloat64Slice(t *RawTensor) []float64 {
	switch t.DType() {
	case Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Float64:
		dst := make([]float64, t.NumElements())
		copy(dst, t.AsFloat64())
		return dst
	case Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Int64:
		src := t.AsInt64()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Uint8:
		src := t.AsUint8()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
}

func (m *MockBackend) fromFloat64Slice(src []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), src)
	case Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case Int64:
		dst := t.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case Uint8:
		dst := t.AsUint8()
		for i, v := range src {
			dst[i] = uint8(v)
		}
	}
}

func (m *MockBackend) broadcastIndex(flatIdx int, outShape, inShape Shape) int {
	// Convert flat index to multi-dimensional indices in output shape
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))

	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	// Map to input shape (accounting for broadcasting)
	inStrides := inShape.ComputeStrides()
	inIdx := 0

	offset := len(outShape) - len(inShape)
	for i := 0; i < len(inShape); i++ {
		outDimIdx := indices[offset+i]
		if inShape[i] == 1 {
			outDimIdx = 0
		}
		inIdx += outDimIdx * inStrides[i]
	}

	return inIdx
}
