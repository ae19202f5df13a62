package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value.
//
// The scalar argument is coerced to the tensor's dtype, so callers can pass
// untyped constants (for example DivScalar(x, 255.0) on a float32 tensor).

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := newResult(x.Shape(), x.DType(), cpu.device, "mulScalar")

	switch x.DType() {
	case tensor.Float32:
		mulScalarFloat32(result, x, scalarToFloat32(scalar))
	case tensor.Float64:
		mulScalarFloat64(result, x, scalarToFloat64(scalar))
	case tensor.Int32:
		mulScalarInt32(result, x, scalarToInt32(scalar))
	case tensor.Int64:
		mulScalarInt64(result, x, scalarToInt64(scalar))
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := newResult(x.Shape(), x.DType(), cpu.device, "addScalar")

	switch x.DType() {
	case tensor.Float32:
		addScalarFloat32(result, x, scalarToFloat32(scalar))
	case tensor.Float64:
		addScalarFloat64(result, x, scalarToFloat64(scalar))
	case tensor.Int32:
		addScalarInt32(result, x, scalarToInt32(scalar))
	case tensor.Int64:
		addScalarInt64(result, x, scalarToInt64(scalar))
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// SubScalar subtracts a scalar value from each element of the tensor.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := newResult(x.Shape(), x.DType(), cpu.device, "subScalar")

	switch x.DType() {
	case tensor.Float32:
		subScalarFloat32(result, x, scalarToFloat32(scalar))
	case tensor.Float64:
		subScalarFloat64(result, x, scalarToFloat64(scalar))
	case tensor.Int32:
		subScalarInt32(result, x, scalarToInt32(scalar))
	case tensor.Int64:
		subScalarInt64(result, x, scalarToInt64(scalar))
	default:
		panic(fmt.Sprintf("subScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// DivScalar divides each element of the tensor by a scalar value.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := newResult(x.Shape(), x.DType(), cpu.device, "divScalar")

	switch x.DType() {
	case tensor.Float32:
		divScalarFloat32(result, x, scalarToFloat32(scalar))
	case tensor.Float64:
		divScalarFloat64(result, x, scalarToFloat64(scalar))
	case tensor.Int32:
		divScalarInt32(result, x, scalarToInt32(scalar))
	case tensor.Int64:
		divScalarInt64(result, x, scalarToInt64(scalar))
	default:
		panic(fmt.Sprintf("divScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// ============================================================================
// Scalar coercion
// ============================================================================

func scalarToFloat32(scalar any) float32 {
	switch v := scalar.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	case int32:
		return float32(v)
	case int64:
		return float32(v)
	case uint8:
		return float32(v)
	default:
		panic(fmt.Sprintf("scalar: unsupported value type %T", scalar))
	}
}

func scalarToFloat64(scalar any) float64 {
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
		panic(fmt.Sprintf("scalar: unsupported value type %T", scalar))
	}
}

func scalarToInt32(scalar any) int32 {
	switch v := scalar.(type) {
	case float32:
		return int32(v)
	case float64:
		return int32(v)
	case int:
		return int32(v) //nolint:gosec // G115: caller-supplied scalar
	case int32:
		return v
	case int64:
		return int32(v) //nolint:gosec // G115: caller-supplied scalar
	case uint8:
		return int32(v)
	default:
		panic(fmt.Sprintf("scalar: unsupported value type %T", scalar))
	}
}

func scalarToInt64(scalar any) int64 {
	switch v := scalar.(type) {
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint8:
		return int64(v)
	default:
		panic(fmt.Sprintf("scalar: unsupported value type %T", scalar))
	}
}

// ============================================================================
// Float32 implementations
// ============================================================================

func mulScalarFloat32(result, x *tensor.RawTensor, scalar float32) {
	xData := x.AsFloat32()
	resultData := result.AsFloat32()

	for i := range resultData {
		resultData[i] = xData[i] * scalar
	}
}

func addScalarFloat32(result, x *tensor.RawTensor, scalar float32) {
	xData := x.AsFloat32()
	resultData := result.AsFloat32()

	for i := range resultData {
		resultData[i] = xData[i] + scalar
	}
}

func subScalarFloat32(result, x *tensor.RawTensor, scalar float32) {
	xData := x.AsFloat32()
	resultData := result.AsFloat32()

	for i := range resultData {
		resultData[i] = xData[i] - scalar
	}
}

func divScalarFloat32(result, x *tensor.RawTensor, scalar float32) {
	xData := x.AsFloat32()
	resultData := result.AsFloat32()

	for i := range resultData {
		resultData[i] = xData[i] / scalar
	}
}

// ============================================================================
// Float64 implementations
// ============================================================================

func mulScalarFloat64(result, x *tensor.RawTensor, scalar float64) {
	xData := x.AsFloat64()
	resultData := result.AsFloat64()

	for i := range resultData {
		resultData[i] = xData[i] * scalar
	}
}

func addScalarFloat64(result, x *tensor.RawTensor, scalar float64) {
	xData := x.AsFloat64()
	resultData := result.AsFloat64()

	for i := range resultData {
		resultData[i] = xData[i] + scalar
	}
}

func subScalarFloat64(result, x *tensor.RawTensor, scalar float64) {
	xData := x.AsFloat64()
	resultData := result.AsFloat64()

	for i := range resultData {
		resultData[i] = xData[i] - scalar
	}
}

func divScalarFloat64(result, x *tensor.RawTensor, scalar float64) {
	xData := x.AsFloat64()
	resultData := result.AsFloat64()

	for i := range resultData {
		resultData[i] = xData[i] / scalar
	}
}

// ============================================================================
// Int32 implementations
// ============================================================================

func mulScalarInt32(result, x *tensor.RawTensor, scalar int32) {
	xData := x.AsInt32()
	resultData := result.AsInt32()

	for i := range resultData {
		resultData[i] = xData[i] * scalar
	}
}

func addScalarInt32(result, x *tensor.RawTensor, scalar int32) {
	xData := x.AsInt32()
	resultData := result.AsInt32()

	for i := range resultData {
		resultData[i] = xData[i] + scalar
	}
}

func subScalarInt32(result, x *tensor.RawTensor, scalar int32) {
	xData := x.AsInt32()
	resultData := result.AsInt32()

	for i := range resultData {
		resultData[i] = xData[i] - scalar
	}
}

func divScalarInt32(result, x *tensor.RawTensor, scalar int32) {
	xData := x.AsInt32()
	resultData := result.AsInt32()

	for i := range resultData {
		resultData[i] = xData[i] / scalar
	}
}

// ============================================================================
// Int64 implementations
// ============================================================================

func mulScalarInt64(result, x *tensor.RawTensor, scalar int64) {
	xData := x.AsInt64()
	resultData := result.AsInt64()

	for i := range resultData {
		resultData[i] = xData[i] * scalar
	}
}

func addScalarInt64(result, x *tensor.RawTensor, scalar int64) {
	xData := x.AsInt64()
	resultData := result.AsInt64()

	for i := range resultData {
		resultData[i] = xData[i] + scalar
	}
}

func subScalarInt64(result, x *tensor.RawTensor, scalar int64) {
	xData := x.AsInt64()
	resultData := result.AsInt64()

	for i := range resultData {
		resultData[i] = xData[i] - scalar
	}
}

func divScalarInt64(result, x *tensor.RawTensor, scalar int64) {
	xData := x.AsInt64()
	resultData := result.AsInt64()

	for i := range resultData {
		resultData[i] = xData[i] / scalar
	}
}
