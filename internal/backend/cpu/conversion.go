package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Cast converts the tensor to a different data type.
//
// Casting to the same dtype returns a clone that shares the underlying
// buffer, so the result is always safe to hand to a new owner.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}

	result := newResult(x.Shape(), dtype, cpu.device, "cast")
	castImpl(result, x, dtype)
	return result
}

func castImpl(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	switch x.DType() {
	case tensor.Float32:
		castFromFloat32(result, x, toDtype)
	case tensor.Float64:
		castFromFloat64(result, x, toDtype)
	case tensor.Int32:
		castFromInt32(result, x, toDtype)
	case tensor.Int64:
		castFromInt64(result, x, toDtype)
	case tensor.Uint8:
		castFromUint8(result, x, toDtype)
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %v", x.DType()))
	}
}

// ============================================================================
// Cast from Float32
// ============================================================================

func castFromFloat32(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	src := x.AsFloat32()

	switch toDtype {
	case tensor.Float64:
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = float64(v)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i, v := range src {
			dst[i] = uint8(v)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v from float32", toDtype))
	}
}

// ============================================================================
// Cast from Float64
// ============================================================================

func castFromFloat64(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	src := x.AsFloat64()

	switch toDtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i, v := range src {
			dst[i] = uint8(v)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v from float64", toDtype))
	}
}

// ============================================================================
// Cast from Int32
// ============================================================================

func castFromInt32(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	src := x.AsInt32()

	switch toDtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = float64(v)
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i, v := range src {
			//nolint:gosec // G115: truncation is expected behavior for casts
			dst[i] = uint8(v)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v from int32", toDtype))
	}
}

// ============================================================================
// Cast from Int64
// ============================================================================

func castFromInt64(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	src := x.AsInt64()

	switch toDtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = float64(v)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i, v := range src {
			//nolint:gosec // G115: truncation is expected behavior for casts
			dst[i] = int32(v)
		}
	case tensor.Uint8:
		dst := result.AsUint8()
		for i, v := range src {
			//nolint:gosec // G115: truncation is expected behavior for casts
			dst[i] = uint8(v)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v from int64", toDtype))
	}
}

// ============================================================================
// Cast from Uint8
// ============================================================================

func castFromUint8(result, x *tensor.RawTensor, toDtype tensor.DataType) {
	src := x.AsUint8()

	switch toDtype {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = float64(v)
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i, v := range src {
			dst[i] = int64(v)
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v from uint8", toDtype))
	}
}
