package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Expand broadcasts the tensor to a new shape.
//
// Dimensions are aligned from the right. Each input dimension must either
// equal the target dimension or be 1. The result is materialized, not a view.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()

	if len(newShape) < len(xShape) {
		panic(fmt.Sprintf("expand: new shape %v has fewer dimensions than input shape %v",
			newShape, xShape))
	}

	offset := len(newShape) - len(xShape)
	for i := 0; i < len(xShape); i++ {
		xDim := xShape[i]
		newDim := newShape[offset+i]
		if xDim != 1 && xDim != newDim {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d",
				i, xDim, newDim))
		}
	}

	result := newResult(newShape, x.DType(), cpu.device, "expand")
	expandBroadcast(result, x, newShape)
	return result
}

func expandBroadcast(result, x *tensor.RawTensor, outShape tensor.Shape) {
	// Stride-0 reads repeat source elements along broadcast dimensions.
	xStrides := computeBroadcastStridesForShape(x.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	n := outShape.NumElements()

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] = src[computeFlatIndex(i, outStrides, xStrides)]
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i := 0; i < n; i++ {
			dst[i] = src[computeFlatIndex(i, outStrides, xStrides)]
		}
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		for i := 0; i < n; i++ {
			dst[i] = src[computeFlatIndex(i, outStrides, xStrides)]
		}
	case tensor.Int64:
		src := x.AsInt64()
		dst := result.AsInt64()
		for i := 0; i < n; i++ {
			dst[i] = src[computeFlatIndex(i, outStrides, xStrides)]
		}
	case tensor.Uint8:
		src := x.AsUint8()
		dst := result.AsUint8()
		for i := 0; i < n; i++ {
			dst[i] = src[computeFlatIndex(i, outStrides, xStrides)]
		}
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %v", x.DType()))
	}
}

// Unsqueeze adds a dimension of size 1 at the specified position.
//
// Supports negative dim indexing.
// This is a view operation (reshape).
//
// Example:
//
//	x := tensor.Randn[float32]([]int{2, 3}, backend)
//	y := backend.Unsqueeze(x, 1)  // Shape: [2, 1, 3]
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// For unsqueeze the valid range is [0, ndim]
	if dim < 0 {
		dim = ndim + 1 + dim
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor (valid: [0, %d])", dim, ndim, ndim))
	}

	newShape := make(tensor.Shape, ndim+1)
	for i := 0; i < dim; i++ {
		newShape[i] = shape[i]
	}
	newShape[dim] = 1
	for i := dim; i < ndim; i++ {
		newShape[i+1] = shape[i]
	}

	return cpu.Reshape(x, newShape)
}

// Squeeze removes a dimension of size 1 at the specified position.
//
// Panics if the dimension size is not 1.
// Supports negative dim indexing.
// This is a view operation (reshape).
//
// Example:
//
//	x := tensor.Randn[float32]([]int{2, 1, 3}, backend)
//	y := backend.Squeeze(x, 1)  // Shape: [2, 3]
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("squeeze: dimension %d out of range for %dD tensor", dim, ndim))
	}

	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, must be 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			newShape = append(newShape, shape[i])
		}
	}

	return cpu.Reshape(x, newShape)
}
