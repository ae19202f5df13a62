package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// reducedShape is the output shape after reducing dim. Reducing a 1D tensor
// without keepDim yields Shape{1} rather than a 0-dimensional scalar.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}

	out := make(tensor.Shape, 0, len(shape)-1)
	for i := range shape {
		if i != dim {
			out = append(out, shape[i])
		}
	}
	if len(out) == 0 {
		return tensor.Shape{1}
	}
	return out
}

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	x := tensor.Randn[float32]([]int{2, 3, 4}, backend)
//	y := backend.SumDim(x, -1, true)   // shape: [2, 3, 1]
//	z := backend.SumDim(x, -1, false)  // shape: [2, 3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result := newResult(reducedShape(shape, dim, keepDim), x.DType(), cpu.device, "sumdim")

	switch x.DType() {
	case tensor.Float32:
		sumDimFloat32(x.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimFloat64(x.AsFloat64(), result.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// MeanDim computes the mean of tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	sumResult := cpu.SumDim(x, dim, keepDim)

	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	divisor := float64(shape[dim])

	switch sumResult.DType() {
	case tensor.Float32:
		data := sumResult.AsFloat32()
		divisorF32 := float32(divisor)
		for i := range data {
			data[i] /= divisorF32
		}
	case tensor.Float64:
		data := sumResult.AsFloat64()
		for i := range data {
			data[i] /= divisor
		}
	default:
		panic(fmt.Sprintf("meandim: unsupported dtype %s (only float32/float64 supported)", sumResult.DType()))
	}

	return sumResult
}

// sumDimFloat32 accumulates input elements into the reduced output.
func sumDimFloat32(data, result []float32, shape tensor.Shape, dim int) {
	strides := shape.ComputeStrides()
	numElements := shape.NumElements()

	// Output strides with the reduced dimension collapsed to size 1.
	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i := 0; i < numElements; i++ {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]

			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}

		result[outIdx] += data[i]
	}
}

func sumDimFloat64(data, result []float64, shape tensor.Shape, dim int) {
	strides := shape.ComputeStrides()
	numElements := shape.NumElements()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i := 0; i < numElements; i++ {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]

			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}

		result[outIdx] += data[i]
	}
}

// Sum computes the total sum of all elements, returning a Shape{1} tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := newResult(tensor.Shape{1}, x.DType(), cpu.device, "sum")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		var sum float32
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		var sum float64
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		var sum int32
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Int64:
		src := x.AsInt64()
		dst := result.AsInt64()
		var sum int64
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// Argmax returns the index of the maximum value along the specified dimension.
// The result is an int32 tensor with dim removed; ties resolve to the lowest
// index.
//
// Example:
//
//	logits := tensor.Randn[float32]([]int{32, 10}, backend)
//	preds := backend.Argmax(logits, 1)  // shape: [32]
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result := newResult(reducedShape(shape, dim, false), tensor.Int32, cpu.device, "argmax")

	// The input decomposes as [outer, dimSize, inner]; writing output
	// element o*inner+in keeps row-major order for any rank.
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}

	switch x.DType() {
	case tensor.Float32:
		argmaxFloat32(x.AsFloat32(), result.AsInt32(), outer, shape[dim], inner)
	case tensor.Float64:
		argmaxFloat64(x.AsFloat64(), result.AsInt32(), outer, shape[dim], inner)
	case tensor.Int32:
		argmaxInt32(x.AsInt32(), result.AsInt32(), outer, shape[dim], inner)
	case tensor.Int64:
		argmaxInt64(x.AsInt64(), result.AsInt32(), outer, shape[dim], inner)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func argmaxFloat32(data []float32, result []int32, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := data[base]
			maxIdx := int32(0)
			for i := 1; i < dimSize; i++ {
				if v := data[base+i*inner]; v > maxVal {
					maxVal = v
					//nolint:gosec // G115: dimension size < 2^31
					maxIdx = int32(i)
				}
			}

			result[o*inner+in] = maxIdx
		}
	}
}

func argmaxFloat64(data []float64, result []int32, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := data[base]
			maxIdx := int32(0)
			for i := 1; i < dimSize; i++ {
				if v := data[base+i*inner]; v > maxVal {
					maxVal = v
					//nolint:gosec // G115: dimension size < 2^31
					maxIdx = int32(i)
				}
			}

			result[o*inner+in] = maxIdx
		}
	}
}

func argmaxInt32(data, result []int32, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := data[base]
			maxIdx := int32(0)
			for i := 1; i < dimSize; i++ {
				if v := data[base+i*inner]; v > maxVal {
					maxVal = v
					//nolint:gosec // G115: dimension size < 2^31
					maxIdx = int32(i)
				}
			}

			result[o*inner+in] = maxIdx
		}
	}
}

func argmaxInt64(data []int64, result []int32, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := data[base]
			maxIdx := int32(0)
			for i := 1; i < dimSize; i++ {
				if v := data[base+i*inner]; v > maxVal {
					maxVal = v
					//nolint:gosec // G115: dimension size < 2^31
					maxIdx = int32(i)
				}
			}

			result[o*inner+in] = maxIdx
		}
	}
}
