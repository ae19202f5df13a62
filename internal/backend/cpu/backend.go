// Package cpu implements the pure-Go CPU backend for the Loom ML framework.
package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
//
// Inner loops are monomorphic per dtype; large matrix multiplications are
// chunked across goroutines.
type CPUBackend struct {
	device tensor.Device
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
//
// When both shapes match and a is uniquely owned, the addition happens in
// place and a itself is returned.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("add: %v", err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			addInplace(a, b)
			return a
		}
		result := newResult(outShape, a.DType(), cpu.device, "add")
		addVectorized(result, a, b)
		return result
	}

	result := newResult(outShape, a.DType(), cpu.device, "add")
	addWithBroadcast(result, a, b, outShape)
	return result
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("sub: %v", err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			subInplace(a, b)
			return a
		}
		result := newResult(outShape, a.DType(), cpu.device, "sub")
		subVectorized(result, a, b)
		return result
	}

	result := newResult(outShape, a.DType(), cpu.device, "sub")
	subWithBroadcast(result, a, b, outShape)
	return result
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("mul: %v", err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			mulInplace(a, b)
			return a
		}
		result := newResult(outShape, a.DType(), cpu.device, "mul")
		mulVectorized(result, a, b)
		return result
	}

	result := newResult(outShape, a.DType(), cpu.device, "mul")
	mulWithBroadcast(result, a, b, outShape)
	return result
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("div: %v", err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			divInplace(a, b)
			return a
		}
		result := newResult(outShape, a.DType(), cpu.device, "div")
		divVectorized(result, a, b)
		return result
	}

	result := newResult(outShape, a.DType(), cpu.device, "div")
	divWithBroadcast(result, a, b, outShape)
	return result
}

// Reshape returns a tensor with the same data but a different shape.
//
// This is a view operation: the returned tensor shares the underlying
// buffer with t.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := newResult(newShape, t.DType(), cpu.device, "transpose")
	transposeData(result, t, axes)
	return result
}

// newResult allocates an output tensor, panicking with the operation name
// on failure.
func newResult(shape tensor.Shape, dtype tensor.DataType, device tensor.Device, op string) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
