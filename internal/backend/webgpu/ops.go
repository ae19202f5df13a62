//go:build windows

package webgpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// fromHost retags a CPU-kernel result onto the WebGPU device. Results
// that are already device-tagged (the host's in-place fast path returns
// its input) pass through unchanged.
func (b *Backend) fromHost(r *tensor.RawTensor) *tensor.RawTensor {
	if r.Device() == tensor.WebGPU {
		return r
	}
	out, err := tensor.NewRaw(r.Shape(), r.DType(), tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: retagging host result: %v", err))
	}
	copy(out.Data(), r.Data())
	return out
}

// binaryOp dispatches an element-wise op on the GPU, expanding broadcast
// operands through the host kernels first. Non-float32 inputs run fully
// on the host.
func (b *Backend) binaryOp(name string, a, c *tensor.RawTensor, hostOp func(a, c *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || c.DType() != tensor.Float32 {
		return b.fromHost(hostOp(a, c))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), c.Shape())
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", name, err))
	}
	if needsBroadcast || !a.Shape().Equal(c.Shape()) {
		a = b.host.Expand(a, outShape)
		c = b.host.Expand(c, outShape)
	}

	result, err := b.dispatch(name, binaryShaderSrc(binaryExprs[name]),
		[]*tensor.RawTensor{a, c}, sizeParams(outShape.NumElements()),
		outShape, groups1D(outShape.NumElements()), 1, 1)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", name, err))
	}
	return result
}

// unaryOp dispatches an element-wise transform on the GPU.
func (b *Backend) unaryOp(name string, x *tensor.RawTensor, hostOp func(x *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return b.fromHost(hostOp(x))
	}
	result, err := b.dispatch(name, unaryShaderSrc(unaryExprs[name]),
		[]*tensor.RawTensor{x}, sizeParams(x.NumElements()),
		x.Shape(), groups1D(x.NumElements()), 1, 1)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", name, err))
	}
	return result
}

// scaleOffset runs result = x*scale + offset through the shared scalar
// pipeline.
func (b *Backend) scaleOffset(name string, x *tensor.RawTensor, scale, offset float32) *tensor.RawTensor {
	result, err := b.dispatch("scale_offset", scaleOffsetShader,
		[]*tensor.RawTensor{x}, scaleOffsetParams(x.NumElements(), scale, offset),
		x.Shape(), groups1D(x.NumElements()), 1, 1)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", name, err))
	}
	return result
}

// scalarFloat extracts a scalar argument as float32. Mirrors the host
// backend's coercion so both backends accept the same literals.
func scalarFloat(scalar any) (float32, bool) {
	switch v := scalar.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	default:
		return 0, false
	}
}

// Add performs element-wise addition with broadcasting.
func (b *Backend) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("add", a, c, b.host.Add)
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("sub", a, c, b.host.Sub)
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("mul", a, c, b.host.Mul)
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("div", a, c, b.host.Div)
}

// MatMul multiplies two 2D matrices on the GPU.
func (b *Backend) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || len(a.Shape()) != 2 || len(c.Shape()) != 2 {
		return b.fromHost(b.host.MatMul(a, c))
	}
	m, k := a.Shape()[0], a.Shape()[1]
	n := c.Shape()[1]
	if c.Shape()[0] != k {
		panic(fmt.Sprintf("webgpu: matmul: shape mismatch %v @ %v", a.Shape(), c.Shape()))
	}

	result, err := b.dispatch("matmul", matmulShader,
		[]*tensor.RawTensor{a, c}, dims3Params(m, k, n),
		tensor.Shape{m, n}, groups2D(n), groups2D(m), 1)
	if err != nil {
		panic(fmt.Sprintf("webgpu: matmul: %v", err))
	}
	return result
}

// BatchMatMul multiplies matching batches of matrices on the GPU.
// Only the 3D same-batch case has a shader; broadcast batches and 4D
// inputs run on the host.
func (b *Backend) BatchMatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Float32 ||
		len(a.Shape()) != 3 || len(c.Shape()) != 3 ||
		a.Shape()[0] != c.Shape()[0] {
		return b.fromHost(b.host.BatchMatMul(a, c))
	}
	batch, m, k := a.Shape()[0], a.Shape()[1], a.Shape()[2]
	n := c.Shape()[2]
	if c.Shape()[1] != k {
		panic(fmt.Sprintf("webgpu: batchmatmul: shape mismatch %v @ %v", a.Shape(), c.Shape()))
	}

	result, err := b.dispatch("batchmatmul", batchMatMulShader,
		[]*tensor.RawTensor{a, c}, dims4Params(batch, m, k, n),
		tensor.Shape{batch, m, n}, groups2D(n), groups2D(m), uint32(batch))
	if err != nil {
		panic(fmt.Sprintf("webgpu: batchmatmul: %v", err))
	}
	return result
}

// Reshape changes the logical shape without touching data.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return b.fromHost(b.host.Reshape(t, newShape))
}

// Transpose permutes dimensions, materializing the result on the host.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	return b.fromHost(b.host.Transpose(t, axes...))
}

// Expand broadcasts to shape on the host.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.fromHost(b.host.Expand(x, shape))
}

// Unsqueeze inserts a size-1 dimension at dim.
func (b *Backend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fromHost(b.host.Unsqueeze(x, dim))
}

// Squeeze removes a size-1 dimension at dim.
func (b *Backend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fromHost(b.host.Squeeze(x, dim))
}

// MulScalar multiplies every element by scalar.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if s, ok := scalarFloat(scalar); ok && x.DType() == tensor.Float32 {
		return b.scaleOffset("mulscalar", x, s, 0)
	}
	return b.fromHost(b.host.MulScalar(x, scalar))
}

// AddScalar adds scalar to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if s, ok := scalarFloat(scalar); ok && x.DType() == tensor.Float32 {
		return b.scaleOffset("addscalar", x, 1, s)
	}
	return b.fromHost(b.host.AddScalar(x, scalar))
}

// SubScalar subtracts scalar from every element.
func (b *Backend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if s, ok := scalarFloat(scalar); ok && x.DType() == tensor.Float32 {
		return b.scaleOffset("subscalar", x, 1, -s)
	}
	return b.fromHost(b.host.SubScalar(x, scalar))
}

// DivScalar divides every element by scalar.
func (b *Backend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if s, ok := scalarFloat(scalar); ok && x.DType() == tensor.Float32 && s != 0 {
		return b.scaleOffset("divscalar", x, 1/s, 0)
	}
	return b.fromHost(b.host.DivScalar(x, scalar))
}

// Exp applies e^x element-wise.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("exp", x, b.host.Exp)
}

// Log applies the natural logarithm element-wise.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("log", x, b.host.Log)
}

// Sqrt applies the square root element-wise.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("sqrt", x, b.host.Sqrt)
}

// ReLU applies max(0, x) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("relu", x, b.host.ReLU)
}

// Sigmoid applies the logistic function element-wise.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("sigmoid", x, b.host.Sigmoid)
}

// Tanh applies the hyperbolic tangent element-wise.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryOp("tanh", x, b.host.Tanh)
}

// Softmax normalizes along dim. The GPU path covers the common
// last-dimension case; other dims run on the host.
func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	rank := len(x.Shape())
	if dim < 0 {
		dim += rank
	}
	if x.DType() != tensor.Float32 || dim != rank-1 || rank < 1 {
		return b.fromHost(b.host.Softmax(x, dim))
	}

	cols := x.Shape()[rank-1]
	rows := x.NumElements() / cols
	result, err := b.dispatch("softmax", softmaxShader,
		[]*tensor.RawTensor{x}, dims2Params(rows, cols),
		x.Shape(), groups1D(rows), 1, 1)
	if err != nil {
		panic(fmt.Sprintf("webgpu: softmax: %v", err))
	}
	return result
}

// Sum reduces to a single-element tensor.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.fromHost(b.host.Sum(x))
}

// SumDim sums along dim.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.fromHost(b.host.SumDim(x, dim, keepDim))
}

// MeanDim averages along dim.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.fromHost(b.host.MeanDim(x, dim, keepDim))
}

// Argmax returns indices of maxima along dim.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fromHost(b.host.Argmax(x, dim))
}

// Cast converts to dtype.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.fromHost(b.host.Cast(x, dtype))
}

// CrossEntropy computes the fused softmax + NLL loss on the host.
func (b *Backend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	return b.fromHost(b.host.CrossEntropy(logits, targets))
}
