package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication.
//
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
//
// The last two dimensions are treated as matrix dimensions. All leading
// dimensions must match. (batch, row) pairs are chunked across goroutines
// for larger problems.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	ndim := len(aShape)

	if ndim < 3 {
		panic(fmt.Sprintf("BatchMatMul: inputs must be at least 3D, got %dD", ndim))
	}
	if len(bShape) != ndim {
		panic(fmt.Sprintf("BatchMatMul: dimension mismatch, got %dD and %dD", ndim, len(bShape)))
	}

	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("BatchMatMul: batch dimension mismatch at dim %d: %d vs %d", i, aShape[i], bShape[i]))
		}
	}

	m := aShape[ndim-2]
	k1 := aShape[ndim-1]
	k2 := bShape[ndim-2]
	n := bShape[ndim-1]

	if k1 != k2 {
		panic(fmt.Sprintf("BatchMatMul: inner dimension mismatch: %d vs %d", k1, k2))
	}

	batchSize := 1
	for i := 0; i < ndim-2; i++ {
		batchSize *= aShape[i]
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, aShape[:ndim-2])
	outShape[ndim-2] = m
	outShape[ndim-1] = n

	result := newResult(outShape, a.DType(), cpu.device, "BatchMatMul")

	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 1
	if batchSize*m*k1*n < matmulParallelThreshold {
		cfg.Enabled = false
	}

	switch a.DType() {
	case tensor.Float32:
		batchMatmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batchSize, m, k1, n, cfg)
	case tensor.Float64:
		batchMatmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batchSize, m, k1, n, cfg)
	default:
		panic(fmt.Sprintf("BatchMatMul: unsupported dtype %s", a.DType()))
	}

	return result
}

func batchMatmulFloat32(c, a, b []float32, batchSize, m, k, n int, cfg parallel.Config) {
	matrixSizeA := m * k
	matrixSizeB := k * n
	matrixSizeC := m * n

	parallel.ForBatch(batchSize, m, func(batch, i int) {
		aOffset := batch * matrixSizeA
		bOffset := batch * matrixSizeB
		cOffset := batch * matrixSizeC

		for j := 0; j < n; j++ {
			sum := float32(0)
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[aOffset+i*k+kIdx] * b[bOffset+kIdx*n+j]
			}
			c[cOffset+i*n+j] = sum
		}
	}, cfg)
}

func batchMatmulFloat64(c, a, b []float64, batchSize, m, k, n int, cfg parallel.Config) {
	matrixSizeA := m * k
	matrixSizeB := k * n
	matrixSizeC := m * n

	parallel.ForBatch(batchSize, m, func(batch, i int) {
		aOffset := batch * matrixSizeA
		bOffset := batch * matrixSizeB
		cOffset := batch * matrixSizeC

		for j := 0; j < n; j++ {
			sum := float64(0)
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[aOffset+i*k+kIdx] * b[bOffset+kIdx*n+j]
			}
			c[cOffset+i*n+j] = sum
		}
	}, cfg)
}
