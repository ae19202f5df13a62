package cpu

import (
	"testing"

	"github.com/loom-ml/loom/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("Small2D", func(t *testing.T) {
		// [2,3] @ [3,2]
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

		result := backend.MatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("Expected shape [2, 2], got %v", result.Shape())
		}

		// [1*7+2*9+3*11, 1*8+2*10+3*12] = [58, 64]
		// [4*7+5*9+6*11, 4*8+5*10+6*12] = [139, 154]
		expected := []float32{58, 64, 139, 154}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Identity", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		eye := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 0, 0, 1})

		result := backend.MatMul(a, eye)

		if !float32SliceEqual(result.AsFloat32(), a.AsFloat32()) {
			t.Errorf("A @ I != A: got %v", result.AsFloat32())
		}
	})

	t.Run("ParallelPath", func(t *testing.T) {
		// Large enough to cross the goroutine threshold. With all-ones
		// inputs every output element equals the inner dimension.
		m, k, n := 64, 128, 32
		if m*k*n < matmulParallelThreshold {
			t.Fatal("test matrices too small to exercise the parallel path")
		}

		aData := make([]float32, m*k)
		bData := make([]float32, k*n)
		for i := range aData {
			aData[i] = 1
		}
		for i := range bData {
			bData[i] = 1
		}
		a := rawFloat32(t, tensor.Shape{m, k}, aData)
		b := rawFloat32(t, tensor.Shape{k, n}, bData)

		result := backend.MatMul(a, b)

		for i, v := range result.AsFloat32() {
			if v != float32(k) {
				t.Fatalf("result[%d] = %v, expected %v", i, v, float32(k))
			}
		}
	})

	t.Run("Int32", func(t *testing.T) {
		a, _ := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Int32, tensor.CPU)
		b, _ := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Int32, tensor.CPU)
		copy(a.AsInt32(), []int32{1, 2, 3, 4})
		copy(b.AsInt32(), []int32{5, 6, 7, 8})

		result := backend.MatMul(a, b)

		got := result.AsInt32()
		expected := []int32{19, 22, 43, 50}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("result[%d] = %d, expected %d", i, got[i], expected[i])
			}
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFloat32(t, tensor.Shape{4, 2}, make([]float32, 8))

		mustPanic(t, "matmul: shape mismatch", func() {
			backend.MatMul(a, b)
		})
	})

	t.Run("Non2D", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3, 4}, make([]float32, 24))
		b := rawFloat32(t, tensor.Shape{4, 2}, make([]float32, 8))

		mustPanic(t, "matmul: only 2D tensors supported", func() {
			backend.MatMul(a, b)
		})
	})
}
