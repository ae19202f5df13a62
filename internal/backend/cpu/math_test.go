package cpu

import (
	"math"
	"testing"

	"github.com/loom-ml/loom/internal/tensor"
)

func TestCPUBackend_Exp(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{3}, []float32{0, 1, -1})

	result := backend.Exp(x)

	expected := []float32{1, float32(math.E), float32(1 / math.E)}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Exp failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Log(t *testing.T) {
	backend := newTestBackend()

	t.Run("Positive", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{3}, []float32{1, float32(math.E), 10})

		result := backend.Log(x)

		expected := []float32{0, 1, float32(math.Log(10))}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Log failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("NonPositivePanics", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2}, []float32{1, 0})

		mustPanic(t, "log: non-positive value", func() {
			backend.Log(x)
		})
	})
}

func TestCPUBackend_Sqrt(t *testing.T) {
	backend := newTestBackend()

	t.Run("NonNegative", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{4}, []float32{0, 1, 4, 9})

		result := backend.Sqrt(x)

		expected := []float32{0, 1, 2, 3}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Sqrt failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("NegativePanics", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{1}, []float32{-4})

		mustPanic(t, "sqrt: negative value", func() {
			backend.Sqrt(x)
		})
	})

	t.Run("IntDtypePanics", func(t *testing.T) {
		x, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)

		mustPanic(t, "sqrt: unsupported dtype", func() {
			backend.Sqrt(x)
		})
	})
}

func TestCPUBackend_Float64Math(t *testing.T) {
	backend := newTestBackend()

	x, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	copy(x.AsFloat64(), []float64{4, 16})

	result := backend.Sqrt(x)

	got := result.AsFloat64()
	if got[0] != 2 || got[1] != 4 {
		t.Errorf("float64 Sqrt = %v, expected [2 4]", got)
	}
}
