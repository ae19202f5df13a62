package cpu

import (
	"strings"
	"testing"

	"github.com/loom-ml/loom/internal/tensor"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New()
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

// Helper to build a float32 tensor from literal data.
func rawFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v) failed: %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

// Helper asserting that fn panics with a message containing substr.
func mustPanic(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, got none", substr)
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected string panic, got %T: %v", r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Errorf("panic %q does not contain %q", msg, substr)
		}
	}()
	fn()
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{2, 3}, []float32{10, 11, 12, 13, 14, 15})

		result := backend.Add(a, b)

		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InplaceWhenUnique", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
		b := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		if !a.IsUnique() {
			t.Fatal("fresh tensor should be unique")
		}

		result := backend.Add(a, b)

		if result != a {
			t.Error("unique lhs with matching shape should be modified in place")
		}
		expected := []float32{11, 22, 33}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add inplace failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("CopyWhenShared", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
		b := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		view := a.Clone()
		defer view.Release()

		result := backend.Add(a, b)

		if result == a {
			t.Error("shared lhs must not be modified in place")
		}
		if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3}) {
			t.Errorf("shared lhs was mutated: %v", a.AsFloat32())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{11, 22, 33}) {
			t.Errorf("Add failed: got %v", result.AsFloat32())
		}
	})

	t.Run("Int64", func(t *testing.T) {
		a, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU)
		b, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU)
		copy(a.AsInt64(), []int64{1, 2})
		copy(b.AsInt64(), []int64{30, 40})

		result := backend.Add(a, b)

		got := result.AsInt64()
		if got[0] != 31 || got[1] != 42 {
			t.Errorf("int64 Add failed: got %v", got)
		}
	})
}

func TestCPUBackend_AddBroadcasting(t *testing.T) {
	backend := newTestBackend()

	t.Run("Broadcast_3x1_plus_4", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{3, 1}, []float32{1, 2, 3})
		b := rawFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})

		result := backend.Add(a, b)

		if !result.Shape().Equal(tensor.Shape{3, 4}) {
			t.Fatalf("Expected shape [3, 4], got %v", result.Shape())
		}

		expected := []float32{11, 21, 31, 41, 12, 22, 32, 42, 13, 23, 33, 43}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Broadcasting add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ScalarBroadcast", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{1}, []float32{10})

		result := backend.Add(a, b)

		expected := []float32{11, 12, 13, 14, 15, 16}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Scalar broadcast failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("IncompatibleShapes", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFloat32(t, tensor.Shape{2, 4}, make([]float32, 8))

		mustPanic(t, "add:", func() {
			backend.Add(a, b)
		})
	})
}

func TestCPUBackend_Sub(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})
	b := rawFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})

	result := backend.Sub(a, b)

	expected := []float32{9, 18, 27, 36}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Sub failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Mul(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
		b := rawFloat32(t, tensor.Shape{4}, []float32{2, 2, 2, 2})

		result := backend.Mul(a, b)

		expected := []float32{2, 4, 6, 8}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Mul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastRow", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFloat32(t, tensor.Shape{3}, []float32{10, 100, 1000})

		result := backend.Mul(a, b)

		expected := []float32{10, 200, 3000, 40, 500, 6000}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Broadcast mul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})
}

func TestCPUBackend_Div(t *testing.T) {
	backend := newTestBackend()

	a := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})
	b := rawFloat32(t, tensor.Shape{3}, []float32{2, 4, 5})

	result := backend.Div(a, b)

	expected := []float32{5, 5, 6}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Div failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := newTestBackend()

	t.Run("View", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.Reshape(x, tensor.Shape{3, 2})

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Expected shape [3, 2], got %v", result.Shape())
		}

		// Reshape is a view: writes through the result show up in x.
		result.AsFloat32()[0] = 99
		if x.AsFloat32()[0] != 99 {
			t.Error("reshape result does not share the source buffer")
		}
	})

	t.Run("IncompatibleElementCount", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))

		mustPanic(t, "reshape: incompatible shapes", func() {
			backend.Reshape(x, tensor.Shape{4, 2})
		})
	})
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()

	t.Run("Default2D", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.Transpose(x)

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Expected shape [3, 2], got %v", result.Shape())
		}

		expected := []float32{1, 4, 2, 5, 3, 6}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Transpose failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ExplicitAxes3D", func(t *testing.T) {
		// x[i][j][k] laid out as [2, 3, 4]
		data := make([]float32, 24)
		for i := range data {
			data[i] = float32(i)
		}
		x := rawFloat32(t, tensor.Shape{2, 3, 4}, data)

		result := backend.Transpose(x, 1, 0, 2)

		if !result.Shape().Equal(tensor.Shape{3, 2, 4}) {
			t.Fatalf("Expected shape [3, 2, 4], got %v", result.Shape())
		}

		// result[j][i][k] == x[i][j][k]; spot check a few entries.
		got := result.AsFloat32()
		if got[0*8+0*4+1] != data[0*12+0*4+1] {
			t.Errorf("result[0][0][1] = %v, expected %v", got[1], data[1])
		}
		if got[2*8+1*4+3] != data[1*12+2*4+3] {
			t.Errorf("result[2][1][3] = %v, expected %v", got[2*8+1*4+3], data[1*12+2*4+3])
		}
	})

	t.Run("InvalidAxis", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))

		mustPanic(t, "transpose: invalid axis", func() {
			backend.Transpose(x, 0, 5)
		})
	})

	t.Run("DuplicateAxis", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))

		mustPanic(t, "transpose: duplicate axis", func() {
			backend.Transpose(x, 1, 1)
		})
	})
}
