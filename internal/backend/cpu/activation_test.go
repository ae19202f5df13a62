package cpu

import (
	"math"
	"testing"

	"github.com/loom-ml/loom/internal/tensor"
)

func TestCPUBackend_ReLU(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{5}, []float32{-2, -0.5, 0, 0.5, 2})

	result := backend.ReLU(x)

	expected := []float32{0, 0, 0, 0.5, 2}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("ReLU failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Sigmoid(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{3}, []float32{0, 2, -2})

	result := backend.Sigmoid(x)

	got := result.AsFloat32()
	if got[0] != 0.5 {
		t.Errorf("sigmoid(0) = %v, expected 0.5", got[0])
	}
	// sigmoid(x) + sigmoid(-x) == 1
	if diff := got[1] + got[2] - 1; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("sigmoid(2) + sigmoid(-2) = %v, expected 1", got[1]+got[2])
	}
	if got[1] <= 0.5 || got[2] >= 0.5 {
		t.Errorf("sigmoid ordering wrong: %v", got)
	}
}

func TestCPUBackend_Tanh(t *testing.T) {
	backend := newTestBackend()

	x := rawFloat32(t, tensor.Shape{3}, []float32{0, 1, -1})

	result := backend.Tanh(x)

	got := result.AsFloat32()
	if got[0] != 0 {
		t.Errorf("tanh(0) = %v, expected 0", got[0])
	}
	expected := float32(math.Tanh(1))
	if !float32SliceEqual(got[1:2], []float32{expected}) {
		t.Errorf("tanh(1) = %v, expected %v", got[1], expected)
	}
	// tanh is odd
	if got[1]+got[2] != 0 {
		t.Errorf("tanh(1) + tanh(-1) = %v, expected 0", got[1]+got[2])
	}
}

func TestCPUBackend_Softmax(t *testing.T) {
	backend := newTestBackend()

	t.Run("RowsSumToOne", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 1, 1, 1})

		result := backend.Softmax(x, -1)

		got := result.AsFloat32()
		for row := 0; row < 2; row++ {
			var sum float32
			for j := 0; j < 3; j++ {
				sum += got[row*3+j]
			}
			if diff := sum - 1; diff > 1e-5 || diff < -1e-5 {
				t.Errorf("row %d sums to %v, expected 1", row, sum)
			}
		}

		// Row 0 is strictly increasing, row 1 is uniform.
		if !(got[0] < got[1] && got[1] < got[2]) {
			t.Errorf("row 0 not monotonic: %v", got[:3])
		}
		third := float32(1.0 / 3.0)
		if !float32SliceEqual(got[3:], []float32{third, third, third}) {
			t.Errorf("uniform logits should give uniform probabilities: %v", got[3:])
		}
	})

	t.Run("Dim0", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 2}, []float32{0, 10, 0, 10})

		result := backend.Softmax(x, 0)

		got := result.AsFloat32()
		// Each column has equal logits, so each column is uniform.
		if !float32SliceEqual(got, []float32{0.5, 0.5, 0.5, 0.5}) {
			t.Errorf("Softmax(0) failed: got %v", got)
		}
	})

	t.Run("LargeLogitsStable", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{1, 3}, []float32{1000, 1000, 1000})

		result := backend.Softmax(x, 1)

		third := float32(1.0 / 3.0)
		if !float32SliceEqual(result.AsFloat32(), []float32{third, third, third}) {
			t.Errorf("large logits overflowed: %v", result.AsFloat32())
		}
	})

	t.Run("Middle3D", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 2, 2}, []float32{
			0, 0, 0, 0,
			5, 1, 1, 5,
		})

		result := backend.Softmax(x, 1)

		got := result.AsFloat32()
		// Softmax runs over pairs (x[b][0][k], x[b][1][k]).
		for b := 0; b < 2; b++ {
			for k := 0; k < 2; k++ {
				sum := got[b*4+k] + got[b*4+2+k]
				if diff := sum - 1; diff > 1e-5 || diff < -1e-5 {
					t.Errorf("pair (%d, %d) sums to %v, expected 1", b, k, sum)
				}
			}
		}
		// Batch 0 logits are all equal.
		if !float32SliceEqual(got[:4], []float32{0.5, 0.5, 0.5, 0.5}) {
			t.Errorf("batch 0 should be uniform: %v", got[:4])
		}
		// Batch 1 prefers x[1][0][0] and x[1][1][1].
		if got[4] < 0.9 || got[6] > 0.1 || got[5] > 0.1 || got[7] < 0.9 {
			t.Errorf("batch 1 probabilities wrong: %v", got[4:])
		}
	})

	t.Run("OutOfRangeDim", func(t *testing.T) {
		x := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))

		mustPanic(t, "softmax: dimension", func() {
			backend.Softmax(x, 2)
		})
	})
}
