package nn

import (
	"testing"

	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

var (
	_ Scorer[Backend] = (*AdditiveScorer[Backend])(nil)
	_ Scorer[Backend] = (*DotScorer[Backend])(nil)
)

// permuteRows reorders the rows of a flattened [n, rowLen] buffer so that
// row j of the result is row perm[j] of the input.
func permuteRows(data []float32, perm []int, rowLen int) []float32 {
	out := make([]float32, len(data))
	for j, src := range perm {
		copy(out[j*rowLen:(j+1)*rowLen], data[src*rowLen:(src+1)*rowLen])
	}
	return out
}

// TestAdditiveScorer_Shapes tests output shapes across input sizes.
func TestAdditiveScorer_Shapes(t *testing.T) {
	backend := autodiff.New(cpu.New())

	tests := []struct {
		name     string
		batch    int
		n        int
		features int
		hidden   int
	}{
		{name: "single sample", batch: 1, n: 10, features: 16, hidden: 8},
		{name: "small batch", batch: 4, n: 5, features: 8, hidden: 4},
		{name: "two candidates", batch: 2, n: 2, features: 12, hidden: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewAdditiveScorer(tt.features, tt.hidden, backend)

			query := tensor.Randn[float32](tensor.Shape{tt.batch, tt.features}, backend)
			candidates := tensor.Randn[float32](tensor.Shape{tt.batch, tt.n, tt.features}, backend)

			scores := scorer.Score(query, candidates)

			assert.Equal(t, []int{tt.batch, tt.n}, []int(scores.Shape()), "Score shape mismatch")
		})
	}
}

// TestDotScorer_Shapes tests output shapes across input sizes.
func TestDotScorer_Shapes(t *testing.T) {
	backend := autodiff.New(cpu.New())

	tests := []struct {
		name     string
		batch    int
		n        int
		features int
		hidden   int
	}{
		{name: "single sample", batch: 1, n: 10, features: 16, hidden: 8},
		{name: "small batch", batch: 4, n: 5, features: 8, hidden: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewDotScorer(tt.features, tt.hidden, backend)

			query := tensor.Randn[float32](tensor.Shape{tt.batch, tt.features}, backend)
			candidates := tensor.Randn[float32](tensor.Shape{tt.batch, tt.n, tt.features}, backend)

			scores := scorer.Score(query, candidates)

			assert.Equal(t, []int{tt.batch, tt.n}, []int(scores.Shape()), "Score shape mismatch")
		})
	}
}

// TestAdditiveScorer_UniformOnZeroInput tests that all-zero inputs produce
// equal scores. Biases start at zero, so every pathway collapses to zero
// and no candidate can be preferred over another.
func TestAdditiveScorer_UniformOnZeroInput(t *testing.T) {
	backend := autodiff.New(cpu.New())

	n := 10
	scorer := NewAdditiveScorer(16, 8, backend)

	query := tensor.Zeros[float32](tensor.Shape{1, 16}, backend)
	candidates := tensor.Zeros[float32](tensor.Shape{1, n, 16}, backend)

	scores := scorer.Score(query, candidates)
	scoresData := scores.Data()

	for i, s := range scoresData {
		assert.InDelta(t, 0.0, s, 1e-6, "score %d should be zero", i)
	}

	// Equal scores mean softmax assigns every candidate the same probability
	probs := scores.Softmax(1)
	probsData := probs.Data()
	for i, p := range probsData {
		assert.InDelta(t, 1.0/float64(n), p, 1e-6, "probability %d should be uniform", i)
	}
}

// TestDotScorer_UniformOnZeroInput tests the same degenerate case for the
// dot-product scorer.
func TestDotScorer_UniformOnZeroInput(t *testing.T) {
	backend := autodiff.New(cpu.New())

	scorer := NewDotScorer(16, 8, backend)

	query := tensor.Zeros[float32](tensor.Shape{1, 16}, backend)
	candidates := tensor.Zeros[float32](tensor.Shape{1, 10, 16}, backend)

	scores := scorer.Score(query, candidates)

	for i, s := range scores.Data() {
		assert.InDelta(t, 0.0, s, 1e-6, "score %d should be zero", i)
	}
}

// TestAdditiveScorer_PermutationEquivariance tests that reordering the
// candidate list reorders the scores the same way. Each candidate is scored
// against the query independently, so position must not matter.
func TestAdditiveScorer_PermutationEquivariance(t *testing.T) {
	backend := autodiff.New(cpu.New())

	n, features := 5, 6
	scorer := NewAdditiveScorer(features, 4, backend)

	query := tensor.Randn[float32](tensor.Shape{1, features}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{1, n, features}, backend)

	original := scorer.Score(query, candidates).Data()

	perm := []int{3, 0, 4, 1, 2}
	permutedData := permuteRows(candidates.Data(), perm, features)
	permuted, err := tensor.FromSlice(permutedData, tensor.Shape{1, n, features}, backend)
	require.NoError(t, err)

	shuffled := scorer.Score(query, permuted).Data()

	for j, src := range perm {
		assert.InDelta(t, original[src], shuffled[j], 1e-5,
			"score for candidate %d should follow it to position %d", src, j)
	}
}

// TestDotScorer_PermutationEquivariance tests the same property for the
// dot-product scorer.
func TestDotScorer_PermutationEquivariance(t *testing.T) {
	backend := autodiff.New(cpu.New())

	n, features := 5, 6
	scorer := NewDotScorer(features, 4, backend)

	query := tensor.Randn[float32](tensor.Shape{1, features}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{1, n, features}, backend)

	original := scorer.Score(query, candidates).Data()

	perm := []int{4, 2, 0, 3, 1}
	permutedData := permuteRows(candidates.Data(), perm, features)
	permuted, err := tensor.FromSlice(permutedData, tensor.Shape{1, n, features}, backend)
	require.NoError(t, err)

	shuffled := scorer.Score(query, permuted).Data()

	for j, src := range perm {
		assert.InDelta(t, original[src], shuffled[j], 1e-5,
			"score for candidate %d should follow it to position %d", src, j)
	}
}

// TestDotScorer_Scaling tests the 1/sqrt(hidden) score scaling against a
// hand-computed example.
func TestDotScorer_Scaling(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// hidden=4, so the scale is 1/2
	scorer := NewDotScorer(1, 4, backend)

	// All-ones projections, zero biases:
	// h_q = [1, 1, 1, 1], h_k = [2, 2, 2, 2], dot = 8, score = 8/2 = 4
	for i := range scorer.WQ.Weight().Tensor().Raw().AsFloat32() {
		scorer.WQ.Weight().Tensor().Raw().AsFloat32()[i] = 1.0
	}
	for i := range scorer.WK.Weight().Tensor().Raw().AsFloat32() {
		scorer.WK.Weight().Tensor().Raw().AsFloat32()[i] = 1.0
	}

	query, err := tensor.FromSlice([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	candidates, err := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1, 1}, backend)
	require.NoError(t, err)

	scores := scorer.Score(query, candidates)

	require.Equal(t, []int{1, 1}, []int(scores.Shape()))
	assert.InDelta(t, 4.0, scores.Data()[0], 1e-5, "scaled dot product mismatch")
}

// TestAdditiveScorer_GradientFlow tests that gradients reach every
// parameter of the scorer.
func TestAdditiveScorer_GradientFlow(t *testing.T) {
	backend := autodiff.New(cpu.New())

	scorer := NewAdditiveScorer(8, 4, backend)

	query := tensor.Randn[float32](tensor.Shape{2, 8}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{2, 5, 8}, backend)

	backend.Tape().StartRecording()

	scores := scorer.Score(query, candidates)
	loss := scores.Sum()

	grads := autodiff.Backward(loss, backend)

	params := scorer.Parameters()
	require.Len(t, params, 6, "three projections with weight and bias each")

	for _, param := range params {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "no gradient for parameter %s", param.Name())
		assert.True(t, param.Tensor().Shape().Equal(grad.Shape()),
			"gradient shape %v does not match parameter %s shape %v",
			grad.Shape(), param.Name(), param.Tensor().Shape())
	}
}

// TestDotScorer_GradientFlow tests gradient flow through the batched
// matmul path.
func TestDotScorer_GradientFlow(t *testing.T) {
	backend := autodiff.New(cpu.New())

	scorer := NewDotScorer(8, 4, backend)

	query := tensor.Randn[float32](tensor.Shape{2, 8}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{2, 5, 8}, backend)

	backend.Tape().StartRecording()

	scores := scorer.Score(query, candidates)
	loss := scores.Sum()

	grads := autodiff.Backward(loss, backend)

	params := scorer.Parameters()
	require.Len(t, params, 4, "two projections with weight and bias each")

	for _, param := range params {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "no gradient for parameter %s", param.Name())
		assert.True(t, param.Tensor().Shape().Equal(grad.Shape()),
			"gradient shape %v does not match parameter %s shape %v",
			grad.Shape(), param.Name(), param.Tensor().Shape())
	}
}

// TestAdditiveScorer_StateDict tests prefixed state dict round trips.
func TestAdditiveScorer_StateDict(t *testing.T) {
	backend := autodiff.New(cpu.New())

	scorer := NewAdditiveScorer(8, 4, backend)

	stateDict := scorer.StateDict()
	expectedKeys := []string{
		"w_q.weight", "w_q.bias",
		"w_k.weight", "w_k.bias",
		"out.weight", "out.bias",
	}
	require.Len(t, stateDict, len(expectedKeys))
	for _, key := range expectedKeys {
		assert.Contains(t, stateDict, key)
	}

	// Restore into a fresh scorer and compare outputs
	restored := NewAdditiveScorer(8, 4, backend)
	require.NoError(t, restored.LoadStateDict(stateDict))

	query := tensor.Randn[float32](tensor.Shape{3, 8}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{3, 6, 8}, backend)

	want := scorer.Score(query, candidates).Data()
	got := restored.Score(query, candidates).Data()

	for i := range want {
		assert.Equal(t, want[i], got[i], "score mismatch at index %d", i)
	}
}

// TestDotScorer_StateDict tests prefixed state dict round trips.
func TestDotScorer_StateDict(t *testing.T) {
	backend := autodiff.New(cpu.New())

	scorer := NewDotScorer(8, 4, backend)

	stateDict := scorer.StateDict()
	expectedKeys := []string{"w_q.weight", "w_q.bias", "w_k.weight", "w_k.bias"}
	require.Len(t, stateDict, len(expectedKeys))
	for _, key := range expectedKeys {
		assert.Contains(t, stateDict, key)
	}

	restored := NewDotScorer(8, 4, backend)
	require.NoError(t, restored.LoadStateDict(stateDict))

	query := tensor.Randn[float32](tensor.Shape{3, 8}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{3, 6, 8}, backend)

	want := scorer.Score(query, candidates).Data()
	got := restored.Score(query, candidates).Data()

	for i := range want {
		assert.Equal(t, want[i], got[i], "score mismatch at index %d", i)
	}
}

// TestScorer_InputValidation tests the shared shape checks.
func TestScorer_InputValidation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	scorer := NewAdditiveScorer(8, 4, backend)

	tests := []struct {
		name       string
		query      tensor.Shape
		candidates tensor.Shape
	}{
		{name: "1D query", query: tensor.Shape{8}, candidates: tensor.Shape{1, 5, 8}},
		{name: "2D candidates", query: tensor.Shape{1, 8}, candidates: tensor.Shape{5, 8}},
		{name: "batch mismatch", query: tensor.Shape{2, 8}, candidates: tensor.Shape{3, 5, 8}},
		{name: "feature mismatch", query: tensor.Shape{1, 8}, candidates: tensor.Shape{1, 5, 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := tensor.Randn[float32](tt.query, backend)
			candidates := tensor.Randn[float32](tt.candidates, backend)

			assert.Panics(t, func() {
				scorer.Score(query, candidates)
			}, "Expected panic for %s", tt.name)
		})
	}
}

// BenchmarkAdditiveScorer_Score benchmarks additive scoring at MNIST scale.
func BenchmarkAdditiveScorer_Score(b *testing.B) {
	backend := autodiff.New(cpu.New())
	scorer := NewAdditiveScorer(784, 128, backend)

	query := tensor.Randn[float32](tensor.Shape{32, 784}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{32, 10, 784}, backend)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Score(query, candidates)
	}
}

// BenchmarkDotScorer_Score benchmarks dot-product scoring at MNIST scale.
func BenchmarkDotScorer_Score(b *testing.B) {
	backend := autodiff.New(cpu.New())
	scorer := NewDotScorer(784, 128, backend)

	query := tensor.Randn[float32](tensor.Shape{32, 784}, backend)
	candidates := tensor.Randn[float32](tensor.Shape{32, 10, 784}, backend)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Score(query, candidates)
	}
}
