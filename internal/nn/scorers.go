package nn

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// Scorer assigns one relevance score per candidate given a query.
//
// Scores are raw logits: a scorer never normalizes its output, so the
// caller can feed the scores straight into cross entropy (which applies
// its own softmax) or argmax over them for a hard selection.
type Scorer[B tensor.Backend] interface {
	// Score computes candidate scores.
	//
	//   - query: [batch, features]
	//   - candidates: [batch, n, features]
	//
	// Returns scores with shape [batch, n].
	Score(query, candidates *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of the scorer.
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies parameter data from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// AdditiveScorer scores candidates with a small additive (Bahdanau-style)
// network:
//
//	h_q   = tanh(W_q q + b_q)            [batch, hidden]
//	h_k,i = tanh(W_k k_i + b_k)          [batch, n, hidden]
//	s_i   = W_v tanh(h_q + h_k,i) + b_v  [batch, n]
//
// The query is broadcast against every candidate, so the same pair
// network scores each position independently. A candidate list of any
// length works with the same parameters.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	scorer := nn.NewAdditiveScorer(784, 128, backend)
//	scores := scorer.Score(query, candidates) // [batch, n]
type AdditiveScorer[B tensor.Backend] struct {
	WQ     *Linear[B] // query projection [hidden, features]
	WK     *Linear[B] // candidate projection [hidden, features]
	Out    *Linear[B] // score head [1, hidden]
	hidden int
}

// NewAdditiveScorer creates an additive scorer.
//
// Parameters:
//   - inFeatures: dimensionality of the query and each candidate
//   - hidden: width of the comparison space
//   - backend: computation backend
func NewAdditiveScorer[B tensor.Backend](inFeatures, hidden int, backend B) *AdditiveScorer[B] {
	return &AdditiveScorer[B]{
		WQ:     NewLinear(inFeatures, hidden, backend),
		WK:     NewLinear(inFeatures, hidden, backend),
		Out:    NewLinear(hidden, 1, backend),
		hidden: hidden,
	}
}

// Score computes one raw score per candidate.
//
//   - query: [batch, features]
//   - candidates: [batch, n, features]
//
// Returns [batch, n].
func (s *AdditiveScorer[B]) Score(query, candidates *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	validateScorerInputs(query, candidates)

	batch := candidates.Shape()[0]
	n := candidates.Shape()[1]
	features := candidates.Shape()[2]

	// Query pathway: [batch, hidden].
	hq := s.WQ.Forward(query).Tanh()

	// Candidate pathway. Linear expects 2D input, so the candidate list
	// is flattened to [batch*n, features] and folded back afterwards.
	flat := candidates.Reshape(batch*n, features)
	hk := s.WK.Forward(flat).Tanh().Reshape(batch, n, s.hidden)

	// Broadcast the query against every candidate and squash the sum.
	combined := hq.Reshape(batch, 1, s.hidden).Add(hk).Tanh()

	// Project each combined vector down to a single score. The scores
	// stay unnormalized: cross entropy treats them as logits.
	scores := s.Out.Forward(combined.Reshape(batch*n, s.hidden))
	return scores.Reshape(batch, n)
}

// Parameters returns the parameters of all three projections.
func (s *AdditiveScorer[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, s.WQ.Parameters()...)
	params = append(params, s.WK.Parameters()...)
	params = append(params, s.Out.Parameters()...)
	return params
}

// StateDict returns parameters prefixed per projection
// ("w_q.weight", "w_k.bias", "out.weight", ...).
func (s *AdditiveScorer[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeStateDict(stateDict, "w_q.", s.WQ.StateDict())
	mergeStateDict(stateDict, "w_k.", s.WK.StateDict())
	mergeStateDict(stateDict, "out.", s.Out.StateDict())
	return stateDict
}

// LoadStateDict loads parameters from a prefixed state dictionary.
func (s *AdditiveScorer[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := s.WQ.LoadStateDict(extractStateDict(stateDict, "w_q.")); err != nil {
		return fmt.Errorf("additive scorer w_q: %w", err)
	}
	if err := s.WK.LoadStateDict(extractStateDict(stateDict, "w_k.")); err != nil {
		return fmt.Errorf("additive scorer w_k: %w", err)
	}
	if err := s.Out.LoadStateDict(extractStateDict(stateDict, "out.")); err != nil {
		return fmt.Errorf("additive scorer out: %w", err)
	}
	return nil
}

// DotScorer scores candidates by projecting both sides into a shared
// space and taking scaled dot products:
//
//	h_q   = W_q q + b_q          [batch, hidden]
//	h_k,i = W_k k_i + b_k        [batch, n, hidden]
//	s_i   = (h_q . h_k,i) / sqrt(hidden)
//
// The 1/sqrt(hidden) scale keeps score variance independent of the
// projection width, the same scaling dot-product attention uses.
// Cheaper than AdditiveScorer but the comparison is bilinear rather
// than a learned two-layer network.
type DotScorer[B tensor.Backend] struct {
	WQ     *Linear[B]
	WK     *Linear[B]
	hidden int
	scale  float32
}

// NewDotScorer creates a dot-product scorer.
func NewDotScorer[B tensor.Backend](inFeatures, hidden int, backend B) *DotScorer[B] {
	return &DotScorer[B]{
		WQ:     NewLinear(inFeatures, hidden, backend),
		WK:     NewLinear(inFeatures, hidden, backend),
		hidden: hidden,
		scale:  float32(1.0 / math.Sqrt(float64(hidden))),
	}
}

// Score computes one raw score per candidate via batched dot products.
//
//   - query: [batch, features]
//   - candidates: [batch, n, features]
//
// Returns [batch, n].
func (s *DotScorer[B]) Score(query, candidates *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	validateScorerInputs(query, candidates)

	batch := candidates.Shape()[0]
	n := candidates.Shape()[1]
	features := candidates.Shape()[2]

	hq := s.WQ.Forward(query) // [batch, hidden]

	flat := candidates.Reshape(batch*n, features)
	hk := s.WK.Forward(flat).Reshape(batch, n, s.hidden)

	// [batch, 1, hidden] @ [batch, hidden, n] = [batch, 1, n]
	kT := hk.Transpose(0, 2, 1)
	scores := hq.Reshape(batch, 1, s.hidden).BatchMatMul(kT)

	return scores.Squeeze(1).MulScalar(s.scale)
}

// Parameters returns the parameters of both projections.
func (s *DotScorer[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, s.WQ.Parameters()...)
	params = append(params, s.WK.Parameters()...)
	return params
}

// StateDict returns parameters prefixed per projection.
func (s *DotScorer[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeStateDict(stateDict, "w_q.", s.WQ.StateDict())
	mergeStateDict(stateDict, "w_k.", s.WK.StateDict())
	return stateDict
}

// LoadStateDict loads parameters from a prefixed state dictionary.
func (s *DotScorer[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := s.WQ.LoadStateDict(extractStateDict(stateDict, "w_q.")); err != nil {
		return fmt.Errorf("dot scorer w_q: %w", err)
	}
	if err := s.WK.LoadStateDict(extractStateDict(stateDict, "w_k.")); err != nil {
		return fmt.Errorf("dot scorer w_k: %w", err)
	}
	return nil
}

// validateScorerInputs checks the query/candidate shape contract shared
// by all scorers.
func validateScorerInputs[B tensor.Backend](query, candidates *tensor.Tensor[float32, B]) {
	if len(query.Shape()) != 2 {
		panic(fmt.Sprintf("scorer: query must be 2D [batch, features], got %v", query.Shape()))
	}
	if len(candidates.Shape()) != 3 {
		panic(fmt.Sprintf("scorer: candidates must be 3D [batch, n, features], got %v", candidates.Shape()))
	}
	if query.Shape()[0] != candidates.Shape()[0] {
		panic(fmt.Sprintf("scorer: batch mismatch: query %d vs candidates %d",
			query.Shape()[0], candidates.Shape()[0]))
	}
	if query.Shape()[1] != candidates.Shape()[2] {
		panic(fmt.Sprintf("scorer: feature mismatch: query %d vs candidates %d",
			query.Shape()[1], candidates.Shape()[2]))
	}
}

// mergeStateDict copies src entries into dst under the given prefix.
func mergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for name, raw := range src {
		dst[prefix+name] = raw
	}
}

// extractStateDict returns the entries under prefix with it stripped.
func extractStateDict(stateDict map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			out[name[len(prefix):]] = raw
		}
	}
	return out
}
