// Package pointer generates the pointer-selection task over MNIST digits.
//
// Each sample pairs a query digit with an ordered set of candidate
// digits. Exactly one candidate shows the digit class that follows the
// query's (9 wraps to 0); the model's job is to point at it. The
// remaining candidates are distractors drawn uniformly from the other
// nine classes, so the query's own class may appear among them.
package pointer

import (
	"fmt"
	"math/rand"

	"github.com/loom-ml/loom/internal/mnist"
)

// Sample is one pointer-selection task instance. Its image slices alias
// the sampler's dataset and must be treated as read-only.
type Sample struct {
	Query            []float32   // flattened query image
	QueryClass       int32       // digit class of the query
	Candidates       [][]float32 // candidate images, in presentation order
	CandidateClasses []int32     // digit class of each candidate
	Target           int         // index of the successor-class candidate
}

// Sampler draws pointer-selection samples from a digit dataset.
//
// Samples are generated freshly on every call; nothing is cached or
// shared between them apart from the read-only dataset.
type Sampler struct {
	data       *mnist.Dataset
	classIndex [][]int
	n          int
	rng        *rand.Rand
}

// NewSampler builds a sampler over data with numCandidates candidates per
// sample. Every digit class must have at least one sample in the dataset,
// otherwise some queries could never be answered.
func NewSampler(data *mnist.Dataset, numCandidates int, seed int64) (*Sampler, error) {
	if numCandidates < 1 {
		return nil, fmt.Errorf("need at least 1 candidate, got %d", numCandidates)
	}

	index := data.ClassIndex()
	for class, samples := range index {
		if len(samples) == 0 {
			return nil, fmt.Errorf("class %d has no samples in the dataset", class)
		}
	}

	return &Sampler{
		data:       data,
		classIndex: index,
		n:          numCandidates,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// NumCandidates returns the candidate count per sample.
func (s *Sampler) NumCandidates() int {
	return s.n
}

// Sample draws one fresh task instance.
//
// The candidate at Target holds the class that follows the query's;
// every other slot holds a uniform draw over the nine remaining classes.
func (s *Sampler) Sample() *Sample {
	queryClass := s.rng.Intn(mnist.NumClasses)
	successor := (queryClass + 1) % mnist.NumClasses
	target := s.rng.Intn(s.n)

	sample := &Sample{
		Query:            s.data.Images[s.pick(queryClass)],
		QueryClass:       int32(queryClass),
		Candidates:       make([][]float32, s.n),
		CandidateClasses: make([]int32, s.n),
		Target:           target,
	}

	for i := 0; i < s.n; i++ {
		class := successor
		if i != target {
			// Uniform over the nine classes that are not the successor;
			// the query's own class stays eligible.
			class = s.rng.Intn(mnist.NumClasses - 1)
			if class >= successor {
				class++
			}
		}
		sample.Candidates[i] = s.data.Images[s.pick(class)]
		sample.CandidateClasses[i] = int32(class)
	}

	return sample
}

// pick returns a random dataset index of the given class.
func (s *Sampler) pick(class int) int {
	pool := s.classIndex[class]
	return pool[s.rng.Intn(len(pool))]
}
