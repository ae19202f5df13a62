package pointer

import (
	"fmt"

	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/tensor"
)

// Batch holds one mini-batch of pointer tasks as backend tensors, shaped
// for the scorers: queries [size, 784], candidates [size, n, 784] and
// targets [size].
type Batch[B tensor.Backend] struct {
	Queries    *tensor.Tensor[float32, B]
	Candidates *tensor.Tensor[float32, B]
	Targets    *tensor.Tensor[int32, B]
	Size       int
}

// Assemble packs host-side samples into batch tensors on the given
// backend. All samples must share one candidate count.
func Assemble[B tensor.Backend](samples []*Sample, backend B) (*Batch[B], error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot assemble an empty batch")
	}
	size := len(samples)
	n := len(samples[0].Candidates)

	queriesRaw, err := tensor.NewRaw(tensor.Shape{size, mnist.ImageSize}, tensor.Float32, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("creating query tensor: %w", err)
	}
	candidatesRaw, err := tensor.NewRaw(tensor.Shape{size, n, mnist.ImageSize}, tensor.Float32, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("creating candidate tensor: %w", err)
	}
	targetsRaw, err := tensor.NewRaw(tensor.Shape{size}, tensor.Int32, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("creating target tensor: %w", err)
	}

	queries := queriesRaw.AsFloat32()
	candidates := candidatesRaw.AsFloat32()
	targets := targetsRaw.AsInt32()

	for i, sample := range samples {
		if len(sample.Candidates) != n {
			return nil, fmt.Errorf("sample %d has %d candidates, want %d", i, len(sample.Candidates), n)
		}
		copy(queries[i*mnist.ImageSize:(i+1)*mnist.ImageSize], sample.Query)
		for j, candidate := range sample.Candidates {
			offset := (i*n + j) * mnist.ImageSize
			copy(candidates[offset:offset+mnist.ImageSize], candidate)
		}
		targets[i] = int32(sample.Target)
	}

	return &Batch[B]{
		Queries:    tensor.New[float32, B](queriesRaw, backend),
		Candidates: tensor.New[float32, B](candidatesRaw, backend),
		Targets:    tensor.New[int32, B](targetsRaw, backend),
		Size:       size,
	}, nil
}

// NextBatch draws size fresh samples from the sampler and assembles them.
func NextBatch[B tensor.Backend](s *Sampler, size int, backend B) (*Batch[B], error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	samples := make([]*Sample, size)
	for i := range samples {
		samples[i] = s.Sample()
	}
	return Assemble(samples, backend)
}
