// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pointer provides the public API for the pointer-selection
// task: sampling (query, candidates, target) triples from a digit
// dataset and assembling them into backend tensors.
//
// Every sample obeys one invariant: the candidate at the target index
// belongs to the query's successor class, (query class + 1) mod 10, and
// no other candidate does.
//
// Example:
//
//	data := mnist.Synthetic(1000)
//	sampler, err := pointer.NewSampler(data, 10, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batch, err := pointer.NextBatch(sampler, 32, backend)
package pointer

import (
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/pointer"
	"github.com/loom-ml/loom/internal/tensor"
)

// Sample is one pointer-selection task instance. Its image slices alias
// the sampler's dataset and must be treated as read-only.
type Sample = pointer.Sample

// Sampler draws pointer-selection samples from a digit dataset.
type Sampler = pointer.Sampler

// NewSampler creates a sampler drawing numCandidates-way tasks from
// data, seeded for reproducibility. It errors when the dataset is
// missing a digit class or numCandidates is below 1.
func NewSampler(data *mnist.Dataset, numCandidates int, seed int64) (*Sampler, error) {
	return pointer.NewSampler(data, numCandidates, seed)
}

// Batch holds one mini-batch of pointer tasks as backend tensors:
// queries [size, 784], candidates [size, n, 784], targets [size].
type Batch[B tensor.Backend] = pointer.Batch[B]

// Assemble packs host-side samples into batch tensors on the backend.
func Assemble[B tensor.Backend](samples []*Sample, backend B) (*Batch[B], error) {
	return pointer.Assemble(samples, backend)
}

// NextBatch draws size fresh samples and assembles them.
func NextBatch[B tensor.Backend](s *Sampler, size int, backend B) (*Batch[B], error) {
	return pointer.NextBatch(s, size, backend)
}
