// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package wraps any compute backend in a decorator that records
// operations on a gradient tape; Backward walks the tape in reverse to
// accumulate gradients for every recorded input.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//
//	loss := scorer.Score(query, candidates) // recorded
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/tensor"
)

// Backend is the autodiff-enabled backend decorating B.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New wraps backend with gradient recording. The tape starts out not
// recording; call Tape().StartRecording() before the forward pass.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a standalone gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface of backends that can run a backward
// pass; the autodiff Backend satisfies it.
type BackwardCapable = autodiff.BackwardCapable

// Backward seeds a ones gradient for t and propagates it through the
// tape, returning gradients keyed by raw tensor.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
