// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

//go:build windows

package webgpu

import (
	internalwebgpu "github.com/loom-ml/loom/internal/backend/webgpu"
	"github.com/loom-ml/loom/tensor"
)

// Backend is the WebGPU backend implementation. Float32 arithmetic,
// activations, softmax and matrix multiplication dispatch WGSL compute
// pipelines; remaining operations run through the CPU kernels.
type Backend = internalwebgpu.Backend

var _ tensor.Backend = (*Backend)(nil)

// New initializes a WebGPU backend on the highest-performance adapter.
// Callers must Release the backend when done.
//
// Example:
//
//	backend, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Release()
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
