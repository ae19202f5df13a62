// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// Backend is the interface every compute backend implements: element-wise
// arithmetic with broadcasting, (batched) matrix multiplication, shape
// operations, activations, reductions, casts and the fused cross-entropy
// loss.
//
// Implementations:
//   - backend/cpu: pure Go kernels
//   - backend/webgpu: WGSL compute shaders (windows only)
//   - autodiff: decorator recording a gradient tape over any backend
type Backend = tensor.Backend
