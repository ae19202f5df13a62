// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// RawTensor is the untyped tensor backing every Tensor[T, B]. It exposes
// the shape, dtype and device metadata plus direct byte and typed views
// of the underlying copy-on-write buffer.
//
// Most users should use the high-level Tensor[T, B] type instead; raw
// tensors appear at the backend and serialization boundaries.
type RawTensor = tensor.RawTensor

// NewRaw allocates an uninitialized raw tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}
