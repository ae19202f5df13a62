// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU compute backend for Loom, built on
// WebGPU compute shaders through go-webgpu.
//
// go-webgpu ships native libraries for Windows only, so the backend is
// available solely behind a windows build tag; on other platforms this
// package holds only documentation. Use IsAvailable (windows) to probe
// for a usable adapter before constructing the backend.
package webgpu
