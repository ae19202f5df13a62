// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public neural network API for Loom: layers,
// activations, losses, pointer-selection scorers and checkpointing.
//
// Modules are generic over the compute backend, so the same model runs
// on the CPU kernels, the WebGPU backend, or either one wrapped with
// autodiff for training:
//
//	backend := autodiff.New(cpu.New())
//	scorer := nn.NewAdditiveScorer(784, 128, backend)
//	optimizer := optim.NewAdam(scorer.Parameters(), optim.AdamConfig{}, backend)
package nn
