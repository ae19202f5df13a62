// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-descent optimizers for training Loom
// models: SGD with momentum and Adam. Both serialize their state, so a
// checkpointed run resumes with momentum and bias correction intact.
package optim
