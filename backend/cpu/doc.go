// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU compute backend for Loom.
//
// The CPU backend implements every tensor operation in pure Go. It is
// the default backend: always available, no native dependencies, and
// fast enough for the pointer-selection models this framework targets.
package cpu
