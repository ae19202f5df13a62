// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/tensor"
)

// Optimizer updates parameters from a gradient map keyed by raw tensor.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum and weight
// decay.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig configures SGD. Zero fields fall back to defaults.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over params.
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	}, backend)
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// Adam is the Adam optimizer with bias-corrected first and second
// moment estimates.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig configures Adam. Zero fields fall back to defaults
// (lr=0.001, beta1=0.9, beta2=0.999, eps=1e-8).
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}
