// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// Module is the common interface of all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Stateful is the slice of Module that checkpointing needs: anything
// with a state dict can be saved and restored.
type Stateful = nn.Stateful

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer computing x @ W.T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-uniform initialization.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// NewLinearNoBias creates a linear layer without a bias term.
func NewLinearNoBias[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinearNoBias(inFeatures, outFeatures, backend)
}

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container of modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Activations

// ReLU applies max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid applies the logistic function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh applies the hyperbolic tangent.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Scorers

// Scorer assigns one unnormalized relevance score per candidate given a
// query; the scores feed cross-entropy as logits.
type Scorer[B tensor.Backend] = nn.Scorer[B]

// AdditiveScorer scores candidates with a Bahdanau-style additive
// network over independently projected query and candidate vectors.
type AdditiveScorer[B tensor.Backend] = nn.AdditiveScorer[B]

// NewAdditiveScorer creates an additive scorer with the given input and
// hidden widths.
func NewAdditiveScorer[B tensor.Backend](inFeatures, hidden int, backend B) *AdditiveScorer[B] {
	return nn.NewAdditiveScorer(inFeatures, hidden, backend)
}

// DotScorer scores candidates by scaled dot product of projected query
// and candidate vectors.
type DotScorer[B tensor.Backend] = nn.DotScorer[B]

// NewDotScorer creates a dot-product scorer with the given input and
// hidden widths.
func NewDotScorer[B tensor.Backend](inFeatures, hidden int, backend B) *DotScorer[B] {
	return nn.NewDotScorer(inFeatures, hidden, backend)
}

// Losses and metrics

// MSELoss computes mean squared error.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates an MSE loss module.
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return nn.NewMSELoss(backend)
}

// CrossEntropyLoss computes softmax cross-entropy against int32 class
// targets through the backend's fused kernel.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a cross-entropy loss module.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Accuracy returns the fraction of rows whose argmax logit matches the
// target class.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(logits, targets)
}

// Serialization

// Header describes a .loom file's contents.
type Header = serialization.Header

// Save writes a module's parameters to a .loom file.
func Save(module Stateful, path, modelType string, metadata map[string]string) error {
	return nn.Save(module, path, modelType, metadata)
}

// Load reads a .loom file into a pre-constructed module of the same
// architecture.
func Load[B tensor.Backend](path string, backend B, module Stateful) (Header, error) {
	return nn.Load(path, backend, module)
}

// Checkpointing

// Checkpoint bundles model parameters, optimizer state and training
// progress into one .loom file.
type Checkpoint = nn.Checkpoint

// OptimizerState is the optimizer surface checkpointing depends on.
type OptimizerState = nn.OptimizerState

// SaveCheckpoint writes model and optimizer state for the given epoch.
func SaveCheckpoint(path string, model Stateful, optimizer OptimizerState, epoch int) error {
	return nn.SaveCheckpoint(path, model, optimizer, epoch)
}

// LoadCheckpoint restores model and optimizer state from a checkpoint
// file, verifying the optimizer type matches.
func LoadCheckpoint[B tensor.Backend](path string, backend B, model Stateful, optimizer OptimizerState) (*Checkpoint, error) {
	return nn.LoadCheckpoint(path, backend, model, optimizer)
}
