// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation
//
// Design inspired by PyTorch's torch.optim but adapted for Go with type safety.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{
//	    LR: 0.001,
//	}, backend)
//
//	for epoch := range epochs {
//	    optimizer.ZeroGrad()
//	    loss := model.Forward(input)
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	}
package optim

import (
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers update model parameters in place from computed gradients.
// Every optimizer also exposes its internal state as a state dict, so a
// training run can checkpoint and resume mid-flight; optimizers without
// internal buffers return an empty map.
type Optimizer interface {
	// Step applies one gradient update to all parameters.
	//
	// Takes the gradient map from autodiff.Backward, keyed by parameter
	// raw tensor. Parameters absent from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	//
	// Call before each backward pass so gradients from previous
	// iterations do not accumulate.
	ZeroGrad()

	// Name returns the optimizer type, e.g. "SGD" or "Adam".
	Name() string

	// GetLR returns the current learning rate.
	GetLR() float32

	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// getGradient retrieves the gradient for a parameter.
//
// Returns nil if the parameter has no gradient, which means it was not
// part of the recorded computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
