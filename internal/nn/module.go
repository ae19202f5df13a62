// Package nn implements neural network modules for the Loom ML Framework.
//
// This package provides building blocks for constructing networks:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient tracking
//   - Linear: fully connected layer
//   - Activations: ReLU, Sigmoid, Tanh
//   - Loss functions: MSE, CrossEntropy
//   - Scorers: additive and dot-product candidate scoring
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every module must implement:
//   - Forward: compute output from input
//   - Parameters: return all trainable parameters
//   - StateDict/LoadStateDict: serialize and restore parameters by name
//
// Modules can be composed to build larger architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	//
	// This includes weights, biases, and any nested module parameters.
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	//
	// Container modules prefix nested names so they stay unique
	// (e.g., "0.weight" in Sequential).
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies parameter data from a state dictionary.
	//
	// Shapes and dtypes must match the module's own parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Stateful is the serializable part of a module: anything that can hand
// out and restore named parameter state. Every Module satisfies it, and
// so do components whose forward signature does not fit Module, like the
// scorers.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
