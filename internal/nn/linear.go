package nn

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W^T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, backend)
//
//	input := tensor.Randn[float32](tensor.Shape{32, 784}, backend)
//	output := layer.Forward(input) // shape: [32, 128]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features], nil when constructed without bias
	backend     B
}

// NewLinear creates a new Linear layer with a bias vector.
//
// Weights use Xavier/Glorot uniform initialization, biases start at zero.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	l := NewLinearNoBias(inFeatures, outFeatures, backend)

	biasTensor := Zeros(tensor.Shape{outFeatures}, backend)
	l.bias = NewParameter("bias", biasTensor)

	return l
}

// NewLinearNoBias creates a Linear layer without a bias vector.
//
// Useful for projection layers where a following operation supplies
// its own offset.
func NewLinearNoBias[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weightTensor := Xavier(inFeatures, outFeatures, weightShape, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weightTensor),
		bias:        nil,
		backend:     backend,
	}
}

// Forward computes y = x @ W^T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	w := l.weight.Tensor() // [out_features, in_features]

	// [batch, in] @ [in, out] = [batch, out]
	output := input.MatMul(w.Transpose())

	if l.bias != nil {
		b := l.bias.Tensor() // [out_features]
		// Reshape to [1, out_features] so the bias broadcasts over the batch.
		output = output.Add(b.Reshape(1, l.outFeatures))
	}

	return output
}

// Parameters returns [weight, bias], or [weight] when there is no bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil for a bias-free layer.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns a map of parameter names to raw tensors.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	stateDict["weight"] = l.weight.Tensor().Raw()
	if l.bias != nil {
		stateDict["bias"] = l.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	expectedWeightShape := tensor.Shape{l.outFeatures, l.inFeatures}
	if err := loadParam(stateDict, "weight", expectedWeightShape, l.weight); err != nil {
		return err
	}

	if l.bias != nil {
		expectedBiasShape := tensor.Shape{l.outFeatures}
		if err := loadParam(stateDict, "bias", expectedBiasShape, l.bias); err != nil {
			return err
		}
	}

	return nil
}

// loadParam validates and copies one named tensor into a parameter.
func loadParam[B tensor.Backend](
	stateDict map[string]*tensor.RawTensor,
	name string,
	expectedShape tensor.Shape,
	param *Parameter[B],
) error {
	raw, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing %s in state dict", name)
	}
	if !raw.Shape().Equal(expectedShape) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, expectedShape, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", name, raw.DType())
	}

	copy(param.Tensor().Data(), raw.AsFloat32())
	return nil
}
