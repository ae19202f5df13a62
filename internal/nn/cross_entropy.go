package nn

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy loss for multi-class
// classification.
//
// Mathematical formulation:
//
//	Loss = -log_probs[target]
//	where log_probs = LogSoftmax(logits)
//
// Gradient (backward):
//
//	dL/dlogits = Softmax(logits) - y_one_hot
//
// Usage:
//
//	criterion := nn.NewCrossEntropyLoss[Backend](backend)
//	logits := model.Forward(input)              // [batch_size, num_classes]
//	loss := criterion.Forward(logits, targets)  // targets: [batch_size]
//
// Key properties:
//   - Expects raw logits (unnormalized scores) as input
//   - The backend kernel fuses softmax and NLL through the log-sum-exp
//     identity, so no overflow when logits exceed the float32 exp limit
//   - With a recording backend the call lands on the gradient tape
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{
		backend: backend,
	}
}

// Forward computes cross-entropy loss, averaged over the batch.
//
// Parameters:
//   - logits: model predictions [batch_size, num_classes]
//   - targets: ground truth class indices [batch_size]
//
// Returns a Shape{1} loss tensor.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	resultRaw := c.backend.CrossEntropy(logits.Raw(), targets.Raw())
	return tensor.New[float32, B](resultRaw, c.backend)
}

// Parameters returns nil (loss functions have no trainable parameters).
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float32) int {
	maxIdx := 0
	maxVal := z[0]
	for i := 1; i < len(z); i++ {
		if z[i] > maxVal {
			maxVal = z[i]
			maxIdx = i
		}
	}
	return maxIdx
}

// Accuracy computes classification accuracy for a batch.
//
// The comparison runs on host data, so calling it never records onto a
// gradient tape. That makes it safe to evaluate between the loss and
// the backward pass.
//
// Parameters:
//   - logits: model predictions [batch_size, num_classes]
//   - targets: ground truth class indices [batch_size]
//
// Returns accuracy as a float between 0 and 1.
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	shape := logits.Shape()
	batchSize := shape[0]
	numClasses := shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	correct := 0
	for b := 0; b < batchSize; b++ {
		sampleLogits := logitsData[b*numClasses : (b+1)*numClasses]
		if argmax(sampleLogits) == int(targetsData[b]) {
			correct++
		}
	}

	return float32(correct) / float32(batchSize)
}
