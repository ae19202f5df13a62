package ops

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// CrossEntropyOp represents the fused softmax + negative log-likelihood loss.
//
// Forward:
//
//	loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// Backward:
//
//	∂loss/∂logits[b,i] = (softmax(logits[b])[i] - y_one_hot[b,i]) / batch_size
//
// This closed-form gradient is why softmax and cross-entropy are fused: the
// softmax Jacobian and the log derivative collapse into a single subtraction.
//
// Targets hold class indices (int32 or int64) and receive no gradient.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // [batch_size, num_classes]
	targets *tensor.RawTensor // [batch_size]
	output  *tensor.RawTensor // single-element mean loss
}

// NewCrossEntropyOp creates a new cross-entropy operation.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Inputs returns the differentiated input tensors. Targets are class
// indices, so only the logits appear here.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the loss tensor.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to the logits.
//
// The forward pass averaged over the batch, so each row's gradient is
// scaled by 1/batch_size. The upstream gradient is a single element and
// scales the whole result.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logitsShape := op.logits.Shape()
	if len(logitsShape) != 2 {
		panic("CrossEntropyOp: backward only supports 2D logits [batch_size, num_classes]")
	}

	batchSize := logitsShape[0]
	numClasses := logitsShape[1]
	targets := classIndices(op.targets)

	logitsGrad, err := tensor.NewRaw(logitsShape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(err)
	}

	switch op.logits.DType() {
	case tensor.Float32:
		crossEntropyGradFloat32(
			op.logits.AsFloat32(),
			targets,
			outputGrad.AsFloat32()[0],
			logitsGrad.AsFloat32(),
			batchSize,
			numClasses,
		)

	case tensor.Float64:
		crossEntropyGradFloat64(
			op.logits.AsFloat64(),
			targets,
			outputGrad.AsFloat64()[0],
			logitsGrad.AsFloat64(),
			batchSize,
			numClasses,
		)

	default:
		panic("CrossEntropyOp: backward only supports float32 and float64")
	}

	return []*tensor.RawTensor{logitsGrad}
}

// classIndices converts an integer target tensor to plain int indices.
func classIndices(targets *tensor.RawTensor) []int {
	switch targets.DType() {
	case tensor.Int32:
		data := targets.AsInt32()
		indices := make([]int, len(data))
		for i, v := range data {
			indices[i] = int(v)
		}
		return indices
	case tensor.Int64:
		data := targets.AsInt64()
		indices := make([]int, len(data))
		for i, v := range data {
			indices[i] = int(v)
		}
		return indices
	default:
		panic(fmt.Sprintf("CrossEntropyOp: targets must be int32 or int64, got %s", targets.DType()))
	}
}

func crossEntropyGradFloat32(logits []float32, targets []int, gradScale float32, grad []float32, batchSize, numClasses int) {
	invBatch := gradScale / float32(batchSize)

	for b := 0; b < batchSize; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		probs := softmaxRowFloat32(row)

		target := targets[b]
		for i := 0; i < numClasses; i++ {
			g := probs[i]
			if i == target {
				g -= 1.0
			}
			grad[b*numClasses+i] = g * invBatch
		}
	}
}

func crossEntropyGradFloat64(logits []float64, targets []int, gradScale float64, grad []float64, batchSize, numClasses int) {
	invBatch := gradScale / float64(batchSize)

	for b := 0; b < batchSize; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		probs := softmaxRowFloat64(row)

		target := targets[b]
		for i := 0; i < numClasses; i++ {
			g := probs[i]
			if i == target {
				g -= 1.0
			}
			grad[b*numClasses+i] = g * invBatch
		}
	}
}

// softmaxRowFloat32 computes max-shifted softmax for a single row.
func softmaxRowFloat32(logits []float32) []float32 {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		probs[i] = float32(math.Exp(float64(v - maxVal)))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// softmaxRowFloat64 computes max-shifted softmax for a single row.
func softmaxRowFloat64(logits []float64) []float64 {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - maxVal)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
