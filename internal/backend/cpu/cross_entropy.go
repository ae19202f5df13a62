package cpu

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// CrossEntropy computes softmax cross-entropy loss from raw logits.
//
// logits must be 2D [batch, classes]; targets holds one class index per row
// (int32 or int64). The per-row losses are averaged into a Shape{1} tensor
// of the logits dtype.
//
// Softmax and negative log-likelihood are fused through the log-sum-exp
// identity: loss = logsumexp(logits) - logits[target]. The max shift keeps
// exp() from overflowing.
func (cpu *CPUBackend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross entropy: logits must be 2D [batch, classes], got %v", shape))
	}
	batch, classes := shape[0], shape[1]

	if targets.NumElements() != batch {
		panic(fmt.Sprintf("cross entropy: batch size mismatch: %d logits rows vs %d targets",
			batch, targets.NumElements()))
	}

	indices := targetIndices(targets, classes)

	result := newResult(tensor.Shape{1}, logits.DType(), cpu.device, "cross entropy")

	switch logits.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = crossEntropyFloat32(logits.AsFloat32(), indices, batch, classes)
	case tensor.Float64:
		result.AsFloat64()[0] = crossEntropyFloat64(logits.AsFloat64(), indices, batch, classes)
	default:
		panic(fmt.Sprintf("cross entropy: unsupported dtype %s (only float32/float64 supported)", logits.DType()))
	}

	return result
}

// targetIndices reads the target tensor into host ints, validating range.
func targetIndices(targets *tensor.RawTensor, classes int) []int {
	n := targets.NumElements()
	indices := make([]int, n)

	switch targets.DType() {
	case tensor.Int32:
		for i, v := range targets.AsInt32() {
			indices[i] = int(v)
		}
	case tensor.Int64:
		for i, v := range targets.AsInt64() {
			indices[i] = int(v)
		}
	default:
		panic(fmt.Sprintf("cross entropy: unsupported target dtype %s (only int32/int64 supported)", targets.DType()))
	}

	for i, idx := range indices {
		if idx < 0 || idx >= classes {
			panic(fmt.Sprintf("cross entropy: target %d at row %d out of range [0, %d)", idx, i, classes))
		}
	}

	return indices
}

func crossEntropyFloat32(logits []float32, indices []int, batch, classes int) float32 {
	var total float64
	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}

		logSumExp := float64(maxVal) + math.Log(sumExp)
		total += logSumExp - float64(row[indices[b]])
	}

	return float32(total / float64(batch))
}

func crossEntropyFloat64(logits []float64, indices []int, batch, classes int) float64 {
	var total float64
	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - maxVal)
		}

		logSumExp := maxVal + math.Log(sumExp)
		total += logSumExp - row[indices[b]]
	}

	return total / float64(batch)
}
