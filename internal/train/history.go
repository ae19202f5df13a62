package train

import (
	"github.com/loom-ml/loom/internal/viz"
)

// History accumulates metrics over a training run: per-step loss and
// learning rate, per-epoch train/validation loss and accuracy.
type History struct {
	Steps         []int64
	Losses        []float64
	LearningRates []float64

	TrainLoss []float64
	TrainAcc  []float64
	ValLoss   []float64
	ValAcc    []float64
}

// RecordStep appends one optimizer step's metrics.
func (h *History) RecordStep(step int64, loss float64, lr float32) {
	h.Steps = append(h.Steps, step)
	h.Losses = append(h.Losses, loss)
	h.LearningRates = append(h.LearningRates, float64(lr))
}

// RecordEpoch appends one epoch's aggregate metrics.
func (h *History) RecordEpoch(trainLoss, trainAcc, valLoss, valAcc float64) {
	h.TrainLoss = append(h.TrainLoss, trainLoss)
	h.TrainAcc = append(h.TrainAcc, trainAcc)
	h.ValLoss = append(h.ValLoss, valLoss)
	h.ValAcc = append(h.ValAcc, valAcc)
}

// NumSteps returns the number of recorded optimizer steps.
func (h *History) NumSteps() int {
	return len(h.Steps)
}

// SaveHTML writes the run's loss curve, accuracy and learning-rate
// charts as a self-contained HTML page.
func (h *History) SaveHTML(path, title, runID string) error {
	return viz.WriteReport(path, viz.Report{
		Title:         title,
		RunID:         runID,
		Steps:         h.Steps,
		Losses:        h.Losses,
		LearningRates: h.LearningRates,
		TrainAcc:      h.TrainAcc,
		ValAcc:        h.ValAcc,
	})
}
