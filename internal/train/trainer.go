// Package train runs the pointer-selection training loop: batches from a
// sampler, forward through a scorer, cross-entropy over the candidate
// axis, reverse-mode backward, optimizer step. It tracks a metrics
// History, prints per-epoch progress and optionally writes checkpoints
// and an HTML report.
package train

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/pointer"
	"github.com/loom-ml/loom/internal/tensor"
)

// Options configures a training run. Zero fields fall back to defaults.
type Options struct {
	Epochs          int // default 5
	BatchSize       int // default 32
	BatchesPerEpoch int // default 100
	ValBatches      int // batches per validation pass, default 10

	// CheckpointDir enables checkpointing when set. A snapshot lands
	// there every CheckpointEvery epochs (default every epoch).
	CheckpointDir   string
	CheckpointEvery int

	// ReportPath enables the HTML metrics report when set.
	ReportPath string

	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
}

// Result summarizes a finished run.
type Result struct {
	RunID          string
	Epochs         int
	Steps          int64
	FinalLoss      float64
	FinalAccuracy  float64
	ValLoss        float64
	ValAccuracy    float64
	CheckpointPath string
	ReportPath     string
}

// Trainer drives epochs of scorer training over sampled pointer tasks.
type Trainer[B tensor.Backend] struct {
	scorer    nn.Scorer[*autodiff.AutodiffBackend[B]]
	optimizer optim.Optimizer
	train     *pointer.Sampler
	val       *pointer.Sampler
	backend   *autodiff.AutodiffBackend[B]
	criterion *nn.CrossEntropyLoss[*autodiff.AutodiffBackend[B]]
	history   *History
	opts      Options
	runID     string
	out       io.Writer
	step      int64
}

// New creates a trainer. The scorer must live on the given recording
// backend; the validation sampler may share the training sampler's
// dataset or hold a held-out split.
func New[B tensor.Backend](
	scorer nn.Scorer[*autodiff.AutodiffBackend[B]],
	optimizer optim.Optimizer,
	trainSampler, valSampler *pointer.Sampler,
	backend *autodiff.AutodiffBackend[B],
	opts Options,
) *Trainer[B] {
	if opts.Epochs == 0 {
		opts.Epochs = 5
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 32
	}
	if opts.BatchesPerEpoch == 0 {
		opts.BatchesPerEpoch = 100
	}
	if opts.ValBatches == 0 {
		opts.ValBatches = 10
	}
	if opts.CheckpointEvery == 0 {
		opts.CheckpointEvery = 1
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Trainer[B]{
		scorer:    scorer,
		optimizer: optimizer,
		train:     trainSampler,
		val:       valSampler,
		backend:   backend,
		criterion: nn.NewCrossEntropyLoss(backend),
		history:   &History{},
		opts:      opts,
		runID:     uuid.NewString(),
		out:       out,
	}
}

// History returns the metrics accumulated so far.
func (t *Trainer[B]) History() *History {
	return t.history
}

// RunID returns the run's unique identifier.
func (t *Trainer[B]) RunID() string {
	return t.runID
}

// Run trains for the configured number of epochs, validating and
// printing one progress line per epoch. The tape records only during
// training batches; validation and accuracy stay off the tape.
func (t *Trainer[B]) Run(ctx context.Context) (*Result, error) {
	t.backend.Tape().StartRecording()
	defer t.backend.Tape().StopRecording()

	result := &Result{RunID: t.runID, Epochs: t.opts.Epochs}
	for epoch := 0; epoch < t.opts.Epochs; epoch++ {
		trainLoss, trainAcc, err := t.trainEpoch(ctx)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch+1, err)
		}
		valLoss, valAcc, err := t.evaluate()
		if err != nil {
			return nil, fmt.Errorf("epoch %d validation: %w", epoch+1, err)
		}
		t.history.RecordEpoch(trainLoss, trainAcc, valLoss, valAcc)

		fmt.Fprintf(t.out, "Epoch %2d/%d: Loss=%.4f, Train Acc=%.2f%%, Val Loss=%.4f, Val Acc=%.2f%%\n",
			epoch+1, t.opts.Epochs, trainLoss, trainAcc*100, valLoss, valAcc*100)

		if t.opts.CheckpointDir != "" && (epoch+1)%t.opts.CheckpointEvery == 0 {
			path, err := t.saveCheckpoint(epoch+1, trainLoss)
			if err != nil {
				return nil, fmt.Errorf("epoch %d checkpoint: %w", epoch+1, err)
			}
			result.CheckpointPath = path
		}

		result.FinalLoss = trainLoss
		result.FinalAccuracy = trainAcc
		result.ValLoss = valLoss
		result.ValAccuracy = valAcc
	}
	result.Steps = t.step

	if t.opts.ReportPath != "" {
		if err := t.history.SaveHTML(t.opts.ReportPath, "Pointer Network Training", t.runID); err != nil {
			return nil, fmt.Errorf("writing report: %w", err)
		}
		result.ReportPath = t.opts.ReportPath
	}
	return result, nil
}

func (t *Trainer[B]) trainEpoch(ctx context.Context) (float64, float64, error) {
	var lossSum, accSum float64
	for b := 0; b < t.opts.BatchesPerEpoch; b++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		batch, err := pointer.NextBatch(t.train, t.opts.BatchSize, t.backend)
		if err != nil {
			return 0, 0, fmt.Errorf("assembling batch: %w", err)
		}

		t.optimizer.ZeroGrad()
		scores := t.scorer.Score(batch.Queries, batch.Candidates)
		loss := t.criterion.Forward(scores, batch.Targets)

		lossValue := float64(loss.Item())
		lossSum += lossValue
		accSum += float64(nn.Accuracy(scores, batch.Targets))

		grads := autodiff.Backward(loss, t.backend)
		t.optimizer.Step(grads)
		t.backend.Tape().Clear()

		t.step++
		t.history.RecordStep(t.step, lossValue, t.optimizer.GetLR())
	}
	n := float64(t.opts.BatchesPerEpoch)
	return lossSum / n, accSum / n, nil
}

// evaluate runs a validation pass with recording suspended, restoring
// the tape's prior state afterwards.
func (t *Trainer[B]) evaluate() (float64, float64, error) {
	tape := t.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	return Evaluate(t.scorer, t.val, t.opts.ValBatches, t.opts.BatchSize, t.backend)
}

func (t *Trainer[B]) saveCheckpoint(epoch int, loss float64) (string, error) {
	if err := os.MkdirAll(t.opts.CheckpointDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(t.opts.CheckpointDir, fmt.Sprintf("epoch-%03d.loom", epoch))
	checkpoint := &nn.Checkpoint{
		Model:     t.scorer,
		Optimizer: t.optimizer,
		Epoch:     epoch,
		Step:      t.step,
		Loss:      loss,
		Metadata:  map[string]any{"run_id": t.runID},
	}
	if err := checkpoint.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Evaluate measures average loss and accuracy of a scorer over freshly
// sampled batches. It works on any backend; nothing here touches a
// gradient tape, so callers with a recording backend must suspend
// recording themselves.
func Evaluate[B tensor.Backend](
	scorer nn.Scorer[B],
	sampler *pointer.Sampler,
	numBatches, batchSize int,
	backend B,
) (float64, float64, error) {
	if numBatches < 1 {
		return 0, 0, fmt.Errorf("need at least 1 evaluation batch, got %d", numBatches)
	}
	criterion := nn.NewCrossEntropyLoss(backend)

	var lossSum, accSum float64
	for b := 0; b < numBatches; b++ {
		batch, err := pointer.NextBatch(sampler, batchSize, backend)
		if err != nil {
			return 0, 0, fmt.Errorf("assembling batch: %w", err)
		}
		scores := scorer.Score(batch.Queries, batch.Candidates)
		loss := criterion.Forward(scores, batch.Targets)
		lossSum += float64(loss.Item())
		accSum += float64(nn.Accuracy(scores, batch.Targets))
	}
	n := float64(numBatches)
	return lossSum / n, accSum / n, nil
}
