package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// optimizerPrefix marks optimizer entries in a checkpoint state dict.
const optimizerPrefix = "optimizer."

// OptimizerState is the part of an optimizer a checkpoint needs.
//
// Optimizers from the optim package implement it; declaring it here keeps
// checkpoints working without an import cycle between nn and optim.
type OptimizerState interface {
	// Name returns the optimizer type, e.g. "SGD" or "Adam".
	Name() string

	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Checkpoint is a complete training snapshot: model parameters, optimizer
// state and training progress. Saving one lets an interrupted run resume
// where it stopped, and keeps intermediate models around for comparison.
//
// Example:
//
//	checkpoint := &nn.Checkpoint{
//	    Model:     model,
//	    Optimizer: optimizer,
//	    Epoch:     10,
//	    Step:      5000,
//	    Loss:      0.123,
//	}
//	err := checkpoint.Save("checkpoint_epoch_10.loom")
//
// To resume:
//
//	checkpoint, err := nn.LoadCheckpoint("checkpoint.loom", backend, model, optimizer)
//	startEpoch := checkpoint.Epoch + 1
type Checkpoint struct {
	Model     Stateful
	Optimizer OptimizerState
	Epoch     int
	Step      int64
	Loss      float64
	Metadata  map[string]any
	CreatedAt time.Time
}

// Save writes the checkpoint to a .loom file.
//
// Model parameters and optimizer state share one state dict; optimizer
// entries carry the "optimizer." prefix. Training progress lands in the
// header's checkpoint block, so tools can inspect epoch and loss without
// loading any tensors.
func (c *Checkpoint) Save(path string) (err error) {
	combined := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}
	for name, raw := range c.Optimizer.StateDict() {
		combined[optimizerPrefix+name] = raw
	}

	header := serialization.Header{
		ModelType: "Checkpoint",
		CheckpointMeta: &serialization.CheckpointMeta{
			IsCheckpoint:  true,
			Epoch:         c.Epoch,
			Step:          c.Step,
			Loss:          c.Loss,
			OptimizerType: c.Optimizer.Name(),
			OptimizerConfig: map[string]any{
				"lr": c.Optimizer.GetLR(),
			},
			TrainingMeta: c.Metadata,
		},
	}

	writer, err := serialization.NewLoomWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := writer.WriteStateDictWithHeader(combined, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a checkpoint from a .loom file.
//
// The model and optimizer must be pre-constructed with the same
// architecture and configuration the checkpoint was saved with; their
// state is overwritten in place. Loading a checkpoint saved with a
// different optimizer type is an error.
//
// Example:
//
//	model := nn.NewLinear(10, 5, backend)
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)
//
//	checkpoint, err := nn.LoadCheckpoint("checkpoint.loom", backend, model, optimizer)
//	if err != nil {
//	    return err
//	}
//	for epoch := checkpoint.Epoch + 1; epoch <= totalEpochs; epoch++ {
//	    // Training loop...
//	}
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Stateful,
	optimizer OptimizerState,
) (*Checkpoint, error) {
	reader, err := serialization.NewLoomReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	header := reader.Header()
	meta := header.CheckpointMeta
	if meta == nil || !meta.IsCheckpoint {
		return nil, fmt.Errorf("file %s is not a checkpoint", path)
	}
	if meta.OptimizerType != "" && meta.OptimizerType != optimizer.Name() {
		return nil, fmt.Errorf("checkpoint was saved with optimizer %s, got %s",
			meta.OptimizerType, optimizer.Name())
	}

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if strings.HasPrefix(name, optimizerPrefix) {
			optimizerState[strings.TrimPrefix(name, optimizerPrefix)] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	if err := optimizer.LoadStateDict(optimizerState); err != nil {
		return nil, fmt.Errorf("failed to load optimizer state: %w", err)
	}

	return &Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     meta.Epoch,
		Step:      meta.Step,
		Loss:      meta.Loss,
		Metadata:  meta.TrainingMeta,
		CreatedAt: header.CreatedAt,
	}, nil
}

// SaveCheckpoint saves a checkpoint with just an epoch number.
//
// Equivalent to filling a Checkpoint struct and calling Save, for the
// common end-of-epoch case.
func SaveCheckpoint(
	path string,
	model Stateful,
	optimizer OptimizerState,
	epoch int,
) error {
	checkpoint := &Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
	}
	return checkpoint.Save(path)
}
