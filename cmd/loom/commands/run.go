package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/loom-ml/loom/internal/config"
	"github.com/loom-ml/loom/internal/mnist"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/optim"
	"github.com/loom-ml/loom/internal/pointer"
	"github.com/loom-ml/loom/internal/tensor"
)

// defaultDataDir is used when neither config nor flags name one.
const defaultDataDir = "./data"

// loadDataset resolves the configured dataset: synthetic digits when
// requested, otherwise the MNIST files, downloading them on first use.
func loadDataset(ctx context.Context, cfg *config.Config, train bool) (*mnist.Dataset, error) {
	if cfg.Data.Synthetic > 0 {
		slog.Debug("using synthetic dataset", "samples", cfg.Data.Synthetic)
		return mnist.Synthetic(cfg.Data.Synthetic), nil
	}

	dir := cfg.Data.Dir
	if dir == "" {
		dir = defaultDataDir
	}

	data, err := mnist.Load(dir, train, cfg.Data.MaxSamples)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	slog.Info("MNIST files not found, downloading", "dir", dir)
	if err := mnist.Download(ctx, dir); err != nil {
		return nil, fmt.Errorf("downloading MNIST: %w", err)
	}
	return mnist.Load(dir, train, cfg.Data.MaxSamples)
}

// newSamplers builds the training and validation samplers from one
// dataset, holding out a tenth of the samples for validation. The two
// samplers draw from independent seeded streams.
func newSamplers(data *mnist.Dataset, cfg *config.Config) (trainS, valS *pointer.Sampler, err error) {
	trainData, valData := data.Split(0.1)
	if valData.NumSamples() == 0 {
		// Tiny datasets keep everything in both roles.
		trainData, valData = data, data
	}

	trainS, err = pointer.NewSampler(trainData, cfg.Data.Candidates, cfg.Data.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("training sampler: %w", err)
	}
	valS, err = pointer.NewSampler(valData, cfg.Data.Candidates, cfg.Data.Seed+1)
	if err != nil {
		// Small held-out splits can miss a class; fall back to the full set.
		valS, err = pointer.NewSampler(data, cfg.Data.Candidates, cfg.Data.Seed+1)
		if err != nil {
			return nil, nil, fmt.Errorf("validation sampler: %w", err)
		}
	}
	return trainS, valS, nil
}

// newSampler builds a single sampler over the whole dataset, for
// evaluation and inspection commands that need no held-out split.
func newSampler(data *mnist.Dataset, cfg *config.Config) (*pointer.Sampler, error) {
	return pointer.NewSampler(data, cfg.Data.Candidates, cfg.Data.Seed)
}

// buildScorer constructs the configured scorer on the given backend.
func buildScorer[B tensor.Backend](cfg *config.Config, backend B) nn.Scorer[B] {
	switch cfg.Model.Scorer {
	case "dot":
		return nn.NewDotScorer(mnist.ImageSize, cfg.Model.Hidden, backend)
	default:
		return nn.NewAdditiveScorer(mnist.ImageSize, cfg.Model.Hidden, backend)
	}
}

// buildOptimizer constructs the configured optimizer over the scorer's
// parameters.
func buildOptimizer[B tensor.Backend](cfg *config.Config, params []*nn.Parameter[B], backend B) optim.Optimizer {
	switch cfg.Optim.Name {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{
			LR:       cfg.Optim.LR,
			Momentum: cfg.Optim.Momentum,
		}, backend)
	default:
		return optim.NewAdam(params, optim.AdamConfig{LR: cfg.Optim.LR}, backend)
	}
}
