package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/config"
	"github.com/loom-ml/loom/internal/tensor"
	"github.com/loom-ml/loom/internal/train"
)

var trainFlags struct {
	dataDir       string
	synthetic     int
	maxSamples    int
	candidates    int
	seed          int64
	scorer        string
	hidden        int
	optimizer     string
	lr            float32
	momentum      float32
	epochs        int
	batchSize     int
	batches       int
	valBatches    int
	checkpointDir string
	report        string
	device        string
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a pointer-selection scorer on MNIST digit pairs",
	Long: `Train an attention scorer to point at the successor digit.

Each batch samples fresh tasks: a query digit, a row of candidates with
exactly one digit of the successor class, and the index of that digit as
the target. The scorer's outputs are treated as logits over the
candidate row and trained with cross-entropy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		applyTrainFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		switch trainFlags.device {
		case "", "cpu":
			return runTraining(ctx, cpu.New(), cfg)
		case "webgpu":
			return runTrainingGPU(ctx, cfg)
		default:
			return fmt.Errorf("unknown device %q (want \"cpu\" or \"webgpu\")", trainFlags.device)
		}
	},
}

func init() {
	f := trainCmd.Flags()
	f.StringVar(&trainFlags.dataDir, "data", "", "directory holding the MNIST IDX files")
	f.IntVar(&trainFlags.synthetic, "synthetic", 0, "use a synthetic dataset with this many samples")
	f.IntVar(&trainFlags.maxSamples, "max-samples", 0, "cap loaded samples, 0 = all")
	f.IntVar(&trainFlags.candidates, "candidates", 0, "candidates per task")
	f.Int64Var(&trainFlags.seed, "seed", 0, "sampling seed")
	f.StringVar(&trainFlags.scorer, "scorer", "", `scorer: "additive" or "dot"`)
	f.IntVar(&trainFlags.hidden, "hidden", 0, "scorer hidden width")
	f.StringVar(&trainFlags.optimizer, "optimizer", "", `optimizer: "adam" or "sgd"`)
	f.Float32Var(&trainFlags.lr, "lr", 0, "learning rate")
	f.Float32Var(&trainFlags.momentum, "momentum", 0, "SGD momentum")
	f.IntVar(&trainFlags.epochs, "epochs", 0, "training epochs")
	f.IntVar(&trainFlags.batchSize, "batch-size", 0, "samples per batch")
	f.IntVar(&trainFlags.batches, "batches", 0, "batches per epoch")
	f.IntVar(&trainFlags.valBatches, "val-batches", 0, "validation batches per epoch")
	f.StringVar(&trainFlags.checkpointDir, "checkpoint-dir", "", "write per-epoch checkpoints here")
	f.StringVar(&trainFlags.report, "report", "", "write an HTML metrics report here")
	f.StringVar(&trainFlags.device, "device", "cpu", `device: "cpu" or "webgpu" (windows only)`)

	rootCmd.AddCommand(trainCmd)
}

// applyTrainFlags overlays explicitly set flags onto the config, the
// highest-precedence layer.
func applyTrainFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("data") {
		cfg.Data.Dir = trainFlags.dataDir
	}
	if set("synthetic") {
		cfg.Data.Synthetic = trainFlags.synthetic
	}
	if set("max-samples") {
		cfg.Data.MaxSamples = trainFlags.maxSamples
	}
	if set("candidates") {
		cfg.Data.Candidates = trainFlags.candidates
	}
	if set("seed") {
		cfg.Data.Seed = trainFlags.seed
	}
	if set("scorer") {
		cfg.Model.Scorer = trainFlags.scorer
	}
	if set("hidden") {
		cfg.Model.Hidden = trainFlags.hidden
	}
	if set("optimizer") {
		cfg.Optim.Name = trainFlags.optimizer
	}
	if set("lr") {
		cfg.Optim.LR = trainFlags.lr
	}
	if set("momentum") {
		cfg.Optim.Momentum = trainFlags.momentum
	}
	if set("epochs") {
		cfg.Train.Epochs = trainFlags.epochs
	}
	if set("batch-size") {
		cfg.Train.BatchSize = trainFlags.batchSize
	}
	if set("batches") {
		cfg.Train.BatchesPerEpoch = trainFlags.batches
	}
	if set("val-batches") {
		cfg.Train.ValBatches = trainFlags.valBatches
	}
	if set("checkpoint-dir") {
		cfg.Train.CheckpointDir = trainFlags.checkpointDir
	}
	if set("report") {
		cfg.Train.ReportPath = trainFlags.report
	}
}

// runTraining wires the dataset, scorer, optimizer and trainer on the
// given inner backend and runs the configured number of epochs.
func runTraining[B tensor.Backend](ctx context.Context, inner B, cfg *config.Config) error {
	data, err := loadDataset(ctx, cfg, true)
	if err != nil {
		return err
	}
	slog.Debug("dataset ready", "samples", data.NumSamples())

	trainSampler, valSampler, err := newSamplers(data, cfg)
	if err != nil {
		return err
	}

	backend := autodiff.New(inner)
	scorer := buildScorer(cfg, backend)
	optimizer := buildOptimizer(cfg, scorer.Parameters(), backend)

	trainer := train.New(scorer, optimizer, trainSampler, valSampler, backend, train.Options{
		Epochs:          cfg.Train.Epochs,
		BatchSize:       cfg.Train.BatchSize,
		BatchesPerEpoch: cfg.Train.BatchesPerEpoch,
		ValBatches:      cfg.Train.ValBatches,
		CheckpointDir:   cfg.Train.CheckpointDir,
		ReportPath:      cfg.Train.ReportPath,
	})
	slog.Debug("starting run", "id", trainer.RunID(), "backend", backend.Name())

	result, err := trainer.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun %s finished: val accuracy %.2f%% after %d epochs (%d steps)\n",
		result.RunID, result.ValAccuracy*100, result.Epochs, result.Steps)
	if result.CheckpointPath != "" {
		fmt.Printf("Last checkpoint: %s\n", result.CheckpointPath)
	}
	if result.ReportPath != "" {
		fmt.Printf("Report: %s\n", result.ReportPath)
	}
	return nil
}
