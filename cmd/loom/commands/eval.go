package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/train"
)

var evalFlags struct {
	checkpoint string
	batches    int
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a checkpoint on freshly sampled tasks",
	Long: `Evaluate a trained scorer on freshly sampled pointer tasks.

The checkpoint must have been written by 'loom train' with a matching
model and optimizer configuration; use the same --scorer, --hidden and
--optimizer values (or the same config file) it was trained with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		applyTrainFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		data, err := loadDataset(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		sampler, err := newSampler(data, cfg)
		if err != nil {
			return err
		}

		// Evaluation needs no gradients, so the scorer lives on the
		// plain CPU backend.
		backend := cpu.New()
		scorer := buildScorer(cfg, backend)
		optimizer := buildOptimizer(cfg, scorer.Parameters(), backend)

		checkpoint, err := nn.LoadCheckpoint(evalFlags.checkpoint, backend, scorer, optimizer)
		if err != nil {
			return fmt.Errorf("loading checkpoint: %w", err)
		}

		loss, acc, err := train.Evaluate(scorer, sampler, evalFlags.batches, cfg.Train.BatchSize, backend)
		if err != nil {
			return err
		}

		fmt.Printf("Checkpoint %s (epoch %d, step %d)\n", evalFlags.checkpoint, checkpoint.Epoch, checkpoint.Step)
		fmt.Printf("Loss: %.4f, Accuracy: %.2f%% over %d batches of %d\n",
			loss, acc*100, evalFlags.batches, cfg.Train.BatchSize)
		return nil
	},
}

func init() {
	f := evalCmd.Flags()
	f.StringVar(&evalFlags.checkpoint, "checkpoint", "", "checkpoint file to evaluate (required)")
	f.IntVar(&evalFlags.batches, "batches", 20, "number of evaluation batches")
	f.StringVar(&trainFlags.dataDir, "data", "", "directory holding the MNIST IDX files")
	f.IntVar(&trainFlags.synthetic, "synthetic", 0, "use a synthetic dataset with this many samples")
	f.StringVar(&trainFlags.scorer, "scorer", "", `scorer: "additive" or "dot"`)
	f.IntVar(&trainFlags.hidden, "hidden", 0, "scorer hidden width")
	f.StringVar(&trainFlags.optimizer, "optimizer", "", `optimizer: "adam" or "sgd"`)
	f.IntVar(&trainFlags.candidates, "candidates", 0, "candidates per task")
	f.Int64Var(&trainFlags.seed, "seed", 0, "sampling seed")
	_ = evalCmd.MarkFlagRequired("checkpoint")

	rootCmd.AddCommand(evalCmd)
}
