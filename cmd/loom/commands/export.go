package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/version"
)

var exportFlags struct {
	checkpoint string
	out        string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export checkpoint weights as SafeTensors",
	Long: `Export the model weights of a checkpoint to a .safetensors file.

Only the scorer parameters are exported; optimizer state and training
progress stay behind. Use the same --scorer and --hidden values the
checkpoint was trained with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		applyTrainFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		backend := cpu.New()
		scorer := buildScorer(cfg, backend)
		optimizer := buildOptimizer(cfg, scorer.Parameters(), backend)

		checkpoint, err := nn.LoadCheckpoint(exportFlags.checkpoint, backend, scorer, optimizer)
		if err != nil {
			return fmt.Errorf("loading checkpoint: %w", err)
		}

		metadata := map[string]string{
			"framework": "loom",
			"version":   version.Version,
			"scorer":    cfg.Model.Scorer,
			"epoch":     strconv.Itoa(checkpoint.Epoch),
		}
		if err := serialization.WriteSafeTensors(exportFlags.out, scorer.StateDict(), metadata); err != nil {
			return fmt.Errorf("writing %s: %w", exportFlags.out, err)
		}

		fmt.Printf("Exported %d tensors to %s\n", len(scorer.StateDict()), exportFlags.out)
		return nil
	},
}

var importFlags struct {
	weights string
	out     string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build a checkpoint from SafeTensors weights",
	Long: `Load scorer weights from a .safetensors file and write them as a
fresh checkpoint, ready for 'loom eval' or 'loom demo'. The optimizer
state starts empty, so resuming training from an import starts the
optimizer cold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		applyTrainFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		backend := cpu.New()
		scorer := buildScorer(cfg, backend)
		optimizer := buildOptimizer(cfg, scorer.Parameters(), backend)

		reader, err := serialization.NewSafeTensorsReader(importFlags.weights)
		if err != nil {
			return fmt.Errorf("opening %s: %w", importFlags.weights, err)
		}
		defer reader.Close()

		stateDict, err := reader.ReadStateDict(backend)
		if err != nil {
			return fmt.Errorf("reading %s: %w", importFlags.weights, err)
		}
		if err := scorer.LoadStateDict(stateDict); err != nil {
			return fmt.Errorf("loading weights: %w", err)
		}

		if err := nn.SaveCheckpoint(importFlags.out, scorer, optimizer, 0); err != nil {
			return fmt.Errorf("writing %s: %w", importFlags.out, err)
		}

		fmt.Printf("Imported %d tensors into %s\n", len(stateDict), importFlags.out)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.checkpoint, "checkpoint", "", "checkpoint file to export (required)")
	f.StringVar(&exportFlags.out, "out", "model.safetensors", "output .safetensors path")
	f.StringVar(&trainFlags.scorer, "scorer", "", `scorer: "additive" or "dot"`)
	f.IntVar(&trainFlags.hidden, "hidden", 0, "scorer hidden width")
	f.StringVar(&trainFlags.optimizer, "optimizer", "", `optimizer: "adam" or "sgd"`)
	_ = exportCmd.MarkFlagRequired("checkpoint")

	g := importCmd.Flags()
	g.StringVar(&importFlags.weights, "weights", "", ".safetensors file to import (required)")
	g.StringVar(&importFlags.out, "out", "imported.loom", "output checkpoint path")
	g.StringVar(&trainFlags.scorer, "scorer", "", `scorer: "additive" or "dot"`)
	g.IntVar(&trainFlags.hidden, "hidden", 0, "scorer hidden width")
	g.StringVar(&trainFlags.optimizer, "optimizer", "", `optimizer: "adam" or "sgd"`)
	_ = importCmd.MarkFlagRequired("weights")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
