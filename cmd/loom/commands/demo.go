package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/pointer"
	"github.com/loom-ml/loom/internal/viz"
)

var demoFlags struct {
	count      int
	checkpoint string
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Render sampled tasks in the terminal",
	Long: `Draw pointer tasks and render them as ASCII digit panels.

Without --checkpoint the tasks are shown with their target marked. With
a checkpoint, the trained scorer picks a candidate for each task and the
rendering marks the pick as correct or wrong.`,
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

		backend := cpu.New()
		var scorer nn.Scorer[*cpu.CPUBackend]
		if demoFlags.checkpoint != "" {
			scorer = buildScorer(cfg, backend)
			optimizer := buildOptimizer(cfg, scorer.Parameters(), backend)
			if _, err := nn.LoadCheckpoint(demoFlags.checkpoint, backend, scorer, optimizer); err != nil {
				return fmt.Errorf("loading checkpoint: %w", err)
			}
		}

		styles := viz.NewStyles(viz.DefaultTheme)
		for i := 0; i < demoFlags.count; i++ {
			s := sampler.Sample()
			pick := -1
			if scorer != nil {
				batch, err := pointer.Assemble([]*pointer.Sample{s}, backend)
				if err != nil {
					return err
				}
				pick = argmaxFloat32(scorer.Score(batch.Queries, batch.Candidates).Data())
			}
			fmt.Println(viz.RenderSample(s, pick, styles))
		}
		return nil
	},
}

func argmaxFloat32(values []float32) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func init() {
	f := demoCmd.Flags()
	f.IntVarP(&demoFlags.count, "count", "n", 3, "number of tasks to render")
	f.StringVar(&demoFlags.checkpoint, "checkpoint", "", "score tasks with this trained checkpoint")
	f.StringVar(&trainFlags.dataDir, "data", "", "directory holding the MNIST IDX files")
	f.IntVar(&trainFlags.synthetic, "synthetic", 0, "use a synthetic dataset with this many samples")
	f.StringVar(&trainFlags.scorer, "scorer", "", `scorer: "additive" or "dot"`)
	f.IntVar(&trainFlags.hidden, "hidden", 0, "scorer hidden width")
	f.IntVar(&trainFlags.candidates, "candidates", 0, "candidates per task")
	f.Int64Var(&trainFlags.seed, "seed", 0, "sampling seed")

	rootCmd.AddCommand(demoCmd)
}
