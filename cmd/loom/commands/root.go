// Package commands implements the loom CLI commands.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/config"
)

var (
	// Global flags.
	verbose    bool
	configPath string

	// Global configuration, loaded at init time.
	globalConfig *config.Config

	// configLoadErr stores the error from config loading for deferred
	// reporting, so commands that never touch the config still work.
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Train and evaluate pointer-selection models on MNIST",
	Long: `loom - attention-based pointer selection on MNIST digit pairs.

A pointer task presents one query digit and a row of candidate digits;
the model must point at the candidate whose class is the query's
successor, (query class + 1) mod 10. loom trains small attention scorers
on these tasks, checkpoints them and evaluates them.

Configuration layers lowest-precedence first: built-in defaults, then
the YAML config file, then command-line flags.

Examples:
  # Learn the tensor semantics first
  loom tour

  # Smoke-train on synthetic digits, no download needed
  loom train --synthetic 2000 --epochs 3

  # Full run on the real dataset with checkpoints and an HTML report
  loom train --data ./data --checkpoint-dir ./ckpt --report run.html

  # Evaluate the best checkpoint
  loom eval --checkpoint ./ckpt/epoch-003.loom --synthetic 2000

  # Look at a few tasks
  loom demo --synthetic 500 -n 3`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: the per-user config dir)")
}

func initConfig() {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			configLoadErr = err
			return
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// getConfig returns the layered configuration, or the load error when
// the file was present but unreadable.
func getConfig() (*config.Config, error) {
	if globalConfig == nil {
		return nil, configLoadErr
	}
	return globalConfig, nil
}
