// Package config holds the YAML run configuration for the loom CLI:
// dataset, model, optimizer and loop settings with sensible defaults.
// Values load lowest-precedence first, so a file overrides defaults and
// command-line flags override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// DefaultConfigFile is the default configuration filename.
const DefaultConfigFile = "config.yaml"

// Config is the full run configuration.
type Config struct {
	Data  DataConfig  `yaml:"data"`
	Model ModelConfig `yaml:"model"`
	Optim OptimConfig `yaml:"optimizer"`
	Train TrainConfig `yaml:"training"`
}

// DataConfig selects the dataset and task shape.
type DataConfig struct {
	// Dir is the directory holding the MNIST IDX files.
	Dir string `yaml:"dir,omitempty"`

	// Synthetic switches to a procedural dataset of that many samples
	// when positive. Useful for smoke runs without a download.
	Synthetic int `yaml:"synthetic,omitempty"`

	// MaxSamples caps loaded samples per split, 0 means all.
	MaxSamples int `yaml:"max_samples,omitempty"`

	// Candidates is the number of candidates per task instance.
	Candidates int `yaml:"candidates"`

	// Seed drives sampling. The validation sampler derives its own
	// stream from Seed+1.
	Seed int64 `yaml:"seed"`
}

// ModelConfig selects and sizes the scorer.
type ModelConfig struct {
	// Scorer is "additive" or "dot".
	Scorer string `yaml:"scorer"`

	// Hidden is the scorer's projection width.
	Hidden int `yaml:"hidden"`
}

// OptimConfig selects and tunes the optimizer.
type OptimConfig struct {
	// Name is "adam" or "sgd".
	Name string `yaml:"name"`

	LR float32 `yaml:"lr"`

	// Momentum applies to SGD only.
	Momentum float32 `yaml:"momentum,omitempty"`
}

// TrainConfig sets the loop dimensions and outputs.
type TrainConfig struct {
	Epochs          int    `yaml:"epochs"`
	BatchSize       int    `yaml:"batch_size"`
	BatchesPerEpoch int    `yaml:"batches_per_epoch"`
	ValBatches      int    `yaml:"val_batches"`
	CheckpointDir   string `yaml:"checkpoint_dir,omitempty"`
	ReportPath      string `yaml:"report,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Candidates: 10,
			Seed:       42,
		},
		Model: ModelConfig{
			Scorer: "additive",
			Hidden: 128,
		},
		Optim: OptimConfig{
			Name: "adam",
			LR:   0.001,
		},
		Train: TrainConfig{
			Epochs:          5,
			BatchSize:       32,
			BatchesPerEpoch: 100,
			ValBatches:      10,
		},
	}
}

// DefaultPath returns the per-user config location,
// <user config dir>/loom/config.yaml.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, "loom", DefaultConfigFile), nil
}

// Load reads the configuration at path, layered over the defaults so a
// partial file keeps default values for everything it omits. A missing
// file is not an error and yields the defaults. An empty path resolves
// to DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks that the configuration names known components and
// keeps the loop dimensions positive.
func (c *Config) Validate() error {
	switch c.Model.Scorer {
	case "additive", "dot":
	default:
		return fmt.Errorf("unknown scorer %q (want \"additive\" or \"dot\")", c.Model.Scorer)
	}
	switch c.Optim.Name {
	case "adam", "sgd":
	default:
		return fmt.Errorf("unknown optimizer %q (want \"adam\" or \"sgd\")", c.Optim.Name)
	}
	if c.Model.Hidden < 1 {
		return fmt.Errorf("hidden size must be positive, got %d", c.Model.Hidden)
	}
	if c.Data.Candidates < 1 {
		return fmt.Errorf("candidate count must be positive, got %d", c.Data.Candidates)
	}
	if c.Train.Epochs < 1 {
		return fmt.Errorf("epochs must be positive, got %d", c.Train.Epochs)
	}
	if c.Train.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.Train.BatchSize)
	}
	return nil
}
