//go:build windows

package commands

import (
	"context"
	"fmt"

	"github.com/loom-ml/loom/internal/backend/webgpu"
	"github.com/loom-ml/loom/internal/config"
)

// runTrainingGPU runs the training loop on the WebGPU backend.
func runTrainingGPU(ctx context.Context, cfg *config.Config) error {
	backend, err := webgpu.New()
	if err != nil {
		return fmt.Errorf("initializing WebGPU: %w", err)
	}
	defer backend.Release()

	return runTraining(ctx, backend, cfg)
}

func gpuStatus() string {
	if webgpu.IsAvailable() {
		return "available"
	}
	return "no adapter found"
}
