//go:build !windows

package commands

import (
	"context"
	"errors"

	"github.com/loom-ml/loom/internal/config"
)

// runTrainingGPU reports that the GPU backend is unavailable. go-webgpu
// ships native libraries for Windows only.
func runTrainingGPU(_ context.Context, _ *config.Config) error {
	return errors.New("the WebGPU backend requires a windows build")
}

func gpuStatus() string {
	return "not built on this platform"
}
