package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loom %s\n", version.Version)
		if verbose {
			fmt.Printf("  go:     %s\n", runtime.Version())
			fmt.Printf("  os:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  webgpu: %s\n", gpuStatus())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
