// Package main is the entry point for the loom CLI.
//
// Usage:
//
//	loom [flags] <command> [args]
//
// Commands:
//
//	tour       - Walk through tensor semantics in the terminal
//	data       - Download or inspect the MNIST dataset files
//	train      - Train a pointer-selection scorer on MNIST digit pairs
//	eval       - Evaluate a checkpoint on freshly sampled tasks
//	demo       - Render sampled tasks in the terminal
//	export     - Export checkpoint weights as SafeTensors
//	import     - Build a checkpoint from SafeTensors weights
//	config     - Show or write the run configuration
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/loom-ml/loom/cmd/loom/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
