package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/mnist"
)

var dataFlags struct {
	dir    string
	mirror string
}

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the MNIST dataset files",
}

var dataDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch the MNIST IDX files",
	Long: `Download the four MNIST IDX files into the data directory.

Files already present are kept, so rerunning after an interrupted
download only fetches what is missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		fmt.Printf("Downloading MNIST into %s\n", dir)
		if err := mnist.DownloadFrom(cmd.Context(), dataFlags.mirror, dir); err != nil {
			return err
		}
		fmt.Println("Done.")
		return nil
	},
}

var dataInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show dataset sizes and class counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		for _, split := range []struct {
			name  string
			train bool
		}{{"train", true}, {"test", false}} {
			data, err := mnist.Load(dir, split.train, 0)
			if err != nil {
				return fmt.Errorf("loading %s split: %w (run \"loom data download\" first)", split.name, err)
			}
			fmt.Printf("%s: %d samples\n", split.name, data.NumSamples())
			for class, indices := range data.ClassIndex() {
				fmt.Printf("  digit %d: %6d\n", class, len(indices))
			}
		}
		return nil
	},
}

// dataDir resolves the data directory: flag, then config, then default.
func dataDir() (string, error) {
	if dataFlags.dir != "" {
		return dataFlags.dir, nil
	}
	cfg, err := getConfig()
	if err != nil {
		return "", err
	}
	if cfg.Data.Dir != "" {
		return cfg.Data.Dir, nil
	}
	return defaultDataDir, nil
}

func init() {
	dataCmd.PersistentFlags().StringVar(&dataFlags.dir, "data", "", "directory holding the MNIST IDX files")
	dataDownloadCmd.Flags().StringVar(&dataFlags.mirror, "mirror", mnist.DefaultBaseURL, "base URL serving the gzipped IDX files")

	dataCmd.AddCommand(dataDownloadCmd)
	dataCmd.AddCommand(dataInfoCmd)
	rootCmd.AddCommand(dataCmd)
}
