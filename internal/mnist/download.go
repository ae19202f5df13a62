package mnist

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultBaseURL serves the four gzipped IDX files.
const DefaultBaseURL = "https://storage.googleapis.com/cvdf-datasets/mnist"

var datasetFiles = []string{
	TrainImagesFile,
	TrainLabelsFile,
	TestImagesFile,
	TestLabelsFile,
}

// Download fetches the MNIST dataset files into dir from the default
// mirror. Files already present are left untouched.
func Download(ctx context.Context, dir string) error {
	return DownloadFrom(ctx, DefaultBaseURL, dir)
}

// DownloadFrom fetches the dataset files from baseURL, which must serve
// "<name>.gz" for each of the four IDX file names. Downloads are
// decompressed on the fly and written atomically, so an interrupted fetch
// never leaves a partial dataset file behind.
func DownloadFrom(ctx context.Context, baseURL, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	for _, name := range datasetFiles {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := fetchFile(ctx, baseURL+"/"+name+".gz", dest); err != nil {
			return fmt.Errorf("downloading %s: %w", name, err)
		}
	}

	return nil
}

func fetchFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, gz); err != nil {
		tmp.Close()
		return fmt.Errorf("writing download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}
