// Copyright 2025 The Loom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mnist provides the public API for MNIST dataset access:
// loading the IDX files, downloading them from a public mirror, and a
// synthetic stand-in dataset for tests and offline runs.
package mnist

import (
	"context"

	"github.com/loom-ml/loom/internal/mnist"
)

// Image dimensions and class count.
const (
	ImageRows  = mnist.ImageRows
	ImageCols  = mnist.ImageCols
	ImageSize  = mnist.ImageSize
	NumClasses = mnist.NumClasses
)

// Dataset holds MNIST images and labels. Images are flattened
// 784-element float32 vectors normalized to [0, 1].
type Dataset = mnist.Dataset

// Load reads one dataset split from dir: the 60k training files when
// train is true, the 10k test files otherwise. maxSamples limits how
// many samples are kept; 0 keeps all.
func Load(dir string, train bool, maxSamples int) (*Dataset, error) {
	return mnist.Load(dir, train, maxSamples)
}

// Download fetches the four MNIST files into dir from the default
// mirror, skipping files already present.
func Download(ctx context.Context, dir string) error {
	return mnist.Download(ctx, dir)
}

// DownloadFrom fetches the dataset files from baseURL, which must serve
// "<name>.gz" for each of the four IDX file names.
func DownloadFrom(ctx context.Context, baseURL, dir string) error {
	return mnist.DownloadFrom(ctx, baseURL, dir)
}

// Synthetic builds a procedural n-sample dataset with the MNIST shape
// and label distribution, for tests and demos that must run without the
// real files.
func Synthetic(n int) *Dataset {
	return mnist.Synthetic(n)
}
