// Package mnist loads the MNIST handwritten digit dataset.
//
// Images are flattened 784-element float32 vectors normalized to [0, 1].
// Files on disk use the original IDX binary layout; Download fetches and
// decompresses the four dataset files from a public mirror when they are
// not already present.
package mnist

import (
	"fmt"
	"path/filepath"
)

// Image dimensions and class count.
const (
	ImageRows  = 28
	ImageCols  = 28
	ImageSize  = ImageRows * ImageCols
	NumClasses = 10
)

// Dataset file names (decompressed IDX).
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// Dataset holds MNIST images and labels.
type Dataset struct {
	Images [][]float32 // [numSamples][ImageSize], normalized to [0, 1]
	Labels []int32     // [numSamples], digit classes 0-9
}

// Load reads one dataset split from dir.
//
// With train true it reads the 60k training files, otherwise the 10k test
// files. maxSamples limits how many samples are kept; 0 keeps all.
func Load(dir string, train bool, maxSamples int) (*Dataset, error) {
	imageFile, labelFile := TestImagesFile, TestLabelsFile
	if train {
		imageFile, labelFile = TrainImagesFile, TrainLabelsFile
	}

	images, err := readImageFile(filepath.Join(dir, imageFile))
	if err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	labels, err := readLabelFile(filepath.Join(dir, labelFile))
	if err != nil {
		return nil, fmt.Errorf("loading labels: %w", err)
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("image count %d does not match label count %d", len(images), len(labels))
	}

	n := len(images)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}

	return &Dataset{Images: images[:n], Labels: labels[:n]}, nil
}

// NumSamples returns the number of samples in the dataset.
func (d *Dataset) NumSamples() int {
	return len(d.Images)
}

// Split divides the dataset into a training part and a held-out part.
// validationRatio is the fraction assigned to the held-out part. Both
// parts share the underlying sample storage.
func (d *Dataset) Split(validationRatio float32) (*Dataset, *Dataset) {
	splitIdx := int(float32(d.NumSamples()) * (1.0 - validationRatio))

	train := &Dataset{Images: d.Images[:splitIdx], Labels: d.Labels[:splitIdx]}
	held := &Dataset{Images: d.Images[splitIdx:], Labels: d.Labels[splitIdx:]}
	return train, held
}

// ClassIndex groups sample indices by digit class. Entry c lists the
// indices of every sample labeled c, in dataset order.
func (d *Dataset) ClassIndex() [][]int {
	index := make([][]int, NumClasses)
	for i, label := range d.Labels {
		index[label] = append(index[label], i)
	}
	return index
}
