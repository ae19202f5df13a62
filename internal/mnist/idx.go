package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// IDX magic numbers for the two MNIST file kinds.
const (
	imageMagic = 2051
	labelMagic = 2049
)

// maxSampleCount bounds allocations when a header is corrupt.
const maxSampleCount = 1 << 24

// DecodeImages decodes an IDX image stream into flattened float32 vectors
// normalized to [0, 1]. The stream must describe 28x28 images.
//
// IDX image layout (all counts big-endian):
//
//	magic number: 0x00000803 (2051)
//	number of images, rows, cols: 4 bytes each
//	pixel data: unsigned bytes (0-255), row-major
func DecodeImages(r io.Reader) ([][]float32, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != imageMagic {
		return nil, fmt.Errorf("invalid image magic %d, want %d", magic, imageMagic)
	}

	var count, rows, cols uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading image count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &rows); err != nil {
		return nil, fmt.Errorf("reading row count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cols); err != nil {
		return nil, fmt.Errorf("reading column count: %w", err)
	}
	if rows != ImageRows || cols != ImageCols {
		return nil, fmt.Errorf("unexpected image dimensions %dx%d, want %dx%d", rows, cols, ImageRows, ImageCols)
	}
	if count > maxSampleCount {
		return nil, fmt.Errorf("implausible image count %d", count)
	}

	buf := make([]byte, ImageSize)
	images := make([][]float32, count)
	for i := range images {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("reading image %d: %w", i, err)
		}
		img := make([]float32, ImageSize)
		for j, p := range buf {
			img[j] = float32(p) / 255.0
		}
		images[i] = img
	}

	return images, nil
}

// DecodeLabels decodes an IDX label stream.
//
// IDX label layout:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes, big-endian
//	label data: unsigned bytes (0-9)
func DecodeLabels(r io.Reader) ([]int32, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != labelMagic {
		return nil, fmt.Errorf("invalid label magic %d, want %d", magic, labelMagic)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading label count: %w", err)
	}
	if count > maxSampleCount {
		return nil, fmt.Errorf("implausible label count %d", count)
	}

	raw := make([]byte, count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}

	labels := make([]int32, count)
	for i, b := range raw {
		if b >= NumClasses {
			return nil, fmt.Errorf("label %d out of range at index %d", b, i)
		}
		labels[i] = int32(b)
	}

	return labels, nil
}

func readImageFile(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeImages(f)
}

func readLabelFile(path string) ([]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeLabels(f)
}
