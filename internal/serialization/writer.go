package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/loom-ml/loom/internal/tensor"
	"github.com/loom-ml/loom/internal/version"
)

// LoomWriter writes models in .loom format.
//
// The writer always emits format v2, which carries a SHA-256 checksum of
// the tensor data. Format v1 exists only on the read path for files written
// by earlier releases.
type LoomWriter struct {
	file   *os.File
	closed bool
}

// NewLoomWriter creates a new .loom file writer.
func NewLoomWriter(path string) (*LoomWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &LoomWriter{
		file:   file,
		closed: false,
	}, nil
}

// WriteStateDict writes a state dictionary to the .loom file.
//
// The state dictionary is a map from parameter names to tensors.
func (w *LoomWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	return w.WriteStateDictWithHeader(stateDict, Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// WriteStateDictWithHeader writes a state dictionary with a custom header.
//
// This allows setting CheckpointMeta and other header fields. The writer
// stamps FormatVersion, LoomVersion, CreatedAt and the tensor layout itself,
// so callers only fill in the fields they care about.
func (w *LoomWriter) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return write(w.file, stateDict, header)
}

// Close closes the writer and the underlying file.
func (w *LoomWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo writes a state dictionary to an io.Writer in format v2.
// This is useful for writing to buffers or network connections.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	return write(writer, stateDict, Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// layoutTensors assigns data-section offsets in sorted name order, so the
// same state dict always serializes to the same byte layout. Returns the
// names in layout order, the tensor metadata, and the total data size.
func layoutTensors(stateDict map[string]*tensor.RawTensor) ([]string, []TensorMeta, int64, error) {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, 0, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var offset int64
	metas := make([]TensorMeta, 0, len(names))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())

		metas = append(metas, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})

		offset += size
	}

	return names, metas, offset, nil
}

// headerFlags derives the flag word from header contents.
func headerFlags(header *Header) uint32 {
	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}
	return flags
}

// write serializes a state dict in format v2.
//
// The checksum covers the tensor data section. It is computed in a
// streaming pass over the tensors, so no concatenated copy of the data is
// ever allocated.
func write(out io.Writer, stateDict map[string]*tensor.RawTensor, header Header) error {
	names, metas, dataSize, err := layoutTensors(stateDict)
	if err != nil {
		return err
	}

	header.FormatVersion = FormatVersionV2
	header.LoomVersion = version.Version
	header.CreatedAt = time.Now().UTC()
	header.Tensors = metas
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	readers := make([]io.Reader, len(names))
	for i, name := range names {
		raw := stateDict[name]
		readers[i] = bytes.NewReader(raw.Data()[:raw.ByteSize()])
	}
	checksum, err := ComputeChecksumReader(io.MultiReader(readers...))
	if err != nil {
		return fmt.Errorf("failed to checksum tensor data: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersionV2))
	binary.LittleEndian.PutUint32(fixed[8:12], headerFlags(&header))
	// 0x0C-0x0F reserved, left zero.
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	//nolint:gosec // G115: dataSize is non-negative by construction
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(dataSize))
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := out.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}

	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Pad so the data section starts on an alignment boundary.
	pos := int64(FixedHeaderSizeV2) + int64(len(headerJSON))
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := out.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for _, name := range names {
		raw := stateDict[name]
		if _, err := out.Write(raw.Data()[:raw.ByteSize()]); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}
