package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/loom-ml/loom/internal/tensor"
)

// SafeTensors dtype strings.
const (
	SafeTensorsF16  = "F16"
	SafeTensorsF32  = "F32"
	SafeTensorsF64  = "F64"
	SafeTensorsBF16 = "BF16"
	SafeTensorsI32  = "I32"
	SafeTensorsI64  = "I64"
	SafeTensorsU8   = "U8"
)

// SafeTensorsReader reads model weights in SafeTensors format:
//
//	[8 bytes: header size, uint64 LE]
//	[header size bytes: JSON header]
//	[tensor data: raw bytes]
//
// The JSON header maps tensor names to SafeTensorHeader entries, plus an
// optional "__metadata__" key with string metadata.
type SafeTensorsReader struct {
	file       *os.File
	metadata   map[string]string
	tensors    map[string]SafeTensorHeader
	dataOffset int64
	closed     bool
}

// NewSafeTensorsReader opens a SafeTensors file and parses its header.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: header size %d exceeds maximum %d", ErrHeaderTooLarge, headerSize, MaxHeaderSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerJSON); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Tensor entries and "__metadata__" share one JSON object, so split
	// them apart before decoding the entries.
	var rawEntries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawEntries); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &SafeTensorsReader{
		file:    file,
		tensors: make(map[string]SafeTensorHeader),
		//nolint:gosec // G115: Header size already bounded by MaxHeaderSize.
		dataOffset: int64(8 + headerSize),
	}

	for name, raw := range rawEntries {
		if name == "__metadata__" {
			if err := json.Unmarshal(raw, &r.metadata); err != nil {
				_ = file.Close()
				return nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		var entry SafeTensorHeader
		if err := json.Unmarshal(raw, &entry); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to parse tensor entry %s: %w", name, err)
		}
		r.tensors[name] = entry
	}

	return r, nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Metadata returns the "__metadata__" map from the header, or nil if absent.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns the tensor names in the file in sorted order.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns the header entry for a tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorHeader, error) {
	entry, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &entry, nil
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *SafeTensorsReader) ReadTensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	entry, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	start, end := entry.DataOffsets[0], entry.DataOffsets[1]
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]", name, start, end)
	}

	data := make([]byte, end-start)
	if _, err := r.file.ReadAt(data, r.dataOffset+start); err != nil {
		return nil, fmt.Errorf("failed to read tensor data for %s: %w", name, err)
	}

	return data, nil
}

// LoadTensor loads a tensor into a RawTensor on the backend's device.
// F16 and BF16 tensors return an error since no matching DataType exists;
// use ReadTensorData and convert the bytes manually.
func (r *SafeTensorsReader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	entry, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, err := safeTensorsToDtype(entry.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := make(tensor.Shape, len(entry.Shape))
	for i, dim := range entry.Shape {
		shape[i] = int(dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}

	raw, err := tensor.NewRaw(shape, dtype, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}
	copy(raw.Data(), data)

	return raw, nil
}

// ReadStateDict loads every tensor in the file.
func (r *SafeTensorsReader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.tensors))
	for name := range r.tensors {
		raw, err := r.LoadTensor(name, backend)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", name, err)
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}

// safeTensorsToDtype converts a SafeTensors dtype string to a DataType.
func safeTensorsToDtype(dtype string) (tensor.DataType, error) {
	switch dtype {
	case SafeTensorsF32:
		return tensor.Float32, nil
	case SafeTensorsF64:
		return tensor.Float64, nil
	case SafeTensorsI32:
		return tensor.Int32, nil
	case SafeTensorsI64:
		return tensor.Int64, nil
	case SafeTensorsU8:
		return tensor.Uint8, nil
	case SafeTensorsF16, SafeTensorsBF16:
		return 0, fmt.Errorf("dtype %s requires conversion", dtype)
	default:
		return 0, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}
