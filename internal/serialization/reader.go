package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/loom-ml/loom/internal/tensor"
)

// LoomReader reads models from .loom format. It handles both format
// versions: v2 files are checksum-validated, v1 files are accepted for
// compatibility with earlier releases.
type LoomReader struct {
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64    // Offset where tensor data starts
	dataSize   int64    // Size of the data section
	checksum   [32]byte // SHA-256 checksum (v2 only)
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of LoomReader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// NewLoomReader creates a new .loom file reader with default options (strict validation).
func NewLoomReader(path string) (*LoomReader, error) {
	return NewLoomReaderWithOptions(path, ReaderOptions{
		ValidationLevel: ValidationStrict,
	})
}

// NewLoomReaderWithOptions creates a new .loom file reader with custom options.
func NewLoomReaderWithOptions(path string, opts ReaderOptions) (*LoomReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := &LoomReader{
		file:   file,
		opts:   opts,
		closed: false,
	}

	if err := reader.parseHeader(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	available := fileInfo.Size() - reader.dataOffset

	switch reader.version {
	case FormatVersion:
		// v1 has no declared data size, so the data section is whatever
		// follows the header.
		reader.dataSize = available
	case FormatVersionV2:
		if available < reader.dataSize {
			_ = file.Close()
			return nil, fmt.Errorf("%w: declared %d bytes, file has %d", ErrTruncatedData, reader.dataSize, available)
		}
		if !opts.SkipChecksumValidation {
			if err := reader.validateChecksum(); err != nil {
				_ = file.Close()
				return nil, err
			}
		}
	}

	if err := ValidateHeader(&reader.header, reader.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return reader, nil
}

// parseHeader reads and parses the .loom file header.
func (r *LoomReader) parseHeader() error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r.file, magic); err != nil {
		return fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return ErrInvalidMagic
	}

	if err := binary.Read(r.file, binary.LittleEndian, &r.version); err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}

	switch r.version {
	case FormatVersion:
		return r.parseHeaderV1()
	case FormatVersionV2:
		return r.parseHeaderV2()
	default:
		return fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, r.version, FormatVersion, FormatVersionV2)
	}
}

// parseHeaderV1 parses the v1 layout: magic, version, flags, header size,
// JSON header, padding, tensor data.
func (r *LoomReader) parseHeaderV1() error {
	if err := binary.Read(r.file, binary.LittleEndian, &r.flags); err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(r.file, binary.LittleEndian, &headerSize); err != nil {
		return fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	// magic + version + flags + headerSize + header, then padding.
	pos := int64(4+4+4+8) + int64(headerSize)
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	r.dataOffset = pos + padding

	return nil
}

// parseHeaderV2 parses the v2 layout, which starts with a 64-byte fixed
// header carrying sizes and the checksum.
func (r *LoomReader) parseHeaderV2() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	r.flags = binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	copy(r.checksum[:], fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	//nolint:gosec // G115: dataSize fits int64 for any file the OS can hold
	r.dataSize = int64(dataSize)

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	pos := int64(FixedHeaderSizeV2) + int64(headerSize)
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	r.dataOffset = pos + padding

	return nil
}

// validateChecksum streams the data section through SHA-256 and compares
// against the stored checksum. The data is never held in memory as a whole.
func (r *LoomReader) validateChecksum() error {
	section := io.NewSectionReader(r.file, r.dataOffset, r.dataSize)
	computed, err := ComputeChecksumReader(section)
	if err != nil {
		return fmt.Errorf("failed to checksum data section: %w", err)
	}
	return ValidateChecksum(computed, r.checksum)
}

// Header returns the file header.
func (r *LoomReader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *LoomReader) Metadata() map[string]string {
	return r.header.Metadata
}

// Flags returns the format flag word.
func (r *LoomReader) Flags() uint32 {
	return r.flags
}

// TensorNames returns a list of all tensor names in the file.
func (r *LoomReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *LoomReader) TensorInfo(name string) (*TensorMeta, error) {
	for _, meta := range r.header.Tensors {
		if meta.Name == name {
			return &meta, nil
		}
	}
	return nil, fmt.Errorf("tensor %s not found", name)
}

// ReadTensorData reads the raw bytes of a named tensor.
func (r *LoomReader) ReadTensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, meta.Size)
	if _, err := r.file.ReadAt(data, r.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	return data, nil
}

// LoadTensor loads a single tensor from the file.
func (r *LoomReader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype: %s", meta.DType)
	}

	shape := tensor.Shape(meta.Shape)
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

// ReadStateDict reads all tensors into a state dictionary.
func (r *LoomReader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	stateDict := make(map[string]*tensor.RawTensor)
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name, backend)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}

	return stateDict, nil
}

// Close closes the reader and the underlying file.
func (r *LoomReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadFrom reads a v2 state dictionary from an io.Reader.
// This is useful for reading from buffers or network connections.
func ReadFrom(reader io.Reader, backend tensor.Backend) (map[string]*tensor.RawTensor, Header, error) {
	fixed := make([]byte, FixedHeaderSizeV2)
	if _, err := io.ReadFull(reader, fixed); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, Header{}, ErrInvalidMagic
	}

	version := binary.LittleEndian.Uint32(fixed[4:8])
	if version != FormatVersionV2 {
		return nil, Header{}, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersionV2)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, Header{}, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, Header{}, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, Header{}, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	pos := int64(FixedHeaderSizeV2) + int64(headerSize)
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := io.CopyN(io.Discard, reader, padding); err != nil {
			return nil, Header{}, fmt.Errorf("failed to skip padding: %w", err)
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrTruncatedData, err)
	}

	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, Header{}, err
	}
	//nolint:gosec // G115: dataSize was just read in full, so it fits int64
	if err := ValidateHeader(&header, int64(dataSize), ValidationStrict); err != nil {
		return nil, Header{}, fmt.Errorf("validation failed: %w", err)
	}

	stateDict := make(map[string]*tensor.RawTensor)
	for _, meta := range header.Tensors {
		dtype, ok := stringToDtype(meta.DType)
		if !ok {
			return nil, Header{}, fmt.Errorf("unsupported dtype: %s", meta.DType)
		}

		shape := tensor.Shape(meta.Shape)
		if err := shape.Validate(); err != nil {
			return nil, Header{}, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
		}

		raw, err := tensor.NewRaw(shape, dtype, backend.Device())
		if err != nil {
			return nil, Header{}, fmt.Errorf("failed to create tensor: %w", err)
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])

		stateDict[meta.Name] = raw
	}

	return stateDict, header, nil
}
