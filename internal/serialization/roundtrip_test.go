package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loom-ml/loom/internal/tensor"
	"github.com/loom-ml/loom/internal/version"
)

// newFloat32Raw creates a float32 RawTensor filled with values.
func newFloat32Raw(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

// writeTestFile writes a small state dict to path and returns it.
func writeTestFile(t *testing.T, path string) map[string]*tensor.RawTensor {
	t.Helper()

	weight := newFloat32Raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := newFloat32Raw(t, tensor.Shape{1, 3}, []float32{0.1, 0.2, 0.3})
	stateDict := map[string]*tensor.RawTensor{
		"weight": weight,
		"bias":   bias,
	}

	writer, err := NewLoomWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.WriteStateDict(stateDict, "Linear", map[string]string{"dataset": "mnist"}); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	return stateDict
}

// TestWriteReadRoundTrip verifies a full write and read cycle.
func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.loom")
	stateDict := writeTestFile(t, path)

	reader, err := NewLoomReader(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	defer reader.Close()

	header := reader.Header()
	if header.FormatVersion != FormatVersionV2 {
		t.Errorf("Expected format version %d, got %d", FormatVersionV2, header.FormatVersion)
	}
	if header.LoomVersion != version.Version {
		t.Errorf("Expected loom version %q, got %q", version.Version, header.LoomVersion)
	}
	if header.ModelType != "Linear" {
		t.Errorf("Expected model type Linear, got %q", header.ModelType)
	}
	if header.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped by the writer")
	}
	if reader.Metadata()["dataset"] != "mnist" {
		t.Errorf("Expected metadata dataset=mnist, got %v", reader.Metadata())
	}
	if reader.Flags()&FlagHasMetadata == 0 {
		t.Error("Expected FlagHasMetadata to be set")
	}

	backend := tensor.NewMockBackend()
	loaded, err := reader.ReadStateDict(backend)
	if err != nil {
		t.Fatalf("Failed to read state dict: %v", err)
	}
	if len(loaded) != len(stateDict) {
		t.Fatalf("Expected %d tensors, got %d", len(stateDict), len(loaded))
	}

	for name, original := range stateDict {
		got, ok := loaded[name]
		if !ok {
			t.Fatalf("Tensor %q not found", name)
		}
		if !got.Shape().Equal(original.Shape()) {
			t.Errorf("Tensor %q: expected shape %v, got %v", name, original.Shape(), got.Shape())
		}
		want := original.AsFloat32()
		have := got.AsFloat32()
		for i := range want {
			if have[i] != want[i] {
				t.Errorf("Tensor %q element %d: expected %f, got %f", name, i, want[i], have[i])
			}
		}
	}
}

// TestDeterministicLayout verifies that tensors are laid out in sorted name
// order, so writing the same state dict twice yields the same offsets.
func TestDeterministicLayout(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.loom")
	pathB := filepath.Join(dir, "b.loom")

	writeTestFile(t, pathA)
	writeTestFile(t, pathB)

	readerA, err := NewLoomReader(pathA)
	if err != nil {
		t.Fatalf("Failed to open first file: %v", err)
	}
	defer readerA.Close()
	readerB, err := NewLoomReader(pathB)
	if err != nil {
		t.Fatalf("Failed to open second file: %v", err)
	}
	defer readerB.Close()

	namesA := readerA.TensorNames()
	namesB := readerB.TensorNames()
	if len(namesA) != len(namesB) {
		t.Fatalf("Tensor count mismatch: %d vs %d", len(namesA), len(namesB))
	}

	// "bias" sorts before "weight".
	if namesA[0] != "bias" || namesA[1] != "weight" {
		t.Errorf("Expected sorted layout [bias weight], got %v", namesA)
	}

	for i, name := range namesA {
		if namesB[i] != name {
			t.Errorf("Layout order differs at %d: %q vs %q", i, name, namesB[i])
		}
		metaA, err := readerA.TensorInfo(name)
		if err != nil {
			t.Fatalf("TensorInfo failed: %v", err)
		}
		metaB, err := readerB.TensorInfo(name)
		if err != nil {
			t.Fatalf("TensorInfo failed: %v", err)
		}
		if metaA.Offset != metaB.Offset || metaA.Size != metaB.Size {
			t.Errorf("Tensor %q: layout differs between writes", name)
		}
	}
}

// TestCheckpointHeaderRoundTrip verifies checkpoint metadata survives a
// write and read cycle.
func TestCheckpointHeaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.loom")

	stateDict := map[string]*tensor.RawTensor{
		"model.weight":         newFloat32Raw(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4}),
		"optimizer.velocity.0": newFloat32Raw(t, tensor.Shape{2, 2}, []float32{0.1, 0.2, 0.3, 0.4}),
	}

	header := Header{
		ModelType: "Sequential",
		Metadata:  map[string]string{"run": "test"},
		CheckpointMeta: &CheckpointMeta{
			IsCheckpoint:  true,
			Epoch:         10,
			Step:          1000,
			Loss:          0.05,
			OptimizerType: "SGD",
			OptimizerConfig: map[string]any{
				"learning_rate": 0.01,
				"momentum":      0.9,
			},
		},
	}

	writer, err := NewLoomWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.WriteStateDictWithHeader(stateDict, header); err != nil {
		t.Fatalf("Failed to write checkpoint: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewLoomReader(path)
	if err != nil {
		t.Fatalf("Failed to open checkpoint: %v", err)
	}
	defer reader.Close()

	meta := reader.Header().CheckpointMeta
	if meta == nil {
		t.Fatal("CheckpointMeta is nil")
	}
	if !meta.IsCheckpoint {
		t.Error("Expected IsCheckpoint=true")
	}
	if meta.Epoch != 10 {
		t.Errorf("Expected epoch 10, got %d", meta.Epoch)
	}
	if meta.Step != 1000 {
		t.Errorf("Expected step 1000, got %d", meta.Step)
	}
	if meta.Loss != 0.05 {
		t.Errorf("Expected loss 0.05, got %f", meta.Loss)
	}
	if meta.OptimizerType != "SGD" {
		t.Errorf("Expected optimizer SGD, got %q", meta.OptimizerType)
	}
	if reader.Flags()&FlagHasOptimizer == 0 {
		t.Error("Expected FlagHasOptimizer to be set")
	}
}

// TestCorruptionDetection verifies corrupted tensor data fails the checksum.
func TestCorruptionDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.loom")
	writeTestFile(t, path)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}

	// Flip the last byte, which is inside the tensor data section.
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	if _, err := file.WriteAt([]byte{0xFF}, info.Size()-1); err != nil {
		t.Fatalf("Failed to corrupt file: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}

	_, err = NewLoomReader(path)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}

	// Skipping validation lets a corrupted file through.
	reader, err := NewLoomReaderWithOptions(path, ReaderOptions{
		SkipChecksumValidation: true,
		ValidationLevel:        ValidationNormal,
	})
	if err != nil {
		t.Fatalf("Expected read to succeed with skipped validation, got: %v", err)
	}
	defer reader.Close()
}

// TestTruncatedFile verifies a file shorter than its declared data size is
// rejected.
func TestTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.loom")
	writeTestFile(t, path)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if err := os.Truncate(path, info.Size()-4); err != nil {
		t.Fatalf("Failed to truncate file: %v", err)
	}

	_, err = NewLoomReader(path)
	if !errors.Is(err, ErrTruncatedData) {
		t.Errorf("Expected ErrTruncatedData, got: %v", err)
	}
}

// TestInvalidMagic verifies files without the magic prefix are rejected.
func TestInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-model.loom")
	if err := os.WriteFile(path, []byte("NOPE definitely not a model file"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := NewLoomReader(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Expected ErrInvalidMagic, got: %v", err)
	}
}

// TestWriterRejectsInvalidNames verifies names are validated before writing.
func TestWriterRejectsInvalidNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-name.loom")

	stateDict := map[string]*tensor.RawTensor{
		"layer/0/weight": newFloat32Raw(t, tensor.Shape{2}, []float32{1, 2}),
	}

	writer, err := NewLoomWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if err := writer.WriteStateDict(stateDict, "Test", nil); err == nil {
		t.Error("Expected error for tensor name with path separator")
	}
}

// TestWriterClosed verifies writes after Close fail.
func TestWriterClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.loom")

	writer, err := NewLoomWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got: %v", err)
	}

	if err := writer.WriteStateDict(map[string]*tensor.RawTensor{}, "Test", nil); err == nil {
		t.Error("Expected error writing to closed writer")
	}
}

// TestWriteToReadFrom verifies the in-memory round trip through io
// interfaces.
func TestWriteToReadFrom(t *testing.T) {
	stateDict := map[string]*tensor.RawTensor{
		"weight": newFloat32Raw(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4}),
	}

	var buf bytes.Buffer
	if err := WriteTo(&buf, stateDict, "Linear", nil); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	backend := tensor.NewMockBackend()
	loaded, header, err := ReadFrom(bytes.NewReader(buf.Bytes()), backend)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if header.ModelType != "Linear" {
		t.Errorf("Expected model type Linear, got %q", header.ModelType)
	}

	got, ok := loaded["weight"]
	if !ok {
		t.Fatal("Tensor 'weight' not found")
	}
	want := []float32{1, 2, 3, 4}
	for i, v := range got.AsFloat32() {
		if v != want[i] {
			t.Errorf("Element %d: expected %f, got %f", i, want[i], v)
		}
	}

	// A flipped data byte must fail the checksum.
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF
	_, _, err = ReadFrom(bytes.NewReader(raw), backend)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}
}

// buildV1File writes a v1 format file by hand, the way earlier releases
// laid it out, so the compatibility path stays covered.
func buildV1File(t *testing.T, path string, values []float32) {
	t.Helper()

	header := Header{
		FormatVersion: FormatVersion,
		LoomVersion:   "0.0.9",
		ModelType:     "Linear",
		CreatedAt:     time.Now().UTC(),
		Tensors: []TensorMeta{
			{Name: "weight", DType: DTypeFloat32, Shape: []int{2, 2}, Offset: 0, Size: 16},
		},
		Metadata: map[string]string{},
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("Failed to marshal header: %v", err)
	}

	var buf bytes.Buffer
	preamble := make([]byte, 20)
	copy(preamble[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(preamble[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(preamble[8:12], 0)
	binary.LittleEndian.PutUint64(preamble[12:20], uint64(len(headerJSON)))
	buf.Write(preamble)
	buf.Write(headerJSON)

	pos := int64(len(preamble) + len(headerJSON))
	if padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment; padding > 0 {
		buf.Write(make([]byte, padding))
	}

	raw := newFloat32Raw(t, tensor.Shape{2, 2}, values)
	buf.Write(raw.Data()[:raw.ByteSize()])

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to write v1 file: %v", err)
	}
}

// TestV1Compatibility verifies files from earlier releases still load.
func TestV1Compatibility(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.loom")
	values := []float32{1.5, 2.5, 3.5, 4.5}
	buildV1File(t, path, values)

	reader, err := NewLoomReader(path)
	if err != nil {
		t.Fatalf("Failed to open v1 file: %v", err)
	}
	defer reader.Close()

	if reader.Header().FormatVersion != FormatVersion {
		t.Errorf("Expected format version %d, got %d", FormatVersion, reader.Header().FormatVersion)
	}

	backend := tensor.NewMockBackend()
	loaded, err := reader.ReadStateDict(backend)
	if err != nil {
		t.Fatalf("Failed to read v1 state dict: %v", err)
	}

	got, ok := loaded["weight"]
	if !ok {
		t.Fatal("Tensor 'weight' not found")
	}
	for i, v := range got.AsFloat32() {
		if v != values[i] {
			t.Errorf("Element %d: expected %f, got %f", i, values[i], v)
		}
	}
}

// BenchmarkChecksumOverhead measures checksum cost at realistic file sizes.
func BenchmarkChecksumOverhead(b *testing.B) {
	sizes := []int{
		1024 * 1024,      // 1 MB
		10 * 1024 * 1024, // 10 MB
	}

	for _, size := range sizes {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i % 256)
		}

		b.Run(fmt.Sprintf("%dMB", size/(1024*1024)), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ComputeChecksum(data)
			}
		})
	}
}
