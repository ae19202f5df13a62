// Package serialization provides the native .loom format for saving and
// loading Loom models and checkpoints.
//
// The writer emits format v2:
//
//	[64 bytes: fixed header]
//	  0x00  Magic "LOOM"
//	  0x04  Version (uint32 LE)
//	  0x08  Flags (uint32 LE)
//	  0x0C  Reserved
//	  0x10  Header size (uint64 LE)
//	  0x18  Data size (uint64 LE)
//	  0x20  SHA-256 checksum of the data section
//	[Header: JSON metadata]
//	[Tensor data: raw bytes, 64-byte aligned]
//
// Format v1, written by earlier releases, replaces the fixed header with a
// 20-byte preamble (magic, version, flags, header size) and carries no
// checksum. Readers accept both versions.
//
// Tensors are laid out in sorted name order, so the same state dict always
// produces the same bytes apart from the CreatedAt timestamp.
//
// Example usage:
//
//	// Save a model
//	writer, err := serialization.NewLoomWriter("model.loom")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer writer.Close()
//	if err := writer.WriteStateDict(model.StateDict(), "Sequential", nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a model
//	reader, err := serialization.NewLoomReader("model.loom")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//	stateDict, err := reader.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := model.LoadStateDict(stateDict); err != nil {
//	    log.Fatal(err)
//	}
//
// MmapReader provides zero-copy access for large files, and
// SafeTensorsWriter exports state dicts for use outside Loom.
package serialization
