package nn

import (
	"github.com/loom-ml/loom/internal/serialization"
	"github.com/loom-ml/loom/internal/tensor"
)

// Save writes a module's parameters to a .loom file.
//
// Example:
//
//	model := nn.NewLinear(784, 10, backend)
//	err := nn.Save(model, "model.loom", "Linear", nil)
func Save(module Stateful, path, modelType string, metadata map[string]string) (err error) {
	writer, err := serialization.NewLoomWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return writer.WriteStateDict(module.StateDict(), modelType, metadata)
}

// Load reads a .loom file into a pre-constructed module.
//
// The module must have the same architecture the file was saved with.
// Returns the file header, which carries the model type, version and any
// saved metadata.
//
// Example:
//
//	model := nn.NewLinear(784, 10, backend)
//	header, err := nn.Load("model.loom", backend, model)
func Load[B tensor.Backend](path string, backend B, module Stateful) (serialization.Header, error) {
	reader, err := serialization.NewLoomReader(path)
	if err != nil {
		return serialization.Header{}, err
	}
	defer func() {
		_ = reader.Close()
	}()

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return serialization.Header{}, err
	}

	if err := module.LoadStateDict(stateDict); err != nil {
		return serialization.Header{}, err
	}

	return reader.Header(), nil
}
