package tensor

import "fmt"

// Device identifies where tensor data lives.
//
// A tensor's device is part of its identity: operations only combine tensors
// that live on the same device, and mixing devices is a hard error surfaced
// at the call site. Use Tensor.To to move data between devices.
type Device int

// Supported compute devices.
const (
	// CPU is host memory, served by the cpu backend.
	CPU Device = iota
	// WebGPU is GPU memory managed through WebGPU compute shaders.
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}
