// Package webgpu implements a GPU tensor backend on WebGPU compute
// shaders, using go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO
// bindings.
//
// The float32 hot path of the scoring model runs on the GPU: element-wise
// arithmetic, scalar arithmetic, activations, softmax and (batched) matrix
// multiplication each dispatch a cached WGSL compute pipeline. Everything
// else, shape surgery, reductions, casts and the fused cross-entropy,
// runs through the pure-Go CPU kernels and is retagged to the WebGPU
// device, so the backend always satisfies the full tensor.Backend
// contract.
//
// go-webgpu v0.1.0 ships native libraries for Windows only, so every file
// touching wgpu carries a windows build tag. On other platforms the
// package compiles to just this documentation.
package webgpu
