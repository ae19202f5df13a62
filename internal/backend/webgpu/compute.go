//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/loom-ml/loom/internal/tensor"
)

const (
	storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
)

// compileShader returns the cached ShaderModule for name, compiling src
// on first use.
func (b *Backend) compileShader(name, src string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, ok := b.shaders[name]; ok {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(src)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// pipeline returns the cached compute pipeline for name, building it
// from src on first use.
func (b *Backend) pipeline(name, src string) *wgpu.ComputePipeline {
	b.mu.RLock()
	if p, ok := b.pipelines[name]; ok {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	shader := b.compileShader(name, src)
	p := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = p
	b.mu.Unlock()
	return p
}

// uploadBuffer creates a storage buffer pre-filled with data. Upload
// goes through MappedAtCreation, so these buffers are single-use and
// bypass the pool.
func (b *Backend) uploadBuffer(data []byte) *wgpu.Buffer {
	size := roundSize(uint64(len(data)))
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            storageUsage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buf.Unmap()
	return buf
}

// uniformBuffer creates a 16-byte-aligned uniform buffer holding data.
// Uniforms are tiny and short-lived, so they bypass the pool.
func (b *Backend) uniformBuffer(data []byte) *wgpu.Buffer {
	size := (uint64(len(data)) + 15) &^ 15

	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buf.Unmap()
	return buf
}

// readBuffer copies size bytes out of src through a pooled staging buffer.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.pool.Acquire(size, stagingUsage)
	defer b.pool.Put(staging, size, stagingUsage)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmd := encoder.Finish(nil)
	b.queue.Submit(cmd)

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("mapping staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	out := make([]byte, size)
	copy(out, mapped)
	staging.Unmap()

	return out, nil
}

// dispatch runs one compute pass: inputs bind at 0..len-1, the result
// buffer after them, the params uniform last. The result lands in a
// fresh WebGPU-tagged tensor of shape outShape.
func (b *Backend) dispatch(
	name, src string,
	inputs []*tensor.RawTensor,
	params []byte,
	outShape tensor.Shape,
	groupsX, groupsY, groupsZ uint32,
) (*tensor.RawTensor, error) {
	for _, in := range inputs {
		if in.DType() != tensor.Float32 {
			return nil, fmt.Errorf("gpu %s: only float32 runs on the GPU, got %s", name, in.DType())
		}
	}

	pipe := b.pipeline(name, src)

	entries := make([]wgpu.BindGroupEntry, 0, len(inputs)+2)
	buffers := make([]*wgpu.Buffer, 0, len(inputs))
	for i, in := range inputs {
		buf := b.uploadBuffer(in.Data())
		buffers = append(buffers, buf)
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, roundSize(uint64(in.ByteSize()))))
	}
	defer func() {
		for _, buf := range buffers {
			buf.Release()
		}
	}()

	outSize := uint64(outShape.NumElements()) * uint64(tensor.Float32.Size())
	outBuf := b.pool.Acquire(outSize, storageUsage)
	defer b.pool.Put(outBuf, outSize, storageUsage)
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)), outBuf, 0, roundSize(outSize)))

	paramsBuf := b.uniformBuffer(params)
	defer paramsBuf.Release()
	paramsSize := (uint64(len(params)) + 15) &^ 15
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)+1), paramsBuf, 0, paramsSize))

	bindGroup := b.device.CreateBindGroupSimple(pipe.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(groupsX, groupsY, groupsZ)
	pass.End()
	cmd := encoder.Finish(nil)
	b.queue.Submit(cmd)

	data, err := b.readBuffer(outBuf, outSize)
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(outShape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), data)
	return result, nil
}

// groups1D sizes a 1D dispatch over n elements.
func groups1D(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

// sizeParams encodes a single element count for the 1D shaders.
func sizeParams(n int) []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(n))
	return p
}

// scaleOffsetParams encodes scale-offset shader params.
func scaleOffsetParams(n int, scale, offset float32) []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(n))
	binary.LittleEndian.PutUint32(p[4:8], math.Float32bits(scale))
	binary.LittleEndian.PutUint32(p[8:12], math.Float32bits(offset))
	return p
}

// matmulTile is the square workgroup edge for the matmul shaders.
const matmulTile = 16

// groups2D sizes one axis of a tiled 2D dispatch over n elements.
func groups2D(n int) uint32 {
	return uint32((n + matmulTile - 1) / matmulTile)
}

// dimsParams packs dimensions as consecutive u32 values, 16-byte padded.
func dimsParams(dims ...int) []byte {
	size := (len(dims)*4 + 15) &^ 15
	p := make([]byte, size)
	for i, d := range dims {
		binary.LittleEndian.PutUint32(p[i*4:i*4+4], uint32(d))
	}
	return p
}

func dims2Params(a, b int) []byte       { return dimsParams(a, b) }
func dims3Params(a, b, c int) []byte    { return dimsParams(a, b, c) }
func dims4Params(a, b, c, d int) []byte { return dimsParams(a, b, c, d) }
