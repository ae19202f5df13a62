//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooledPerClass caps how many idle buffers a size class retains.
// Batches in a training run share a handful of shapes, so a short
// free list per class covers the steady state.
const maxPooledPerClass = 16

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// bufferPool recycles GPU buffers between dispatches. Every op in a
// training step allocates the same staging and storage sizes over and
// over; reusing them keeps the allocator out of the hot loop.
type bufferPool struct {
	device *wgpu.Device

	mu   sync.Mutex
	free map[uint64][]*pooledBuffer // keyed by rounded-up byte size

	hits   uint64
	misses uint64
}

func newBufferPool(device *wgpu.Device) *bufferPool {
	return &bufferPool{
		device: device,
		free:   make(map[uint64][]*pooledBuffer),
	}
}

// roundSize buckets sizes to 256-byte multiples, the WebGPU buffer
// alignment, so near-miss sizes share one class.
func roundSize(size uint64) uint64 {
	return (size + 255) &^ 255
}

// Acquire returns a buffer of at least size bytes with the given usage,
// recycled when possible.
func (p *bufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	class := roundSize(size)

	p.mu.Lock()
	list := p.free[class]
	for i, pb := range list {
		if pb.usage&usage == usage {
			p.free[class] = append(list[:i], list[i+1:]...)
			p.hits++
			p.mu.Unlock()
			return pb.buffer
		}
	}
	p.misses++
	p.mu.Unlock()

	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  class,
	})
}

// Put returns a buffer to the pool, releasing it when the class is full.
func (p *bufferPool) Put(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	class := roundSize(size)

	p.mu.Lock()
	if len(p.free[class]) < maxPooledPerClass {
		p.free[class] = append(p.free[class], &pooledBuffer{
			buffer: buffer,
			size:   class,
			usage:  usage,
		})
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	buffer.Release()
}

// Stats reports pool hit and miss counts since creation.
func (p *bufferPool) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

// Clear releases every pooled buffer.
func (p *bufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for class, list := range p.free {
		for _, pb := range list {
			pb.buffer.Release()
		}
		delete(p.free, class)
	}
}
