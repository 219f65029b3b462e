package descriptor

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/lib2d/gpucore"
)

// CPUHandle addresses a slot for CPU-side descriptor writes.
type CPUHandle uint64

// GPUHandle addresses a slot in a shader-visible heap. Zero means none.
type GPUHandle uint64

// Handle address spaces. Every heap gets a disjoint range so that handles
// from different heaps never compare equal.
var (
	nextCPUBase atomic.Uint64
	nextGPUBase atomic.Uint64
)

const (
	cpuBaseStart = 0x0000_1000_0000
	gpuBaseStart = 0x1000_0000_0000
	heapGuard    = 0x1000
)

func reserveRange(counter *atomic.Uint64, start, size uint64) uint64 {
	end := counter.Add(size + heapGuard)
	return start + end - size
}

// Heap is an array of view slots of one kind. It holds view metadata only and
// never destroys the views or textures it references.
//
// Heap is not safe for concurrent use.
type Heap struct {
	kind          gpucore.HeapKind
	shaderVisible bool
	stride        uint32
	cpuBase       uint64
	gpuBase       uint64
	views         []gpucore.View
}

// NewHeap creates a heap of capacity slots spaced stride bytes apart.
// stride is normally gpucore.Device.DescriptorStride(kind).
func NewHeap(kind gpucore.HeapKind, capacity int, shaderVisible bool, stride uint32) *Heap {
	if stride == 0 {
		stride = 1
	}
	size := uint64(capacity) * uint64(stride)
	h := &Heap{
		kind:          kind,
		shaderVisible: shaderVisible,
		stride:        stride,
		cpuBase:       reserveRange(&nextCPUBase, cpuBaseStart, size),
		views:         make([]gpucore.View, capacity),
	}
	if shaderVisible {
		h.gpuBase = reserveRange(&nextGPUBase, gpuBaseStart, size)
	}
	return h
}

func (h *Heap) Kind() gpucore.HeapKind { return h.kind }
func (h *Heap) Cap() int               { return len(h.views) }
func (h *Heap) ShaderVisible() bool    { return h.shaderVisible }
func (h *Heap) Stride() uint32         { return h.stride }

func (h *Heap) check(n int) {
	if n < 0 || n >= len(h.views) {
		panic(fmt.Sprintf("descriptor: %s heap slot %d out of range [0, %d)", h.kind, n, len(h.views)))
	}
}

// CPUHandle returns the CPU handle of slot n. It panics if n is out of range.
func (h *Heap) CPUHandle(n int) CPUHandle {
	h.check(n)
	return CPUHandle(h.cpuBase + uint64(n)*uint64(h.stride))
}

// GPUHandle returns the GPU handle of slot n, or zero if the heap is not
// shader visible. It panics if n is out of range.
func (h *Heap) GPUHandle(n int) GPUHandle {
	h.check(n)
	if !h.shaderVisible {
		return 0
	}
	return GPUHandle(h.gpuBase + uint64(n)*uint64(h.stride))
}

// Index returns the slot a CPU handle of this heap addresses.
func (h *Heap) Index(handle CPUHandle) (int, bool) {
	off := uint64(handle) - h.cpuBase
	if uint64(handle) < h.cpuBase || off%uint64(h.stride) != 0 {
		return -1, false
	}
	n := off / uint64(h.stride)
	if n >= uint64(len(h.views)) {
		return -1, false
	}
	return int(n), true
}

// Set writes view into slot n.
func (h *Heap) Set(n int, view gpucore.View) {
	h.check(n)
	h.views[n] = view
}

// View returns the view in slot n, or nil if the slot was never written.
func (h *Heap) View(n int) gpucore.View {
	h.check(n)
	return h.views[n]
}

// CopyHandle copies the view of d into slot n. The slot d owns is unchanged.
func (h *Heap) CopyHandle(n int, d *Descriptor) {
	h.Set(n, d.View())
}

// SetNull writes null into count slots starting at start.
func (h *Heap) SetNull(count, start int, null gpucore.View) {
	if count <= 0 {
		return
	}
	h.check(start)
	h.check(start + count - 1)
	for i := start; i < start+count; i++ {
		h.views[i] = null
	}
}

// CopyRange copies count views from src[srcStart:] into dst[dstStart:].
// Overlapping ranges in the same heap behave like copy.
func CopyRange(dst, src *Heap, dstStart, srcStart, count int) {
	if count <= 0 {
		return
	}
	if dst.kind != src.kind {
		panic(fmt.Sprintf("descriptor: copy from %s heap into %s heap", src.kind, dst.kind))
	}
	src.check(srcStart)
	src.check(srcStart + count - 1)
	dst.check(dstStart)
	dst.check(dstStart + count - 1)
	copy(dst.views[dstStart:dstStart+count], src.views[srcStart:srcStart+count])
}
