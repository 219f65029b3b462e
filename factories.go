package lib2d

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/pipeline"
	"github.com/gogpu/lib2d/queue"
)

// CreateDescriptorHeap creates a heap with the device's handle stride for
// kind.
func (d *Device) CreateDescriptorHeap(kind gpucore.HeapKind, capacity int, shaderVisible bool) *descriptor.Heap {
	return descriptor.NewHeap(kind, capacity, shaderVisible, d.dev.DescriptorStride(kind))
}

// CreateCommandQueue creates a queue of kind. The queue is destroyed with
// the device and its fence values feed descriptor reclamation.
func (d *Device) CreateCommandQueue(kind gpucore.QueueKind, label string) (*queue.CommandQueue, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	q, err := queue.New(d.dev, kind, label)
	if err != nil {
		return nil, fmt.Errorf("lib2d: create %s queue: %w", kind, err)
	}
	d.queues = append(d.queues, q)
	return q, nil
}

// CreateCommandAllocator creates a command allocator for kind.
func (d *Device) CreateCommandAllocator(kind gpucore.QueueKind) (gpucore.CommandAllocator, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	a, err := d.dev.CreateCommandAllocator(kind)
	if err != nil {
		return nil, fmt.Errorf("lib2d: create %s allocator: %w", kind, err)
	}
	return a, nil
}

// CreateCommandList creates a closed list recording into alloc.
func (d *Device) CreateCommandList(kind gpucore.QueueKind, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	l, err := d.dev.CreateCommandList(kind, alloc)
	if err != nil {
		return nil, fmt.Errorf("lib2d: create %s list: %w", kind, err)
	}
	return l, nil
}

// CreateUploadResource creates a CPU-writable buffer of size bytes that can
// be copied from.
func (d *Device) CreateUploadResource(size uint64) (gpucore.Buffer, error) {
	return d.createBuffer(&gpucore.BufferDesc{
		Label:  "upload",
		Size:   size,
		Usage:  gpucore.BufferUsageCopySrc,
		Upload: true,
	}, nil)
}

// createBuffer charges the budget, creates the buffer and writes data into
// it when given.
func (d *Device) createBuffer(desc *gpucore.BufferDesc, data []byte) (gpucore.Buffer, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	if uint64(len(data)) > desc.Size {
		return nil, fmt.Errorf("lib2d: %s buffer: %d bytes of data for %d byte buffer", desc.Label, len(data), desc.Size)
	}
	if err := d.memory.check(desc.Size); err != nil {
		return nil, fmt.Errorf("lib2d: %s buffer: %w", desc.Label, err)
	}
	b, err := d.dev.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("lib2d: create %s buffer: %w", desc.Label, err)
	}
	if len(data) > 0 {
		if err := b.Write(0, data); err != nil {
			b.Destroy()
			return nil, fmt.Errorf("lib2d: fill %s buffer: %w", desc.Label, err)
		}
	}
	d.memory.track(b, desc.Size, false)
	return b, nil
}

// CreateTexture2DResource creates a sampled texture that can be copied into,
// starting in state.
func (d *Device) CreateTexture2DResource(format gpucore.Format, width, height uint32, state gpucore.ResourceState) (gpucore.Texture, error) {
	return d.createTexture(&gpucore.TextureDesc{
		Label:        "texture2d",
		Format:       format,
		Width:        width,
		Height:       height,
		Usage:        gpucore.TextureUsageCopyDst | gpucore.TextureUsageSampled,
		InitialState: state,
	})
}

func (d *Device) createTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Format.BytesPerPixel())
	if err := d.memory.check(size); err != nil {
		return nil, fmt.Errorf("lib2d: %s texture: %w", desc.Label, err)
	}
	t, err := d.dev.CreateTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("lib2d: create %s texture: %w", desc.Label, err)
	}
	d.memory.track(t, size, true)
	return t, nil
}

// CreateBuffer creates a buffer described by desc, charged to the memory
// budget. Destroy it with DestroyResource.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	return d.createBuffer(desc, nil)
}

// CreateTexture creates a texture described by desc, charged to the memory
// budget. Destroy it with DestroyResource.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	return d.createTexture(desc)
}

// DestroyResource destroys a buffer or texture created by the device
// factories and returns its memory to the budget.
func (d *Device) DestroyResource(res interface{ Destroy() }) {
	if res == nil {
		return
	}
	if d.memory != nil && !d.memory.untrack(res) {
		d.logger().Debug("lib2d: destroying untracked resource", slog.String("type", fmt.Sprintf("%T", res)))
	}
	res.Destroy()
}

// CopyableFootprint returns the upload buffer layout of desc and the buffer
// size it needs.
func (d *Device) CopyableFootprint(desc gpucore.TextureDesc) (gpucore.Footprint, uint64) {
	fp := gpucore.PlaceFootprint(desc.Format, desc.Width, desc.Height, 0)
	return fp, fp.TotalSize()
}

// CreateShaderResourceView creates a shader resource view of tex and writes
// it into desc's slot.
func (d *Device) CreateShaderResourceView(tex gpucore.Texture, desc *descriptor.Descriptor) (gpucore.View, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	td := tex.Desc()
	v, err := d.dev.CreateView(tex, &gpucore.ViewDesc{Label: td.Label, Kind: gpucore.ViewShaderResource, Format: td.Format})
	if err != nil {
		return nil, fmt.Errorf("lib2d: create view of %s: %w", td.Label, err)
	}
	desc.SetView(v)
	return v, nil
}

// CopyDescriptors copies count views from src into dst.
func (d *Device) CopyDescriptors(dst, src *descriptor.Heap, dstStart, srcStart, count int) {
	descriptor.CopyRange(dst, src, dstStart, srcStart, count)
}

// SetDescriptorsToNull writes the null view into count slots of heap
// starting at start.
func (d *Device) SetDescriptorsToNull(heap *descriptor.Heap, count, start int) {
	heap.SetNull(count, start, d.nullView)
}

// CreatePipelineState compiles the shaders of desc through the device's
// shader cache and creates the pipeline.
func (d *Device) CreatePipelineState(desc pipeline.Desc) (*pipeline.PSO, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.pipelines.Create(desc)
}
