package software

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/lib2d/gpucore"
)

// Validation and resource errors.
var (
	// ErrAllocatorInFlight is returned by CommandAllocator.Reset while lists
	// recorded from it are still executing.
	ErrAllocatorInFlight = errors.New("software: allocator reset while its commands are executing")

	// ErrNotMappable is returned by Buffer.Write on a non-upload buffer.
	ErrNotMappable = errors.New("software: buffer is not CPU writable")

	// ErrOutOfRange is returned for reads and writes outside a resource.
	ErrOutOfRange = errors.New("software: access out of range")

	// ErrOutOfMemory is returned when an allocation exceeds adapter memory.
	ErrOutOfMemory = errors.New("software: out of device memory")

	// ErrStateMismatch is recorded when a command finds a texture in an
	// unexpected state.
	ErrStateMismatch = errors.New("software: resource state mismatch")

	// ErrForeignObject is returned when an object from another backend is used.
	ErrForeignObject = errors.New("software: object was not created by this backend")
)

// Descriptor handle increments per heap kind.
var descriptorStrides = [...]uint32{
	gpucore.HeapCSU:     32,
	gpucore.HeapSampler: 16,
	gpucore.HeapRTV:     32,
	gpucore.HeapDSV:     8,
}

// Device is an emulated GPU device.
type Device struct {
	info    gpucore.AdapterInfo
	latency time.Duration

	// mem guards the contents and states of every buffer and texture.
	mem  sync.Mutex
	used uint64

	errMu      sync.Mutex
	validation []error

	queueMu   sync.Mutex
	queues    []*Queue
	destroyed bool
}

var _ gpucore.Device = (*Device)(nil)
var _ gpucore.TextureReader = (*Device)(nil)

func newDevice(info gpucore.AdapterInfo, latency time.Duration) *Device {
	return &Device{info: info, latency: latency}
}

// Info describes the adapter the device was opened on.
func (d *Device) Info() gpucore.AdapterInfo { return d.info }

// DescriptorStride returns the handle increment of kind.
func (d *Device) DescriptorStride(kind gpucore.HeapKind) uint32 {
	if int(kind) >= len(descriptorStrides) {
		return 0
	}
	return descriptorStrides[kind]
}

// MemoryUsed returns the bytes held by live buffers and textures.
func (d *Device) MemoryUsed() uint64 {
	d.mem.Lock()
	defer d.mem.Unlock()
	return d.used
}

// ValidationErrors returns the validation failures detected during
// execution, in order.
func (d *Device) ValidationErrors() []error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return append([]error(nil), d.validation...)
}

func (d *Device) reportf(format string, args ...any) {
	d.errMu.Lock()
	d.validation = append(d.validation, fmt.Errorf(format, args...))
	d.errMu.Unlock()
}

// charge accounts for size bytes of new memory. Caller must hold d.mem.
func (d *Device) charge(size uint64) error {
	if d.info.MemoryBytes != 0 && d.used+size > d.info.MemoryBytes {
		return fmt.Errorf("%w: %d + %d > %d", ErrOutOfMemory, d.used, size, d.info.MemoryBytes)
	}
	d.used += size
	return nil
}

func (d *Device) release(size uint64) {
	d.mem.Lock()
	d.used -= size
	d.mem.Unlock()
}

// CreateQueue starts a queue goroutine.
func (d *Device) CreateQueue(kind gpucore.QueueKind) (gpucore.Queue, error) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if d.destroyed {
		return nil, gpucore.ErrDeviceLost
	}
	q := newQueue(d, kind)
	d.queues = append(d.queues, q)
	return q, nil
}

// CreateFence creates a fence signaled in order on q.
func (d *Device) CreateFence(q gpucore.Queue, initial uint64) (gpucore.Fence, error) {
	sq, ok := q.(*Queue)
	if !ok {
		return nil, ErrForeignObject
	}
	return newFence(sq, initial), nil
}

// CreateCommandAllocator creates an allocator.
func (d *Device) CreateCommandAllocator(kind gpucore.QueueKind) (gpucore.CommandAllocator, error) {
	return &CommandAllocator{kind: kind}, nil
}

// CreateCommandList creates a closed list bound to alloc.
func (d *Device) CreateCommandList(kind gpucore.QueueKind, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return nil, ErrForeignObject
	}
	if a.kind != kind {
		return nil, fmt.Errorf("software: %s list on %s allocator: %w", kind, a.kind, gpucore.ErrWrongQueue)
	}
	return &CommandList{device: d, kind: kind, alloc: a, closed: true}, nil
}

// CreateBuffer allocates a zeroed buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("software: create buffer: invalid size")
	}
	d.mem.Lock()
	defer d.mem.Unlock()
	if err := d.charge(desc.Size); err != nil {
		return nil, err
	}
	return &Buffer{device: d, desc: *desc, data: make([]byte, desc.Size)}, nil
}

// CreateTexture allocates a zeroed texture in desc.InitialState.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	if desc == nil || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("software: create texture: invalid size")
	}
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("software: create texture %q: %w: %s", desc.Label, gpucore.ErrUnsupportedFormat, desc.Format)
	}
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(bpp)
	d.mem.Lock()
	defer d.mem.Unlock()
	if err := d.charge(size); err != nil {
		return nil, err
	}
	return &Texture{device: d, desc: *desc, state: desc.InitialState, data: make([]byte, size)}, nil
}

// CreateView creates a view of tex, or a null view when tex is nil.
func (d *Device) CreateView(tex gpucore.Texture, desc *gpucore.ViewDesc) (gpucore.View, error) {
	v := &View{kind: desc.Kind, format: desc.Format}
	if tex == nil {
		return v, nil
	}
	t, ok := tex.(*Texture)
	if !ok {
		return nil, ErrForeignObject
	}
	if v.format == gpucore.FormatUnknown {
		v.format = t.desc.Format
	}
	if v.format.BytesPerPixel() != t.desc.Format.BytesPerPixel() {
		return nil, fmt.Errorf("software: view %s of %s texture: %w", v.format, t.desc.Format, gpucore.ErrUnsupportedFormat)
	}
	v.tex = t
	return v, nil
}

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.Sampler, error) {
	return &Sampler{desc: *desc}, nil
}

// CreateShaderModule stores the SPIR-V words.
func (d *Device) CreateShaderModule(label string, spirv []uint32) (gpucore.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("software: shader module %q: empty code", label)
	}
	return &ShaderModule{label: label, code: append([]uint32(nil), spirv...)}, nil
}

// CreatePipeline validates desc and returns a pipeline object.
func (d *Device) CreatePipeline(desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if desc.VertexModule == nil || desc.FragmentModule == nil {
		return nil, fmt.Errorf("software: pipeline %q: missing shader module", desc.Label)
	}
	if desc.ColorFormat.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("software: pipeline %q: %w: color %s", desc.Label, gpucore.ErrUnsupportedFormat, desc.ColorFormat)
	}
	if (desc.DepthStencil.DepthTest || desc.DepthStencil.StencilTest) && !desc.DepthFormat.IsDepth() {
		return nil, fmt.Errorf("software: pipeline %q: depth testing needs a depth format", desc.Label)
	}
	var stride uint32
	for _, a := range desc.VertexLayout {
		if end := a.Offset + a.Format.Size(); end > stride {
			stride = end
		}
	}
	if desc.VertexStride != 0 && stride > desc.VertexStride {
		return nil, fmt.Errorf("software: pipeline %q: vertex layout spans %d bytes, stride is %d", desc.Label, stride, desc.VertexStride)
	}
	return &Pipeline{desc: *desc}, nil
}

// ReadTexture returns a copy of the texture's tightly packed rows.
// Callers must wait for the work writing the texture to complete.
func (d *Device) ReadTexture(tex gpucore.Texture) ([]byte, error) {
	t, ok := tex.(*Texture)
	if !ok {
		return nil, ErrForeignObject
	}
	d.mem.Lock()
	defer d.mem.Unlock()
	return append([]byte(nil), t.data...), nil
}

// Destroy stops all queue goroutines.
func (d *Device) Destroy() {
	d.queueMu.Lock()
	queues := d.queues
	d.queues = nil
	d.destroyed = true
	d.queueMu.Unlock()
	for _, q := range queues {
		q.stop()
	}
}
