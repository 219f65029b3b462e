package lib2d

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/frame"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/cache"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/lib2d/pipeline"
	"github.com/gogpu/lib2d/queue"
	"github.com/gogpu/lib2d/texture"
)

// Device errors.
var (
	// ErrNoAdapter is returned by Initialize when no adapter qualifies.
	ErrNoAdapter = errors.New("lib2d: no suitable adapter")

	// ErrMemoryReservation is returned by Initialize when the adapter cannot
	// reserve the requested memory.
	ErrMemoryReservation = errors.New("lib2d: memory reservation failed")

	// ErrNotInitialized is returned by factories before Initialize succeeds.
	ErrNotInitialized = errors.New("lib2d: device not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("lib2d: device already initialized")
)

// Fixed heap sizes.
const (
	SamplerHeapSize = 16
	RTVHeapSize     = 16
	DSVHeapSize     = 1
)

// Result is the outcome of Initialize.
type Result int

// Initialize results.
const (
	ResultSuccess Result = iota
	ResultFalse
	ResultMemoryReservationFailed
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultFalse:
		return "False"
	case ResultMemoryReservationFailed:
		return "MemoryReservationFailed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Device owns a GPU device and the shared state every renderer draws from:
// the frame contexts, the descriptor heaps, the upload queue and the texture
// and shader caches.
//
// Device is driven from one goroutine.
type Device struct {
	id      uuid.UUID
	backend gpucore.Backend
	opts    options

	adapter  gpucore.Adapter
	info     gpucore.AdapterInfo
	software bool
	dev      gpucore.Device
	memory   *memoryTracker

	frames      *frame.Ring
	csu         *descriptor.Pool
	samplerHeap *descriptor.Heap
	rtvHeap     *descriptor.Heap
	dsvHeap     *descriptor.Heap
	nullHeap    *descriptor.Heap
	nullView    gpucore.View

	upload *queue.CommandQueue
	queues []*queue.CommandQueue

	pipelines *pipeline.Factory
	textures  *cache.Cache[string, *texture.Texture]
	misses    map[string]error
}

// New returns an uninitialized device on b.
func New(b gpucore.Backend, opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{id: uuid.New(), backend: b, opts: o}
}

// ID returns the identifier attached to the device's log records.
func (d *Device) ID() uuid.UUID { return d.id }

func (d *Device) logger() *slog.Logger {
	return logging.L().With(slog.String("device", d.id.String()))
}

// Initialize selects an adapter, reserves memoryReservation bytes of local
// memory on it and creates the device's shared state.
//
// Hardware adapters are preferred, discrete before integrated, as long as
// they meet the minimum feature level. Otherwise the first software adapter
// is used. A reservation the adapter cannot satisfy yields
// ResultMemoryReservationFailed; every other failure yields ResultFalse.
func (d *Device) Initialize(memoryReservation uint64) (Result, error) {
	if d.dev != nil {
		return ResultFalse, ErrAlreadyInitialized
	}
	adapters, err := d.backend.Adapters()
	if err != nil {
		return ResultFalse, fmt.Errorf("lib2d: enumerate %s adapters: %w", d.backend.Name(), err)
	}
	adapter, software := selectAdapter(adapters, d.opts.minFeatureLevel)
	if adapter == nil {
		return ResultFalse, fmt.Errorf("%w: %d %s adapters, minimum feature level %s",
			ErrNoAdapter, len(adapters), d.backend.Name(), d.opts.minFeatureLevel)
	}
	info := adapter.Info()
	log := d.logger()
	if software {
		log.Warn("lib2d: no hardware adapter, using software", slog.String("adapter", info.Name))
	}

	if memoryReservation > 0 {
		if err := adapter.ReserveMemory(memoryReservation); err != nil {
			if errors.Is(err, gpucore.ErrInsufficientMemory) {
				return ResultMemoryReservationFailed, fmt.Errorf("%w: %w", ErrMemoryReservation, err)
			}
			return ResultFalse, fmt.Errorf("lib2d: reserve memory: %w", err)
		}
	}

	dev, err := adapter.Open()
	if err != nil {
		return ResultFalse, fmt.Errorf("lib2d: open %s: %w", info.Name, err)
	}
	d.adapter = adapter
	d.info = info
	d.software = software
	d.dev = dev

	budget := d.opts.memoryBudget
	if budget == 0 {
		budget = memoryReservation
	}
	d.memory = newMemoryTracker(budget)

	if err := d.setup(); err != nil {
		d.Destroy()
		return ResultFalse, err
	}
	log.Info("lib2d: device initialized",
		slog.String("adapter", info.Name),
		slog.String("type", info.Type.String()),
		slog.String("feature_level", info.FeatureLevel.String()),
		slog.Uint64("reserved", memoryReservation),
		slog.Int("frames", d.frames.Len()))
	return ResultSuccess, nil
}

// selectAdapter returns the preferred adapter and whether it is a software
// fallback.
func selectAdapter(adapters []gpucore.Adapter, minLevel gpucore.FeatureLevel) (gpucore.Adapter, bool) {
	for _, t := range []gpucore.DeviceType{gpucore.DeviceTypeDiscrete, gpucore.DeviceTypeIntegrated, gpucore.DeviceTypeOther} {
		for _, a := range adapters {
			info := a.Info()
			if info.Type == t && info.FeatureLevel >= minLevel {
				return a, false
			}
		}
	}
	for _, a := range adapters {
		if a.Info().Type == gpucore.DeviceTypeSoftware {
			return a, true
		}
	}
	return nil, false
}

func (d *Device) setup() error {
	d.csu = descriptor.NewPool(d.CreateDescriptorHeap(gpucore.HeapCSU, d.opts.csuCapacity, true))
	d.samplerHeap = d.CreateDescriptorHeap(gpucore.HeapSampler, SamplerHeapSize, true)
	d.rtvHeap = d.CreateDescriptorHeap(gpucore.HeapRTV, RTVHeapSize, false)
	d.dsvHeap = d.CreateDescriptorHeap(gpucore.HeapDSV, DSVHeapSize, false)
	d.nullHeap = d.CreateDescriptorHeap(gpucore.HeapCSU, 1, false)

	null, err := d.dev.CreateView(nil, &gpucore.ViewDesc{
		Label:  "null srv",
		Kind:   gpucore.ViewShaderResource,
		Format: gpucore.FormatRGBA8Unorm,
	})
	if err != nil {
		return fmt.Errorf("lib2d: create null view: %w", err)
	}
	d.nullView = null
	d.nullHeap.Set(0, null)

	contexts := make([]*frame.Context, 0, d.opts.frameCount)
	for i := range d.opts.frameCount {
		c, err := frame.NewContext(d.dev, gpucore.QueueDirect, d.opts.contextHeapSize, fmt.Sprintf("frame %d", i))
		if err != nil {
			for _, c := range contexts {
				c.Destroy()
			}
			return err
		}
		contexts = append(contexts, c)
	}
	d.frames = frame.NewRing(contexts, d.csu)

	d.upload, err = d.CreateCommandQueue(gpucore.QueueCopy, "upload")
	if err != nil {
		return err
	}

	d.pipelines = pipeline.NewFactory(d.dev, d.opts.shaderCache)
	d.textures = cache.New(d.opts.textureCacheSize, func(path string, t *texture.Texture) {
		d.logger().Debug("lib2d: texture evicted", slog.String("path", path))
		t.Release()
	})
	d.misses = make(map[string]error)
	return nil
}

func (d *Device) ready() error {
	if d.dev == nil {
		return ErrNotInitialized
	}
	return nil
}

// Initialized reports whether Initialize has succeeded and Destroy has not
// been called.
func (d *Device) Initialized() bool { return d.dev != nil }

// Info describes the selected adapter.
func (d *Device) Info() gpucore.AdapterInfo { return d.info }

// IsSoftware reports whether the device runs on a software adapter because
// no hardware adapter qualified.
func (d *Device) IsSoftware() bool { return d.software }

// IsWarp is IsSoftware.
func (d *Device) IsWarp() bool { return d.software }

// Device returns the backend device.
func (d *Device) Device() gpucore.Device { return d.dev }

// Frames returns the frame context ring.
func (d *Device) Frames() *frame.Ring { return d.frames }

// CommandContext returns frame context i.
func (d *Device) CommandContext(i int) *frame.Context { return d.frames.Context(i) }

// CSUHeap returns the central shader resource heap.
func (d *Device) CSUHeap() *descriptor.Heap { return d.csu.Heap() }

// Descriptors returns the pool over the central heap.
func (d *Device) Descriptors() *descriptor.Pool { return d.csu }

// SamplerHeap returns the shader-visible sampler heap.
func (d *Device) SamplerHeap() *descriptor.Heap { return d.samplerHeap }

// RTVHeap returns the render target view heap.
func (d *Device) RTVHeap() *descriptor.Heap { return d.rtvHeap }

// DSVHeap returns the depth stencil view heap.
func (d *Device) DSVHeap() *descriptor.Heap { return d.dsvHeap }

// NullView returns the RGBA8 shader resource view that reads as zero.
func (d *Device) NullView() gpucore.View { return d.nullView }

// NullHeap returns the one-slot heap holding NullView.
func (d *Device) NullHeap() *descriptor.Heap { return d.nullHeap }

// DescriptorStride returns the handle increment of a heap kind.
func (d *Device) DescriptorStride(kind gpucore.HeapKind) uint32 {
	return d.dev.DescriptorStride(kind)
}

// UploadQueue returns the copy queue texture uploads are submitted on.
func (d *Device) UploadQueue() *queue.CommandQueue { return d.upload }

// ShaderCache returns the cache CreatePipelineState compiles through.
func (d *Device) ShaderCache() *pipeline.ShaderCache { return d.pipelines.Cache() }

// MemoryStats reports the memory allocated through the device factories.
func (d *Device) MemoryStats() MemoryStats { return d.memory.stats() }

// AllocateDescriptor reserves a slot in the central heap. When the heap is
// exhausted but released slots are waiting for fences, the fences are polled
// once before giving up.
func (d *Device) AllocateDescriptor() (*descriptor.Descriptor, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	desc, err := d.csu.Allocate()
	if errors.Is(err, descriptor.ErrSlotExhausted) && d.csu.Pending() > 0 && d.Reclaim() > 0 {
		desc, err = d.csu.Allocate()
	}
	if err != nil {
		return nil, fmt.Errorf("lib2d: allocate descriptor: %w", err)
	}
	return desc, nil
}

// DeallocateDescriptor releases desc. It is desc.Release.
func (d *Device) DeallocateDescriptor(desc *descriptor.Descriptor) {
	if desc != nil {
		desc.Release()
	}
}

// Reclaim returns released descriptor slots whose fence values have been
// reached on any device queue. It never blocks.
func (d *Device) Reclaim() int {
	n := 0
	for _, q := range d.queues {
		q.IsFenceComplete(q.NextFenceValue() - 1)
		n += d.csu.Reclaim(q.CompletedFenceValue())
	}
	return n
}

// WaitForIdle waits until every device queue has finished its work, then
// reclaims descriptor slots.
func (d *Device) WaitForIdle(ctx context.Context) error {
	for _, q := range d.queues {
		if err := q.WaitForIdleContext(ctx); err != nil {
			return err
		}
	}
	d.Reclaim()
	return nil
}

// Destroy waits for the GPU, then releases the cached textures, the frame
// contexts, every queue created by the device and the backend device.
func (d *Device) Destroy() {
	if d.dev == nil {
		return
	}
	log := d.logger()
	if err := d.WaitForIdle(context.Background()); err != nil {
		log.Warn("lib2d: wait for idle on destroy", slog.Any("err", err))
	}
	if d.textures != nil {
		d.textures.Purge()
	}
	if d.frames != nil {
		d.frames.Destroy()
	}
	if d.nullView != nil {
		d.nullView.Destroy()
	}
	for _, q := range d.queues {
		if err := q.Destroy(); err != nil {
			log.Warn("lib2d: destroy queue", slog.String("queue", q.Label()), slog.Any("err", err))
		}
	}
	d.queues = nil
	d.upload = nil
	d.dev.Destroy()
	d.dev = nil
	log.Info("lib2d: device destroyed")
}
