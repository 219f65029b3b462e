package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/wgpu/hal"
)

// ErrForeignObject is returned when an object from another backend is used.
var ErrForeignObject = errors.New("native: object was not created by this backend")

// descriptorStride spaces handles of every heap kind.
const descriptorStride = 32

// Device wraps an open HAL device and its queue.
type Device struct {
	info  gpucore.AdapterInfo
	dev   hal.Device
	queue hal.Queue

	// submitMu orders submissions from every gpucore queue on the shared
	// HAL queue.
	submitMu  sync.Mutex
	destroyed bool
}

var _ gpucore.Device = (*Device)(nil)
var _ gpucore.TextureReader = (*Device)(nil)

func newDevice(info gpucore.AdapterInfo, dev hal.Device, queue hal.Queue) *Device {
	return &Device{info: info, dev: dev, queue: queue}
}

// Info describes the adapter the device was opened on.
func (d *Device) Info() gpucore.AdapterInfo { return d.info }

// HalDevice returns the underlying HAL device.
func (d *Device) HalDevice() hal.Device { return d.dev }

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// DescriptorStride returns the handle increment of kind.
func (d *Device) DescriptorStride(gpucore.HeapKind) uint32 { return descriptorStride }

func (d *Device) submit(bufs []hal.CommandBuffer, fence hal.Fence, value uint64) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	return d.queue.Submit(bufs, fence, value)
}

// CreateQueue returns a view of the shared HAL queue.
func (d *Device) CreateQueue(kind gpucore.QueueKind) (gpucore.Queue, error) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	if d.destroyed {
		return nil, gpucore.ErrDeviceLost
	}
	return &Queue{device: d, kind: kind}, nil
}

// CreateFence creates a HAL fence ordered on q.
func (d *Device) CreateFence(q gpucore.Queue, initial uint64) (gpucore.Fence, error) {
	nq, ok := q.(*Queue)
	if !ok || nq.device != d {
		return nil, ErrForeignObject
	}
	f, err := d.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	return &Fence{device: d, fence: f, completed: initial, signaled: initial}, nil
}

// CreateCommandAllocator creates an allocator that frees the command buffers
// of its lists on Reset.
func (d *Device) CreateCommandAllocator(kind gpucore.QueueKind) (gpucore.CommandAllocator, error) {
	return &CommandAllocator{device: d, kind: kind}, nil
}

// CreateCommandList creates a closed list.
func (d *Device) CreateCommandList(kind gpucore.QueueKind, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return nil, ErrForeignObject
	}
	if a.kind != kind {
		return nil, fmt.Errorf("native: %s list with %s allocator: %w", kind, a.kind, gpucore.ErrWrongQueue)
	}
	return &CommandList{device: d, kind: kind, alloc: a, closed: true}, nil
}

// Destroy releases the HAL device. Later submissions fail with
// gpucore.ErrDeviceLost.
func (d *Device) Destroy() {
	d.submitMu.Lock()
	if d.destroyed {
		d.submitMu.Unlock()
		return
	}
	d.destroyed = true
	d.submitMu.Unlock()
	d.dev.Destroy()
	logging.L().Debug("native: device destroyed", "adapter", d.info.Name)
}
