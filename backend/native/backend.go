package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/lib2d/backend"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/wgpu/hal"
)

func init() {
	backend.Register(backend.BackendNative, func() gpucore.Backend {
		api, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil
		}
		return NewWithAPI(api)
	})
}

// API is the part of a HAL backend the native backend uses.
type API interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Backend enumerates the adapters of one HAL instance.
type Backend struct {
	api API

	once     sync.Once
	instance hal.Instance
	adapters []gpucore.Adapter
	err      error
}

var _ gpucore.Backend = (*Backend)(nil)

// NewWithAPI returns a backend over api. The HAL instance is created on the
// first call to Adapters.
func NewWithAPI(api API) *Backend {
	return &Backend{api: api}
}

// Name returns "native".
func (b *Backend) Name() string { return backend.BackendNative }

// Adapters returns the adapters the HAL instance exposes.
func (b *Backend) Adapters() ([]gpucore.Adapter, error) {
	b.once.Do(func() {
		instance, err := b.api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			b.err = fmt.Errorf("native: create instance: %w", err)
			return
		}
		b.instance = instance
		exposed := instance.EnumerateAdapters(nil)
		for i := range exposed {
			a := &Adapter{exposed: exposed[i], info: adapterInfo(&exposed[i])}
			logging.L().Debug("native: adapter", "name", a.info.Name, "type", a.info.Type)
			b.adapters = append(b.adapters, a)
		}
	})
	if b.err != nil {
		return nil, b.err
	}
	return append([]gpucore.Adapter(nil), b.adapters...), nil
}

// Destroy releases the HAL instance. Devices opened from its adapters must
// already be destroyed.
func (b *Backend) Destroy() {
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}

// Adapter is a HAL adapter.
type Adapter struct {
	exposed hal.ExposedAdapter
	info    gpucore.AdapterInfo
}

var _ gpucore.Adapter = (*Adapter)(nil)

func adapterInfo(a *hal.ExposedAdapter) gpucore.AdapterInfo {
	var typ gpucore.DeviceType
	switch a.Info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		typ = gpucore.DeviceTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		typ = gpucore.DeviceTypeIntegrated
	default:
		typ = gpucore.DeviceTypeSoftware
	}
	return gpucore.AdapterInfo{
		Name:         a.Info.Name,
		Type:         typ,
		FeatureLevel: gpucore.FeatureLevel12_0,
	}
}

// Info describes the adapter. MemoryBytes is zero: the HAL does not report a
// local memory budget.
func (a *Adapter) Info() gpucore.AdapterInfo { return a.info }

// ReserveMemory always succeeds. The budget is enforced by the resource
// layer's allocation tracking instead.
func (a *Adapter) ReserveMemory(uint64) error { return nil }

// Open opens a HAL device with default limits.
func (a *Adapter) Open() (gpucore.Device, error) {
	open, err := a.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("native: open %s: %w", a.info.Name, err)
	}
	return newDevice(a.info, open.Device, open.Queue), nil
}
