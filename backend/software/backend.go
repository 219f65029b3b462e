package software

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/lib2d/backend"
	"github.com/gogpu/lib2d/gpucore"
)

// DefaultMemory is the local memory a default adapter reports.
const DefaultMemory = 2 << 30

func init() {
	backend.Register(backend.BackendSoftware, func() gpucore.Backend {
		return New()
	})
}

// AdapterConfig describes one emulated adapter.
type AdapterConfig struct {
	Name         string
	Type         gpucore.DeviceType
	FeatureLevel gpucore.FeatureLevel
	Memory       uint64

	// Latency delays the execution of every submission.
	Latency time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithAdapters replaces the default single software adapter.
func WithAdapters(configs ...AdapterConfig) Option {
	return func(b *Backend) {
		b.configs = append([]AdapterConfig(nil), configs...)
	}
}

// WithLatency sets the execution latency of every configured adapter.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) {
		for i := range b.configs {
			b.configs[i].Latency = d
		}
	}
}

// WithMemory sets the memory reported by every configured adapter.
func WithMemory(bytes uint64) Option {
	return func(b *Backend) {
		for i := range b.configs {
			b.configs[i].Memory = bytes
		}
	}
}

// Backend enumerates emulated adapters.
type Backend struct {
	configs []AdapterConfig
}

// New creates a backend with one software adapter at feature level 12_1
// unless options say otherwise.
func New(opts ...Option) *Backend {
	b := &Backend{
		configs: []AdapterConfig{{
			Name:         "lib2d software rasterizer",
			Type:         gpucore.DeviceTypeSoftware,
			FeatureLevel: gpucore.FeatureLevel12_1,
			Memory:       DefaultMemory,
		}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "software".
func (b *Backend) Name() string { return backend.BackendSoftware }

// Adapters returns one adapter per configuration.
func (b *Backend) Adapters() ([]gpucore.Adapter, error) {
	out := make([]gpucore.Adapter, 0, len(b.configs))
	for _, c := range b.configs {
		out = append(out, &Adapter{config: c})
	}
	return out, nil
}

// Adapter is an emulated GPU.
type Adapter struct {
	config AdapterConfig

	mu       sync.Mutex
	reserved uint64
}

// Info describes the adapter.
func (a *Adapter) Info() gpucore.AdapterInfo {
	return gpucore.AdapterInfo{
		Name:         a.config.Name,
		Type:         a.config.Type,
		FeatureLevel: a.config.FeatureLevel,
		MemoryBytes:  a.config.Memory,
	}
}

// ReserveMemory fails with gpucore.ErrInsufficientMemory when bytes exceeds
// the configured memory.
func (a *Adapter) ReserveMemory(bytes uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.config.Memory != 0 && bytes > a.config.Memory {
		return fmt.Errorf("%w: requested %d bytes, adapter has %d",
			gpucore.ErrInsufficientMemory, bytes, a.config.Memory)
	}
	a.reserved = bytes
	return nil
}

// Reserved returns the last successful reservation.
func (a *Adapter) Reserved() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reserved
}

// Open creates a device.
func (a *Adapter) Open() (gpucore.Device, error) {
	return newDevice(a.Info(), a.config.Latency), nil
}
