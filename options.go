package lib2d

import (
	"github.com/gogpu/lib2d/frame"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/pipeline"
)

// Defaults used by New.
const (
	// DefaultCSUCapacity is the size of the central shader resource heap.
	DefaultCSUCapacity = 1024

	// DefaultContextHeapSize is the size of each frame context's heap.
	DefaultContextHeapSize = 64

	// DefaultTextureCacheSize is the number of textures Device.Texture keeps.
	DefaultTextureCacheSize = 256

	// DefaultMinimumFeatureLevel is the lowest feature level a hardware
	// adapter may report to be selected.
	DefaultMinimumFeatureLevel = gpucore.FeatureLevel11_0
)

// Option configures a Device during creation.
//
// Example:
//
//	dev := lib2d.New(b,
//		lib2d.WithFrameCount(2),
//		lib2d.WithCSUCapacity(4096),
//	)
type Option func(*options)

type options struct {
	frameCount       int
	csuCapacity      int
	contextHeapSize  int
	shaderCache      *pipeline.ShaderCache
	textureCacheSize int
	minFeatureLevel  gpucore.FeatureLevel
	memoryBudget     uint64
}

func defaultOptions() options {
	return options{
		frameCount:       frame.DefaultFrameCount,
		csuCapacity:      DefaultCSUCapacity,
		contextHeapSize:  DefaultContextHeapSize,
		textureCacheSize: DefaultTextureCacheSize,
		minFeatureLevel:  DefaultMinimumFeatureLevel,
	}
}

// WithFrameCount sets the number of frame contexts. Values below 1 are
// ignored.
func WithFrameCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.frameCount = n
		}
	}
}

// WithCSUCapacity sets the number of slots in the central descriptor heap.
func WithCSUCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.csuCapacity = n
		}
	}
}

// WithContextHeapSize sets the number of slots in each frame context's
// shader-visible heap.
func WithContextHeapSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.contextHeapSize = n
		}
	}
}

// WithShaderCache shares a shader cache between devices. By default each
// device owns one.
func WithShaderCache(c *pipeline.ShaderCache) Option {
	return func(o *options) {
		o.shaderCache = c
	}
}

// WithTextureCacheSize bounds the texture cache. Zero means unlimited.
func WithTextureCacheSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.textureCacheSize = n
		}
	}
}

// WithMinimumFeatureLevel sets the feature level hardware adapters must
// support. Software adapters are exempt.
func WithMinimumFeatureLevel(l gpucore.FeatureLevel) Option {
	return func(o *options) {
		o.minFeatureLevel = l
	}
}

// WithMemoryBudget caps the bytes the device's buffer and texture factories
// may allocate. Zero uses the memory reservation passed to Initialize.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.memoryBudget = bytes
	}
}
