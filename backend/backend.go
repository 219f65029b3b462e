package backend

import (
	"errors"

	"github.com/gogpu/lib2d/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoAdapters is returned when a backend reports no adapters.
	ErrNoAdapters = errors.New("backend: no adapters")
)

// Backend name constants.
const (
	// BackendSoftware is the pure Go GPU emulation.
	BackendSoftware = "software"

	// BackendNative is the gogpu/wgpu HAL backend.
	BackendNative = "native"
)

// Factory creates a backend instance.
type Factory func() gpucore.Backend
