package gpucore

import (
	"context"
	"errors"
)

// Capability errors shared by all backends.
var (
	// ErrInsufficientMemory is returned by Adapter.ReserveMemory when the
	// requested budget exceeds what the adapter can provide.
	ErrInsufficientMemory = errors.New("gpucore: insufficient adapter memory")

	// ErrListClosed is returned when commands are recorded into a closed list.
	ErrListClosed = errors.New("gpucore: command list is closed")

	// ErrListOpen is returned when an open list is submitted.
	ErrListOpen = errors.New("gpucore: command list is still open")

	// ErrWrongQueue is returned when a list is submitted to a queue of an
	// incompatible kind.
	ErrWrongQueue = errors.New("gpucore: command list kind does not match queue")

	// ErrUnsupportedFormat is returned when a backend cannot represent a format.
	ErrUnsupportedFormat = errors.New("gpucore: unsupported format")

	// ErrDeviceLost is returned by operations on a destroyed device.
	ErrDeviceLost = errors.New("gpucore: device lost")
)

// Backend enumerates the adapters of one GPU API.
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "native").
	Name() string

	// Adapters returns every adapter the backend can open.
	Adapters() ([]Adapter, error)
}

// Adapter is a physical or software GPU that can be opened as a Device.
type Adapter interface {
	// Info describes the adapter.
	Info() AdapterInfo

	// ReserveMemory asks the adapter to guarantee bytes of local memory for
	// the process. Returns ErrInsufficientMemory when the request cannot be met.
	ReserveMemory(bytes uint64) error

	// Open creates a device on the adapter.
	Open() (Device, error)
}

// Device creates GPU objects.
//
// Devices are not required to be safe for concurrent use. The resource layer
// records and submits from a single goroutine.
type Device interface {
	// Info describes the adapter the device was opened on.
	Info() AdapterInfo

	// CreateQueue creates a submission queue of the given kind.
	CreateQueue(kind QueueKind) (Queue, error)

	// CreateFence creates a fence whose Signal is ordered on q.
	// The fence starts at initial.
	CreateFence(q Queue, initial uint64) (Fence, error)

	// CreateCommandAllocator creates backing storage for command lists.
	CreateCommandAllocator(kind QueueKind) (CommandAllocator, error)

	// CreateCommandList creates a list recording into alloc.
	// The list is returned closed; call Reset before recording.
	CreateCommandList(kind QueueKind, alloc CommandAllocator) (CommandList, error)

	// CreateBuffer creates a buffer.
	CreateBuffer(desc *BufferDesc) (Buffer, error)

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDesc) (Texture, error)

	// CreateView creates a view of tex. A nil tex creates a null view that
	// reads as zero.
	CreateView(tex Texture, desc *ViewDesc) (View, error)

	// CreateSampler creates a sampler.
	CreateSampler(desc *SamplerDesc) (Sampler, error)

	// CreateShaderModule creates a shader module from SPIR-V words.
	CreateShaderModule(label string, spirv []uint32) (ShaderModule, error)

	// CreatePipeline creates a graphics pipeline.
	CreatePipeline(desc *PipelineDesc) (Pipeline, error)

	// DescriptorStride returns the handle increment of a heap kind.
	DescriptorStride(kind HeapKind) uint32

	// Destroy releases the device. All objects created from it must already
	// be destroyed.
	Destroy()
}

// Queue submits closed command lists to the GPU.
type Queue interface {
	Kind() QueueKind

	// Submit hands closed lists to the GPU. Lists execute in submission order.
	// Submit does not block on GPU progress.
	Submit(lists []CommandList) error

	Destroy()
}

// Fence is a monotonically increasing GPU timeline counter.
type Fence interface {
	// Signal sets the fence to value once all work submitted to the owning
	// queue before the call has completed.
	Signal(value uint64) error

	// Completed returns the highest value the fence is known to have reached.
	// It never blocks.
	Completed() uint64

	// Wait blocks until the fence reaches value or ctx is done.
	Wait(ctx context.Context, value uint64) error

	Destroy()
}

// CommandAllocator owns the memory recorded commands live in.
// Reset must only be called after all lists recorded from the allocator have
// finished executing on the GPU.
type CommandAllocator interface {
	Kind() QueueKind
	Reset() error
	Destroy()
}

// CommandList records GPU commands.
//
// Recording methods do not return errors. A recording error is sticky and is
// reported by Close.
type CommandList interface {
	Kind() QueueKind

	// Reset reopens the list for recording into alloc.
	Reset(alloc CommandAllocator) error

	// Close ends recording. The list can then be submitted.
	Close() error

	// Closed reports whether the list is closed.
	Closed() bool

	// CopyBufferToTexture copies a buffer region laid out as layout into dst.
	CopyBufferToTexture(src Buffer, layout Footprint, dst Texture)

	// CopyBuffer copies size bytes between buffers.
	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)

	// Transition records texture state transitions.
	Transition(barriers ...Barrier)

	// ClearRenderTarget fills a render target view with color.
	ClearRenderTarget(target View, color [4]float32)

	// ClearDepth fills a depth view with depth.
	ClearDepth(target View, depth float32)

	Destroy()
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Size() uint64

	// Write copies data into an upload buffer at offset through a CPU mapping.
	Write(offset uint64, data []byte) error

	Destroy()
}

// Texture is a 2D GPU image.
type Texture interface {
	Desc() TextureDesc
	Destroy()
}

// View is a typed reference to a texture that shaders or render passes use.
type View interface {
	Kind() ViewKind
	Format() Format

	// Texture returns the viewed texture, or nil for a null view.
	Texture() Texture

	Destroy()
}

// Sampler describes how shaders filter textures.
type Sampler interface {
	Destroy()
}

// ShaderModule is compiled shader code.
type ShaderModule interface {
	Label() string
	Destroy()
}

// Pipeline is a compiled graphics pipeline state.
type Pipeline interface {
	Label() string
	Destroy()
}

// TextureReader is implemented by backends that can read texture contents
// back to the CPU. The bytes are tightly packed rows.
type TextureReader interface {
	ReadTexture(tex Texture) ([]byte, error)
}
