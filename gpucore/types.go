package gpucore

import "fmt"

// QueueKind is the class of a submission queue.
// The numeric value is also used as the tag stored in the top bits of fence
// values so that values from different queue classes never collide.
type QueueKind uint8

// Queue kinds.
const (
	// QueueDirect accepts graphics, compute and copy work.
	QueueDirect QueueKind = iota

	// QueueCompute accepts compute and copy work.
	QueueCompute

	// QueueCopy accepts copy work only.
	QueueCopy
)

// String returns the queue kind name.
func (k QueueKind) String() string {
	switch k {
	case QueueDirect:
		return "direct"
	case QueueCompute:
		return "compute"
	case QueueCopy:
		return "copy"
	default:
		return fmt.Sprintf("QueueKind(%d)", uint8(k))
	}
}

// DeviceType classifies an adapter.
type DeviceType uint8

// Device types, in order of preference.
const (
	DeviceTypeDiscrete DeviceType = iota
	DeviceTypeIntegrated
	DeviceTypeOther
	DeviceTypeSoftware
)

// String returns the device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDiscrete:
		return "discrete"
	case DeviceTypeIntegrated:
		return "integrated"
	case DeviceTypeSoftware:
		return "software"
	default:
		return "other"
	}
}

// FeatureLevel is the capability tier an adapter supports.
type FeatureLevel uint16

// Feature levels.
const (
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
)

// String returns the feature level in major_minor form.
func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", l>>12, (l>>8)&0xf)
}

// AdapterInfo describes an adapter.
type AdapterInfo struct {
	// Name is the human readable adapter name.
	Name string

	// Type is the adapter class.
	Type DeviceType

	// FeatureLevel is the highest supported capability tier.
	FeatureLevel FeatureLevel

	// MemoryBytes is the local memory available for reservation.
	// Zero means the adapter does not report a budget.
	MemoryBytes uint64
}

// Format specifies the layout of texture or index data.
type Format uint16

// Formats.
const (
	FormatUnknown Format = iota
	FormatRGBA32Float
	FormatRGBA16Float
	FormatRGBA16Unorm
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatBGRX8Unorm
	FormatRGB10XRBiasA2Unorm
	FormatRGB10A2Unorm
	FormatBGR5A1Unorm
	FormatB5G6R5Unorm
	FormatR32Float
	FormatR16Float
	FormatR16Unorm
	FormatR8Unorm
	FormatA8Unorm
	FormatD32Float
	FormatR16Uint
	FormatR32Uint

	formatCount
)

var formatNames = [formatCount]string{
	FormatUnknown:            "Unknown",
	FormatRGBA32Float:        "RGBA32Float",
	FormatRGBA16Float:        "RGBA16Float",
	FormatRGBA16Unorm:        "RGBA16Unorm",
	FormatRGBA8Unorm:         "RGBA8Unorm",
	FormatBGRA8Unorm:         "BGRA8Unorm",
	FormatBGRX8Unorm:         "BGRX8Unorm",
	FormatRGB10XRBiasA2Unorm: "RGB10XRBiasA2Unorm",
	FormatRGB10A2Unorm:       "RGB10A2Unorm",
	FormatBGR5A1Unorm:        "BGR5A1Unorm",
	FormatB5G6R5Unorm:        "B5G6R5Unorm",
	FormatR32Float:           "R32Float",
	FormatR16Float:           "R16Float",
	FormatR16Unorm:           "R16Unorm",
	FormatR8Unorm:            "R8Unorm",
	FormatA8Unorm:            "A8Unorm",
	FormatD32Float:           "D32Float",
	FormatR16Uint:            "R16Uint",
	FormatR32Uint:            "R32Uint",
}

var formatSizes = [formatCount]int{
	FormatRGBA32Float:        16,
	FormatRGBA16Float:        8,
	FormatRGBA16Unorm:        8,
	FormatRGBA8Unorm:         4,
	FormatBGRA8Unorm:         4,
	FormatBGRX8Unorm:         4,
	FormatRGB10XRBiasA2Unorm: 4,
	FormatRGB10A2Unorm:       4,
	FormatBGR5A1Unorm:        2,
	FormatB5G6R5Unorm:        2,
	FormatR32Float:           4,
	FormatR16Float:           2,
	FormatR16Unorm:           2,
	FormatR8Unorm:            1,
	FormatA8Unorm:            1,
	FormatD32Float:           4,
	FormatR16Uint:            2,
	FormatR32Uint:            4,
}

// String returns the format name.
func (f Format) String() string {
	if f >= formatCount {
		return fmt.Sprintf("Format(%d)", uint16(f))
	}
	return formatNames[f]
}

// BytesPerPixel returns the size of one texel (or index) in bytes.
// Returns 0 for FormatUnknown and out-of-range values.
func (f Format) BytesPerPixel() int {
	if f >= formatCount {
		return 0
	}
	return formatSizes[f]
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool { return f == FormatD32Float }

// ResourceState is the usage state a texture is in between commands.
type ResourceState uint32

// Resource states.
const (
	StateCommon ResourceState = iota
	StateCopyDest
	StateCopySource
	StatePixelShaderResource
	StateRenderTarget
	StateDepthWrite
	StatePresent
	StateGenericRead
)

// String returns the state name.
func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "Common"
	case StateCopyDest:
		return "CopyDest"
	case StateCopySource:
		return "CopySource"
	case StatePixelShaderResource:
		return "PixelShaderResource"
	case StateRenderTarget:
		return "RenderTarget"
	case StateDepthWrite:
		return "DepthWrite"
	case StatePresent:
		return "Present"
	case StateGenericRead:
		return "GenericRead"
	default:
		return fmt.Sprintf("ResourceState(%d)", uint32(s))
	}
}

// HeapKind is the type of a descriptor heap.
type HeapKind uint8

// Heap kinds.
const (
	// HeapCSU holds constant buffer, shader resource and unordered access views.
	HeapCSU HeapKind = iota
	HeapSampler
	HeapRTV
	HeapDSV
)

// String returns the heap kind name.
func (k HeapKind) String() string {
	switch k {
	case HeapCSU:
		return "CSU"
	case HeapSampler:
		return "Sampler"
	case HeapRTV:
		return "RTV"
	case HeapDSV:
		return "DSV"
	default:
		return fmt.Sprintf("HeapKind(%d)", uint8(k))
	}
}

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is a bitmask of BufferUsage flags.
	Usage BufferUsage

	// Upload places the buffer in CPU-writable, GPU-readable memory.
	// Upload buffers can be filled with Buffer.Write without a copy command.
	Upload bool
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageSampled
	TextureUsageRenderTarget
	TextureUsageDepthStencil
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label        string
	Format       Format
	Width        uint32
	Height       uint32
	Usage        TextureUsage
	InitialState ResourceState
}

// ViewKind is the type of a resource view.
type ViewKind uint8

// View kinds.
const (
	ViewShaderResource ViewKind = iota
	ViewRenderTarget
	ViewDepthStencil
)

// ViewDesc describes a view of a texture.
type ViewDesc struct {
	Label  string
	Kind   ViewKind
	Format Format
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label  string
	Linear bool
	Clamp  bool
}

// Barrier is a texture state transition.
type Barrier struct {
	Texture Texture
	Before  ResourceState
	After   ResourceState
}

// RowPitchAlignment is the required alignment of a row in a buffer that is
// copied into a texture.
const RowPitchAlignment = 256

// Footprint is the placement of one texture subresource inside a buffer.
type Footprint struct {
	Offset   uint64
	Format   Format
	Width    uint32
	Height   uint32
	RowPitch uint32
}

// PlaceFootprint computes the buffer footprint of a width x height texture
// starting at offset, with rows padded to RowPitchAlignment.
func PlaceFootprint(format Format, width, height uint32, offset uint64) Footprint {
	row := width * uint32(format.BytesPerPixel())
	pitch := (row + RowPitchAlignment - 1) &^ (RowPitchAlignment - 1)
	return Footprint{
		Offset:   offset,
		Format:   format,
		Width:    width,
		Height:   height,
		RowPitch: pitch,
	}
}

// RowBytes returns the number of meaningful bytes in one row.
func (f Footprint) RowBytes() uint32 {
	return f.Width * uint32(f.Format.BytesPerPixel())
}

// TotalSize returns the number of buffer bytes the footprint spans,
// including the offset. The last row is not padded.
func (f Footprint) TotalSize() uint64 {
	if f.Height == 0 {
		return f.Offset
	}
	return f.Offset + uint64(f.RowPitch)*uint64(f.Height-1) + uint64(f.RowBytes())
}
