package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/wgpu/hal"
)

// readbackTimeout bounds ReadTexture.
const readbackTimeout = 5 * time.Second

// Buffer is a HAL buffer.
type Buffer struct {
	device *Device
	raw    hal.Buffer
	desc   gpucore.BufferDesc
}

var _ gpucore.Buffer = (*Buffer)(nil)

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Write copies data into an upload buffer through the HAL queue.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if !b.desc.Upload {
		return fmt.Errorf("native: write %q: buffer is not CPU writable", b.desc.Label)
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("native: write %d bytes at %d into %d byte buffer: out of range", len(data), offset, b.desc.Size)
	}
	b.device.queue.WriteBuffer(b.raw, offset, data)
	return nil
}

// Destroy releases the HAL buffer.
func (b *Buffer) Destroy() { b.device.dev.DestroyBuffer(b.raw) }

// Texture is a HAL texture.
type Texture struct {
	device *Device
	raw    hal.Texture
	desc   gpucore.TextureDesc

	mu    sync.Mutex
	state gpucore.ResourceState
}

var _ gpucore.Texture = (*Texture)(nil)

// Desc returns the creation parameters.
func (t *Texture) Desc() gpucore.TextureDesc { return t.desc }

// State returns the state the last recorded transition left the texture in.
func (t *Texture) State() gpucore.ResourceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Texture) setState(s gpucore.ResourceState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Destroy releases the HAL texture.
func (t *Texture) Destroy() { t.device.dev.DestroyTexture(t.raw) }

// View is a HAL texture view. A null view owns a cleared 1x1 texture.
type View struct {
	device *Device
	raw    hal.TextureView
	tex    *Texture
	kind   gpucore.ViewKind
	format gpucore.Format

	// backing is the texture of a null view.
	backing *Texture
}

var _ gpucore.View = (*View)(nil)

// Kind returns the view kind.
func (v *View) Kind() gpucore.ViewKind { return v.kind }

// Format returns the view format.
func (v *View) Format() gpucore.Format { return v.format }

// Texture returns the viewed texture, or nil for a null view.
func (v *View) Texture() gpucore.Texture {
	if v.tex == nil {
		return nil
	}
	return v.tex
}

// Destroy releases the HAL view and the backing texture of a null view.
func (v *View) Destroy() {
	v.device.dev.DestroyTextureView(v.raw)
	if v.backing != nil {
		v.backing.Destroy()
	}
}

// Sampler is a HAL sampler.
type Sampler struct {
	device *Device
	raw    hal.Sampler
}

// Destroy releases the HAL sampler.
func (s *Sampler) Destroy() { s.device.dev.DestroySampler(s.raw) }

// ShaderModule is a HAL shader module.
type ShaderModule struct {
	device *Device
	raw    hal.ShaderModule
	label  string
}

// Label returns the module label.
func (m *ShaderModule) Label() string { return m.label }

// Destroy releases the HAL module.
func (m *ShaderModule) Destroy() { m.device.dev.DestroyShaderModule(m.raw) }

// Pipeline is a HAL render pipeline with its layout.
type Pipeline struct {
	device *Device
	raw    hal.RenderPipeline
	layout hal.PipelineLayout
	label  string
}

// Label returns the pipeline label.
func (p *Pipeline) Label() string { return p.label }

// Destroy releases the pipeline and its layout.
func (p *Pipeline) Destroy() {
	p.device.dev.DestroyRenderPipeline(p.raw)
	p.device.dev.DestroyPipelineLayout(p.layout)
}

// CreateBuffer creates a HAL buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}
	return &Buffer{device: d, raw: raw, desc: *desc}, nil
}

// CreateTexture creates a single mip 2D HAL texture.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	raw, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	return &Texture{device: d, raw: raw, desc: *desc, state: desc.InitialState}, nil
}

// CreateView creates a HAL texture view. A nil tex creates a view of a
// private 1x1 texture that shaders read as zero.
func (d *Device) CreateView(tex gpucore.Texture, desc *gpucore.ViewDesc) (gpucore.View, error) {
	v := &View{device: d, kind: desc.Kind, format: desc.Format}
	target, ok := tex.(*Texture)
	switch {
	case tex == nil:
		format := desc.Format
		if format == gpucore.FormatUnknown {
			format = gpucore.FormatRGBA8Unorm
		}
		backing, err := d.CreateTexture(&gpucore.TextureDesc{
			Label:  "null_view",
			Format: format,
			Width:  1,
			Height: 1,
			Usage:  gpucore.TextureUsageSampled | gpucore.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		v.backing = backing.(*Texture)
		target = v.backing
	case !ok:
		return nil, ErrForeignObject
	default:
		v.tex = target
		if v.format == gpucore.FormatUnknown {
			v.format = target.desc.Format
		}
	}
	raw, err := d.dev.CreateTextureView(target.raw, &hal.TextureViewDescriptor{Label: desc.Label})
	if err != nil {
		if v.backing != nil {
			v.backing.Destroy()
		}
		return nil, fmt.Errorf("native: create view %q: %w", desc.Label, err)
	}
	v.raw = raw
	return v, nil
}

// CreateSampler creates a HAL sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.Sampler, error) {
	filter := gputypes.FilterModeNearest
	if desc.Linear {
		filter = gputypes.FilterModeLinear
	}
	address := gputypes.AddressModeRepeat
	if desc.Clamp {
		address = gputypes.AddressModeClampToEdge
	}
	raw, err := d.dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: address,
		AddressModeV: address,
		AddressModeW: address,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sampler %q: %w", desc.Label, err)
	}
	return &Sampler{device: d, raw: raw}, nil
}

// CreateShaderModule creates a HAL module from SPIR-V words.
func (d *Device) CreateShaderModule(label string, spirv []uint32) (gpucore.ShaderModule, error) {
	raw, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module %q: %w", label, err)
	}
	return &ShaderModule{device: d, raw: raw, label: label}, nil
}

// CreatePipeline creates a HAL render pipeline with an empty layout.
func (d *Device) CreatePipeline(desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	vs, ok1 := desc.VertexModule.(*ShaderModule)
	fs, ok2 := desc.FragmentModule.(*ShaderModule)
	if !ok1 || !ok2 {
		return nil, ErrForeignObject
	}
	color, err := textureFormat(desc.ColorFormat)
	if err != nil {
		return nil, err
	}

	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: desc.Label + "_layout"})
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline layout %q: %w", desc.Label, err)
	}

	hd := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs.raw,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexLayout(desc.VertexStride, desc.VertexLayout),
		},
		Fragment: &hal.FragmentState{
			Module:     fs.raw,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    color,
				Blend:     blendState(desc.Blend),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: cullMode(desc.Cull),
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}
	if desc.DepthFormat != gpucore.FormatUnknown {
		depth, err := textureFormat(desc.DepthFormat)
		if err != nil {
			d.dev.DestroyPipelineLayout(layout)
			return nil, err
		}
		hd.DepthStencil = depthStencil(depth, desc.DepthStencil)
	}

	raw, err := d.dev.CreateRenderPipeline(hd)
	if err != nil {
		d.dev.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("native: create pipeline %q: %w", desc.Label, err)
	}
	if desc.Debug {
		logging.L().Debug("native: pipeline created", "label", desc.Label, "blend", desc.Blend.Enabled, "cull", desc.Cull)
	}
	return &Pipeline{device: d, raw: raw, layout: layout, label: desc.Label}, nil
}

func depthStencil(format gputypes.TextureFormat, s gpucore.DepthStencilState) *hal.DepthStencilState {
	compare := gputypes.CompareFunctionAlways
	if s.DepthTest {
		compare = gputypes.CompareFunctionLess
	}
	stencilCompare := gputypes.CompareFunctionAlways
	if s.StencilTest {
		stencilCompare = gputypes.CompareFunctionNotEqual
	}
	face := hal.StencilFaceState{
		Compare:     stencilCompare,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	return &hal.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: s.DepthWrite,
		DepthCompare:      compare,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   uint32(s.StencilRead),
		StencilWriteMask:  uint32(s.StencilWrite),
	}
}

// ReadTexture copies tex into a staging buffer, waits for the GPU and returns
// tightly packed rows. The texture must be in a state a copy can read from;
// it is returned to that state afterwards.
func (d *Device) ReadTexture(tex gpucore.Texture) ([]byte, error) {
	t, ok := tex.(*Texture)
	if !ok {
		return nil, ErrForeignObject
	}
	fp := gpucore.PlaceFootprint(t.desc.Format, t.desc.Width, t.desc.Height, 0)
	size := uint64(fp.RowPitch) * uint64(fp.Height)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	old := stateUsage(t.State())
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Usage:   hal.TextureUsageTransition{OldUsage: old, NewUsage: gputypes.TextureUsageCopySrc},
	}})
	enc.CopyTextureToBuffer(t.raw, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: fp.RowPitch, RowsPerImage: fp.Height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		Size:         hal.Extent3D{Width: fp.Width, Height: fp.Height, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Usage:   hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: old},
	}})
	buf, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(buf)

	fence, err := d.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	defer d.dev.DestroyFence(fence)
	if err := d.submit([]hal.CommandBuffer{buf}, fence, 1); err != nil {
		return nil, fmt.Errorf("native: submit readback: %w", err)
	}

	ok, err = d.dev.Wait(fence, 1, readbackTimeout)
	if err != nil {
		return nil, fmt.Errorf("native: wait for readback: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("native: readback not finished after %v", readbackTimeout)
	}

	padded := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, padded); err != nil {
		return nil, fmt.Errorf("native: read staging buffer: %w", err)
	}
	row := fp.RowBytes()
	if row == fp.RowPitch {
		return padded, nil
	}
	tight := make([]byte, uint64(row)*uint64(fp.Height))
	for y := uint32(0); y < fp.Height; y++ {
		copy(tight[y*row:(y+1)*row], padded[y*fp.RowPitch:y*fp.RowPitch+row])
	}
	return tight, nil
}
