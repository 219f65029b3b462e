package software

import (
	"fmt"

	"github.com/gogpu/lib2d/gpucore"
)

// Buffer is a byte slice charged against adapter memory.
type Buffer struct {
	device    *Device
	desc      gpucore.BufferDesc
	data      []byte
	destroyed bool
}

var _ gpucore.Buffer = (*Buffer)(nil)

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Write copies data at offset. Only upload buffers are CPU writable.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if !b.desc.Upload {
		return fmt.Errorf("software: write %q: %w", b.desc.Label, ErrNotMappable)
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("software: write %d bytes at %d into %q: %w", len(data), offset, b.desc.Label, ErrOutOfRange)
	}
	b.device.mem.Lock()
	copy(b.data[offset:], data)
	b.device.mem.Unlock()
	return nil
}

// Contents returns a copy of the buffer bytes.
func (b *Buffer) Contents() []byte {
	b.device.mem.Lock()
	defer b.device.mem.Unlock()
	return append([]byte(nil), b.data...)
}

// Destroy returns the buffer memory to the adapter.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.device.release(b.desc.Size)
}

// Texture is a tightly packed 2D image.
type Texture struct {
	device    *Device
	desc      gpucore.TextureDesc
	state     gpucore.ResourceState
	data      []byte
	destroyed bool
}

var _ gpucore.Texture = (*Texture)(nil)

// Desc returns the creation descriptor.
func (t *Texture) Desc() gpucore.TextureDesc { return t.desc }

// State returns the state the last executed command left the texture in.
func (t *Texture) State() gpucore.ResourceState {
	t.device.mem.Lock()
	defer t.device.mem.Unlock()
	return t.state
}

// Destroy returns the texture memory to the adapter.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.device.release(uint64(len(t.data)))
}

// View references a texture, or nothing for null views.
type View struct {
	kind   gpucore.ViewKind
	format gpucore.Format
	tex    *Texture
}

var _ gpucore.View = (*View)(nil)

func (v *View) Kind() gpucore.ViewKind  { return v.kind }
func (v *View) Format() gpucore.Format { return v.format }

// Texture returns the viewed texture, or nil for a null view.
func (v *View) Texture() gpucore.Texture {
	if v.tex == nil {
		return nil
	}
	return v.tex
}

func (v *View) Destroy() {}

// Sampler stores its descriptor.
type Sampler struct {
	desc gpucore.SamplerDesc
}

func (s *Sampler) Destroy() {}

// ShaderModule stores SPIR-V words.
type ShaderModule struct {
	label string
	code  []uint32
}

func (m *ShaderModule) Label() string { return m.label }

// Words returns the number of SPIR-V words.
func (m *ShaderModule) Words() int { return len(m.code) }

func (m *ShaderModule) Destroy() {}

// Pipeline stores its validated descriptor.
type Pipeline struct {
	desc gpucore.PipelineDesc
}

func (p *Pipeline) Label() string { return p.desc.Label }

// Desc returns the descriptor the pipeline was created with.
func (p *Pipeline) Desc() gpucore.PipelineDesc { return p.desc }

func (p *Pipeline) Destroy() {}
