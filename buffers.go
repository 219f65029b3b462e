package lib2d

import (
	"fmt"

	"github.com/gogpu/lib2d/gpucore"
)

// VertexBuffer is an upload-heap buffer bound as vertex input.
type VertexBuffer struct {
	Buffer gpucore.Buffer
	Stride uint32
	Size   uint64

	dev *Device
}

// Count returns the number of whole vertices the buffer holds.
func (b *VertexBuffer) Count() int {
	if b.Stride == 0 {
		return 0
	}
	return int(b.Size / uint64(b.Stride))
}

// Destroy releases the buffer.
func (b *VertexBuffer) Destroy() {
	if b.Buffer == nil {
		return
	}
	b.dev.DestroyResource(b.Buffer)
	b.Buffer = nil
}

// IndexBuffer is an upload-heap buffer bound as index input.
type IndexBuffer struct {
	Buffer gpucore.Buffer
	Format gpucore.Format
	Size   uint64

	dev *Device
}

// Count returns the number of indices the buffer holds.
func (b *IndexBuffer) Count() int {
	return int(b.Size / uint64(b.Format.BytesPerPixel()))
}

// Destroy releases the buffer.
func (b *IndexBuffer) Destroy() {
	if b.Buffer == nil {
		return
	}
	b.dev.DestroyResource(b.Buffer)
	b.Buffer = nil
}

// CreateVertexBuffer creates a size byte vertex buffer of stride byte
// vertices. data, if not nil, is copied in through the buffer's mapping.
func (d *Device) CreateVertexBuffer(size uint64, stride uint32, data []byte) (*VertexBuffer, error) {
	if stride == 0 {
		return nil, fmt.Errorf("lib2d: vertex buffer with zero stride")
	}
	b, err := d.createBuffer(&gpucore.BufferDesc{
		Label:  "vertex",
		Size:   size,
		Usage:  gpucore.BufferUsageVertex,
		Upload: true,
	}, data)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{Buffer: b, Stride: stride, Size: size, dev: d}, nil
}

// CreateIndexBuffer creates a size byte index buffer. format must be
// R16Uint or R32Uint. data, if not nil, is copied in through the buffer's
// mapping.
func (d *Device) CreateIndexBuffer(size uint64, format gpucore.Format, data []byte) (*IndexBuffer, error) {
	if format != gpucore.FormatR16Uint && format != gpucore.FormatR32Uint {
		return nil, fmt.Errorf("lib2d: index buffer: %w: %s", gpucore.ErrUnsupportedFormat, format)
	}
	b, err := d.createBuffer(&gpucore.BufferDesc{
		Label:  "index",
		Size:   size,
		Usage:  gpucore.BufferUsageIndex,
		Upload: true,
	}, data)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{Buffer: b, Format: format, Size: size, dev: d}, nil
}
