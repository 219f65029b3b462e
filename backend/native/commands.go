package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// CommandAllocator owns the HAL command buffers of submitted lists.
type CommandAllocator struct {
	device *Device
	kind   gpucore.QueueKind

	mu      sync.Mutex
	retired []hal.CommandBuffer
}

var _ gpucore.CommandAllocator = (*CommandAllocator)(nil)

// Kind returns the queue class the allocator records for.
func (a *CommandAllocator) Kind() gpucore.QueueKind { return a.kind }

// Reset frees the command buffers of every list submitted since the last
// reset. The GPU must have finished executing them.
func (a *CommandAllocator) Reset() error {
	a.mu.Lock()
	bufs := a.retired
	a.retired = nil
	a.mu.Unlock()
	for _, b := range bufs {
		a.device.dev.FreeCommandBuffer(b)
	}
	return nil
}

func (a *CommandAllocator) retire(b hal.CommandBuffer) {
	a.mu.Lock()
	a.retired = append(a.retired, b)
	a.mu.Unlock()
}

// Destroy frees any command buffers still held.
func (a *CommandAllocator) Destroy() { _ = a.Reset() }

// CommandList records into a HAL command encoder.
type CommandList struct {
	device *Device
	kind   gpucore.QueueKind
	alloc  *CommandAllocator

	enc    hal.CommandEncoder
	buf    hal.CommandBuffer
	closed bool
	err    error
}

var _ gpucore.CommandList = (*CommandList)(nil)

// Kind returns the queue class of the list.
func (l *CommandList) Kind() gpucore.QueueKind { return l.kind }

// Reset begins a new HAL encoding into alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	if !l.closed {
		return gpucore.ErrListOpen
	}
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return ErrForeignObject
	}
	if a.kind != l.kind {
		return fmt.Errorf("native: reset %s list with %s allocator: %w", l.kind, a.kind, gpucore.ErrWrongQueue)
	}
	l.freeUnsubmitted()

	label := l.kind.String() + "_list"
	enc, err := l.device.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	l.alloc = a
	l.enc = enc
	l.err = nil
	l.closed = false
	return nil
}

// Close ends the encoding and returns the first recording error, if any.
func (l *CommandList) Close() error {
	if l.closed {
		return gpucore.ErrListClosed
	}
	l.closed = true
	enc := l.enc
	l.enc = nil
	if l.err != nil {
		enc.DiscardEncoding()
		return l.err
	}
	buf, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	l.buf = buf
	return nil
}

// Closed reports whether the list is closed.
func (l *CommandList) Closed() bool { return l.closed }

// retire hands the submitted buffer to the allocator.
func (l *CommandList) retire() {
	if l.buf != nil {
		l.alloc.retire(l.buf)
		l.buf = nil
	}
}

func (l *CommandList) freeUnsubmitted() {
	if l.buf != nil {
		l.device.dev.FreeCommandBuffer(l.buf)
		l.buf = nil
	}
}

func (l *CommandList) recording() bool {
	if l.closed {
		if l.err == nil {
			l.err = gpucore.ErrListClosed
		}
		return false
	}
	return l.err == nil
}

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// CopyBufferToTexture copies a footprint of src into dst.
func (l *CommandList) CopyBufferToTexture(src gpucore.Buffer, layout gpucore.Footprint, dst gpucore.Texture) {
	if !l.recording() {
		return
	}
	b, ok1 := src.(*Buffer)
	t, ok2 := dst.(*Texture)
	if !ok1 || !ok2 {
		l.fail(ErrForeignObject)
		return
	}
	l.enc.CopyBufferToTexture(b.raw, t.raw, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.RowPitch,
			RowsPerImage: layout.Height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		Size:        hal.Extent3D{Width: layout.Width, Height: layout.Height, DepthOrArrayLayers: 1},
	}})
}

// CopyBuffer copies size bytes from src to dst.
func (l *CommandList) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	if !l.recording() {
		return
	}
	d, ok1 := dst.(*Buffer)
	s, ok2 := src.(*Buffer)
	if !ok1 || !ok2 {
		l.fail(ErrForeignObject)
		return
	}
	l.enc.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

// Transition records HAL texture barriers.
func (l *CommandList) Transition(barriers ...gpucore.Barrier) {
	if !l.recording() || len(barriers) == 0 {
		return
	}
	out := make([]hal.TextureBarrier, 0, len(barriers))
	for _, b := range barriers {
		t, ok := b.Texture.(*Texture)
		if !ok {
			l.fail(ErrForeignObject)
			return
		}
		out = append(out, hal.TextureBarrier{
			Texture: t.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: stateUsage(b.Before),
				NewUsage: stateUsage(b.After),
			},
		})
		t.setState(b.After)
	}
	l.enc.TransitionTextures(out)
}

// ClearRenderTarget clears target with an empty render pass.
func (l *CommandList) ClearRenderTarget(target gpucore.View, color [4]float32) {
	if !l.recording() {
		return
	}
	v, ok := target.(*View)
	if !ok || v.raw == nil {
		l.fail(ErrForeignObject)
		return
	}
	rp := l.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "clear_color",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    v.raw,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(color[0]),
				G: float64(color[1]),
				B: float64(color[2]),
				A: float64(color[3]),
			},
		}},
	})
	rp.End()
}

// ClearDepth clears a depth view with an empty render pass.
func (l *CommandList) ClearDepth(target gpucore.View, depth float32) {
	if !l.recording() {
		return
	}
	v, ok := target.(*View)
	if !ok || v.raw == nil {
		l.fail(ErrForeignObject)
		return
	}
	rp := l.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "clear_depth",
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            v.raw,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: depth,
		},
	})
	rp.End()
}

// Destroy discards an open encoding and frees an unsubmitted buffer.
func (l *CommandList) Destroy() {
	if !l.closed && l.enc != nil {
		l.enc.DiscardEncoding()
		l.enc = nil
		l.closed = true
	}
	l.freeUnsubmitted()
}
