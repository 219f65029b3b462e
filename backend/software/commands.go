package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gogpu/lib2d/gpucore"
)

type command func()

// CommandAllocator tracks how many submitted lists recorded from it are still
// executing.
type CommandAllocator struct {
	kind     gpucore.QueueKind
	inFlight atomic.Int64
}

var _ gpucore.CommandAllocator = (*CommandAllocator)(nil)

// Kind returns the queue class the allocator records for.
func (a *CommandAllocator) Kind() gpucore.QueueKind { return a.kind }

// Reset fails with ErrAllocatorInFlight while the GPU still executes lists
// recorded from a.
func (a *CommandAllocator) Reset() error {
	if n := a.inFlight.Load(); n > 0 {
		return fmt.Errorf("%w (%d lists)", ErrAllocatorInFlight, n)
	}
	return nil
}

// InFlight returns the number of submitted lists that have not finished.
func (a *CommandAllocator) InFlight() int { return int(a.inFlight.Load()) }

// Destroy is a no-op.
func (a *CommandAllocator) Destroy() {}

// CommandList records closures that the queue goroutine runs on submit.
type CommandList struct {
	device *Device
	kind   gpucore.QueueKind
	alloc  *CommandAllocator
	closed bool
	cmds   []command
	err    error
}

var _ gpucore.CommandList = (*CommandList)(nil)

// Kind returns the queue class of the list.
func (l *CommandList) Kind() gpucore.QueueKind { return l.kind }

// Reset reopens a closed list for recording into alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	if !l.closed {
		return gpucore.ErrListOpen
	}
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return ErrForeignObject
	}
	if a.kind != l.kind {
		return fmt.Errorf("software: reset %s list with %s allocator: %w", l.kind, a.kind, gpucore.ErrWrongQueue)
	}
	l.alloc = a
	l.cmds = nil
	l.err = nil
	l.closed = false
	return nil
}

// Close ends recording and returns the first recording error, if any.
func (l *CommandList) Close() error {
	if l.closed {
		return gpucore.ErrListClosed
	}
	l.closed = true
	return l.err
}

// Closed reports whether the list is closed.
func (l *CommandList) Closed() bool { return l.closed }

// Len returns the number of recorded commands.
func (l *CommandList) Len() int { return len(l.cmds) }

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *CommandList) record(c command) bool {
	if l.closed {
		l.fail(gpucore.ErrListClosed)
		return false
	}
	if l.err != nil {
		return false
	}
	l.cmds = append(l.cmds, c)
	return true
}

// CopyBufferToTexture records a row by row copy. dst must be in
// StateCopyDest when the command executes.
func (l *CommandList) CopyBufferToTexture(src gpucore.Buffer, layout gpucore.Footprint, dst gpucore.Texture) {
	b, ok1 := src.(*Buffer)
	t, ok2 := dst.(*Texture)
	if !ok1 || !ok2 {
		l.fail(ErrForeignObject)
		return
	}
	bpp := t.desc.Format.BytesPerPixel()
	switch {
	case layout.Format.BytesPerPixel() != bpp:
		l.fail(fmt.Errorf("software: copy %s footprint into %s texture: %w", layout.Format, t.desc.Format, gpucore.ErrUnsupportedFormat))
		return
	case layout.Width > t.desc.Width || layout.Height > t.desc.Height:
		l.fail(fmt.Errorf("software: copy %dx%d into %dx%d texture: %w", layout.Width, layout.Height, t.desc.Width, t.desc.Height, ErrOutOfRange))
		return
	case layout.RowPitch < layout.RowBytes():
		l.fail(fmt.Errorf("software: row pitch %d below row size %d: %w", layout.RowPitch, layout.RowBytes(), ErrOutOfRange))
		return
	case layout.TotalSize() > b.desc.Size:
		l.fail(fmt.Errorf("software: footprint spans %d bytes of %d byte buffer: %w", layout.TotalSize(), b.desc.Size, ErrOutOfRange))
		return
	}
	d := l.device
	l.record(func() {
		d.mem.Lock()
		defer d.mem.Unlock()
		if t.state != gpucore.StateCopyDest {
			d.reportf("copy into %q: %w: texture is %s", t.desc.Label, ErrStateMismatch, t.state)
			return
		}
		row := int(layout.RowBytes())
		dstPitch := int(t.desc.Width) * bpp
		for y := 0; y < int(layout.Height); y++ {
			so := int(layout.Offset) + y*int(layout.RowPitch)
			copy(t.data[y*dstPitch:y*dstPitch+row], b.data[so:so+row])
		}
	})
}

// CopyBuffer records a buffer to buffer copy.
func (l *CommandList) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	db, ok1 := dst.(*Buffer)
	sb, ok2 := src.(*Buffer)
	if !ok1 || !ok2 {
		l.fail(ErrForeignObject)
		return
	}
	if srcOffset+size > sb.desc.Size || dstOffset+size > db.desc.Size {
		l.fail(fmt.Errorf("software: copy %d bytes: %w", size, ErrOutOfRange))
		return
	}
	d := l.device
	l.record(func() {
		d.mem.Lock()
		copy(db.data[dstOffset:dstOffset+size], sb.data[srcOffset:srcOffset+size])
		d.mem.Unlock()
	})
}

// Transition records state changes. A texture whose state differs from
// Before at execution time is reported as a validation error and still moved
// to After.
func (l *CommandList) Transition(barriers ...gpucore.Barrier) {
	type move struct {
		tex           *Texture
		before, after gpucore.ResourceState
	}
	moves := make([]move, 0, len(barriers))
	for _, br := range barriers {
		t, ok := br.Texture.(*Texture)
		if !ok {
			l.fail(ErrForeignObject)
			return
		}
		moves = append(moves, move{t, br.Before, br.After})
	}
	d := l.device
	l.record(func() {
		d.mem.Lock()
		defer d.mem.Unlock()
		for _, m := range moves {
			if m.tex.state != m.before {
				d.reportf("transition %q: %w: expected %s, found %s", m.tex.desc.Label, ErrStateMismatch, m.before, m.tex.state)
			}
			m.tex.state = m.after
		}
	})
}

// ClearRenderTarget records a fill of the render target view.
func (l *CommandList) ClearRenderTarget(target gpucore.View, color [4]float32) {
	v, ok := target.(*View)
	if !ok {
		l.fail(ErrForeignObject)
		return
	}
	if v.kind != gpucore.ViewRenderTarget || v.tex == nil {
		l.fail(fmt.Errorf("software: clear render target: view is not a render target"))
		return
	}
	texel, err := encodeColor(v.format, color)
	if err != nil {
		l.fail(err)
		return
	}
	l.record(l.fillCommand(v.tex, gpucore.StateRenderTarget, texel))
}

// ClearDepth records a fill of the depth view.
func (l *CommandList) ClearDepth(target gpucore.View, depth float32) {
	v, ok := target.(*View)
	if !ok {
		l.fail(ErrForeignObject)
		return
	}
	if v.kind != gpucore.ViewDepthStencil || v.tex == nil || !v.format.IsDepth() {
		l.fail(fmt.Errorf("software: clear depth: view is not a depth target"))
		return
	}
	texel := binary.LittleEndian.AppendUint32(nil, math.Float32bits(depth))
	l.record(l.fillCommand(v.tex, gpucore.StateDepthWrite, texel))
}

func (l *CommandList) fillCommand(t *Texture, want gpucore.ResourceState, texel []byte) command {
	d := l.device
	return func() {
		d.mem.Lock()
		defer d.mem.Unlock()
		if t.state != want {
			d.reportf("clear %q: %w: texture is %s", t.desc.Label, ErrStateMismatch, t.state)
			return
		}
		for i := 0; i+len(texel) <= len(t.data); i += len(texel) {
			copy(t.data[i:], texel)
		}
	}
}

// Destroy drops the recorded commands.
func (l *CommandList) Destroy() {
	l.cmds = nil
	l.closed = true
}

func encodeColor(f gpucore.Format, c [4]float32) ([]byte, error) {
	unorm8 := func(v float32) byte {
		v = min(max(v, 0), 1)
		return byte(v*255 + 0.5)
	}
	unorm16 := func(v float32) uint16 {
		v = min(max(v, 0), 1)
		return uint16(v*65535 + 0.5)
	}
	switch f {
	case gpucore.FormatRGBA8Unorm:
		return []byte{unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])}, nil
	case gpucore.FormatBGRA8Unorm:
		return []byte{unorm8(c[2]), unorm8(c[1]), unorm8(c[0]), unorm8(c[3])}, nil
	case gpucore.FormatR8Unorm:
		return []byte{unorm8(c[0])}, nil
	case gpucore.FormatA8Unorm:
		return []byte{unorm8(c[3])}, nil
	case gpucore.FormatRGBA16Unorm:
		out := make([]byte, 0, 8)
		for _, v := range c {
			out = binary.LittleEndian.AppendUint16(out, unorm16(v))
		}
		return out, nil
	case gpucore.FormatRGBA32Float:
		out := make([]byte, 0, 16)
		for _, v := range c {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
		return out, nil
	case gpucore.FormatR32Float:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(c[0])), nil
	default:
		return nil, fmt.Errorf("software: clear %s target: %w", f, gpucore.ErrUnsupportedFormat)
	}
}
