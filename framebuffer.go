package lib2d

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/frame"
	"github.com/gogpu/lib2d/gpucore"
)

// Framebuffer is an offscreen set of render targets flipped like a swap
// chain, with one D32 depth buffer.
//
// Render target i is written to RTV slot i of the device, the depth buffer
// to DSV slot 0. Creating a second framebuffer on the same device overwrites
// those slots.
type Framebuffer struct {
	dev     *Device
	width   uint32
	height  uint32
	format  gpucore.Format
	current int

	targets []gpucore.Texture
	views   []gpucore.View
	depth   gpucore.Texture
	dsv     gpucore.View
}

var _ frame.Framebuffer = (*Framebuffer)(nil)

// CreateFramebuffer creates count render targets of format in the Present
// state and a depth buffer in the DepthWrite state.
func (d *Device) CreateFramebuffer(width, height uint32, count int, format gpucore.Format) (*Framebuffer, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	if count < 1 || count > d.rtvHeap.Cap() {
		return nil, fmt.Errorf("lib2d: framebuffer with %d buffers, want 1..%d", count, d.rtvHeap.Cap())
	}
	fb := &Framebuffer{dev: d, width: width, height: height, format: format}
	for i := range count {
		label := fmt.Sprintf("back buffer %d", i)
		t, err := d.createTexture(&gpucore.TextureDesc{
			Label:        label,
			Format:       format,
			Width:        width,
			Height:       height,
			Usage:        gpucore.TextureUsageRenderTarget | gpucore.TextureUsageCopySrc,
			InitialState: gpucore.StatePresent,
		})
		if err != nil {
			fb.Destroy()
			return nil, err
		}
		fb.targets = append(fb.targets, t)
		v, err := d.dev.CreateView(t, &gpucore.ViewDesc{Label: label, Kind: gpucore.ViewRenderTarget, Format: format})
		if err != nil {
			fb.Destroy()
			return nil, fmt.Errorf("lib2d: render target view %d: %w", i, err)
		}
		fb.views = append(fb.views, v)
		d.rtvHeap.Set(i, v)
	}

	depth, err := d.createTexture(&gpucore.TextureDesc{
		Label:        "depth",
		Format:       gpucore.FormatD32Float,
		Width:        width,
		Height:       height,
		Usage:        gpucore.TextureUsageDepthStencil,
		InitialState: gpucore.StateDepthWrite,
	})
	if err != nil {
		fb.Destroy()
		return nil, err
	}
	fb.depth = depth
	fb.dsv, err = d.dev.CreateView(depth, &gpucore.ViewDesc{Label: "depth", Kind: gpucore.ViewDepthStencil, Format: gpucore.FormatD32Float})
	if err != nil {
		fb.Destroy()
		return nil, fmt.Errorf("lib2d: depth view: %w", err)
	}
	d.dsvHeap.Set(0, fb.dsv)
	return fb, nil
}

// BufferCount returns the number of render targets.
func (f *Framebuffer) BufferCount() int { return len(f.targets) }

// CurrentBackBufferIndex returns the render target of the current frame.
func (f *Framebuffer) CurrentBackBufferIndex() int { return f.current }

// RenderTargetHandle returns the RTV handle of render target i.
func (f *Framebuffer) RenderTargetHandle(i int) descriptor.CPUHandle {
	return f.dev.rtvHeap.CPUHandle(i)
}

// DepthStencilHandle returns the DSV handle of the depth buffer.
func (f *Framebuffer) DepthStencilHandle() descriptor.CPUHandle {
	return f.dev.dsvHeap.CPUHandle(0)
}

// RenderTarget returns render target i.
func (f *Framebuffer) RenderTarget(i int) gpucore.Texture { return f.targets[i] }

// RenderTargetView returns the render target view of target i.
func (f *Framebuffer) RenderTargetView(i int) gpucore.View { return f.views[i] }

// DepthStencilView returns the depth view.
func (f *Framebuffer) DepthStencilView() gpucore.View { return f.dsv }

// TransitionBarrier returns the barrier moving render target i from before
// to after.
func (f *Framebuffer) TransitionBarrier(i int, before, after gpucore.ResourceState) gpucore.Barrier {
	return gpucore.Barrier{Texture: f.targets[i], Before: before, After: after}
}

// Present flips to the next render target and returns its index.
func (f *Framebuffer) Present() uint32 {
	f.current = (f.current + 1) % len(f.targets)
	return uint32(f.current)
}

// Width returns the width in pixels.
func (f *Framebuffer) Width() uint32 { return f.width }

// Height returns the height in pixels.
func (f *Framebuffer) Height() uint32 { return f.height }

// Format returns the render target format.
func (f *Framebuffer) Format() gpucore.Format { return f.format }

// Projection returns the orthographic projection mapping pixel coordinates,
// origin top-left and y down, to clip space.
func (f *Framebuffer) Projection() mgl32.Mat4 {
	return mgl32.Ortho2D(0, float32(f.width), float32(f.height), 0)
}

// Destroy releases the render targets and the depth buffer. The GPU must be
// done with them.
func (f *Framebuffer) Destroy() {
	for _, v := range f.views {
		v.Destroy()
	}
	for _, t := range f.targets {
		f.dev.DestroyResource(t)
	}
	if f.dsv != nil {
		f.dsv.Destroy()
	}
	if f.depth != nil {
		f.dev.DestroyResource(f.depth)
	}
	f.views, f.targets = nil, nil
	f.dsv, f.depth = nil, nil
}
