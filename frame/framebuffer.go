package frame

import (
	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
)

// Framebuffer is a set of presentable render targets with one depth buffer.
// Renderers record into RenderTarget(CurrentBackBufferIndex()) and bracket
// the frame with TransitionBarrier.
type Framebuffer interface {
	BufferCount() int
	CurrentBackBufferIndex() int

	RenderTargetHandle(i int) descriptor.CPUHandle
	DepthStencilHandle() descriptor.CPUHandle

	RenderTarget(i int) gpucore.Texture

	// TransitionBarrier returns the barrier moving render target i from
	// before to after.
	TransitionBarrier(i int, before, after gpucore.ResourceState) gpucore.Barrier

	// Present flips to the next back buffer and returns its index.
	Present() uint32

	Width() uint32
	Height() uint32
}
