package texture

import (
	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
)

// Texture is a GPU-resident image with a shader resource view in a
// descriptor slot.
type Texture struct {
	Name   string
	Format gpucore.Format
	Width  uint32
	Height uint32

	Descriptor *descriptor.Descriptor
	Resource   gpucore.Texture
	View       gpucore.View

	// destroy returns Resource to whoever created it. Nil means
	// Resource.Destroy.
	destroy  func(interface{ Destroy() })
	released bool
}

// CPUHandle returns the handle of the texture's descriptor slot.
func (t *Texture) CPUHandle() descriptor.CPUHandle { return t.Descriptor.CPUHandle() }

// Release frees the descriptor slot and destroys the view and resource.
// Only the first call has an effect. The slot itself is reused only once the
// fence values recorded with Descriptor.MarkUsed are reached, but the
// resource is destroyed immediately: callers must not release a texture that
// in-flight work still samples.
func (t *Texture) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	if t.Descriptor != nil {
		t.Descriptor.Release()
	}
	if t.View != nil {
		t.View.Destroy()
	}
	switch {
	case t.Resource == nil:
	case t.destroy != nil:
		t.destroy(t.Resource)
	default:
		t.Resource.Destroy()
	}
}

// Released reports whether Release has been called.
func (t *Texture) Released() bool { return t.released }
