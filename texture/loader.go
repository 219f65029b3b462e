package texture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/lib2d/queue"
)

// Loader errors.
var (
	// ErrNotRecording is returned by uploads outside Begin/End.
	ErrNotRecording = errors.New("texture: loader is not recording")

	// ErrAlreadyRecording is returned by Begin inside Begin/End.
	ErrAlreadyRecording = errors.New("texture: loader is already recording")
)

// Resources is what the loader needs from the device. Textures and staging
// buffers are created and destroyed through it so that the device can
// account for their memory; views and command lists come from Device.
type Resources interface {
	Device() gpucore.Device
	CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error)
	CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error)
	DestroyResource(res interface{ Destroy() })
	AllocateDescriptor() (*descriptor.Descriptor, error)
}

// Loader batches texture uploads into one copy list.
//
// Begin opens the list, each Upload records a staging copy and a transition
// to PixelShaderResource, and End submits the list and blocks the calling
// goroutine until the copy has finished. Staging buffers are destroyed only
// after that, so they always outlive the GPU copy.
//
// Loader is not safe for concurrent use; UploadFiles decodes in parallel
// internally.
type Loader struct {
	res   Resources
	alloc gpucore.CommandAllocator
	list  gpucore.CommandList

	recording bool
	textures  []*Texture
	staging   []gpucore.Buffer

	// DecodeWorkers bounds the parallel decodes of UploadFiles.
	// Zero means GOMAXPROCS.
	DecodeWorkers int
}

// NewLoader returns an idle loader.
func NewLoader() *Loader { return &Loader{} }

// Recording reports whether the loader is between Begin and End.
func (l *Loader) Recording() bool { return l.recording }

// Begin opens a copy list on res's device.
func (l *Loader) Begin(res Resources) error {
	if l.recording {
		return ErrAlreadyRecording
	}
	dev := res.Device()
	alloc, err := dev.CreateCommandAllocator(gpucore.QueueCopy)
	if err != nil {
		return fmt.Errorf("texture: create upload allocator: %w", err)
	}
	list, err := dev.CreateCommandList(gpucore.QueueCopy, alloc)
	if err != nil {
		alloc.Destroy()
		return fmt.Errorf("texture: create upload list: %w", err)
	}
	if err := list.Reset(alloc); err != nil {
		list.Destroy()
		alloc.Destroy()
		return fmt.Errorf("texture: open upload list: %w", err)
	}
	l.res = res
	l.alloc = alloc
	l.list = list
	l.recording = true
	return nil
}

// Upload records the upload of tightly packed rows of data.
func (l *Loader) Upload(name string, format gpucore.Format, width, height uint32, data []byte) (*Texture, error) {
	return l.UploadPixels(name, &Pixels{Format: format, Width: width, Height: height, Data: data})
}

// UploadPixels records the upload of p.
func (l *Loader) UploadPixels(name string, p *Pixels) (*Texture, error) {
	if !l.recording {
		return nil, ErrNotRecording
	}
	if want := p.RowBytes() * int(p.Height); len(p.Data) < want {
		return nil, fmt.Errorf("texture: %s: %d bytes of data, need %d", name, len(p.Data), want)
	}
	dev := l.res.Device()
	destroy := l.res.DestroyResource

	res, err := l.res.CreateTexture(&gpucore.TextureDesc{
		Label:        name,
		Format:       p.Format,
		Width:        p.Width,
		Height:       p.Height,
		Usage:        gpucore.TextureUsageCopyDst | gpucore.TextureUsageSampled,
		InitialState: gpucore.StateCopyDest,
	})
	if err != nil {
		return nil, fmt.Errorf("texture: create %s: %w", name, err)
	}

	layout := gpucore.PlaceFootprint(p.Format, p.Width, p.Height, 0)
	staging, err := l.res.CreateBuffer(&gpucore.BufferDesc{
		Label:  name + " staging",
		Size:   layout.TotalSize(),
		Usage:  gpucore.BufferUsageCopySrc,
		Upload: true,
	})
	if err != nil {
		destroy(res)
		return nil, fmt.Errorf("texture: create staging buffer for %s: %w", name, err)
	}
	for y := 0; y < int(p.Height); y++ {
		if err := staging.Write(uint64(y)*uint64(layout.RowPitch), p.Row(y)); err != nil {
			destroy(staging)
			destroy(res)
			return nil, fmt.Errorf("texture: fill staging buffer for %s: %w", name, err)
		}
	}

	view, err := dev.CreateView(res, &gpucore.ViewDesc{Label: name, Kind: gpucore.ViewShaderResource, Format: p.Format})
	if err != nil {
		destroy(staging)
		destroy(res)
		return nil, fmt.Errorf("texture: create view of %s: %w", name, err)
	}
	d, err := l.res.AllocateDescriptor()
	if err != nil {
		view.Destroy()
		destroy(staging)
		destroy(res)
		return nil, fmt.Errorf("texture: descriptor for %s: %w", name, err)
	}
	d.SetView(view)

	l.list.CopyBufferToTexture(staging, layout, res)
	l.list.Transition(gpucore.Barrier{
		Texture: res,
		Before:  gpucore.StateCopyDest,
		After:   gpucore.StatePixelShaderResource,
	})

	t := &Texture{
		Name:       name,
		Format:     p.Format,
		Width:      p.Width,
		Height:     p.Height,
		Descriptor: d,
		Resource:   res,
		View:       view,
		destroy:    destroy,
	}
	l.textures = append(l.textures, t)
	l.staging = append(l.staging, staging)
	return t, nil
}

// UploadFromFile decodes the image at path and records its upload. The
// texture is named after path.
func (l *Loader) UploadFromFile(path string) (*Texture, error) {
	if !l.recording {
		return nil, ErrNotRecording
	}
	p, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return l.UploadPixels(path, p)
}

// UploadFiles decodes paths in parallel and records their uploads in order.
// Nothing is recorded if any decode fails.
func (l *Loader) UploadFiles(ctx context.Context, paths ...string) ([]*Texture, error) {
	if !l.recording {
		return nil, ErrNotRecording
	}
	decoded := make([]*Pixels, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	workers := l.DecodeWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := DecodeFile(path)
			if err != nil {
				return err
			}
			decoded[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Texture, 0, len(paths))
	for i, p := range decoded {
		t, err := l.UploadPixels(paths[i], p)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

// End submits the recorded uploads on q and waits for them. It returns the
// textures uploaded since Begin. If the list cannot be submitted the
// textures are released.
func (l *Loader) End(q *queue.CommandQueue) ([]*Texture, error) {
	return l.EndContext(context.Background(), q)
}

// EndContext is End with a cancellable wait. If ctx ends before the copy
// finishes the staging buffers are leaked to the GPU rather than destroyed
// under it, and stay charged to the device; the textures are returned with
// the error.
func (l *Loader) EndContext(ctx context.Context, q *queue.CommandQueue) ([]*Texture, error) {
	if !l.recording {
		return nil, ErrNotRecording
	}
	if err := l.list.Close(); err != nil {
		l.Cancel()
		return nil, fmt.Errorf("texture: close upload list: %w", err)
	}
	v, err := q.ExecuteCommandList(l.list)
	if err != nil {
		l.Cancel()
		return nil, err
	}
	textures := l.textures
	if err := q.WaitForFenceContext(ctx, v); err != nil {
		logging.L().Warn("texture: upload wait abandoned",
			slog.Int("textures", len(textures)), slog.Any("err", err))
		l.reset()
		return textures, err
	}
	for _, b := range l.staging {
		l.res.DestroyResource(b)
	}
	l.list.Destroy()
	l.alloc.Destroy()
	l.reset()
	logging.L().Debug("texture: uploaded", "count", len(textures), "fence", v)
	return textures, nil
}

// Cancel drops everything recorded since Begin without submitting.
func (l *Loader) Cancel() {
	if !l.recording {
		return
	}
	for _, t := range l.textures {
		t.Release()
	}
	for _, b := range l.staging {
		l.res.DestroyResource(b)
	}
	if !l.list.Closed() {
		_ = l.list.Close()
	}
	l.list.Destroy()
	l.alloc.Destroy()
	l.reset()
}

func (l *Loader) reset() {
	l.res = nil
	l.alloc = nil
	l.list = nil
	l.textures = nil
	l.staging = nil
	l.recording = false
}
