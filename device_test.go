package lib2d

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lib2d/backend/software"
	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/frame"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/pipeline"
	"github.com/gogpu/lib2d/queue"
)

func initDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	d := New(software.New(), opts...)
	res, err := d.Initialize(0)
	if err != nil || res != ResultSuccess {
		t.Fatalf("Initialize() = %v, %v", res, err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// Scenario: a 1 GiB reservation succeeds, one beyond the adapter fails.
func TestInitializeMemoryReservation(t *testing.T) {
	d := New(software.New())
	res, err := d.Initialize(1 << 30)
	if res != ResultSuccess || err != nil {
		t.Fatalf("Initialize(1 GiB) = %v, %v; want Success", res, err)
	}
	d.Destroy()

	d = New(software.New())
	res, err = d.Initialize(software.DefaultMemory + 1)
	if res != ResultMemoryReservationFailed {
		t.Errorf("Initialize(oversized) = %v, want MemoryReservationFailed", res)
	}
	if !errors.Is(err, ErrMemoryReservation) || !errors.Is(err, gpucore.ErrInsufficientMemory) {
		t.Errorf("Initialize(oversized) error = %v", err)
	}
	if d.Initialized() {
		t.Error("device initialized after failed reservation")
	}
}

func TestInitializeAdapterSelection(t *testing.T) {
	tests := []struct {
		name     string
		configs  []software.AdapterConfig
		want     string
		software bool
	}{
		{
			name: "discrete first",
			configs: []software.AdapterConfig{
				{Name: "warp", Type: gpucore.DeviceTypeSoftware, FeatureLevel: gpucore.FeatureLevel12_1},
				{Name: "igpu", Type: gpucore.DeviceTypeIntegrated, FeatureLevel: gpucore.FeatureLevel12_1},
				{Name: "dgpu", Type: gpucore.DeviceTypeDiscrete, FeatureLevel: gpucore.FeatureLevel12_0},
			},
			want: "dgpu",
		},
		{
			name: "integrated when discrete is too old",
			configs: []software.AdapterConfig{
				{Name: "old", Type: gpucore.DeviceTypeDiscrete, FeatureLevel: gpucore.FeatureLevel11_0},
				{Name: "igpu", Type: gpucore.DeviceTypeIntegrated, FeatureLevel: gpucore.FeatureLevel12_0},
			},
			want: "igpu",
		},
		{
			name: "software fallback",
			configs: []software.AdapterConfig{
				{Name: "old", Type: gpucore.DeviceTypeDiscrete, FeatureLevel: gpucore.FeatureLevel11_1},
				{Name: "warp", Type: gpucore.DeviceTypeSoftware, FeatureLevel: gpucore.FeatureLevel11_0},
			},
			want:     "warp",
			software: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(software.New(software.WithAdapters(tt.configs...)), WithMinimumFeatureLevel(gpucore.FeatureLevel12_0))
			if res, err := d.Initialize(0); res != ResultSuccess {
				t.Fatalf("Initialize() = %v, %v", res, err)
			}
			defer d.Destroy()
			if got := d.Info().Name; got != tt.want {
				t.Errorf("adapter = %q, want %q", got, tt.want)
			}
			if d.IsSoftware() != tt.software || d.IsWarp() != tt.software {
				t.Errorf("IsSoftware() = %v, want %v", d.IsSoftware(), tt.software)
			}
		})
	}
}

func TestInitializeNoAdapter(t *testing.T) {
	d := New(software.New(software.WithAdapters(
		software.AdapterConfig{Name: "old", Type: gpucore.DeviceTypeDiscrete, FeatureLevel: gpucore.FeatureLevel11_0},
	)), WithMinimumFeatureLevel(gpucore.FeatureLevel12_0))
	res, err := d.Initialize(0)
	if res != ResultFalse || !errors.Is(err, ErrNoAdapter) {
		t.Errorf("Initialize() = %v, %v; want False, ErrNoAdapter", res, err)
	}
}

func TestInitializeTwiceAndBeforeInit(t *testing.T) {
	d := New(software.New())
	if _, err := d.AllocateDescriptor(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("AllocateDescriptor() before Initialize error = %v", err)
	}
	if _, err := d.Initialize(0); err != nil {
		t.Fatal(err)
	}
	if res, err := d.Initialize(0); res != ResultFalse || !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() = %v, %v", res, err)
	}
	d.Destroy()
	d.Destroy()
	if _, err := d.CreateUploadResource(16); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CreateUploadResource() after Destroy error = %v", err)
	}
}

func TestDeviceLayout(t *testing.T) {
	d := initDevice(t)
	if d.Frames().Len() != frame.DefaultFrameCount {
		t.Errorf("frames = %d, want %d", d.Frames().Len(), frame.DefaultFrameCount)
	}
	for i := range d.Frames().Len() {
		c := d.CommandContext(i)
		if c.Heap().Cap() != DefaultContextHeapSize || !c.Heap().ShaderVisible() {
			t.Errorf("context %d heap = %d slots, visible %v", i, c.Heap().Cap(), c.Heap().ShaderVisible())
		}
		for _, s := range frame.AllStages {
			if !c.List(s).Closed() {
				t.Errorf("context %d %s list is open", i, s)
			}
		}
	}
	heaps := []struct {
		name    string
		heap    *descriptor.Heap
		kind    gpucore.HeapKind
		size    int
		visible bool
	}{
		{"csu", d.CSUHeap(), gpucore.HeapCSU, DefaultCSUCapacity, true},
		{"sampler", d.SamplerHeap(), gpucore.HeapSampler, SamplerHeapSize, true},
		{"rtv", d.RTVHeap(), gpucore.HeapRTV, RTVHeapSize, false},
		{"dsv", d.DSVHeap(), gpucore.HeapDSV, DSVHeapSize, false},
		{"null", d.NullHeap(), gpucore.HeapCSU, 1, false},
	}
	for _, h := range heaps {
		if h.heap.Kind() != h.kind || h.heap.Cap() != h.size || h.heap.ShaderVisible() != h.visible {
			t.Errorf("%s heap = %s/%d/%v", h.name, h.heap.Kind(), h.heap.Cap(), h.heap.ShaderVisible())
		}
	}
	null := d.NullHeap().View(0)
	if null != d.NullView() || null.Texture() != nil || null.Format() != gpucore.FormatRGBA8Unorm {
		t.Errorf("null view = %v", null)
	}
	if d.UploadQueue().Kind() != gpucore.QueueCopy {
		t.Errorf("upload queue kind = %s", d.UploadQueue().Kind())
	}
}

// Scenario: 1024 descriptors succeed, the next fails, one release makes
// room again with a previously issued index.
func TestDescriptorExhaustion(t *testing.T) {
	d := initDevice(t)
	issued := make(map[int]*descriptor.Descriptor)
	for i := range DefaultCSUCapacity {
		desc, err := d.AllocateDescriptor()
		if err != nil {
			t.Fatalf("AllocateDescriptor() #%d error = %v", i, err)
		}
		if _, dup := issued[desc.Index()]; dup {
			t.Fatalf("index %d issued twice", desc.Index())
		}
		issued[desc.Index()] = desc
	}
	if _, err := d.AllocateDescriptor(); !errors.Is(err, descriptor.ErrSlotExhausted) {
		t.Fatalf("AllocateDescriptor() #1025 error = %v, want ErrSlotExhausted", err)
	}
	d.DeallocateDescriptor(issued[517])
	desc, err := d.AllocateDescriptor()
	if err != nil {
		t.Fatalf("AllocateDescriptor() after release error = %v", err)
	}
	if desc.Index() != 517 {
		t.Errorf("reused index = %d, want 517", desc.Index())
	}
}

func TestDescriptorReuseWaitsForFence(t *testing.T) {
	d := initDevice(t, WithCSUCapacity(2))
	direct, err := d.CreateCommandQueue(gpucore.QueueDirect, "direct")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := d.AllocateDescriptor()
	if _, err := d.AllocateDescriptor(); err != nil {
		t.Fatal(err)
	}

	sq := direct.Native().(*software.Queue)
	sq.Pause()
	if _, err := d.Frames().Begin(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	v, err := d.Frames().Submit(direct)
	if err != nil {
		t.Fatal(err)
	}
	a.MarkUsed(v)
	a.Release()

	if _, err := d.AllocateDescriptor(); !errors.Is(err, descriptor.ErrSlotExhausted) {
		t.Fatalf("AllocateDescriptor() while in flight error = %v, want ErrSlotExhausted", err)
	}
	sq.Resume()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := direct.WaitForFenceContext(ctx, v); err != nil {
		t.Fatal(err)
	}
	b, err := d.AllocateDescriptor()
	if err != nil {
		t.Fatalf("AllocateDescriptor() after fence error = %v", err)
	}
	if b.Index() != a.Index() {
		t.Errorf("reused index = %d, want %d", b.Index(), a.Index())
	}
}

func TestReclaimKeepsSlotsOfBusyQueue(t *testing.T) {
	d := initDevice(t, WithCSUCapacity(1))
	a, err := d.CreateCommandQueue(gpucore.QueueDirect, "a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.CreateCommandQueue(gpucore.QueueDirect, "b")
	if err != nil {
		t.Fatal(err)
	}
	execute := func(q *queue.CommandQueue) queue.FenceValue {
		t.Helper()
		alloc, err := d.CreateCommandAllocator(gpucore.QueueDirect)
		if err != nil {
			t.Fatal(err)
		}
		list, err := d.CreateCommandList(gpucore.QueueDirect, alloc)
		if err != nil {
			t.Fatal(err)
		}
		v, err := q.ExecuteCommandList(list)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	sq := a.Native().(*software.Queue)
	sq.Pause()
	va := execute(a)
	for range 5 {
		execute(b)
	}
	if err := b.WaitForIdle(); err != nil {
		t.Fatal(err)
	}

	desc, err := d.AllocateDescriptor()
	if err != nil {
		t.Fatal(err)
	}
	desc.MarkUsed(va)
	desc.Release()
	if n := d.Reclaim(); n != 0 {
		t.Fatalf("Reclaim() freed %d slots while %s is in flight", n, va)
	}
	if err := b.WaitForFence(va); !errors.Is(err, queue.ErrForeignFenceValue) {
		t.Errorf("b.WaitForFence(%s) error = %v, want ErrForeignFenceValue", va, err)
	}

	sq.Resume()
	if err := a.WaitForFence(va); err != nil {
		t.Fatal(err)
	}
	if n := d.Reclaim(); n != 1 {
		t.Errorf("Reclaim() after completion freed %d, want 1", n)
	}
}

func TestBuffers(t *testing.T) {
	d := initDevice(t)
	data := make([]byte, 60)
	for i := range data {
		data[i] = byte(i)
	}
	vb, err := d.CreateVertexBuffer(64, 20, data)
	if err != nil {
		t.Fatalf("CreateVertexBuffer() error = %v", err)
	}
	if vb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", vb.Count())
	}
	if got := vb.Buffer.(*software.Buffer).Contents()[:60]; !bytes.Equal(got, data) {
		t.Error("vertex data not copied")
	}

	indices := binary.LittleEndian.AppendUint16(nil, 0)
	indices = binary.LittleEndian.AppendUint16(indices, 1)
	indices = binary.LittleEndian.AppendUint16(indices, 2)
	ib, err := d.CreateIndexBuffer(6, gpucore.FormatR16Uint, indices)
	if err != nil {
		t.Fatalf("CreateIndexBuffer() error = %v", err)
	}
	if ib.Count() != 3 {
		t.Errorf("Count() = %d, want 3", ib.Count())
	}
	if _, err := d.CreateIndexBuffer(6, gpucore.FormatRGBA8Unorm, nil); !errors.Is(err, gpucore.ErrUnsupportedFormat) {
		t.Errorf("CreateIndexBuffer(RGBA8) error = %v", err)
	}
	if _, err := d.CreateVertexBuffer(4, 4, make([]byte, 8)); err == nil {
		t.Error("CreateVertexBuffer() with oversized data succeeded")
	}

	st := d.MemoryStats()
	if st.Buffers != 2 || st.UsedBytes != 70 {
		t.Errorf("MemoryStats() = %+v, want 2 buffers, 70 bytes", st)
	}
	vb.Destroy()
	ib.Destroy()
	vb.Destroy()
	if st := d.MemoryStats(); st.Buffers != 0 || st.UsedBytes != 0 {
		t.Errorf("MemoryStats() after Destroy = %+v", st)
	}
}

func TestMemoryBudget(t *testing.T) {
	d := initDevice(t, WithMemoryBudget(4096))
	up, err := d.CreateUploadResource(4000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateUploadResource(200); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Errorf("CreateUploadResource() over budget error = %v", err)
	}
	if _, err := d.CreateTexture2DResource(gpucore.FormatRGBA8Unorm, 16, 16, gpucore.StateCopyDest); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Errorf("CreateTexture2DResource() over budget error = %v", err)
	}
	d.DestroyResource(up)
	tex, err := d.CreateTexture2DResource(gpucore.FormatRGBA8Unorm, 16, 16, gpucore.StateCopyDest)
	if err != nil {
		t.Fatalf("CreateTexture2DResource() after free error = %v", err)
	}
	if st := d.MemoryStats(); st.Textures != 1 || st.UsedBytes != 1024 || st.AvailableBytes != 3072 {
		t.Errorf("MemoryStats() = %+v", st)
	}
	d.DestroyResource(tex)
}

func TestFramebuffer(t *testing.T) {
	d := initDevice(t)
	fb, err := d.CreateFramebuffer(320, 240, 3, gpucore.FormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("CreateFramebuffer() error = %v", err)
	}
	defer fb.Destroy()

	var _ frame.Framebuffer = fb
	if fb.BufferCount() != 3 || fb.Width() != 320 || fb.Height() != 240 {
		t.Errorf("framebuffer = %d buffers %dx%d", fb.BufferCount(), fb.Width(), fb.Height())
	}
	for i := range 3 {
		if fb.RenderTargetHandle(i) != d.RTVHeap().CPUHandle(i) {
			t.Errorf("RenderTargetHandle(%d) mismatch", i)
		}
		if d.RTVHeap().View(i) != fb.RenderTargetView(i) {
			t.Errorf("RTV slot %d does not hold render target view %d", i, i)
		}
		if got := fb.RenderTarget(i).(*software.Texture).State(); got != gpucore.StatePresent {
			t.Errorf("render target %d state = %s, want Present", i, got)
		}
	}
	if fb.DepthStencilHandle() != d.DSVHeap().CPUHandle(0) || d.DSVHeap().View(0) != fb.DepthStencilView() {
		t.Error("depth view not at DSV slot 0")
	}
	for _, want := range []uint32{1, 2, 0} {
		if got := fb.Present(); got != want {
			t.Errorf("Present() = %d, want %d", got, want)
		}
	}
	b := fb.TransitionBarrier(1, gpucore.StatePresent, gpucore.StateRenderTarget)
	if b.Texture != fb.RenderTarget(1) || b.After != gpucore.StateRenderTarget {
		t.Errorf("TransitionBarrier() = %+v", b)
	}

	p := fb.Projection()
	if got := p.Mul4x1(mgl32.Vec4{0, 0, 0, 1}); !got.ApproxEqual(mgl32.Vec4{-1, 1, 0, 1}) {
		t.Errorf("top-left maps to %v", got)
	}
	if got := p.Mul4x1(mgl32.Vec4{320, 240, 0, 1}); !got.ApproxEqual(mgl32.Vec4{1, -1, 0, 1}) {
		t.Errorf("bottom-right maps to %v", got)
	}

	if _, err := d.CreateFramebuffer(8, 8, RTVHeapSize+1, gpucore.FormatRGBA8Unorm); err == nil {
		t.Error("CreateFramebuffer() beyond RTV heap succeeded")
	}
}

func TestFrameRingClearsBackBuffer(t *testing.T) {
	d := initDevice(t)
	direct, err := d.CreateCommandQueue(gpucore.QueueDirect, "direct")
	if err != nil {
		t.Fatal(err)
	}
	fb, err := d.CreateFramebuffer(4, 4, 2, gpucore.FormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()

	ctx := context.Background()
	for n := range 4 {
		c, err := d.Frames().Begin(ctx, n)
		if err != nil {
			t.Fatalf("Begin(%d) error = %v", n, err)
		}
		i := fb.CurrentBackBufferIndex()
		list := c.List(frame.StageMain)
		list.Transition(fb.TransitionBarrier(i, gpucore.StatePresent, gpucore.StateRenderTarget))
		list.ClearRenderTarget(fb.RenderTargetView(i), [4]float32{1, 0, 0, 1})
		list.Transition(fb.TransitionBarrier(i, gpucore.StateRenderTarget, gpucore.StatePresent))
		if _, err := d.Frames().Submit(direct); err != nil {
			t.Fatalf("Submit(%d) error = %v", n, err)
		}
		fb.Present()
	}
	if err := d.WaitForIdle(ctx); err != nil {
		t.Fatal(err)
	}
	px, err := d.Device().(gpucore.TextureReader).ReadTexture(fb.RenderTarget(0))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(px[:4], []byte{255, 0, 0, 255}) {
		t.Errorf("back buffer pixel = %v, want red", px[:4])
	}
	if errs := d.Device().(*software.Device).ValidationErrors(); len(errs) != 0 {
		t.Errorf("validation errors: %v", errs)
	}
}

func TestLoadTexture(t *testing.T) {
	d := initDevice(t)
	path := writePNG(t, t.TempDir(), "sprite.png", 3, 2)

	tex, err := d.LoadTexture(path)
	if err != nil {
		t.Fatalf("LoadTexture() error = %v", err)
	}
	defer tex.Release()
	if tex.Width != 3 || tex.Height != 2 || tex.Format != gpucore.FormatRGBA8Unorm {
		t.Errorf("texture = %dx%d %s", tex.Width, tex.Height, tex.Format)
	}
	px, err := d.Device().(gpucore.TextureReader).ReadTexture(tex.Resource)
	if err != nil {
		t.Fatal(err)
	}
	// pixel (2,1)
	if got := px[(1*3+2)*4 : (1*3+2)*4+4]; !bytes.Equal(got, []byte{80, 40, 7, 255}) {
		t.Errorf("pixel (2,1) = %v", got)
	}
	if d.CSUHeap().View(tex.Descriptor.Index()) != tex.View {
		t.Error("descriptor slot does not hold the texture view")
	}
}

func TestLoadTextureChargesMemoryBudget(t *testing.T) {
	dir := t.TempDir()
	small := writePNG(t, dir, "small.png", 4, 4)
	large := writePNG(t, dir, "large.png", 64, 64)

	d := initDevice(t, WithMemoryBudget(1024))
	tex, err := d.LoadTexture(small)
	if err != nil {
		t.Fatalf("LoadTexture(4x4) error = %v", err)
	}
	if st := d.MemoryStats(); st.Textures != 1 || st.Buffers != 0 || st.UsedBytes != 64 {
		t.Errorf("MemoryStats() after load = %+v, want 1 texture of 64 bytes", st)
	}
	if _, err := d.LoadTexture(large); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Errorf("LoadTexture(64x64) error = %v, want ErrMemoryBudgetExceeded", err)
	}
	if st := d.MemoryStats(); st.Textures != 1 || st.UsedBytes != 64 {
		t.Errorf("MemoryStats() after failed load = %+v", st)
	}
	tex.Release()
	if st := d.MemoryStats(); st.Textures != 0 || st.UsedBytes != 0 {
		t.Errorf("MemoryStats() after Release = %+v", st)
	}
}

func TestTextureCache(t *testing.T) {
	d := initDevice(t, WithTextureCacheSize(1))
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 1, 1)
	b := writePNG(t, dir, "b.png", 1, 1)

	ta, err := d.Texture(a)
	if err != nil {
		t.Fatal(err)
	}
	again, err := d.Texture(a)
	if err != nil || again != ta {
		t.Errorf("second Texture() = %p, %v; want cached %p", again, err, ta)
	}
	if _, err := d.Texture(b); err != nil {
		t.Fatal(err)
	}
	if !ta.Released() {
		t.Error("evicted texture not released")
	}

	missing := filepath.Join(dir, "missing.png")
	_, err1 := d.Texture(missing)
	_, err2 := d.Texture(missing)
	if err1 == nil || err2 != err1 {
		t.Errorf("missing texture errors = %v, %v; want the same remembered error", err1, err2)
	}
	writePNG(t, dir, "missing.png", 1, 1)
	if _, err := d.Texture(missing); err == nil {
		t.Error("remembered miss was not returned")
	}
	d.ForgetTexture(missing)
	if _, err := d.Texture(missing); err != nil {
		t.Errorf("Texture() after ForgetTexture error = %v", err)
	}

	hits, misses, size := d.TextureCacheStats()
	if hits != 1 || misses != 4 || size != 1 {
		t.Errorf("TextureCacheStats() = %d, %d, %d", hits, misses, size)
	}
}

func TestLoadFont(t *testing.T) {
	d := initDevice(t)
	dir := t.TempDir()
	writePNG(t, dir, "page_0.png", 4, 4)
	fnt := `info face="Test" size=16 padding=0,0,0,0
common lineHeight=18 base=14 scaleW=4 scaleH=4 pages=1
page id=0 file="page_0.png"
chars count=1
char id=65 x=0 y=0 width=2 height=2 xoffset=0 yoffset=0 xadvance=3 page=0 chnl=15
`
	path := filepath.Join(dir, "test.fnt")
	if err := os.WriteFile(path, []byte(fnt), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := d.LoadFont(path)
	if err != nil {
		t.Fatalf("LoadFont() error = %v", err)
	}
	defer f.Release()
	if len(f.Textures()) != 1 {
		t.Fatalf("pages = %d, want 1", len(f.Textures()))
	}
	table := f.DescriptorTable()
	if table.View(0) != f.Textures()[0].View || table.View(1) != d.NullView() {
		t.Error("descriptor table = page view then null view expected")
	}
}

func TestCreatePipelineState(t *testing.T) {
	sc := pipeline.NewShaderCache(pipeline.WithCompiler(func(string) ([]byte, error) {
		return []byte{0x03, 0x02, 0x23, 0x07}, nil
	}))
	d := initDevice(t, WithShaderCache(sc))
	if d.ShaderCache() != sc {
		t.Error("ShaderCache() is not the configured cache")
	}
	path := filepath.Join(t.TempDir(), "sprite.wgsl")
	if err := os.WriteFile(path, []byte("//"), 0o600); err != nil {
		t.Fatal(err)
	}
	pso, err := d.CreatePipelineState(pipeline.Desc{Label: "sprite", VertexShader: path, FragmentShader: path, Blend: pipeline.BlendAlpha})
	if err != nil {
		t.Fatalf("CreatePipelineState() error = %v", err)
	}
	defer pso.Destroy()
	if pso.Pipeline.Label() != "sprite" {
		t.Errorf("Label() = %q", pso.Pipeline.Label())
	}
}

func TestDescriptorCopies(t *testing.T) {
	d := initDevice(t)
	tex, err := d.CreateTexture2DResource(gpucore.FormatRGBA8Unorm, 2, 2, gpucore.StatePixelShaderResource)
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyResource(tex)
	desc, err := d.AllocateDescriptor()
	if err != nil {
		t.Fatal(err)
	}
	defer desc.Release()
	v, err := d.CreateShaderResourceView(tex, desc)
	if err != nil {
		t.Fatal(err)
	}
	if desc.View() != v || v.Texture() != tex {
		t.Error("view not written into descriptor slot")
	}

	table := d.CommandContext(0).Heap()
	d.CopyDescriptors(table, d.CSUHeap(), 0, desc.Index(), 1)
	d.SetDescriptorsToNull(table, 3, 1)
	if table.View(0) != v {
		t.Error("CopyDescriptors did not copy the view")
	}
	for i := 1; i < 4; i++ {
		if table.View(i) != d.NullView() {
			t.Errorf("slot %d is not null", i)
		}
	}

	fp, size := d.CopyableFootprint(tex.Desc())
	if fp.RowPitch != gpucore.RowPitchAlignment || size != gpucore.RowPitchAlignment+8 {
		t.Errorf("CopyableFootprint() = %+v, %d", fp, size)
	}
}

func TestResultString(t *testing.T) {
	for r, want := range map[Result]string{
		ResultSuccess:                 "Success",
		ResultFalse:                   "False",
		ResultMemoryReservationFailed: "MemoryReservationFailed",
		Result(9):                     "Result(9)",
	} {
		if got := r.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(r), got, want)
		}
	}
}
