package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/lib2d/backend/software"
	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/queue"
)

// testResources counts the resources it has created and not yet destroyed.
type testResources struct {
	dev  gpucore.Device
	pool *descriptor.Pool
	live map[interface{ Destroy() }]bool
}

func (r *testResources) Device() gpucore.Device { return r.dev }

func (r *testResources) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	t, err := r.dev.CreateTexture(desc)
	if err == nil {
		r.live[t] = true
	}
	return t, err
}

func (r *testResources) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	b, err := r.dev.CreateBuffer(desc)
	if err == nil {
		r.live[b] = true
	}
	return b, err
}

func (r *testResources) DestroyResource(res interface{ Destroy() }) {
	delete(r.live, res)
	res.Destroy()
}

func (r *testResources) AllocateDescriptor() (*descriptor.Descriptor, error) {
	return r.pool.Allocate()
}

func setup(t *testing.T) (*testResources, *queue.CommandQueue) {
	t.Helper()
	adapters, err := software.New().Adapters()
	if err != nil {
		t.Fatal(err)
	}
	dev, err := adapters[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dev.Destroy)
	q, err := queue.New(dev, gpucore.QueueCopy, "upload")
	if err != nil {
		t.Fatal(err)
	}
	pool := descriptor.NewPool(descriptor.NewHeap(gpucore.HeapCSU, 16, false, dev.DescriptorStride(gpucore.HeapCSU)))
	return &testResources{dev: dev, pool: pool, live: make(map[interface{ Destroy() }]bool)}, q
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
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

func TestConvertFormats(t *testing.T) {
	r := image.Rect(0, 0, 2, 1)
	tests := []struct {
		name string
		img  image.Image
		want gpucore.Format
	}{
		{"NRGBA", image.NewNRGBA(r), gpucore.FormatRGBA8Unorm},
		{"NRGBA64", image.NewNRGBA64(r), gpucore.FormatRGBA16Unorm},
		{"Gray", image.NewGray(r), gpucore.FormatR8Unorm},
		{"Gray16", image.NewGray16(r), gpucore.FormatR16Unorm},
		{"Alpha", image.NewAlpha(r), gpucore.FormatA8Unorm},
		{"Alpha16", image.NewAlpha16(r), gpucore.FormatR16Unorm},
		{"RGBA", image.NewRGBA(r), gpucore.FormatRGBA8Unorm},
		{"RGBA64", image.NewRGBA64(r), gpucore.FormatRGBA16Unorm},
		{"Paletted", image.NewPaletted(r, color.Palette{color.Black}), gpucore.FormatRGBA8Unorm},
		{"YCbCr", image.NewYCbCr(r, image.YCbCrSubsampleRatio444), gpucore.FormatRGBA8Unorm},
		{"CMYK", image.NewCMYK(r), gpucore.FormatRGBA8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Convert(tt.img)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if p.Format != tt.want {
				t.Errorf("Format = %s, want %s", p.Format, tt.want)
			}
			if len(p.Data) != p.RowBytes()*int(p.Height) {
				t.Errorf("len(Data) = %d, want %d", len(p.Data), p.RowBytes()*int(p.Height))
			}
		})
	}
}

func TestConvertNoMapping(t *testing.T) {
	img := image.NewUniform(color.White)
	if _, err := Convert(img); err == nil {
		t.Fatal("Convert(unbounded uniform) succeeded")
	}
	sub := &image.Gray16{}
	if _, err := Convert(sub); err == nil {
		t.Fatal("Convert(empty) succeeded")
	}

	type custom struct{ *image.Gray }
	if _, err := Convert(custom{image.NewGray(image.Rect(0, 0, 1, 1))}); !errors.Is(err, ErrNoFormatMapping) {
		t.Errorf("Convert(custom) error = %v, want ErrNoFormatMapping", err)
	}
}

func TestConvertSwapsSixteenBit(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 1, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 0x1234})
	p, err := Convert(img)
	if err != nil {
		t.Fatal(err)
	}
	if p.Data[0] != 0x34 || p.Data[1] != 0x12 {
		t.Errorf("Data = % x, want 34 12", p.Data)
	}
}

func TestConvertUnpremultiplies(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0x40, A: 0x80})
	p, err := Convert(img)
	if err != nil {
		t.Fatal(err)
	}
	if p.Data[0] < 0x7e || p.Data[0] > 0x81 || p.Data[3] != 0x80 {
		t.Errorf("Data = % x, want about 80 00 00 80", p.Data)
	}
}

func TestConvertSubImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(2, 3, color.Gray{Y: 9})
	p, err := Convert(img.SubImage(image.Rect(2, 3, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if p.Width != 2 || p.Height != 1 || p.Data[0] != 9 {
		t.Errorf("Convert(sub) = %dx%d % x", p.Width, p.Height, p.Data)
	}
}

func TestSniffAndDecode(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	mime, err := Sniff(buf.Bytes())
	if err != nil || mime != "image/png" {
		t.Fatalf("Sniff() = %q, %v, want image/png", mime, err)
	}

	p, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if p.Width != 3 || p.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", p.Width, p.Height)
	}
	if got := p.Row(1)[4:8]; !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("pixel (1,1) = %v", got)
	}

	if _, err := Decode(bytes.NewReader([]byte("plain text, not an image"))); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Decode(text) error = %v, want ErrUnsupportedImage", err)
	}
	if _, err := Decode(bytes.NewReader(nil)); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Decode(empty) error = %v, want ErrUnsupportedImage", err)
	}
}

func TestDecodeFileErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.png")
	_, err := DecodeFile(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("DecodeFile() error = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile(bad); err == nil || !bytes.Contains([]byte(err.Error()), []byte(bad)) {
		t.Errorf("DecodeFile(bad) error = %v, want path in message", err)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	res, q := setup(t)
	l := NewLoader()

	// 3 pixels wide so the row pitch needs padding.
	data := make([]byte, 3*4*2)
	for i := range data {
		data[i] = byte(i * 7)
	}

	if err := l.Begin(res); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	tex, err := l.Upload("checker", gpucore.FormatRGBA8Unorm, 3, 2, data)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	got, err := l.End(q)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if len(got) != 1 || got[0] != tex {
		t.Fatalf("End() = %v, want [tex]", got)
	}
	if len(res.live) != 1 || !res.live[tex.Resource] {
		t.Errorf("%d live resources after End, want only the texture", len(res.live))
	}

	back, err := res.dev.(gpucore.TextureReader).ReadTexture(tex.Resource)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("read back %v, want %v", back, data)
	}
	if s := tex.Resource.(*software.Texture).State(); s != gpucore.StatePixelShaderResource {
		t.Errorf("state = %s, want PixelShaderResource", s)
	}
	if tex.Descriptor.View() != tex.View {
		t.Errorf("descriptor slot does not hold the texture view")
	}
	if errs := res.dev.(*software.Device).ValidationErrors(); len(errs) != 0 {
		t.Errorf("ValidationErrors() = %v", errs)
	}

	tex.Release()
	tex.Release()
	if res.pool.Available() != 16 {
		t.Errorf("Available() after Release = %d, want 16", res.pool.Available())
	}
	if len(res.live) != 0 {
		t.Errorf("%d live resources after Release", len(res.live))
	}
}

func TestUploadOutsideBeginEnd(t *testing.T) {
	l := NewLoader()
	if _, err := l.Upload("x", gpucore.FormatR8Unorm, 1, 1, []byte{0}); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Upload() error = %v, want ErrNotRecording", err)
	}
	if _, err := l.UploadFromFile("x.png"); !errors.Is(err, ErrNotRecording) {
		t.Errorf("UploadFromFile() error = %v, want ErrNotRecording", err)
	}
	if _, err := l.End(nil); !errors.Is(err, ErrNotRecording) {
		t.Errorf("End() error = %v, want ErrNotRecording", err)
	}

	res, _ := setup(t)
	if err := l.Begin(res); err != nil {
		t.Fatal(err)
	}
	if err := l.Begin(res); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Begin() error = %v, want ErrAlreadyRecording", err)
	}
	if _, err := l.Upload("x", gpucore.FormatR8Unorm, 1, 1, []byte{0}); err != nil {
		t.Fatal(err)
	}
	l.Cancel()
	if l.Recording() {
		t.Errorf("Recording() after Cancel = true")
	}
	if len(res.live) != 0 {
		t.Errorf("%d live resources after Cancel", len(res.live))
	}
}

func TestUploadFiles(t *testing.T) {
	res, q := setup(t)
	dir := t.TempDir()

	gray := image.NewGray(image.Rect(0, 0, 5, 5))
	gray.SetGray(4, 4, color.Gray{Y: 200})
	paths := []string{
		writePNG(t, dir, "a.png", image.NewNRGBA(image.Rect(0, 0, 2, 2))),
		writePNG(t, dir, "b.png", gray),
		writePNG(t, dir, "c.png", image.NewNRGBA(image.Rect(0, 0, 7, 1))),
	}

	l := NewLoader()
	l.DecodeWorkers = 2
	if err := l.Begin(res); err != nil {
		t.Fatal(err)
	}
	recorded, err := l.UploadFiles(context.Background(), paths...)
	if err != nil {
		t.Fatalf("UploadFiles() error = %v", err)
	}
	done, err := l.End(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 3 || len(recorded) != 3 {
		t.Fatalf("got %d recorded, %d done, want 3", len(recorded), len(done))
	}
	for i, tex := range done {
		if tex.Name != paths[i] {
			t.Errorf("texture %d named %q, want %q", i, tex.Name, paths[i])
		}
	}
	if done[1].Format != gpucore.FormatR8Unorm {
		t.Errorf("gray texture format = %s, want R8Unorm", done[1].Format)
	}
	back, _ := res.dev.(gpucore.TextureReader).ReadTexture(done[1].Resource)
	if back[24] != 200 {
		t.Errorf("gray pixel (4,4) = %d, want 200", back[24])
	}
}

func TestUploadFilesDecodeFailure(t *testing.T) {
	res, _ := setup(t)
	dir := t.TempDir()
	good := writePNG(t, dir, "ok.png", image.NewGray(image.Rect(0, 0, 1, 1)))

	l := NewLoader()
	if err := l.Begin(res); err != nil {
		t.Fatal(err)
	}
	defer l.Cancel()
	if _, err := l.UploadFiles(context.Background(), good, filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("UploadFiles() with a missing file succeeded")
	}
	if res.pool.Available() != 16 {
		t.Errorf("failed batch allocated descriptors")
	}
}
