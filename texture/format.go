package texture

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/lib2d/gpucore"
)

// ErrNoFormatMapping is returned for images with no GPU format equivalent.
var ErrNoFormatMapping = errors.New("texture: no GPU format for image type")

// Pixels is decoded image data in a GPU format with tightly packed rows.
type Pixels struct {
	Format gpucore.Format
	Width  uint32
	Height uint32
	Data   []byte
}

// RowBytes returns the size of one row.
func (p *Pixels) RowBytes() int {
	return int(p.Width) * p.Format.BytesPerPixel()
}

// Row returns row y.
func (p *Pixels) Row(y int) []byte {
	n := p.RowBytes()
	return p.Data[y*n : (y+1)*n]
}

// Convert maps img to a GPU format.
//
// NRGBA, NRGBA64, Gray, Gray16 and Alpha map directly. Premultiplied RGBA
// and RGBA64 are unpremultiplied into RGBA8Unorm and RGBA16Unorm, paletted,
// YCbCr, NYCbCrA and CMYK images expand to RGBA8Unorm and Alpha16 is stored as
// R16Unorm. Anything else returns ErrNoFormatMapping.
func Convert(img image.Image) (*Pixels, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("texture: empty image %v", b)
	}
	switch m := img.(type) {
	case *image.NRGBA:
		return packRows(gpucore.FormatRGBA8Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, false), nil
	case *image.NRGBA64:
		return packRows(gpucore.FormatRGBA16Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, true), nil
	case *image.Gray:
		return packRows(gpucore.FormatR8Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, false), nil
	case *image.Gray16:
		return packRows(gpucore.FormatR16Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, true), nil
	case *image.Alpha:
		return packRows(gpucore.FormatA8Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, false), nil
	case *image.Alpha16:
		return packRows(gpucore.FormatR16Unorm, b, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, true), nil
	case *image.RGBA64:
		dst := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
		return packRows(gpucore.FormatRGBA16Unorm, dst.Bounds(), dst.Pix, dst.Stride, true), nil
	case *image.RGBA, *image.Paletted, *image.YCbCr, *image.NYCbCrA, *image.CMYK:
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
		return packRows(gpucore.FormatRGBA8Unorm, dst.Bounds(), dst.Pix, dst.Stride, false), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNoFormatMapping, img)
	}
}

// packRows copies rows starting at pix into a tight buffer. Go stores 16-bit
// channels big-endian; swap16 converts them to the little-endian GPU layout.
func packRows(format gpucore.Format, b image.Rectangle, pix []byte, stride int, swap16 bool) *Pixels {
	p := &Pixels{Format: format, Width: uint32(b.Dx()), Height: uint32(b.Dy())}
	row := p.RowBytes()
	p.Data = make([]byte, row*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		dst := p.Data[y*row : (y+1)*row]
		copy(dst, pix[y*stride:y*stride+row])
		if swap16 {
			for i := 0; i+1 < len(dst); i += 2 {
				dst[i], dst[i+1] = dst[i+1], dst[i]
			}
		}
	}
	return p
}
