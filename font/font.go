package font

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/lib2d/texture"
)

// TableSize is the number of texture slots in a font's descriptor table.
const TableSize = 2

// Font is a parsed bitmap font with its page textures.
type Font struct {
	File   string
	Face   string
	Size   float32
	Height float32

	Padding    Padding
	LineHeight int
	Base       int
	ScaleW     float32
	ScaleH     float32

	// Pages are the glyph texture paths, resolved against the font file.
	Pages []string

	// FixedAdvance is the widest advance, used when Proportional is false.
	FixedAdvance float32
	Proportional bool
	Scale        mgl32.Vec2

	glyphs   map[rune]Glyph
	textures []*texture.Texture
	table    *descriptor.Heap
}

// Textures is what a font needs to load its pages.
type Textures interface {
	LoadTexture(path string) (*texture.Texture, error)
	NullView() gpucore.View
	DescriptorStride(kind gpucore.HeapKind) uint32
}

// Load parses the font at path and loads its page textures through tex.
func Load(path string, tex Textures, opts ...Option) (*Font, error) {
	r, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("font: %w", err)
	}
	defer func() { _ = r.Close() }()

	f, err := Parse(r, path, opts...)
	if err != nil {
		return nil, err
	}
	if err := f.LoadPages(tex); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadPages loads every page texture and builds the descriptor table. Slots
// without a page hold the null view. On error the pages loaded so far are
// released.
func (f *Font) LoadPages(tex Textures) error {
	if len(f.Pages) > TableSize {
		logging.L().Warn("font: pages beyond the descriptor table are ignored",
			slog.String("font", f.File), slog.Int("pages", len(f.Pages)))
	}
	table := descriptor.NewHeap(gpucore.HeapCSU, TableSize, true, tex.DescriptorStride(gpucore.HeapCSU))
	textures := make([]*texture.Texture, 0, len(f.Pages))
	for i, page := range f.Pages {
		t, err := tex.LoadTexture(page)
		if err != nil {
			for _, loaded := range textures {
				loaded.Release()
			}
			return fmt.Errorf("font: %s: page %d: %w", f.File, i, err)
		}
		textures = append(textures, t)
		if i < TableSize {
			table.CopyHandle(i, t.Descriptor)
		}
	}
	if n := len(textures); n < TableSize {
		table.SetNull(TableSize-n, n, tex.NullView())
	}
	f.textures = textures
	f.table = table
	return nil
}

// Textures returns the loaded page textures.
func (f *Font) Textures() []*texture.Texture { return f.textures }

// DescriptorTable returns the page table, or nil before LoadPages.
func (f *Font) DescriptorTable() *descriptor.Heap { return f.table }

// Char returns the glyph of id.
func (f *Font) Char(id rune) (Glyph, bool) {
	g, ok := f.glyphs[id]
	return g, ok
}

// Len returns the number of glyphs.
func (f *Font) Len() int { return len(f.glyphs) }

func (f *Font) advance(g Glyph) float32 {
	a := g.XAdvance
	if !f.Proportional {
		a = f.FixedAdvance
	}
	return (a + float32(f.Padding.Right+f.Padding.Left)) * f.Scale.X()
}

// CalcStringSize returns the width of the widest line of s and the height of
// all its lines.
func (f *Font) CalcStringSize(s string) mgl32.Vec2 {
	if s == "" {
		return mgl32.Vec2{}
	}
	var width, x float32
	lines := 1
	for _, r := range s {
		if r == '\n' {
			width = max(width, x)
			x = 0
			lines++
			continue
		}
		x += f.advance(f.glyphs[r])
	}
	width = max(width, x)
	return mgl32.Vec2{width, float32(lines) * f.Height * f.Scale.Y()}
}

// Placement is a glyph positioned on screen.
type Placement struct {
	Glyph    Glyph
	Position mgl32.Vec2
}

// Layout positions the visible glyphs of s with the pen starting at origin.
// Lines advance downwards in screen space. Glyphs without area, and
// characters the font lacks, move the pen without producing a placement.
func (f *Font) Layout(s string, origin mgl32.Vec2) []Placement {
	out := make([]Placement, 0, len(s))
	pen := origin
	for _, r := range s {
		if r == '\n' {
			pen = mgl32.Vec2{origin.X(), pen.Y() + f.Height*f.Scale.Y()}
			continue
		}
		g, ok := f.glyphs[r]
		if ok && g.Size.X() > 0 && g.Size.Y() > 0 {
			out = append(out, Placement{Glyph: g, Position: pen})
		}
		pen[0] += f.advance(g)
	}
	return out
}

// Release releases the page textures.
func (f *Font) Release() {
	for _, t := range f.textures {
		t.Release()
	}
	f.textures = nil
	f.table = nil
}
