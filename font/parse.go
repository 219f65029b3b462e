package font

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxGlyphID bounds the glyph ids a font can hold.
const MaxGlyphID = 65536

// ErrSyntax is wrapped by ParseError for malformed lines.
var ErrSyntax = errors.New("syntax error")

// ParseError reports a malformed font file.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("font: %s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Padding is the glyph padding in pixels.
type Padding struct {
	Up, Right, Down, Left int
}

// Glyph is one character of a font.
type Glyph struct {
	ID       rune
	Page     int
	UV       [2]mgl32.Vec2 // top-left and bottom-right texture coordinates
	Size     mgl32.Vec2
	Offset   mgl32.Vec2
	XAdvance float32
}

// Option configures parsing.
type Option func(*parseOptions)

type parseOptions struct {
	enc encoding.Encoding
}

// WithEncoding decodes the file with enc instead of UTF-8, for example
// japanese.ShiftJIS. A byte order mark still takes precedence.
func WithEncoding(enc encoding.Encoding) Option {
	return func(o *parseOptions) { o.enc = enc }
}

type parser struct {
	file string
	line int
	sc   *bufio.Scanner
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{File: p.file, Line: p.line, Err: fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)}
}

// next returns the tag and attributes of the next non-blank line.
func (p *parser) next() (string, map[string]string, bool, error) {
	for p.sc.Scan() {
		p.line++
		tag, attrs, ok := splitLine(p.sc.Text())
		if !ok {
			continue
		}
		return tag, attrs, true, nil
	}
	if err := p.sc.Err(); err != nil {
		return "", nil, false, &ParseError{File: p.file, Line: p.line, Err: err}
	}
	p.line++
	return "", nil, false, nil
}

// Parse reads a font description. name is used in errors and as the base for
// page paths.
func Parse(r io.Reader, name string, opts ...Option) (*Font, error) {
	o := parseOptions{enc: unicode.UTF8}
	for _, opt := range opts {
		opt(&o)
	}
	dec := transform.NewReader(r, unicode.BOMOverride(o.enc.NewDecoder()))
	p := &parser{file: name, sc: bufio.NewScanner(dec)}

	f := &Font{
		File:         name,
		glyphs:       make(map[rune]Glyph),
		Proportional: true,
		Scale:        mgl32.Vec2{1, 1},
	}

	tag, attrs, ok, err := p.next()
	if err != nil {
		return nil, err
	}
	if !ok || tag != "info" {
		return nil, p.errorf("expected info line, found %q", tag)
	}
	f.Face = attrs["face"]
	if f.Size, err = p.float(attrs, "size"); err != nil {
		return nil, err
	}
	pad, err := p.integers(attrs, "padding", 4)
	if err != nil {
		return nil, err
	}
	f.Padding = Padding{Up: pad[0], Right: pad[1], Down: pad[2], Left: pad[3]}
	f.Height = f.Size + float32(f.Padding.Up+f.Padding.Down+4)

	tag, attrs, ok, err = p.next()
	if err != nil {
		return nil, err
	}
	if !ok || tag != "common" {
		return nil, p.errorf("expected common line, found %q", tag)
	}
	if f.ScaleW, err = p.float(attrs, "scaleW"); err != nil {
		return nil, err
	}
	if f.ScaleH, err = p.float(attrs, "scaleH"); err != nil {
		return nil, err
	}
	if f.ScaleW <= 0 || f.ScaleH <= 0 {
		return nil, p.errorf("texture scale %gx%g", f.ScaleW, f.ScaleH)
	}
	if v, ok := attrs["lineHeight"]; ok {
		f.LineHeight, _ = strconv.Atoi(v)
	}
	if v, ok := attrs["base"]; ok {
		f.Base, _ = strconv.Atoi(v)
	}

	dir := filepath.Dir(name)
	for {
		tag, attrs, ok, err = p.next()
		if err != nil {
			return nil, err
		}
		if !ok || tag != "page" {
			break
		}
		file, found := attrs["file"]
		if !found || file == "" {
			return nil, p.errorf("page without file")
		}
		f.Pages = append(f.Pages, filepath.Join(dir, file))
	}
	if len(f.Pages) == 0 {
		return nil, p.errorf("no page lines")
	}

	if !ok || tag != "chars" {
		return nil, p.errorf("expected chars line, found %q", tag)
	}
	count, err := p.integer(attrs, "count")
	if err != nil {
		return nil, err
	}

	for i := 0; i < count; i++ {
		tag, attrs, ok, err = p.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.errorf("expected %d char lines, found %d", count, i)
		}
		if tag != "char" {
			return nil, p.errorf("expected char line, found %q", tag)
		}
		g, err := p.glyph(attrs, f.ScaleW, f.ScaleH)
		if err != nil {
			return nil, err
		}
		if g.ID < 0 || g.ID >= MaxGlyphID {
			continue
		}
		f.glyphs[g.ID] = g
		f.FixedAdvance = max(f.FixedAdvance, g.XAdvance)
	}
	return f, nil
}

var glyphFields = [...]string{"id", "x", "y", "width", "height", "xoffset", "yoffset", "xadvance"}

func (p *parser) glyph(attrs map[string]string, scaleW, scaleH float32) (Glyph, error) {
	var v [len(glyphFields)]float32
	for i, k := range glyphFields {
		s, ok := attrs[k]
		if !ok {
			return Glyph{}, p.errorf("char line has no %s", k)
		}
		x, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Glyph{}, p.errorf("char %s=%q", k, s)
		}
		v[i] = float32(x)
	}
	g := Glyph{
		ID:       rune(v[0]),
		Size:     mgl32.Vec2{v[3], v[4]},
		Offset:   mgl32.Vec2{v[5], v[6]},
		XAdvance: v[7],
	}
	g.UV[0] = mgl32.Vec2{v[1] / scaleW, v[2] / scaleH}
	g.UV[1] = mgl32.Vec2{(v[1] + v[3]) / scaleW, (v[2] + v[4]) / scaleH}
	if s, ok := attrs["page"]; ok {
		page, err := strconv.Atoi(s)
		if err != nil {
			return Glyph{}, p.errorf("char page=%q", s)
		}
		g.Page = page
	}
	return g, nil
}

func (p *parser) float(attrs map[string]string, key string) (float32, error) {
	s, ok := attrs[key]
	if !ok {
		return 0, p.errorf("missing %s", key)
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, p.errorf("%s=%q", key, s)
	}
	return float32(v), nil
}

func (p *parser) integer(attrs map[string]string, key string) (int, error) {
	s, ok := attrs[key]
	if !ok {
		return 0, p.errorf("missing %s", key)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, p.errorf("%s=%q", key, s)
	}
	return v, nil
}

func (p *parser) integers(attrs map[string]string, key string, n int) ([]int, error) {
	s, ok := attrs[key]
	if !ok {
		return nil, p.errorf("missing %s", key)
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, p.errorf("%s=%q: want %d values", key, s, n)
	}
	out := make([]int, n)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, p.errorf("%s=%q", key, s)
		}
		out[i] = v
	}
	return out, nil
}

// splitLine splits `tag key=value key="quoted value"` into its parts.
func splitLine(line string) (string, map[string]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, false
	}
	tag, rest, _ := strings.Cut(line, " ")
	attrs := make(map[string]string)
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		key, after, found := strings.Cut(rest, "=")
		if !found {
			attrs[strings.Fields(rest)[0]] = ""
			break
		}
		if strings.ContainsAny(key, " \t") {
			// A bare word before the next key: record it and keep going.
			word, tail, _ := strings.Cut(rest, " ")
			attrs[word] = ""
			rest = tail
			continue
		}
		var value string
		if strings.HasPrefix(after, `"`) {
			end := strings.IndexByte(after[1:], '"')
			if end < 0 {
				value, rest = after[1:], ""
			} else {
				value, rest = after[1:end+1], after[end+2:]
			}
		} else {
			value, rest, _ = strings.Cut(after, " ")
		}
		attrs[key] = value
	}
	return tag, attrs, true
}
