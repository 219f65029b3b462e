package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for content that is not a decodable image.
var ErrUnsupportedImage = errors.New("texture: unsupported image content")

// sniffLen is the header size the content matchers need.
const sniffLen = 262

var decodable = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// Sniff returns the MIME type of an image header, or an error wrapping
// ErrUnsupportedImage.
func Sniff(head []byte) (string, error) {
	if !filetype.IsImage(head) {
		return "", fmt.Errorf("%w: not an image", ErrUnsupportedImage)
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unknown type", ErrUnsupportedImage)
	}
	if !decodable[kind.MIME.Value] {
		return kind.MIME.Value, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}

// Decode sniffs and decodes an image and converts it to a GPU format.
func Decode(r io.Reader) (*Pixels, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrUnsupportedImage)
		}
		return nil, fmt.Errorf("texture: read header: %w", err)
	}
	head = head[:n]
	if _, err := Sniff(head); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	return Convert(img)
}

// DecodeFile decodes the image at path. Errors carry the path.
func DecodeFile(path string) (*Pixels, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	defer func() { _ = f.Close() }()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
