package lib2d

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/gogpu/lib2d/font"
	"github.com/gogpu/lib2d/texture"
)

var (
	_ texture.Resources = (*Device)(nil)
	_ font.Textures     = (*Device)(nil)
)

// LoadTexture decodes the image at path, uploads it on the upload queue and
// waits for the copy. The caller owns the texture.
func (d *Device) LoadTexture(path string) (*texture.Texture, error) {
	textures, err := d.LoadTextures(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return textures[0], nil
}

// LoadTextures decodes paths in parallel and uploads them in one copy list.
func (d *Device) LoadTextures(ctx context.Context, paths ...string) ([]*texture.Texture, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	l := texture.NewLoader()
	if err := l.Begin(d); err != nil {
		return nil, err
	}
	if _, err := l.UploadFiles(ctx, paths...); err != nil {
		l.Cancel()
		return nil, err
	}
	textures, err := l.EndContext(ctx, d.upload)
	if err != nil {
		return nil, err
	}
	d.Reclaim()
	return textures, nil
}

// Texture returns the texture at path from the device's texture cache,
// loading it on the first request. A path that failed to load is
// remembered and its error returned without touching the disk again until
// ForgetTexture.
//
// Cached textures are owned by the device; evicted ones are released, so
// size the cache above the working set.
func (d *Device) Texture(path string) (*texture.Texture, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	key := filepath.Clean(path)
	if err, ok := d.misses[key]; ok {
		return nil, err
	}
	t, err := d.textures.GetOrCreate(key, func() (*texture.Texture, error) {
		return d.LoadTexture(key)
	})
	if err != nil {
		d.misses[key] = err
		d.logger().Warn("lib2d: texture unavailable", slog.String("path", key), slog.Any("err", err))
		return nil, err
	}
	return t, nil
}

// ForgetTexture drops path from the texture cache, releasing the texture,
// and clears a remembered load failure.
func (d *Device) ForgetTexture(path string) {
	key := filepath.Clean(path)
	delete(d.misses, key)
	if d.textures != nil {
		d.textures.Remove(key)
	}
}

// TextureCacheStats reports texture cache hits and misses.
func (d *Device) TextureCacheStats() (hits, misses uint64, size int) {
	s := d.textures.Stats()
	return s.Hits, s.Misses, s.Len
}

// LoadFont parses the BMFont description at path and loads its pages.
func (d *Device) LoadFont(path string, opts ...font.Option) (*font.Font, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	return font.Load(path, d, opts...)
}
