// Package cache provides a generic bounded LRU cache with an eviction
// callback.
//
//	textures := cache.New[string, *Texture](64, func(path string, t *Texture) {
//		t.Release()
//	})
//	tex, err := textures.GetOrCreate(path, load)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
