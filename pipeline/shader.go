package pipeline

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"

	"github.com/gogpu/lib2d/internal/cache"
	"github.com/gogpu/lib2d/internal/logging"
)

// DefaultShaderCacheSize is the number of compiled shaders kept.
const DefaultShaderCacheSize = 64

// CompileError reports a shader that failed to read or compile.
type CompileError struct {
	Path string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pipeline: compile %s: %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compiler turns WGSL source into SPIR-V bytes.
type Compiler func(source string) ([]byte, error)

// CacheOption configures a ShaderCache.
type CacheOption func(*ShaderCache)

// WithCompiler replaces the naga compiler.
func WithCompiler(c Compiler) CacheOption {
	return func(s *ShaderCache) { s.compile = c }
}

// WithCapacity bounds the number of cached shaders. Zero means unlimited.
func WithCapacity(n int) CacheOption {
	return func(s *ShaderCache) { s.capacity = n }
}

// ShaderCache maps shader file paths to compiled SPIR-V words.
// It is safe for concurrent use.
type ShaderCache struct {
	compile  Compiler
	capacity int
	entries  *cache.Cache[string, []uint32]
}

// NewShaderCache returns an empty cache compiling with naga.
func NewShaderCache(opts ...CacheOption) *ShaderCache {
	s := &ShaderCache{
		compile:  naga.Compile,
		capacity: DefaultShaderCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = cache.New[string, []uint32](s.capacity, nil)
	return s
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Load returns the SPIR-V of the WGSL file at path, compiling it on the first
// request.
func (s *ShaderCache) Load(path string) ([]uint32, error) {
	key := cacheKey(path)
	return s.entries.GetOrCreate(key, func() ([]uint32, error) {
		src, err := os.ReadFile(key)
		if err != nil {
			return nil, &CompileError{Path: path, Err: err}
		}
		words, err := s.compileWords(path, string(src))
		if err != nil {
			return nil, err
		}
		logging.L().Debug("pipeline: compiled shader", slog.String("path", path), slog.Int("words", len(words)))
		return words, nil
	})
}

// Compile compiles source without caching. name is used in errors.
func (s *ShaderCache) Compile(name, source string) ([]uint32, error) {
	return s.compileWords(name, source)
}

func (s *ShaderCache) compileWords(name, source string) ([]uint32, error) {
	code, err := s.compile(source)
	if err != nil {
		return nil, &CompileError{Path: name, Err: err}
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, &CompileError{Path: name, Err: fmt.Errorf("SPIR-V size %d is not a positive multiple of 4", len(code))}
	}
	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

// Cached reports whether path has a compiled entry.
func (s *ShaderCache) Cached(path string) bool { return s.entries.Contains(cacheKey(path)) }

// Invalidate drops the entry of path. It reports whether one existed.
func (s *ShaderCache) Invalidate(path string) bool { return s.entries.Remove(cacheKey(path)) }

// Clear drops every entry.
func (s *ShaderCache) Clear() { s.entries.Purge() }

// Len returns the number of cached shaders.
func (s *ShaderCache) Len() int { return s.entries.Len() }

// Stats returns hit and miss counters.
func (s *ShaderCache) Stats() cache.Stats { return s.entries.Stats() }
