package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/lib2d"
)

// Config is the demo configuration. It is read from a TOML file and then
// overridden by command line flags.
type Config struct {
	Backend  string `toml:"backend"`
	Frames   int    `toml:"frames"`
	InFlight int    `toml:"in_flight"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	Assets   string `toml:"assets"`
	LogLevel string `toml:"log_level"`

	// MemoryMB is the local memory reservation in MiB.
	MemoryMB uint64 `toml:"memory_mb"`

	Descriptors  int `toml:"descriptors"`
	TextureCache int `toml:"texture_cache"`
}

func defaultConfig() Config {
	return Config{
		Backend:      "software",
		Frames:       120,
		InFlight:     3,
		Width:        640,
		Height:       480,
		LogLevel:     "info",
		MemoryMB:     512,
		Descriptors:  lib2d.DefaultCSUCapacity,
		TextureCache: lib2d.DefaultTextureCacheSize,
	}
}

// loadConfig decodes path over the defaults. A missing path is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// bindFlags registers flags defaulting to cfg's values. Parsing fs writes
// explicitly set flags back into cfg.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "GPU backend: software or native")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "number of frames to render")
	fs.IntVar(&cfg.InFlight, "in-flight", cfg.InFlight, "frames in flight")
	fs.StringVar(&cfg.Assets, "assets", cfg.Assets, "directory of textures and .fnt fonts to load")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.Uint64Var(&cfg.MemoryMB, "memory", cfg.MemoryMB, "local memory reservation in MiB")
	fs.Func("size", "framebuffer size as WxH", func(s string) error {
		var w, h uint32
		if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil || w == 0 || h == 0 {
			return fmt.Errorf("invalid size %q", s)
		}
		cfg.Width, cfg.Height = w, h
		return nil
	})
}

// options maps the configuration to device options.
func (c Config) options() []lib2d.Option {
	return []lib2d.Option{
		lib2d.WithFrameCount(c.InFlight),
		lib2d.WithCSUCapacity(c.Descriptors),
		lib2d.WithTextureCacheSize(c.TextureCache),
	}
}

func (c Config) level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
