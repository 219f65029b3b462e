// Command lib2ddemo drives lib2d headlessly: it initializes a device, loads
// the textures and fonts of an asset directory and renders frames through
// the frame ring, reporting frame timing.
//
// Usage:
//
//	lib2ddemo [-config lib2ddemo.toml] [-backend software|native] [-frames N]
//	          [-size WxH] [-memory MiB] [-assets dir]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loov/hrtime"

	"github.com/gogpu/lib2d"
	"github.com/gogpu/lib2d/backend"
	_ "github.com/gogpu/lib2d/backend/native"
	_ "github.com/gogpu/lib2d/backend/software"
	"github.com/gogpu/lib2d/font"
	"github.com/gogpu/lib2d/frame"
	"github.com/gogpu/lib2d/gpucore"
)

const defaultConfigPath = "lib2ddemo.toml"

func main() {
	cfg, err := loadConfig(configPath(os.Args[1:]))
	if err != nil {
		log.Fatal(err)
	}
	fs := flag.NewFlagSet("lib2ddemo", flag.ExitOnError)
	fs.String("config", defaultConfigPath, "TOML configuration file")
	bindFlags(fs, &cfg)
	_ = fs.Parse(os.Args[1:])

	lib2d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.level()})))

	if err := run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}

// configPath finds the -config flag before the flag set is built, so that
// the file supplies the flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "config" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultConfigPath
}

func run(ctx context.Context, cfg Config) error {
	b, err := backend.Get(cfg.Backend)
	if err != nil {
		return fmt.Errorf("backend %q: %w (available: %v)", cfg.Backend, err, backend.Available())
	}

	dev := lib2d.New(b, cfg.options()...)
	res, err := dev.Initialize(cfg.MemoryMB << 20)
	if res == lib2d.ResultMemoryReservationFailed {
		fmt.Fprintf(os.Stderr, "Insufficient GPU memory: could not reserve %d MiB on this adapter.\n", cfg.MemoryMB)
		fmt.Fprintln(os.Stderr, "Close other applications or lower memory_mb and try again.")
		os.Exit(2)
	}
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer dev.Destroy()

	info := dev.Info()
	log.Printf("adapter %q (%s, feature level %s) on %s backend", info.Name, info.Type, info.FeatureLevel, b.Name())

	if cfg.Assets != "" {
		if err := loadAssets(ctx, dev, cfg.Assets); err != nil {
			return err
		}
	}

	elapsed, err := renderFrames(ctx, dev, cfg)
	if err != nil {
		return err
	}

	stats := dev.Frames().Stats()
	log.Printf("%d frames in %v (%v/frame)", cfg.Frames, elapsed, perFrame(elapsed, cfg.Frames))
	log.Printf("fence stalls: %d, average %v, max %v", stats.Stalls, stats.AverageStall(), stats.MaxStall)
	log.Printf("memory: %s", dev.MemoryStats())
	return nil
}

func perFrame(d time.Duration, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return d / time.Duration(n)
}

var textureExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// loadAssets uploads every image under dir in one batch and parses every
// .fnt file.
func loadAssets(ctx context.Context, dev *lib2d.Device, dir string) error {
	var images, fonts []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case ext == ".fnt":
			fonts = append(fonts, path)
		case textureExts[ext]:
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan assets: %w", err)
	}

	start := hrtime.Now()
	if len(images) > 0 {
		if _, err := dev.LoadTextures(ctx, images...); err != nil {
			return fmt.Errorf("load textures: %w", err)
		}
	}
	for _, path := range fonts {
		f, err := dev.LoadFont(path)
		var perr *font.ParseError
		if errors.As(err, &perr) {
			log.Printf("skipping font: %v", perr)
			continue
		}
		if err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		size := f.CalcStringSize("lib2d")
		log.Printf("font %s: %d glyphs, \"lib2d\" is %.0fx%.0f", filepath.Base(path), f.Len(), size.X(), size.Y())
	}
	log.Printf("loaded %d textures and %d fonts in %v", len(images), len(fonts), hrtime.Since(start))
	return nil
}

// renderFrames clears the back buffer of every frame and presents it.
func renderFrames(ctx context.Context, dev *lib2d.Device, cfg Config) (time.Duration, error) {
	direct, err := dev.CreateCommandQueue(gpucore.QueueDirect, "direct")
	if err != nil {
		return 0, err
	}
	fb, err := dev.CreateFramebuffer(cfg.Width, cfg.Height, dev.Frames().Len(), gpucore.FormatRGBA8Unorm)
	if err != nil {
		return 0, err
	}
	defer fb.Destroy()

	if cfg.Frames < 1 {
		return 0, fmt.Errorf("frames must be positive, got %d", cfg.Frames)
	}
	bench := hrtime.NewBenchmark(cfg.Frames)
	for n := 0; bench.Next(); n++ {
		c, err := dev.Frames().Begin(ctx, n)
		if err != nil {
			return 0, fmt.Errorf("frame %d: %w", n, err)
		}
		i := fb.CurrentBackBufferIndex()
		t := float32(n%60) / 60
		list := c.List(frame.StageMain)
		list.Transition(fb.TransitionBarrier(i, gpucore.StatePresent, gpucore.StateRenderTarget))
		list.ClearRenderTarget(fb.RenderTargetView(i), [4]float32{t, 0.2, 1 - t, 1})
		list.ClearDepth(fb.DepthStencilView(), 1)
		list.Transition(fb.TransitionBarrier(i, gpucore.StateRenderTarget, gpucore.StatePresent))
		if _, err := dev.Frames().Submit(direct); err != nil {
			return 0, fmt.Errorf("frame %d: %w", n, err)
		}
		fb.Present()
	}
	if err := dev.WaitForIdle(ctx); err != nil {
		return 0, err
	}

	var total time.Duration
	for _, lap := range bench.Laps() {
		total += lap
	}
	fmt.Println(bench.Histogram(10))
	return total, nil
}
