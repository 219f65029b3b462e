package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	data := `backend = "native"
frames = 10
width = 320
height = 200
memory_mb = 64
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Backend != "native" || cfg.Frames != 10 || cfg.Width != 320 || cfg.Height != 200 || cfg.MemoryMB != 64 {
		t.Errorf("loadConfig() = %+v", cfg)
	}
	if cfg.InFlight != 3 {
		t.Errorf("InFlight = %d, want default 3", cfg.InFlight)
	}
	if cfg.level() != slog.LevelDebug {
		t.Errorf("level() = %v, want debug", cfg.level())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("loadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("frames = \"many\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() accepted a string for frames")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Frames = 10
	cfg.Backend = "native"

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bindFlags(fs, &cfg)
	if err := fs.Parse([]string{"-frames", "5", "-size", "64x32"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Frames != 5 {
		t.Errorf("Frames = %d, want 5", cfg.Frames)
	}
	if cfg.Backend != "native" {
		t.Errorf("Backend = %q, want the configured native", cfg.Backend)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Errorf("size = %dx%d, want 64x32", cfg.Width, cfg.Height)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(nopWriter{})
	bindFlags(fs, &cfg)
	if err := fs.Parse([]string{"-size", "0x1"}); err == nil {
		t.Error("Parse accepted a zero width")
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestConfigPath(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, defaultConfigPath},
		{[]string{"-frames", "3"}, defaultConfigPath},
		{[]string{"-config", "a.toml"}, "a.toml"},
		{[]string{"--config=b.toml", "-frames", "1"}, "b.toml"},
		{[]string{"config", "c.toml"}, defaultConfigPath},
	}
	for _, tt := range tests {
		if got := configPath(tt.args); got != tt.want {
			t.Errorf("configPath(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestRunSoftware(t *testing.T) {
	cfg := defaultConfig()
	cfg.Frames = 6
	cfg.Width, cfg.Height = 16, 8
	cfg.MemoryMB = 64
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}
