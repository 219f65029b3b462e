package lib2d

import (
	"log/slog"

	"github.com/gogpu/lib2d/internal/logging"
)

// SetLogger configures the logger for lib2d and all its sub-packages.
// By default, lib2d produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by lib2d:
//   - [slog.LevelDebug]: per-frame diagnostics (fence stalls, descriptor reclaim)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, device initialized)
//   - [slog.LevelWarn]: non-fatal issues (software fallback, missing textures,
//     resource release errors)
//
// Example:
//
//	lib2d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by lib2d.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.L()
}
