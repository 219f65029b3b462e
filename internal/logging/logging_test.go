package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestDefaultIsSilent(t *testing.T) {
	Set(nil)
	if L().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("default logger should not be enabled at any level")
	}
}

func TestSetAndRestore(t *testing.T) {
	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer Set(nil)

	L().Info("fence reached", "value", 42)
	if !strings.Contains(buf.String(), "fence reached") {
		t.Errorf("log output %q missing message", buf.String())
	}

	Set(nil)
	buf.Reset()
	L().Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output after Set(nil), got %q", buf.String())
	}
}

func TestConcurrentSet(t *testing.T) {
	defer Set(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Set(slog.Default())
				L().Debug("tick")
				Set(nil)
			}
		}()
	}
	wg.Wait()
}
