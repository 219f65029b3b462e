package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/lib2d/internal/logging"
)

// Watcher invalidates shader cache entries when their files change.
type Watcher struct {
	cache    *ShaderCache
	fs       *fsnotify.Watcher
	onChange func(path string)

	done chan struct{}
	once sync.Once
}

// Watch starts watching the directories of paths. onChange, if non-nil, is
// called from the watcher goroutine after a changed file's entry has been
// dropped, so callers can rebuild pipelines.
func (s *ShaderCache) Watch(onChange func(path string), paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pipeline: watch: %w", err)
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		dir := filepath.Dir(cacheKey(p))
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("pipeline: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	w := &Watcher{cache: s, fs: fw, onChange: onChange, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !w.cache.Invalidate(ev.Name) {
				continue
			}
			logging.L().Info("pipeline: shader changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			if w.onChange != nil {
				w.onChange(ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.L().Warn("pipeline: watch error", slog.Any("err", err))
		}
	}
}

// Close stops watching and waits for the watcher goroutine.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}
