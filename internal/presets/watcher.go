package presets

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a catalog file into a Catalog whenever it changes on disk. A file
// that fails to parse leaves the previous presets active.
type Watcher struct {
	path     string
	catalog  *Catalog
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	reloads int
}

func NewWatcher(path string, catalog *Catalog, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		catalog:  catalog,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// Run watches the catalog's directory so editors that replace the file are seen.
// It blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("preset watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	overlay, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("keeping previous presets")
		return
	}
	w.catalog.Replace(Merge(domain.BuiltinPresets(), overlay))

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.logger.Info().Str("path", w.path).Int("presets", len(overlay)).Msg("preset catalog reloaded")
}

// Reloads reports how many times the catalog was swapped.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}
