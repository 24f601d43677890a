// Package watch notifies when guideline files under the corpus directories
// change, coalescing bursts of events into a single callback.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches corpus directories recursively.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	dirs     []string
	debounce time.Duration
	onChange func(context.Context)
	logger   *zap.Logger

	pending   bool
	lastEvent time.Time
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a watcher over dirs. onChange runs on the watcher goroutine
// once events have been quiet for debounce.
func New(dirs []string, debounce time.Duration, onChange func(context.Context), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		fsw:      fsw,
		dirs:     dirs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds every existing corpus directory and its subdirectories, then
// watches in the background. Missing directories are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			w.logger.Warn("corpus directory not watched", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.addTree(dir)
	}

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("closing watcher", zap.Error(err))
	}
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.fsw.WatchList()
}

func (w *Watcher) addTree(root string) {
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))

		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending && time.Since(w.lastEvent) >= w.debounce
			if fire {
				w.pending = false
			}
			w.mu.Unlock()
			if fire && w.onChange != nil {
				w.onChange(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
		}
	}

	w.logger.Debug("corpus change", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}
