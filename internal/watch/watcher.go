// Package watch re-runs the suite when configuration or contract files change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leslieo2/go-api-probe/internal/observability"
)

// Event is a change to one watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to individual files. It watches their parent
// directories so files replaced by rename (as most editors save) keep being
// tracked.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *observability.Logger

	mu         sync.RWMutex
	files      map[string]struct{}
	dirs       map[string]struct{}
	isWatching bool

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(logger *observability.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher: fsWatcher,
		logger:  logger,
		files:   make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
		events:  make(chan Event, 100),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Add starts tracking a file.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}

	w.files[absPath] = struct{}{}
	w.logger.Debug("Added watch path", zap.String("path", absPath))
	return nil
}

// Files returns the tracked files.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isWatching {
		return
	}
	w.isWatching = true

	w.wg.Add(1)
	go w.watch()
	w.logger.Info("File watcher started", zap.Int("files", len(w.files)))
}

// Stop ends the event loop and closes the Events channel. A stopped watcher
// cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasWatching := w.isWatching
	w.isWatching = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	if wasWatching {
		close(w.events)
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Failed to close file watcher", zap.Error(err))
	}
	w.logger.Info("File watcher stopped")
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("File changed", zap.String("path", event.Name), zap.String("operation", event.Op.String()))
			select {
			case w.events <- Event{Path: event.Name, Op: event.Op}:
			case <-w.ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}
