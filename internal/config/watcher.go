package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to a set of files, in practice the connection file.
// Events are not debounced: they coalesce into one pending value until the
// reader takes it.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	files   map[string]bool
	changes chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for the given files. Empty paths are skipped.
func NewWatcher(logger *slog.Logger, paths ...string) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		logger:  logger,
		files:   make(map[string]bool),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, p := range paths {
		if p != "" {
			w.files[filepath.Clean(p)] = true
		}
	}
	return w, nil
}

// Changes delivers a value after one or more watched files changed.
// Bursts of events collapse into a single pending value.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the containing directories, which survives atomic renames
	dirs := make(map[string]bool)
	for p := range w.files {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Debug("cannot watch directory", "dir", dir, "error", err)
		}
	}

	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug("config file changed", "file", event.Name)
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return w.watcher.Close()
	}

	w.running = false
	close(w.done)
	return w.watcher.Close()
}
