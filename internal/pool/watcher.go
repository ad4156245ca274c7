package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"talentmatch/internal/errors"
)

// Watcher watches the pool file for external changes and invalidates
// the store's read cache when another process rewrites it. Events are
// debounced because atomic writes show up as a create+rename burst.
type Watcher struct {
	mu sync.Mutex

	store         *FileStore
	debounceDelay time.Duration
	debounceTimer *time.Timer

	fsWatcher *fsnotify.Watcher
	stopChan  chan struct{}
	logger    *errors.Logger
	running   bool
}

// NewWatcher creates a watcher for the store's backing file.
func NewWatcher(store *FileStore, debounceDelay time.Duration, logger *errors.Logger) *Watcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &Watcher{
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start begins watching the pool file's directory. Watching the
// directory rather than the file catches rename-based writes and pool
// files that do not exist yet.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("pool watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.store.Path())
	if err := fsWatcher.Add(dir); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil && w.logger != nil {
			w.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.fsWatcher = fsWatcher
	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Talent pool file watcher started",
			"path", w.store.Path(),
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopChan)

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher")
		}
		return err
	}

	w.running = false

	if w.logger != nil {
		w.logger.Info("Talent pool file watcher stopped")
	}
	return nil
}

// watchLoop is the main event loop for file watching
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleInvalidate()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Pool file watcher error")
			}

		case <-w.stopChan:
			return
		}
	}
}

// shouldProcessEvent reports whether the event concerns the pool file
// and is a mutation rather than a chmod.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename) ||
		event.Op.Has(fsnotify.Remove)
}

// scheduleInvalidate debounces bursts of events into a single cache
// invalidation.
func (w *Watcher) scheduleInvalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		w.store.Invalidate()
		if w.logger != nil {
			if _, err := os.Stat(w.store.Path()); os.IsNotExist(err) {
				w.logger.Warn("Talent pool file removed, cache invalidated", "path", w.store.Path())
			} else {
				w.logger.Debug("Talent pool file changed, cache invalidated", "path", w.store.Path())
			}
		}
	})
}
