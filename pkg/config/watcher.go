package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a Store when its configuration file changes. It
// watches the parent directory so editors that replace the file by rename
// are still seen. Bursts of events are debounced into one reload.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	store    *Store
	target   string
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileWatcher creates a watcher for the file backing store.
func NewFileWatcher(store *Store, interval time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("store has no configuration file to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultRulesWatchDebounce
	}

	target, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", store.Path(), err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  w,
		logger:   logger,
		store:    store,
		target:   target,
		debounce: NewDebouncer(interval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. A failed reload is
// logged and the previous configuration stays active.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	if err := fw.watcher.Add(filepath.Dir(fw.target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", fw.target, err)
	}

	fw.logger.Info("config watcher started", "path", fw.target)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("config watcher stopped")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.relevant(event) {
				continue
			}

			fw.logger.Debug("config file event", "path", event.Name, "op", event.Op.String())
			fw.debounce.Trigger(fw.reload)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("config watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) reload() {
	if err := fw.store.Reload(); err != nil {
		fw.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	fw.logger.Info("config reloaded", "path", fw.target)
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == fw.target
}

// Stop stops the watcher and waits for Watch to return. It is a no-op if
// Watch never ran.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}
	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Debouncer runs the most recent callback once events have been quiet for
// the interval.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger records callback and restarts the quiet period.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped && cb != nil {
		cb()
	}
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
