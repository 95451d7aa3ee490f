package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigEvent represents a configuration change event.
type ConfigEvent struct {
	Path   string
	Config *Config
	Error  error
}

// Watcher monitors the config file and reloads it when it changes.
type Watcher struct {
	loader   *Loader
	target   string
	watcher  *fsnotify.Watcher
	events   chan ConfigEvent
	debounce time.Duration
	mu       sync.RWMutex
	current  *Config
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the loader's config file.
func NewWatcher(loader *Loader) (*Watcher, error) {
	target, err := filepath.Abs(loader.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		loader:   loader,
		target:   target,
		watcher:  fsWatcher,
		events:   make(chan ConfigEvent, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Events returns the channel that receives config change events.
func (w *Watcher) Events() <-chan ConfigEvent {
	return w.events
}

// Start loads the current config and begins watching for changes.
// The parent directory is watched so editors that replace the file
// via rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	cfg, err := w.loader.LoadAndValidate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	w.setCurrent(cfg)

	dir := filepath.Dir(w.target)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher. Events is closed once the run loop exits.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) setCurrent(cfg *Config) {
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)

	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.Now()
			} else if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.emit(ctx, ConfigEvent{
					Path:  w.target,
					Error: fmt.Errorf("config removed: %s (keeping last loaded config)", w.target),
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.emit(ctx, ConfigEvent{Error: err})

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.handleUpdate(ctx)
			}
		}
	}
}

func (w *Watcher) handleUpdate(ctx context.Context) {
	cfg, err := w.loader.LoadAndValidate()
	if err != nil {
		w.emit(ctx, ConfigEvent{
			Path:  w.target,
			Error: fmt.Errorf("failed to reload config %s: %w", w.target, err),
		})
		return
	}

	w.setCurrent(cfg)
	w.emit(ctx, ConfigEvent{Path: w.target, Config: cfg})
}

func (w *Watcher) emit(ctx context.Context, ev ConfigEvent) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
