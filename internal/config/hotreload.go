package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shugein/ceg/internal/logging"
)

// ReloadCallback is invoked when the watched config file has been
// successfully reloaded and validated. If it returns an error, the error
// is logged but the watcher keeps watching with the previous valid config.
type ReloadCallback func(cfg *Config) error

// HotReloader watches a pipeline config file for changes and triggers
// ReloadCallback with debouncing to coalesce editor save sequences into a
// single reload.
type HotReloader struct {
	path           string
	debounce       time.Duration
	callback       ReloadCallback
	logger         *logging.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
	cancel        context.CancelFunc
	stopped       chan struct{}
}

// NewHotReloader creates a watcher for path. debounce defaults to 500ms if
// zero.
func NewHotReloader(path string, debounce time.Duration, callback ReloadCallback) (*HotReloader, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	return &HotReloader{
		path:     path,
		debounce: debounce,
		callback: callback,
		logger:   logging.GetLogger("config.hotreload"),
		stopped:  make(chan struct{}),
	}, nil
}

// Start loads the file once, invokes callback, then watches for changes.
// It returns once the initial load has completed; watching continues in a
// background goroutine until Stop is called.
func (w *HotReloader) Start(ctx context.Context) error {
	initial, err := Load(w.path)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.watchLoop(watchCtx)

	w.logger.Info("watching %s for changes (debounce %v)", w.path, w.debounce)
	return nil
}

// Stop cancels the background watch goroutine and waits for it to exit.
func (w *HotReloader) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.stopped
}

func (w *HotReloader) watchLoop(ctx context.Context) {
	defer close(w.stopped)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create file watcher: %v", err)
		return
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		w.logger.Error("failed to watch file %s: %v", w.path, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.scheduleReload(ctx)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error: %v", err)
		}
	}
}

func (w *HotReloader) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		cfg, err := Load(w.path)
		if err != nil {
			w.logger.Warn("reload of %s failed, keeping previous config: %v", w.path, err)
			return
		}
		if err := w.callback(cfg); err != nil {
			w.logger.Warn("reload callback for %s failed: %v", w.path, err)
		}
	})
	_ = ctx
}
