package watchers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shugein/ceg/internal/lifecycle"
	"github.com/shugein/ceg/internal/logging"
)

// RuleReloader watches a watcher-rule YAML file and swaps the rule set
// into a live Engine on change, the same fsnotify-plus-debounce idiom
// internal/config.HotReloader uses for the pipeline config file. It
// implements lifecycle.Component so the composition root can start/stop
// it alongside everything else.
type RuleReloader struct {
	path     string
	engine   *Engine
	debounce time.Duration
	logger   *logging.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
	cancel        context.CancelFunc
	stopped       chan struct{}
}

var _ lifecycle.Component = (*RuleReloader)(nil)

// NewRuleReloader builds a reloader for path, applying updates to engine.
func NewRuleReloader(path string, engine *Engine) (*RuleReloader, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	return &RuleReloader{
		path:     path,
		engine:   engine,
		debounce: 500 * time.Millisecond,
		logger:   logging.GetLogger("watchers.reload"),
		stopped:  make(chan struct{}),
	}, nil
}

// Name implements lifecycle.Component.
func (r *RuleReloader) Name() string { return "watchers.rule_reloader" }

// Start loads path once, applies it, then watches for further changes in
// a background goroutine.
func (r *RuleReloader) Start(ctx context.Context) error {
	initial, err := LoadRules(r.path)
	if err != nil {
		return fmt.Errorf("failed to load initial watcher rules: %w", err)
	}
	r.engine.SetRules(initial)

	watchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.watchLoop(watchCtx)

	r.logger.Info("watching %s for watcher-rule changes (debounce %v)", r.path, r.debounce)
	return nil
}

// Stop implements lifecycle.Component.
func (r *RuleReloader) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	select {
	case <-r.stopped:
	case <-ctx.Done():
	}
	return nil
}

func (r *RuleReloader) watchLoop(ctx context.Context) {
	defer close(r.stopped)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Error("failed to create file watcher: %v", err)
		return
	}
	defer fsw.Close()

	if err := fsw.Add(r.path); err != nil {
		r.logger.Error("failed to watch file %s: %v", r.path, err)
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
				r.scheduleReload()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			r.logger.Warn("file watcher error: %v", err)
		}
	}
}

func (r *RuleReloader) scheduleReload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.debounce, func() {
		rules, err := LoadRules(r.path)
		if err != nil {
			r.logger.Warn("reload of %s failed, keeping previous rule set: %v", r.path, err)
			return
		}
		r.engine.SetRules(rules)
		r.logger.Info("watcher rules reloaded from %s", r.path)
	})
}
