package orchestrator

import (
	"context"

	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/extraction"
	"github.com/shugein/ceg/internal/lifecycle"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/metrics"
	"github.com/shugein/ceg/internal/models"
	"github.com/shugein/ceg/internal/source"
)

// Orchestrator owns one SourceWorker per enabled models.Source and starts/
// stops them all through a single lifecycle.Manager (spec.md §4.L,
// §5 graceful shutdown).
type Orchestrator struct {
	manager *lifecycle.Manager
	workers []*SourceWorker
	logger  *logging.Logger
}

// New builds an Orchestrator with one worker per enabled source in cfg.
// adapterFor resolves a models.Source to its concrete Adapter (stream or
// web, supplied by the caller since the transport is external to this
// package per spec.md §1).
func New(cfg *config.Config, adapterFor func(models.Source) (source.Adapter, error), cursorStore source.CursorStore, extractor *extraction.Extractor, pipeline *Pipeline) (*Orchestrator, error) {
	o := &Orchestrator{
		manager: lifecycle.NewManager(),
		logger:  logging.GetLogger("orchestrator"),
	}

	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		adapter, err := adapterFor(src)
		if err != nil {
			return nil, err
		}
		worker := NewSourceWorker(src, adapter, cursorStore, extractor, pipeline, cfg)
		if err := o.manager.Register(worker); err != nil {
			return nil, err
		}
		o.workers = append(o.workers, worker)
	}

	return o, nil
}

// WithMetrics attaches ambient Prometheus instrumentation to every source
// worker. Optional.
func (o *Orchestrator) WithMetrics(m *metrics.Pipeline) *Orchestrator {
	for _, w := range o.workers {
		w.WithMetrics(m)
	}
	return o
}

// Name implements lifecycle.Component.
func (o *Orchestrator) Name() string { return "orchestrator" }

// Start starts every registered source worker.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.logger.Info("starting %d source worker(s)", len(o.workers))
	return o.manager.Start(ctx)
}

// Stop stops every registered source worker.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.logger.Info("stopping source workers")
	return o.manager.Stop(ctx)
}
