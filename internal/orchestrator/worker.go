package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shugein/ceg/internal/batcher"
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/extraction"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/metrics"
	"github.com/shugein/ceg/internal/models"
	"github.com/shugein/ceg/internal/source"
)

// SourceWorker drives one configured Source through its own poll loop:
// fetch, batch, process, commit cursor (spec.md §4.L). It implements
// lifecycle.Component so an Orchestrator can start/stop every source
// worker through a single lifecycle.Manager, following the Start/Stop/
// runLoop shape _examples/moolen-spectre/internal/graph/reconciler/
// reconciler.go uses for its own periodic background component.
type SourceWorker struct {
	src         models.Source
	adapter     source.Adapter
	cursorStore source.CursorStore
	extractor   *extraction.Extractor
	pipeline    *Pipeline
	cfg         config.OrchestratorConfig
	cfgFull     *config.Config // anchor-type set for eventextract.Extract
	metrics     *metrics.Pipeline

	disabled atomic.Bool // set on a fatal extraction error; the worker idles until restarted. Chunks within a batch dispatch concurrently (spec.md §5), so this needs to be race-safe.

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger *logging.Logger
}

// NewSourceWorker builds a worker for src.
func NewSourceWorker(src models.Source, adapter source.Adapter, cursorStore source.CursorStore, extractor *extraction.Extractor, pipeline *Pipeline, cfgFull *config.Config) *SourceWorker {
	return &SourceWorker{
		src:         src,
		adapter:     adapter,
		cursorStore: cursorStore,
		extractor:   extractor,
		pipeline:    pipeline,
		cfg:         cfgFull.Orchestrator,
		cfgFull:     cfgFull,
		logger:      logging.GetLogger("orchestrator.source." + src.Code),
	}
}

// WithMetrics attaches ambient Prometheus instrumentation. Optional.
func (w *SourceWorker) WithMetrics(m *metrics.Pipeline) *SourceWorker {
	w.metrics = m
	return w
}

// Name implements lifecycle.Component.
func (w *SourceWorker) Name() string { return "source-worker:" + w.src.Code }

// Start implements lifecycle.Component. Idempotent.
func (w *SourceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.adapter.Open(ctx, w.src); err != nil {
		return err
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.runLoop(ctx)
	w.logger.Info("source worker started (poll_interval=%s)", w.src.PollInterval)
	return nil
}

// Stop implements lifecycle.Component. Idempotent.
func (w *SourceWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopCh)
	w.running = false
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return w.adapter.Close(ctx)
}

func (w *SourceWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	w.runOnce(ctx)

	interval := w.src.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runOnce fetches and commits at most one batch's worth of records from
// the source, advancing the cursor only past the chunks that fully
// committed (spec.md §5 Ordering guarantees).
func (w *SourceWorker) runOnce(ctx context.Context) {
	if w.disabled.Load() {
		return
	}

	cursor, found, err := w.cursorStore.Load(ctx, w.src.Code)
	if err != nil {
		w.logger.Error("load cursor: %v", err)
		return
	}
	if !found {
		cursor = source.NewEmptyCursor(w.src.Code)
	}

	batchCtx, cancel := context.WithTimeout(ctx, w.cfg.BatchDeadline())
	defer cancel()

	records, errs := w.adapter.FetchSince(batchCtx, cursor, w.src.FetchLimit)

	chunks, fetchErr := batcher.Chunks(batchCtx, records, w.cfg.BatchSize)
	if fetchErr == nil {
		select {
		case fetchErr = <-errs:
		default:
		}
	}
	if fetchErr != nil {
		var fe *source.FetchError
		if errors.As(fetchErr, &fe) && fe.Kind == source.FetchErrAuth {
			w.logger.Error("fatal fetch error, disabling source %s: %v", w.src.Code, fe)
			w.disabled.Store(true)
			if w.metrics != nil {
				w.metrics.SourceErrors.WithLabelValues(w.src.Code, string(source.FetchErrAuth)).Inc()
			}
			return
		}
		w.logger.Warn("fetch error for %s: %v", w.src.Code, fetchErr)
		if w.metrics != nil {
			kind := "unknown"
			if errors.As(fetchErr, &fe) {
				kind = string(fe.Kind)
			}
			w.metrics.SourceErrors.WithLabelValues(w.src.Code, kind).Inc()
		}
	}

	// Chunks of a batch process concurrently, degree <= batch_size (spec.md
	// §5): every chunk's extraction/linking/event pipeline runs in its own
	// goroutine against the same starting cursor, so causal-link detection
	// and market-impact computation for different chunks' events proceed in
	// parallel. Event/prediction/watch ids are derived deterministically
	// (internal/eventextract, internal/watchers), so a chunk whose sibling
	// fails and gets retried later converges onto the same graph nodes
	// instead of duplicating them. Commit order stays sequential: results
	// come back indexed by chunk order regardless of completion order, and
	// the cursor only advances up to the first chunk that failed, exactly
	// as the prior sequential implementation did.
	maxConcurrency := w.cfg.BatchSize
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	baseCursor := cursor
	results := batcher.Dispatch(batchCtx, chunks, maxConcurrency, func(dctx context.Context, c batcher.Chunk) (any, error) {
		if w.metrics != nil {
			w.metrics.BatchesProcessed.WithLabelValues(w.src.Code).Inc()
		}
		newCursor, ok := w.processChunkWithRetry(dctx, c, baseCursor)
		if !ok {
			return nil, fmt.Errorf("chunk %d dropped after retry", c.Index)
		}
		return newCursor, nil
	})

	for _, res := range results {
		if w.disabled.Load() {
			break
		}
		if res.Err != nil {
			w.logger.Warn("chunk %d dropped after retry for source %s: %v", res.Index, w.src.Code, res.Err)
			break
		}
		cursor = res.Value.(models.Cursor)
		if err := w.cursorStore.Save(ctx, cursor); err != nil {
			w.logger.Error("save cursor for %s: %v", w.src.Code, err)
			break
		}
	}
}

func (w *SourceWorker) processChunkWithRetry(ctx context.Context, chunk batcher.Chunk, cursor models.Cursor) (models.Cursor, bool) {
	newCursor, err := w.processChunk(ctx, chunk, cursor)
	if err == nil {
		return newCursor, true
	}
	w.logger.Warn("chunk %d failed, retrying once: %v", chunk.Index, err)

	newCursor, err = w.processChunk(ctx, chunk, cursor)
	if err == nil {
		return newCursor, true
	}
	w.logger.Error("chunk %d failed on retry, dropping: %v", chunk.Index, err)
	return cursor, false
}
