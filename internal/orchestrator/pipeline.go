// Package orchestrator wires the Source Adapter, Batcher, Extraction
// Client, Instrument Linker, Event Extractor, Importance Scorer, CMNLN
// Engine, Market-Impact/Event Study, Graph Writer, Watchers, and
// Retroactive Reconciler into a single per-source ingestion pipeline
// (spec.md §4.L).
package orchestrator

import (
	"context"
	"fmt"

	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/graphwriter"
	"github.com/shugein/ceg/internal/importance"
	"github.com/shugein/ceg/internal/linker"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/marketimpact"
	"github.com/shugein/ceg/internal/metrics"
	"github.com/shugein/ceg/internal/models"
	"github.com/shugein/ceg/internal/reconciler"
	"github.com/shugein/ceg/internal/watchers"
)

// Pipeline bundles the per-event processing stages shared by every source
// worker (spec.md §4.L, "pipeline order"). A single Pipeline instance is
// safe for concurrent use across source workers.
type Pipeline struct {
	cfg config.OrchestratorConfig

	linker      *linker.Linker
	instruments InstrumentIndex
	scorer      *importance.Scorer
	stats       *graphwriter.StatsReader
	study       *marketimpact.Study
	writer      *graphwriter.Writer
	watchEngine *watchers.Engine
	notifier    *watchers.Notifier
	reconciler  *reconciler.Reconciler
	metrics     *metrics.Pipeline

	logger *logging.Logger
}

// WithMetrics attaches ambient Prometheus instrumentation. Optional: a
// Pipeline with no metrics attached behaves identically, just without the
// counters.
func (p *Pipeline) WithMetrics(m *metrics.Pipeline) *Pipeline {
	p.metrics = m
	return p
}

// NewPipeline builds a Pipeline from its already-constructed collaborators.
// Construction (provider wiring, rule loading, graph client connection) is
// cmd/ceg's responsibility; Pipeline only orchestrates calls against them.
func NewPipeline(
	cfg config.OrchestratorConfig,
	l *linker.Linker,
	instruments InstrumentIndex,
	scorer *importance.Scorer,
	stats *graphwriter.StatsReader,
	study *marketimpact.Study,
	writer *graphwriter.Writer,
	watchEngine *watchers.Engine,
	notifier *watchers.Notifier,
	recon *reconciler.Reconciler,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		linker:      l,
		instruments: instruments,
		scorer:      scorer,
		stats:       stats,
		study:       study,
		writer:      writer,
		watchEngine: watchEngine,
		notifier:    notifier,
		reconciler:  recon,
		logger:      logging.GetLogger("orchestrator.pipeline"),
	}
}

// ResolveMentions resolves every company mention in ext to an Instrument
// id, best-effort: a mention the Linker cannot resolve is simply omitted
// from the result map, per eventextract.Extract's documented fallback
// (raw mention kept, ticker omitted).
func (p *Pipeline) ResolveMentions(ctx context.Context, ext models.Extraction) map[string]string {
	linked := make(map[string]string, len(ext.Companies))
	for _, c := range ext.Companies {
		if linker.IsRegulatory(c.Name) {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, p.cfg.ExchangeSearchTimeout)
		res, err := p.linker.Resolve(ctx, c.Name, c.TickerHint)
		cancel()
		if err != nil {
			p.logger.Debug("linker miss for %q: %v", c.Name, err)
			continue
		}
		linked[c.Name] = res.InstrumentID
	}
	return linked
}

// ProcessEvent runs one Event through graph persistence of the event,
// instrument linking, market-impact evaluation, importance scoring, watcher
// evaluation, and retroactive reconciliation, in that order (spec.md §4.L).
func (p *Pipeline) ProcessEvent(ctx context.Context, ev models.Event, sourceTrust int) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
	err := p.writer.WriteEvent(writeCtx, ev)
	cancel()
	if err != nil {
		return fmt.Errorf("write event %s: %w", ev.ID, err)
	}

	p.linkInstruments(ctx, ev)

	priceImpacts := p.evaluateMarketImpact(ctx, ev)

	scoringCtx, err := p.stats.BuildScoringContext(ctx, ev, sourceTrust, priceImpacts)
	if err != nil {
		p.logger.Warn("scoring context for %s: %v", ev.ID, err)
		scoringCtx = importance.ScoringContext{SourceTrust: sourceTrust, PriceImpacts: priceImpacts}
	}
	score := p.scorer.Score(ev, scoringCtx)

	writeCtx, cancel = context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
	if err := p.writer.WriteImportance(writeCtx, score); err != nil {
		p.logger.Warn("write importance for %s: %v", ev.ID, err)
	}
	cancel()

	p.runWatchers(ctx, ev, score)

	if err := p.reconciler.ReconcileNewEvent(ctx, ev); err != nil {
		p.logger.Warn("reconcile %s: %v", ev.ID, err)
	}
	if p.metrics != nil {
		p.metrics.ReconcilerScans.WithLabelValues("new_event").Inc()
	}

	return nil
}

func (p *Pipeline) linkInstruments(ctx context.Context, ev models.Event) {
	for _, tickerID := range ev.Attrs.Tickers {
		in, ok := p.instruments.ByID(tickerID)
		if !ok {
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
		if err := p.writer.WriteInstrument(writeCtx, in); err != nil {
			p.logger.Warn("write instrument %s: %v", tickerID, err)
		}
		if err := p.writer.LinkEventToInstrument(writeCtx, ev.ID, tickerID); err != nil {
			p.logger.Warn("link event %s to instrument %s: %v", ev.ID, tickerID, err)
		}
		cancel()
	}
}

// evaluateMarketImpact runs the event study for every linked ticker and
// keeps only significant results as ImpactEdges (spec.md §4.H), returning
// the normalised |AR| magnitudes for the Importance Scorer's price-impact
// component.
func (p *Pipeline) evaluateMarketImpact(ctx context.Context, ev models.Event) []float64 {
	if p.study == nil {
		return nil
	}
	priceImpacts := make([]float64, 0, len(ev.Attrs.Tickers))
	for _, tickerID := range ev.Attrs.Tickers {
		in, ok := p.instruments.ByID(tickerID)
		if !ok {
			continue
		}
		studyCtx, cancel := context.WithTimeout(ctx, p.cfg.MarketDataTimeout)
		result, err := p.study.Evaluate(studyCtx, in.Symbol, ev.Timestamp)
		cancel()
		if err != nil {
			p.logger.Debug("market impact for %s/%s: %v", ev.ID, tickerID, err)
			continue
		}
		priceImpacts = append(priceImpacts, clamp01(absFloat(result.AbnormalReturn)))
		if !result.IsSignificant {
			continue
		}
		edge := models.ImpactEdge{
			EventID:       ev.ID,
			InstrumentID:  tickerID,
			PriceImpact:   result.AbnormalReturn,
			VolumeImpact:  result.VolumeSpike,
			SentimentSign: result.SentimentSign,
			Window:        "event_study",
		}
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
		if err := p.writer.WriteImpactEdge(writeCtx, edge); err != nil {
			p.logger.Warn("write impact edge %s/%s: %v", ev.ID, tickerID, err)
		}
		cancel()
	}
	return priceImpacts
}

func (p *Pipeline) runWatchers(ctx context.Context, ev models.Event, score models.ImportanceScore) {
	outcome := p.watchEngine.Evaluate(ctx, ev, score)
	for _, tw := range outcome.Triggered {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
		err := p.writer.WriteTriggeredWatch(writeCtx, tw)
		cancel()
		if err != nil {
			p.logger.Warn("write triggered watch %s: %v", tw.ID, err)
			continue
		}
		if p.metrics != nil {
			p.metrics.WatcherTriggers.WithLabelValues(string(tw.Level)).Inc()
		}
		if errs := p.notifier.Dispatch(ctx, tw); len(errs) > 0 {
			p.logger.Warn("watch %s: %d notification handler(s) failed", tw.ID, len(errs))
		}
	}
	for _, pr := range outcome.Predictions {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.GraphWriteTimeout)
		if err := p.writer.WritePrediction(writeCtx, pr); err != nil {
			p.logger.Warn("write prediction %s: %v", pr.ID, err)
		}
		cancel()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
