// Package metrics holds the ambient Prometheus instrumentation for the
// pipeline (spec.md §10 Ambient Stack). These are operational counters and
// histograms, not the downstream "metrics" collaborator interface the
// Importance Scorer and Market-Impact Study consume (that is out of scope,
// see spec.md Non-goals) — this package only observes the pipeline itself.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds every counter/histogram emitted by the orchestrator and
// its collaborators. A single instance is shared process-wide.
type Pipeline struct {
	BatchesProcessed  *prometheus.CounterVec
	RecordsProcessed  *prometheus.CounterVec
	ExtractionLatency *prometheus.HistogramVec
	CausalLinksTotal  *prometheus.CounterVec
	WatcherTriggers   *prometheus.CounterVec
	ReconcilerScans   *prometheus.CounterVec
	SourceErrors      *prometheus.CounterVec

	collectors []prometheus.Collector
	registerer prometheus.Registerer
}

// New creates and registers the pipeline metrics with reg.
func New(reg prometheus.Registerer) *Pipeline {
	batchesProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_batches_processed_total",
		Help: "Total number of record batches processed per source.",
	}, []string{"source"})

	recordsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_records_processed_total",
		Help: "Total number of records processed per source and outcome.",
	}, []string{"source", "outcome"})

	extractionLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ceg_extraction_latency_seconds",
		Help:    "Latency of the Extraction Client's Chat call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	causalLinksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_causal_links_total",
		Help: "Total number of CausalLinks written, by kind (direct/retro).",
	}, []string{"kind"})

	watcherTriggers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_watcher_triggers_total",
		Help: "Total number of TriggeredWatches written, by tier.",
	}, []string{"tier"})

	reconcilerScans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_reconciler_scans_total",
		Help: "Total number of retroactive reconciliation scans, by direction.",
	}, []string{"direction"})

	sourceErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceg_source_errors_total",
		Help: "Total number of source-level errors, by source and kind.",
	}, []string{"source", "kind"})

	collectors := []prometheus.Collector{
		batchesProcessed, recordsProcessed, extractionLatency,
		causalLinksTotal, watcherTriggers, reconcilerScans, sourceErrors,
	}
	reg.MustRegister(collectors...)

	return &Pipeline{
		BatchesProcessed:  batchesProcessed,
		RecordsProcessed:  recordsProcessed,
		ExtractionLatency: extractionLatency,
		CausalLinksTotal:  causalLinksTotal,
		WatcherTriggers:   watcherTriggers,
		ReconcilerScans:   reconcilerScans,
		SourceErrors:      sourceErrors,
		collectors:        collectors,
		registerer:        reg,
	}
}

// Unregister removes every collector from the registry. Tests that build a
// fresh Pipeline per case must call this to avoid duplicate-registration
// panics against a shared registry.
func (p *Pipeline) Unregister() {
	if p.registerer == nil {
		return
	}
	for _, c := range p.collectors {
		p.registerer.Unregister(c)
	}
}

// ObserveExtraction records one Extraction Client call's latency.
func (p *Pipeline) ObserveExtraction(source string, d time.Duration) {
	p.ExtractionLatency.WithLabelValues(source).Observe(d.Seconds())
}
