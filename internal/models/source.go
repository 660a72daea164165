// Package models defines the shared entity types that flow through the CEG
// pipeline: Source, Record, Extraction, Instrument, Company, Event,
// CausalLink, ImpactEdge, ImportanceScore, TriggeredWatch and EventPrediction.
package models

import "time"

// SourceKind identifies the transport family of a Source.
type SourceKind string

const (
	SourceKindStream SourceKind = "stream" // chat-channel style push feed
	SourceKindWeb    SourceKind = "web"    // HTML site, date-cursor polling
)

// Source is immutable configuration for one ingestion endpoint. It is
// created by config load and never mutated by the core pipeline.
type Source struct {
	Code         string     `json:"code"`
	Kind         SourceKind `json:"kind"`
	TrustLevel   int        `json:"trust_level"` // 0-10
	Enabled      bool       `json:"enabled"`
	FetchLimit   int        `json:"fetch_limit"`
	PollInterval time.Duration `json:"poll_interval"`
	LookbackDays int        `json:"lookback_days"`
}

// Cursor is the per-source resumable position, persisted after every
// fully-committed batch.
type Cursor struct {
	SourceCode           string     `json:"source_code"`
	LastExternalID       string     `json:"last_external_id"`
	LastTimestamp         time.Time  `json:"last_timestamp"`
	BackfillCompletedAt  *time.Time `json:"backfill_completed_at,omitempty"`
}

// Record is a raw ingested item owned by its producing Source.
type Record struct {
	SourceCode string    `json:"source_code"`
	ExternalID string    `json:"external_id"` // unique per source
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	TrustLevel  int       `json:"trust_level"` // snapshot at ingest time
}

// Key returns the (source, external-id) dedup key required by invariant 4.
func (r Record) Key() string {
	return r.SourceCode + "\x00" + r.ExternalID
}

// RecordWithHash pairs a Record with a content hash for content-based
// dedup alongside the (source, external-id) key. No adapter or batcher in
// this module builds this type or fills ContentHash.
type RecordWithHash struct {
	Record
	ContentHash string
}
