// Package source defines the Source Adapter contract (spec.md §4.A, §6)
// and a cursor store for resuming ingestion across restarts. Concrete
// stream (chat-channel) and web (HTML site) adapters are external
// collaborators per spec.md §1 — this package owns only the interface, the
// cursor persistence, and a couple of adapters thin enough to exercise the
// interface end to end (an in-memory fake used by tests, and a minimal
// polling web adapter skeleton).
package source

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// FetchError classifies why a fetch failed, per spec.md §4.A.
type FetchErrorKind string

const (
	FetchErrTransient FetchErrorKind = "transient" // retryable transport error
	FetchErrAuth      FetchErrorKind = "auth"       // fatal, disables source for the run
	FetchErrMalformed FetchErrorKind = "malformed"  // record skipped with warning
)

// FetchError wraps a fetch failure with its classification.
type FetchError struct {
	Kind  FetchErrorKind
	Cause error
}

func (e *FetchError) Error() string { return string(e.Kind) + ": " + e.Cause.Error() }
func (e *FetchError) Unwrap() error { return e.Cause }

// Adapter is the contract every Source implementation (stream or web) must
// satisfy. Open/Close bracket one fetch session; FetchSince yields a lazy
// sequence of records honouring the per-source fetch_limit.
type Adapter interface {
	// Open establishes a session handle for the given source configuration.
	Open(ctx context.Context, src models.Source) error

	// FetchSince streams records newer than cursor, oldest-first or
	// most-recent-first consistently per implementation (documented on the
	// concrete type), bounded by limit. The returned channel is closed when
	// the fetch completes or ctx is cancelled; a FetchError sent on errCh
	// with kind FetchErrAuth is fatal and the caller must stop consuming.
	FetchSince(ctx context.Context, cursor models.Cursor, limit int) (<-chan models.Record, <-chan error)

	// Close releases the session handle.
	Close(ctx context.Context) error
}

// CursorStore persists per-source cursors. Cursor advances only after its
// batch is fully committed (spec.md §5 Ordering guarantees).
type CursorStore interface {
	Load(ctx context.Context, sourceCode string) (models.Cursor, bool, error)
	Save(ctx context.Context, cursor models.Cursor) error
}

// NewEmptyCursor returns the zero-value starting cursor for a fresh
// source, used when CursorStore.Load reports no prior state.
func NewEmptyCursor(sourceCode string) models.Cursor {
	return models.Cursor{SourceCode: sourceCode, LastTimestamp: time.Time{}}
}
