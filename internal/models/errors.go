package models

import "fmt"

// ExtractionTransientError signals a retryable failure of the Extraction
// Client (timeout, 5xx, connection reset). Callers retry with backoff.
type ExtractionTransientError struct {
	Cause error
}

func (e *ExtractionTransientError) Error() string {
	return fmt.Sprintf("extraction transient failure: %v", e.Cause)
}

func (e *ExtractionTransientError) Unwrap() error { return e.Cause }

// ExtractionFatalError signals a non-retryable failure (auth, quota). The
// caller must abort the batch and disable the source for the run.
type ExtractionFatalError struct {
	Cause error
}

func (e *ExtractionFatalError) Error() string {
	return fmt.Sprintf("extraction fatal failure: %v", e.Cause)
}

func (e *ExtractionFatalError) Unwrap() error { return e.Cause }

// LinkerMissError signals that no Instrument could be resolved for a
// company mention. The caller proceeds with company-only context.
type LinkerMissError struct {
	Mention string
}

func (e *LinkerMissError) Error() string {
	return fmt.Sprintf("linker: no instrument resolved for mention %q", e.Mention)
}

// MarketDataMissingError signals that no OHLCV bars existed in the
// requested window. The caller treats market-impact components as
// null/zero; the event is still saved.
type MarketDataMissingError struct {
	Symbol string
}

func (e *MarketDataMissingError) Error() string {
	return fmt.Sprintf("market data: no bars for %s in requested window", e.Symbol)
}

// GraphUpsertConflictError signals a concurrent-edit conflict on a graph
// write. The caller retries once, then accepts that merge resolves by key.
type GraphUpsertConflictError struct {
	Key   string
	Cause error
}

func (e *GraphUpsertConflictError) Error() string {
	return fmt.Sprintf("graph upsert conflict on %q: %v", e.Key, e.Cause)
}

func (e *GraphUpsertConflictError) Unwrap() error { return e.Cause }

// WatcherHandlerError isolates a single notification handler's failure so
// it never blocks delivery to other handlers.
type WatcherHandlerError struct {
	Handler string
	Cause   error
}

func (e *WatcherHandlerError) Error() string {
	return fmt.Sprintf("watcher handler %q failed: %v", e.Handler, e.Cause)
}

func (e *WatcherHandlerError) Unwrap() error { return e.Cause }
