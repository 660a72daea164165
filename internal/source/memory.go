package source

import (
	"context"
	"sort"

	"github.com/shugein/ceg/internal/models"
)

// MemoryAdapter is an in-process Adapter backed by a fixed slice of
// records, ordered oldest-first by PublishedAt. It exists to exercise the
// Adapter contract in tests without a live stream or web collaborator.
type MemoryAdapter struct {
	records []models.Record
	opened  bool
}

// NewMemoryAdapter builds an adapter over records, sorting a copy
// oldest-first.
func NewMemoryAdapter(records []models.Record) *MemoryAdapter {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})
	return &MemoryAdapter{records: sorted}
}

// Open implements Adapter.
func (a *MemoryAdapter) Open(_ context.Context, _ models.Source) error {
	a.opened = true
	return nil
}

// FetchSince implements Adapter, yielding records strictly newer than
// cursor.LastTimestamp, capped at limit. cursor.LastExternalID is not
// consulted, so records sharing the cursor's timestamp are not yielded.
func (a *MemoryAdapter) FetchSince(ctx context.Context, cursor models.Cursor, limit int) (<-chan models.Record, <-chan error) {
	out := make(chan models.Record)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		sent := 0
		for _, r := range a.records {
			if limit > 0 && sent >= limit {
				break
			}
			if !r.PublishedAt.After(cursor.LastTimestamp) {
				continue
			}
			select {
			case <-ctx.Done():
				errs <- &FetchError{Kind: FetchErrTransient, Cause: ctx.Err()}
				return
			case out <- r:
				sent++
			}
		}
	}()

	return out, errs
}

// Close implements Adapter.
func (a *MemoryAdapter) Close(_ context.Context) error {
	a.opened = false
	return nil
}
