package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/shugein/ceg/internal/batcher"
	"github.com/shugein/ceg/internal/eventextract"
	"github.com/shugein/ceg/internal/models"
)

// processChunk extracts, links, and materialises every event in chunk,
// returning the cursor position past the chunk's last record when every
// record in it processed without a transient error. A fatal extraction
// error on any record aborts the whole run by disabling the source
// (models.ExtractionFatalError's documented contract); a transient error
// fails just this chunk so the caller can retry it.
func (w *SourceWorker) processChunk(ctx context.Context, chunk batcher.Chunk, cursor models.Cursor) (models.Cursor, error) {
	for _, rec := range chunk.Records {
		if err := w.processRecord(ctx, rec); err != nil {
			var fatal *models.ExtractionFatalError
			if errors.As(err, &fatal) {
				w.logger.Error("fatal extraction error, disabling source %s: %v", w.src.Code, fatal)
				w.disabled.Store(true)
			}
			return cursor, err
		}
		cursor = models.Cursor{
			SourceCode:     w.src.Code,
			LastExternalID: rec.ExternalID,
			LastTimestamp:  rec.PublishedAt,
		}
	}
	return cursor, nil
}

// processRecord runs one record through extraction, linking, event
// derivation, and the full per-event pipeline.
func (w *SourceWorker) processRecord(ctx context.Context, rec models.Record) error {
	extractCtx, cancel := context.WithTimeout(ctx, w.cfg.ExtractionTimeout)
	extractStart := time.Now()
	ext, err := w.extractor.Extract(extractCtx, rec)
	cancel()
	if w.metrics != nil {
		w.metrics.ObserveExtraction(w.src.Code, time.Since(extractStart))
	}
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordsProcessed.WithLabelValues(w.src.Code, "extraction_error").Inc()
		}
		var transient *models.ExtractionTransientError
		if errors.As(err, &transient) {
			return err
		}
		// Fatal: propagate so the caller disables the source; the record
		// itself is not retryable within this run.
		return err
	}

	if ext.IsAdvertisement || ext.Empty() {
		if w.metrics != nil {
			w.metrics.RecordsProcessed.WithLabelValues(w.src.Code, "skipped").Inc()
		}
		return nil
	}

	linked := w.pipeline.ResolveMentions(ctx, ext)
	events := eventextract.Extract(rec, ext, w.cfgFull, linked)

	for _, ev := range events {
		if err := w.pipeline.ProcessEvent(ctx, ev, rec.TrustLevel); err != nil {
			w.logger.Warn("process event %s: %v", ev.ID, err)
		}
	}
	if w.metrics != nil {
		w.metrics.RecordsProcessed.WithLabelValues(w.src.Code, "processed").Inc()
	}
	return nil
}
