// Package eventextract derives Event vertices from a Record and its
// Extraction (spec.md §4.E). Instrument linking happens upstream in
// internal/linker; this package only turns already-mentioned companies
// and metrics into typed Event rows and marks anchor events per the
// configured anchor set.
package eventextract

import (
	"github.com/google/uuid"
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/models"
)

// Extract turns one record's extraction into zero or more Events. A
// record with no recognised event types and no financial metrics yields
// no events (spec.md §4.E: "a record that mentions nothing of interest
// produces nothing").
func Extract(rec models.Record, ext models.Extraction, cfg *config.Config, linked map[string]string) []models.Event {
	if ext.Empty() {
		return nil
	}

	attrs := buildAttrs(ext, linked)

	events := make([]models.Event, 0, len(ext.EventTypes))
	for _, raw := range ext.EventTypes {
		et := models.EventType(raw)
		ev := models.Event{
			ID:                   eventID(rec, et),
			RecordKey:            rec.Key(),
			SourceCode:           rec.SourceCode,
			Type:                 et,
			Title:                rec.Title,
			Timestamp:            rec.PublishedAt,
			Attrs:                attrs,
			ExtractionConfidence: ext.Confidence,
		}
		ev.IsAnchor = cfg.IsAnchor(et)
		events = append(events, ev)
	}
	return events
}

// buildAttrs collects entity attributes shared by every event derived
// from the same extraction. linked maps a company mention's name to a
// resolved Instrument.ID(), populated by internal/linker; mentions absent
// from the map are omitted from Tickers but still contribute to
// Companies/Sectors so downstream consumers see the raw mention.
func buildAttrs(ext models.Extraction, linked map[string]string) models.EventAttrs {
	attrs := models.EventAttrs{Numeric: map[string]float64{}}
	seenSector := map[string]bool{}

	for _, c := range ext.Companies {
		attrs.Companies = append(attrs.Companies, c.Name)
		if ticker, ok := linked[c.Name]; ok && ticker != "" {
			attrs.Tickers = append(attrs.Tickers, ticker)
		}
		if c.SectorHint != "" && !seenSector[c.SectorHint] {
			seenSector[c.SectorHint] = true
			attrs.Sectors = append(attrs.Sectors, c.SectorHint)
		}
	}

	for _, m := range ext.Metrics {
		attrs.Numeric[m.Name] = m.Value
	}

	return attrs
}

// eventID derives a stable Event id from the (record, event type) pair, so
// reprocessing a record after a restart (spec.md §5: the unfinished batch
// is replayed) MERGEs onto the same Event node instead of creating a
// duplicate (spec.md §8 invariant 5, replay must converge).
func eventID(rec models.Record, et models.EventType) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.Key()+"\x00"+string(et))).String()
}
