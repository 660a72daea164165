package graphwriter

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// EventReader is the read surface internal/reconciler needs to find
// candidate events for retroactive CMNLN re-evaluation.
type EventReader struct {
	client Client
}

// NewEventReader builds an EventReader over client.
func NewEventReader(client Client) *EventReader {
	return &EventReader{client: client}
}

// EventsAfter returns up to limit events with timestamp in
// (after, after+window], ordered by timestamp ascending — the Retroactive
// Reconciler's forward-direction candidate successors (spec.md §4.K).
func (r *EventReader) EventsAfter(ctx context.Context, after time.Time, window time.Duration, limit int) ([]models.Event, error) {
	return r.eventsInRange(ctx, `
		MATCH (e:Event)
		WHERE e.timestamp > $after AND e.timestamp <= $until
		RETURN e.id, e.record_key, e.source_code, e.type, e.title, e.timestamp, e.is_anchor, e.extraction_confidence
		ORDER BY e.timestamp ASC
		LIMIT $limit
	`, "after", after.UnixNano(), "until", after.Add(window).UnixNano(), limit)
}

// EventsBefore returns up to limit events with timestamp in
// [before-window, before), ordered by timestamp descending — the
// reconciler's backward-direction candidate predecessors.
func (r *EventReader) EventsBefore(ctx context.Context, before time.Time, window time.Duration, limit int) ([]models.Event, error) {
	return r.eventsInRange(ctx, `
		MATCH (e:Event)
		WHERE e.timestamp < $before AND e.timestamp >= $since
		RETURN e.id, e.record_key, e.source_code, e.type, e.title, e.timestamp, e.is_anchor, e.extraction_confidence
		ORDER BY e.timestamp DESC
		LIMIT $limit
	`, "since", before.Add(-window).UnixNano(), "before", before.UnixNano(), limit)
}

func (r *EventReader) eventsInRange(ctx context.Context, cypher, param1 string, v1 int64, param2 string, v2 int64, limit int) ([]models.Event, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query: cypher,
		Parameters: map[string]interface{}{
			param1:  v1,
			param2:  v2,
			"limit": limit,
		},
	})
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 8 {
			continue
		}
		events = append(events, models.Event{
			ID:                   asString(row[0]),
			RecordKey:            asString(row[1]),
			SourceCode:           asString(row[2]),
			Type:                 models.EventType(asString(row[3])),
			Title:                asString(row[4]),
			Timestamp:            time.Unix(0, asInt64(row[5])).UTC(),
			IsAnchor:             asBool(row[6]),
			ExtractionConfidence: asFloat(row[7]),
		})
	}
	return events, nil
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
