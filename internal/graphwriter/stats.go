package graphwriter

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/importance"
	"github.com/shugein/ceg/internal/models"
)

// StatsReader assembles an importance.ScoringContext for a freshly
// extracted Event by querying the counts and corroboration signals the
// Importance Scorer needs out of events already written to the graph
// (spec.md §4.F). The Scorer itself stays pure and I/O-free; this is the
// "caller assembles this from the graph store" piece its doc comment
// defers to.
type StatsReader struct {
	client Client
}

// NewStatsReader builds a StatsReader over client.
func NewStatsReader(client Client) *StatsReader {
	return &StatsReader{client: client}
}

// BuildScoringContext computes the historical-count and corroboration
// signals for ev. sourceTrust and priceImpacts are supplied by the caller
// since they come from the Source config and Market-Impact step
// respectively, not from graph history.
func (r *StatsReader) BuildScoringContext(ctx context.Context, ev models.Event, sourceTrust int, priceImpacts []float64) (importance.ScoringContext, error) {
	sc := importance.ScoringContext{
		SourceTrust:       sourceTrust,
		UniqueEntityCount: len(ev.Attrs.Companies),
		Sectors:           ev.Attrs.Sectors,
		PriceImpacts:      priceImpacts,
	}

	similar, err := r.countSimilarEvents(ctx, ev, 30*24*time.Hour)
	if err != nil {
		return sc, err
	}
	sc.SimilarEventCount30d = similar

	same24h, err := r.countSameType(ctx, ev.Type, ev.Timestamp, 24*time.Hour)
	if err != nil {
		return sc, err
	}
	sc.SameTypeCount24h = same24h

	same6h, err := r.countSameType(ctx, ev.Type, ev.Timestamp, 6*time.Hour)
	if err != nil {
		return sc, err
	}
	sc.SameTypeCountLast6h = same6h

	corroborated, err := r.crossSourceCorroborated(ctx, ev, 6*time.Hour)
	if err != nil {
		return sc, err
	}
	sc.CrossSourceCorroborated = corroborated

	return sc, nil
}

func (r *StatsReader) countSimilarEvents(ctx context.Context, ev models.Event, lookback time.Duration) (int, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query: `
			MATCH (e:Event {type: $type})
			WHERE e.timestamp >= $since AND e.timestamp < $until
			  AND e.id <> $id
			  AND any(t IN $tickers WHERE t IN e.tickers)
			RETURN count(*)
		`,
		Parameters: map[string]interface{}{
			"type":    string(ev.Type),
			"since":   ev.Timestamp.Add(-lookback).UnixNano(),
			"until":   ev.Timestamp.UnixNano(),
			"id":      ev.ID,
			"tickers": ev.Attrs.Tickers,
		},
	})
	return scalarCount(result, err)
}

func (r *StatsReader) countSameType(ctx context.Context, et models.EventType, t time.Time, lookback time.Duration) (int, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query: `
			MATCH (e:Event {type: $type})
			WHERE e.timestamp >= $since AND e.timestamp < $until
			RETURN count(*)
		`,
		Parameters: map[string]interface{}{
			"type":  string(et),
			"since": t.Add(-lookback).UnixNano(),
			"until": t.UnixNano(),
		},
	})
	return scalarCount(result, err)
}

// crossSourceCorroborated reports whether another source reported a
// matching event (same type, overlapping tickers) within +-window of ev.
func (r *StatsReader) crossSourceCorroborated(ctx context.Context, ev models.Event, window time.Duration) (bool, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query: `
			MATCH (e:Event {type: $type})
			WHERE e.source_code <> $source
			  AND e.timestamp >= $since AND e.timestamp <= $until
			  AND any(t IN $tickers WHERE t IN e.tickers)
			RETURN count(*)
		`,
		Parameters: map[string]interface{}{
			"type":    string(ev.Type),
			"source":  ev.SourceCode,
			"since":   ev.Timestamp.Add(-window).UnixNano(),
			"until":   ev.Timestamp.Add(window).UnixNano(),
			"tickers": ev.Attrs.Tickers,
		},
	})
	count, err := scalarCount(result, err)
	return count > 0, err
}

func scalarCount(result *QueryResult, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	return int(asInt64(result.Rows[0][0])), nil
}
