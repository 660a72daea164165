package graphwriter

import "context"

// EventMarketConfidence reports whether eventID already has at least one
// IMPACTS edge (which the Graph Writer only ever creates for a
// significant market-impact result, per spec.md §4.H). Returns 1.0 if so,
// 0 otherwise. internal/reconciler uses this as the conf_market input to
// CMNLN re-evaluation for historical events it has no fresh OHLCV window
// left to re-run the event study against.
func (r *ChainReader) EventMarketConfidence(ctx context.Context, eventID string) float64 {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query:      `MATCH (e:Event {id: $id})-[:IMPACTS]->() RETURN count(*)`,
		Parameters: map[string]interface{}{"id": eventID},
	})
	if err != nil || len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0
	}
	if asInt64(result.Rows[0][0]) > 0 {
		return 1.0
	}
	return 0
}
