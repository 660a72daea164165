package graphwriter

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// ChainReader implements internal/cmnln.ChainGraph against a live FalkorDB
// client, so the CMNLN Engine's chain discovery can walk CAUSES edges
// without knowing anything about Cypher.
type ChainReader struct {
	client Client
}

// NewChainReader builds a ChainReader over client.
func NewChainReader(client Client) *ChainReader {
	return &ChainReader{client: client}
}

// Outgoing returns every CAUSES edge leaving eventID.
func (r *ChainReader) Outgoing(ctx context.Context, eventID string) ([]models.CausalLink, error) {
	return r.causesEdges(ctx, `
		MATCH (cause:Event {id: $id})-[r:CAUSES]->(effect:Event)
		RETURN effect.id, r.kind, r.sign, r.lag_class, r.conf_prior, r.conf_text, r.conf_market, r.conf_total, r.weights_version, r.state, r.evidence
	`, eventID, false)
}

// Incoming returns every CAUSES edge arriving at eventID.
func (r *ChainReader) Incoming(ctx context.Context, eventID string) ([]models.CausalLink, error) {
	return r.causesEdges(ctx, `
		MATCH (cause:Event)-[r:CAUSES]->(effect:Event {id: $id})
		RETURN cause.id, r.kind, r.sign, r.lag_class, r.conf_prior, r.conf_text, r.conf_market, r.conf_total, r.weights_version, r.state, r.evidence
	`, eventID, true)
}

func (r *ChainReader) causesEdges(ctx context.Context, cypher, eventID string, incoming bool) ([]models.CausalLink, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{Query: cypher, Parameters: map[string]interface{}{"id": eventID}})
	if err != nil {
		return nil, err
	}

	links := make([]models.CausalLink, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 11 {
			continue
		}
		other, _ := row[0].(string)
		link := models.CausalLink{
			CauseEventID:   eventID,
			EffectEventID:  other,
			Kind:           models.CausalKind(asString(row[1])),
			Sign:           models.CausalSign(asString(row[2])),
			LagClass:       models.LagClass(asString(row[3])),
			ConfPrior:      asFloat(row[4]),
			ConfText:       asFloat(row[5]),
			ConfMarket:     asFloat(row[6]),
			ConfTotal:      asFloat(row[7]),
			WeightsVersion: asString(row[8]),
			State:          models.CausalLinkState(asString(row[9])),
			Evidence:       asStringSlice(row[10]),
		}
		if incoming {
			link.CauseEventID = other
			link.EffectEventID = eventID
		}
		links = append(links, link)
	}
	return links, nil
}

// EventTimestamp returns the Event node's timestamp, or false if the node
// does not exist.
func (r *ChainReader) EventTimestamp(ctx context.Context, eventID string) (time.Time, bool) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query:      `MATCH (e:Event {id: $id}) RETURN e.timestamp`,
		Parameters: map[string]interface{}{"id": eventID},
	})
	if err != nil || len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return time.Time{}, false
	}
	nanos := asInt64(result.Rows[0][0])
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

// EventImportance returns the most recently stamped importance total for
// eventID, or 0 if none has been computed yet.
func (r *ChainReader) EventImportance(ctx context.Context, eventID string) float64 {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query:      `MATCH (e:Event {id: $id}) RETURN e.importance_total`,
		Parameters: map[string]interface{}{"id": eventID},
	})
	if err != nil || len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0
	}
	return asFloat(result.Rows[0][0])
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
