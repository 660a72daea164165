package graphwriter

import (
	"context"

	"github.com/shugein/ceg/internal/models"
)

// FollowOn is one empirically observed (cause type -> effect type)
// transition, aggregated from existing CAUSES edges in the graph.
type FollowOn struct {
	EventType   models.EventType
	Probability float64 // average conf_total of edges observed with this effect type
	Occurrences int
}

// FollowOnAnalyzer computes the empirical follow-on distribution for an
// event type, which internal/watchers' L2 predictive tier uses to
// enumerate likely follow-on event types (spec.md §4.J).
type FollowOnAnalyzer struct {
	client Client
}

// NewFollowOnAnalyzer builds a FollowOnAnalyzer over client.
func NewFollowOnAnalyzer(client Client) *FollowOnAnalyzer {
	return &FollowOnAnalyzer{client: client}
}

// LikelyFollowOns returns up to topK effect event types that have
// historically followed causeType, ranked by occurrence count, each with
// the mean conf_total of the edges observed for it as an estimated
// probability.
func (a *FollowOnAnalyzer) LikelyFollowOns(ctx context.Context, causeType models.EventType, topK int) ([]FollowOn, error) {
	result, err := a.client.ExecuteQuery(ctx, Query{
		Query: `
			MATCH (c:Event {type: $cause_type})-[r:CAUSES]->(e:Event)
			RETURN e.type, avg(r.conf_total), count(*) AS occurrences
			ORDER BY occurrences DESC
			LIMIT $top_k
		`,
		Parameters: map[string]interface{}{"cause_type": string(causeType), "top_k": topK},
	})
	if err != nil {
		return nil, err
	}

	out := make([]FollowOn, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 3 {
			continue
		}
		out = append(out, FollowOn{
			EventType:   models.EventType(asString(row[0])),
			Probability: asFloat(row[1]),
			Occurrences: int(asInt64(row[2])),
		})
	}
	return out, nil
}
