package cmnln

import (
	"strings"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// typeAdjacency is a coarse event-type relatedness table used for the
// semantic-relatedness component of evidence scoring: pairs of types that
// commonly co-occur on the same causal thread (e.g. a rate move and a
// currency move) score higher than unrelated pairs.
var typeAdjacency = map[models.EventType]map[models.EventType]float64{
	models.EventTypeSanctions: {
		models.EventTypeStockDrop:       0.8,
		models.EventTypeRubDepreciation: 0.8,
		models.EventTypeSectorDrop:      0.6,
		models.EventTypeRegulatory:      0.5,
	},
	models.EventTypeRateHike: {
		models.EventTypeBankStockUp:     0.8,
		models.EventTypeRubAppreciation: 0.7,
		models.EventTypeStockDrop:       0.5,
	},
	models.EventTypeRateCut: {
		models.EventTypeStockRally:      0.8,
		models.EventTypeRubDepreciation: 0.6,
	},
	models.EventTypeEarningsMiss: {
		models.EventTypeStockDrop:   0.8,
		models.EventTypeGuidanceCut: 0.6,
	},
	models.EventTypeEarningsBeat: {
		models.EventTypeStockRally: 0.8,
	},
	models.EventTypeDefault: {
		models.EventTypeBondCrash: 0.8,
		models.EventTypeSectorDrop: 0.5,
	},
	models.EventTypeAccident: {
		models.EventTypeProductionDown: 0.7,
		models.EventTypeStockDrop:      0.5,
	},
}

// The evidenceWeight* constants name the weighted components of evidence scoring
// (spec.md §4.G.7) so they read as one set rather than scattered literals.
// These weights are fixed by the documented formula; only the accept
// threshold and the result cap are configurable (config.CMNLNConfig).
const (
	evidenceWeightTemporal   = 0.3
	evidenceWeightSemantic   = 0.3
	evidenceWeightEntity     = 0.25
	evidenceWeightTrust      = 0.1
	evidenceWeightImportance = 0.05
)

// EvidenceCandidate is one intermediate event considered as evidence for a
// cause/effect pair, carrying the precomputed signals the orchestrator
// supplies (source trust and importance live outside this package's
// concerns).
type EvidenceCandidate struct {
	Event       models.Event
	SourceTrust int
	Importance  float64
}

// ScoreEvidence computes the weighted evidence score for candidate sitting
// between cause and effect. midpoint is the temporal Gaussian's center.
func ScoreEvidence(cause, effect models.Event, candidate EvidenceCandidate) float64 {
	midpoint := cause.Timestamp.Add(effect.Timestamp.Sub(cause.Timestamp) / 2)
	span := effect.Timestamp.Sub(cause.Timestamp)
	sigma := float64(span) / 4.0
	if sigma <= 0 {
		sigma = float64(time.Hour)
	}
	offset := candidate.Event.Timestamp.Sub(midpoint)
	temporal := gaussian(absDuration(offset), sigma)

	semantic := semanticRelatedness(cause.Type, candidate.Event.Type)
	if s := semanticRelatedness(candidate.Event.Type, effect.Type); s > semantic {
		semantic = s
	}
	semantic += keywordOverlap(cause.Title, candidate.Event.Title)

	entity := entityOverlap(cause.Attrs, candidate.Event.Attrs)
	if e := entityOverlap(effect.Attrs, candidate.Event.Attrs); e > entity {
		entity = e
	}

	trust := float64(candidate.SourceTrust) / 10.0

	return clamp01(temporal)*evidenceWeightTemporal +
		clamp01(semantic)*evidenceWeightSemantic +
		clamp01(entity)*evidenceWeightEntity +
		clamp01(trust)*evidenceWeightTrust +
		clamp01(candidate.Importance)*evidenceWeightImportance
}

// SelectEvidence scores every candidate and returns up to e.cfg.EvidenceMaxCount
// event IDs meeting e.cfg.EvidenceMinScore, highest score first.
func (e *Engine) SelectEvidence(cause, effect models.Event, candidates []EvidenceCandidate) []string {
	type scored struct {
		id    string
		score float64
	}
	var kept []scored
	for _, c := range candidates {
		if !c.Event.Timestamp.After(cause.Timestamp) || !c.Event.Timestamp.Before(effect.Timestamp) {
			continue
		}
		score := ScoreEvidence(cause, effect, c)
		if score >= e.cfg.EvidenceMinScore {
			kept = append(kept, scored{id: c.Event.ID, score: score})
		}
	}
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j].score > kept[j-1].score; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}
	cap := e.cfg.EvidenceMaxCount
	if cap <= 0 {
		cap = len(kept)
	}
	if len(kept) > cap {
		kept = kept[:cap]
	}
	ids := make([]string, len(kept))
	for i, k := range kept {
		ids[i] = k.id
	}
	return ids
}

func semanticRelatedness(a, b models.EventType) float64 {
	if a == b {
		return 0.6
	}
	if adj, ok := typeAdjacency[a]; ok {
		if v, ok := adj[b]; ok {
			return v
		}
	}
	return 0
}

// keywordOverlap is a small Jaccard-style bonus over whitespace-split title
// tokens, supplementing the coarse type-adjacency table with whatever
// shared vocabulary the two titles actually carry.
func keywordOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var shared int
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return 0.3 * float64(shared) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) > 3 {
			out[f] = true
		}
	}
	return out
}

func entityOverlap(a, b models.EventAttrs) float64 {
	sa := make(map[string]bool)
	for _, t := range a.Tickers {
		sa[t] = true
	}
	for _, c := range a.Companies {
		sa[c] = true
	}
	sb := make(map[string]bool)
	for _, t := range b.Tickers {
		sb[t] = true
	}
	for _, c := range b.Companies {
		sb[c] = true
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	var shared int
	for k := range sa {
		if sb[k] {
			shared++
		}
	}
	union := len(sa) + len(sb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
