// Package importance scores a newly created Event on five components in
// [0,1], weighted-summed into a total importance (spec.md §4.F). The
// weighting style — named constants, one calculation function per
// component, clamped output, generated rationale — follows the
// confidence-scoring idiom used elsewhere in this codebase's lineage.
package importance

import (
	"fmt"
	"strings"

	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/models"
)

// highCredibilitySubset is the set of event types whose mere occurrence
// is considered higher-credibility regardless of source, since they are
// hard to fabricate or routinely exaggerate.
var highCredibilitySubset = map[models.EventType]bool{
	models.EventTypeSanctions: true,
	models.EventTypeDefault:   true,
	models.EventTypeRateHike:  true,
	models.EventTypeRateCut:   true,
}

// broadEventTypes tend to affect an entire sector or market rather than
// a single issuer, earning a breadth bonus regardless of entity count.
var broadEventTypes = map[models.EventType]bool{
	models.EventTypeSanctions:  true,
	models.EventTypeRegulatory: true,
	models.EventTypeMarketDrop: true,
	models.EventTypeSectorDrop: true,
}

// ScoringContext carries the precomputed signals a Scorer needs that
// cross event boundaries (historical counts, linked price impact). The
// caller (orchestrator) assembles this from the graph store and market
// data before calling Score; Scorer itself has no I/O.
type ScoringContext struct {
	// SimilarEventCount30d is the count of same-type events for the same
	// tickers in the preceding 30 days.
	SimilarEventCount30d int
	// SameTypeCount24h is the count of same-type events in the preceding
	// 24 hours (any tickers).
	SameTypeCount24h int
	// SameTypeCountLast6h is the subset of SameTypeCount24h that occurred
	// in the last 6 hours.
	SameTypeCountLast6h int
	// SourceTrust is the trust_level (0-10) of the event's source.
	SourceTrust int
	// CrossSourceCorroborated is true when at least one other source
	// reported a matching event within ±6h.
	CrossSourceCorroborated bool
	// UniqueEntityCount is the number of distinct companies/tickers
	// mentioned by the event.
	UniqueEntityCount int
	// Sectors lists the distinct sectors touched by the event's entities.
	Sectors []string
	// PriceImpacts is the normalised |AR| or volume-spike magnitude
	// (already clamped to [0,1] by the caller) for each linked instrument.
	PriceImpacts []float64
}

// Scorer computes ImportanceScore values using configured weights.
type Scorer struct {
	cfg config.ImportanceConfig
}

// NewScorer builds a Scorer from configuration.
func NewScorer(cfg config.ImportanceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the weighted importance for ev given ctx.
func (s *Scorer) Score(ev models.Event, ctx ScoringContext) models.ImportanceScore {
	components := models.ImportanceComponents{
		Novelty:      clamp01(noveltyComponent(ev, ctx)),
		Burst:        clamp01(burstComponent(ctx)),
		Credibility:  clamp01(credibilityComponent(ev, ctx)),
		Breadth:      clamp01(breadthComponent(ev, ctx)),
		PriceImpact:  clamp01(priceImpactComponent(ctx)),
	}

	total := components.Novelty*s.cfg.WeightNovelty +
		components.Burst*s.cfg.WeightBurst +
		components.Credibility*s.cfg.WeightCredibility +
		components.Breadth*s.cfg.WeightBreadth +
		components.PriceImpact*s.cfg.WeightPriceImpact

	return models.ImportanceScore{
		EventID:        ev.ID,
		Components:     components,
		Total:          clamp01(total),
		WeightsVersion: models.WeightsVersion,
	}
}

// noveltyComponent: 1 - (similar-event-count/5), clamped, plus a rarity bonus.
func noveltyComponent(ev models.Event, ctx ScoringContext) float64 {
	base := 1.0 - float64(ctx.SimilarEventCount30d)/5.0
	if base < 0 {
		base = 0
	}
	return base + RarityBonus(ev.Type)
}

// burstComponent: exponential scaling of same-type events in the
// preceding 24h, with an extra bonus when most of them are very recent.
func burstComponent(ctx ScoringContext) float64 {
	if ctx.SameTypeCount24h == 0 {
		return 0
	}
	score := 1.0 - expDecay(ctx.SameTypeCount24h)
	if ctx.SameTypeCount24h > 0 {
		recentFraction := float64(ctx.SameTypeCountLast6h) / float64(ctx.SameTypeCount24h)
		if recentFraction > 0.7 {
			score += 0.2
		}
	}
	return score
}

// expDecay maps an event count to a decaying factor in (0,1], used so
// burst saturates rather than growing unbounded with count.
func expDecay(count int) float64 {
	const halfLife = 3.0
	f := 1.0
	for i := 0; i < count; i++ {
		f *= 0.5 * (1 + halfLife/(halfLife+float64(i)))
	}
	return f
}

// credibilityComponent: source trust normalised around 5, plus bonuses
// for anchor types, the high-credibility subset, and corroboration.
func credibilityComponent(ev models.Event, ctx ScoringContext) float64 {
	score := 0.5 + (float64(ctx.SourceTrust)-5.0)/10.0
	if ev.IsAnchor {
		score += 0.15
	}
	if highCredibilitySubset[ev.Type] {
		score += 0.1
	}
	if ctx.CrossSourceCorroborated {
		score += 0.15
	}
	return score
}

// breadthComponent: piecewise function of unique-entity count plus
// sector-diversity and broad-type bonuses.
func breadthComponent(ev models.Event, ctx ScoringContext) float64 {
	var score float64
	switch {
	case ctx.UniqueEntityCount <= 1:
		score = 0.1
	case ctx.UniqueEntityCount <= 3:
		score = 0.3
	case ctx.UniqueEntityCount <= 10:
		score = 0.6
	default:
		score = 0.9
	}

	if len(ctx.Sectors) > 1 {
		score += 0.1 * float64(len(ctx.Sectors)-1)
	}
	if broadEventTypes[ev.Type] {
		score += 0.15
	}
	return score
}

// priceImpactComponent: mean of normalised impacts, with a bonus when
// the maximum exceeds 0.7.
func priceImpactComponent(ctx ScoringContext) float64 {
	if len(ctx.PriceImpacts) == 0 {
		return 0
	}
	var sum, max float64
	for _, v := range ctx.PriceImpacts {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(ctx.PriceImpacts))
	if max > 0.7 {
		mean += 0.15
	}
	return mean
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Rationale renders a short human-readable explanation of score in the
// form "Importance: NN%. ..." followed by its notable contributions.
func Rationale(score models.ImportanceScore) string {
	r := fmt.Sprintf("Importance: %.0f%%. ", score.Total*100)
	var contributions []string
	if score.Components.Novelty > 0.7 {
		contributions = append(contributions, "highly novel")
	}
	if score.Components.Burst > 0.5 {
		contributions = append(contributions, "part of a burst")
	}
	if score.Components.Credibility > 0.7 {
		contributions = append(contributions, "high-credibility source")
	}
	if score.Components.Breadth > 0.6 {
		contributions = append(contributions, "broad entity coverage")
	}
	if score.Components.PriceImpact > 0.5 {
		contributions = append(contributions, "significant price impact")
	}
	if len(contributions) > 0 {
		r += "Based on: " + strings.Join(contributions, ", ") + "."
	}
	return r
}
