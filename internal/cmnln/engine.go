package cmnln

import (
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/models"
)

// PairInput bundles everything Engine.Evaluate needs for one candidate
// cause/effect pair. ConfMarket is precomputed by the caller (orchestrator)
// via the market-impact package: "for each ticker in F, compute
// significance; take the best over tickers" (spec.md §4.G.4) depends on
// OHLCV data this package has no business fetching itself.
type PairInput struct {
	Cause      models.Event
	Effect     models.Event
	Language   string
	EffectText string // title + body of the effect's source record, scanned for causal markers
	ConfMarket float64
}

const (
	confirmedPriorThreshold = 0.6
	confirmedTextThreshold  = 0.6
	retroPriorThreshold     = 0.5
	retroTextThreshold      = 0.6
)

// Engine is the pairwise causal-inference evaluator, parameterized by the
// configured thresholds (spec.md §4.G): minimum combined confidence,
// evidence cap/floor, and chain-discovery bounds.
type Engine struct {
	cfg config.CMNLNConfig
}

// NewEngine builds an Engine from configuration.
func NewEngine(cfg config.CMNLNConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate runs the pairwise CMNLN algorithm (spec.md §4.G steps 1-6) for
// one candidate cause/effect pair. ok is false when the temporal guard
// fails or the combined confidence is below the configured minimum, in
// which case the pair yields no CausalLink. Evidence collection (step 7)
// is a separate call (SelectEvidence) since it needs a candidate pool the
// caller assembles from the graph store.
func (e *Engine) Evaluate(in PairInput) (models.CausalLink, bool) {
	if !in.Cause.Timestamp.Before(in.Effect.Timestamp) {
		return models.CausalLink{}, false
	}
	delta := in.Effect.Timestamp.Sub(in.Cause.Timestamp)

	var confPrior float64
	sign := models.SignMixed
	lagClass := ClassifyLag(delta)
	if prior, found := LookupPrior(in.Cause.Type, in.Effect.Type); found {
		confPrior = prior.ConfPrior
		sign = prior.Sign
		lagClass = prior.ExpectedLag // spec.md §3: lag_class is the expected-lag class a matched prior yields, not the observed bucket.
		if !WithinExpectedLag(delta, prior.ExpectedLag) {
			confPrior *= 0.5
		}
	}

	confText := MatchMarkers(in.Language, in.EffectText)
	confMarket := clamp01(in.ConfMarket)

	confTotal := models.Combine(confPrior, confText, confMarket)
	if confTotal < e.cfg.MinConfTotal {
		return models.CausalLink{}, false
	}

	kind := models.CausalKindHypothesis
	switch {
	case confPrior >= confirmedPriorThreshold && confText >= confirmedTextThreshold:
		kind = models.CausalKindConfirmed
	case confPrior >= retroPriorThreshold && confText < retroTextThreshold:
		kind = models.CausalKindRetro
	}

	return models.CausalLink{
		CauseEventID:   in.Cause.ID,
		EffectEventID:  in.Effect.ID,
		Kind:           kind,
		Sign:           sign,
		LagClass:       lagClass,
		ConfPrior:      confPrior,
		ConfText:       confText,
		ConfMarket:     confMarket,
		ConfTotal:      confTotal,
		WeightsVersion: models.WeightsVersion,
		State:          models.CausalLinkProposed,
	}, true
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

// ShouldReplace reports whether candidate should replace existing when
// upserting a CausalLink keyed by (cause, effect): the edge is replaced
// only when the new conf_total is higher (spec.md §4.G, upsert rule).
func ShouldReplace(existing, candidate models.CausalLink) bool {
	return candidate.ConfTotal > existing.ConfTotal
}
