package watchers

import "github.com/shugein/ceg/internal/models"

// AccuracyAggregate tracks the running fulfilment rate of L2 predictions,
// broken down by rule and predicted event type. This is a supplemental
// feature beyond the base rule engine: the distillation's spec.md only
// requires flipping a prediction's status on fulfilment (§4.J); tracking
// the aggregate accuracy a rule has historically achieved is what lets an
// operator tell a well-calibrated L2 rule from a noisy one.
type AccuracyAggregate struct {
	counts map[string]*ruleAccuracy
}

type ruleAccuracy struct {
	Fulfilled   int
	Unfulfilled int
	Pending     int
}

// NewAccuracyAggregate builds an empty aggregate.
func NewAccuracyAggregate() *AccuracyAggregate {
	return &AccuracyAggregate{counts: make(map[string]*ruleAccuracy)}
}

// Record folds one prediction's current status into the aggregate for
// its rule.
func (a *AccuracyAggregate) Record(p models.EventPrediction) {
	rule, ok := a.counts[p.RuleID]
	if !ok {
		rule = &ruleAccuracy{}
		a.counts[p.RuleID] = rule
	}
	switch p.Status {
	case models.FulfilmentFulfilled:
		rule.Fulfilled++
	case models.FulfilmentUnfulfilled:
		rule.Unfulfilled++
	default:
		rule.Pending++
	}
}

// Rate returns the fulfilment rate for ruleID: fulfilled /
// (fulfilled + unfulfilled). Pending predictions are excluded since their
// outcome is not yet known. Returns 0 with ok=false if the rule has no
// resolved predictions yet.
func (a *AccuracyAggregate) Rate(ruleID string) (rate float64, ok bool) {
	rule, found := a.counts[ruleID]
	if !found {
		return 0, false
	}
	resolved := rule.Fulfilled + rule.Unfulfilled
	if resolved == 0 {
		return 0, false
	}
	return float64(rule.Fulfilled) / float64(resolved), true
}
