package watchers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
)

// FollowOnAnalyzer is the read surface the L2 predictive tier needs: the
// empirical distribution of effect event types historically observed for
// a given cause type. internal/graphwriter.FollowOnAnalyzer implements
// this against the live graph.
type FollowOnAnalyzer interface {
	LikelyFollowOns(ctx context.Context, causeType models.EventType, topK int) ([]FollowOn, error)
}

// FollowOn mirrors graphwriter.FollowOn without importing it, so this
// package stays independent of the concrete graph store.
type FollowOn struct {
	EventType   models.EventType
	Probability float64
}

// Engine evaluates the L0/L1/L2 rule tiers against each new Event.
type Engine struct {
	mu       sync.RWMutex
	rules    *RuleSet
	analyzer FollowOnAnalyzer
	logger   *logging.Logger
}

// New builds an Engine over rules, using analyzer for the L2 tier.
func New(rules *RuleSet, analyzer FollowOnAnalyzer) *Engine {
	return &Engine{rules: rules, analyzer: analyzer, logger: logging.GetLogger("watchers")}
}

// SetRules swaps in a new rule set, picked up by the next Evaluate call.
// Used by RuleReloader (reload.go) so an operator edit to the
// watcher-rule YAML takes effect without a process restart.
func (e *Engine) SetRules(rules *RuleSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
}

func (e *Engine) currentRules() *RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// Outcome is everything one Evaluate call produces: the triggered watches
// (L0 direct hits and L1 follow-up watches) and the predictions an L2
// trigger generated.
type Outcome struct {
	Triggered   []models.TriggeredWatch
	Predictions []models.EventPrediction
}

// Evaluate runs every rule tier against ev, given its importance score
// and (for L0 burst thresholds) its burst component.
func (e *Engine) Evaluate(ctx context.Context, ev models.Event, importance models.ImportanceScore) Outcome {
	var out Outcome
	rules := e.currentRules()

	for _, rule := range rules.L0 {
		if !matchesEventType(ev.Type, rule.EventTypes) {
			continue
		}
		if !matchesAny(ev.Attrs.Sectors, rule.Sectors) || !matchesAny(ev.Attrs.Companies, rule.Companies) {
			continue
		}
		if importance.Total < rule.ImportanceThreshold {
			continue
		}
		if rule.BurstThreshold > 0 && importance.Components.Burst < rule.BurstThreshold {
			continue
		}
		out.Triggered = append(out.Triggered, e.newTriggeredWatch(rule.ID, models.WatchLevelL0, ev, DefaultAutoExpire))
	}

	for _, rule := range rules.L1 {
		if !matchesEventType(ev.Type, rule.EventTypes) {
			continue
		}
		expire := time.Duration(rule.FollowUpDays) * 24 * time.Hour
		out.Triggered = append(out.Triggered, e.newTriggeredWatch(rule.ID, models.WatchLevelL1, ev, expire))
	}

	for _, rule := range rules.L2 {
		if importance.Total < rule.MinImportance {
			continue
		}
		watch := e.newTriggeredWatch(rule.ID, models.WatchLevelL2, ev, time.Duration(rule.HorizonDays)*24*time.Hour)
		out.Triggered = append(out.Triggered, watch)

		followOns, err := e.analyzer.LikelyFollowOns(ctx, ev.Type, rule.TopK)
		if err != nil {
			e.logger.Warn("l2 rule %q: follow-on lookup failed for %s: %v", rule.ID, ev.Type, err)
			continue
		}
		horizon := time.Duration(rule.HorizonDays) * 24 * time.Hour
		for _, fo := range followOns {
			out.Predictions = append(out.Predictions, models.EventPrediction{
				ID:            predictionID(rule.ID, ev.ID, fo.EventType),
				RuleID:        rule.ID,
				BaseEventID:   ev.ID,
				PredictedType: fo.EventType,
				Probability:   fo.Probability,
				WindowStart:   ev.Timestamp,
				WindowEnd:     ev.Timestamp.Add(horizon),
				GeneratedAt:   ev.Timestamp,
				Status:        models.FulfilmentPending,
			})
		}
	}

	return out
}

func (e *Engine) newTriggeredWatch(ruleID string, level models.WatchLevel, ev models.Event, expireIn time.Duration) models.TriggeredWatch {
	return models.TriggeredWatch{
		ID:             triggeredWatchID(ruleID, ev.ID),
		RuleID:         ruleID,
		Level:          level,
		TriggerEventID: ev.ID,
		TriggerTime:    ev.Timestamp,
		AutoExpireAt:   ev.Timestamp.Add(expireIn),
		Context:        map[string]interface{}{"event_type": string(ev.Type), "title": ev.Title},
	}
}

// triggeredWatchID and predictionID derive stable ids so a replayed batch
// (spec.md §5) MERGEs onto the same TriggeredWatch/EventPrediction node
// instead of duplicating it (spec.md §8 invariant 5).
func triggeredWatchID(ruleID, triggerEventID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(ruleID+"\x00"+triggerEventID)).String()
}

func predictionID(ruleID, baseEventID string, predictedType models.EventType) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(ruleID+"\x00"+baseEventID+"\x00"+string(predictedType))).String()
}
