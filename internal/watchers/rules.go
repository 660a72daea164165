// Package watchers implements the Watchers & Predictions component
// (spec.md §4.J): an L0/L1/L2 rule engine evaluated against every new
// Event, fanning out triggers to notification handlers and persisting
// EventPrediction rows for the L2 predictive tier.
package watchers

import (
	"fmt"
	"os"
	"time"

	"github.com/shugein/ceg/internal/models"
	"gopkg.in/yaml.v3"
)

// L0Rule triggers on a direct match against event type, sector/company,
// and importance/burst thresholds (spec.md §4.J).
type L0Rule struct {
	ID                  string             `yaml:"id"`
	EventTypes          []models.EventType `yaml:"event_types"`
	Sectors             []string           `yaml:"sectors,omitempty"`
	Companies           []string           `yaml:"companies,omitempty"`
	ImportanceThreshold float64            `yaml:"importance_threshold"`
	BurstThreshold      float64            `yaml:"burst_threshold"`
}

// L1Rule roots a multi-step pattern watch: when EventTypes matches, a
// follow-up watch is opened for FollowUpDays to monitor sector reaction.
type L1Rule struct {
	ID           string             `yaml:"id"`
	EventTypes   []models.EventType `yaml:"event_types"`
	FollowUpDays int                `yaml:"follow_up_days"`
}

// L2Rule gates the predictive tier: triggers whose importance clears
// MinImportance get their causal neighborhood enumerated for likely
// follow-on events.
type L2Rule struct {
	ID            string  `yaml:"id"`
	MinImportance float64 `yaml:"min_importance"`
	TopK          int     `yaml:"top_k"`
	HorizonDays   int     `yaml:"horizon_days"`
}

// RuleSet is the full rule configuration for the watcher engine.
type RuleSet struct {
	L0 []L0Rule `yaml:"l0"`
	L1 []L1Rule `yaml:"l1"`
	L2 []L2Rule `yaml:"l2"`

	AutoExpire time.Duration `yaml:"-"`
}

// DefaultAutoExpire is the default auto-expiry duration for a triggered
// watch (spec.md §4.J: 168 h).
const DefaultAutoExpire = 168 * time.Hour

// LoadRules reads and validates a watcher rule-set YAML file, following
// this codebase's established config.WatcherConfig load-then-validate
// pattern.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchers: read rule file %s: %w", path, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("watchers: parse rule YAML: %w", err)
	}
	rs.AutoExpire = DefaultAutoExpire

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("watchers: invalid rule set: %w", err)
	}
	return &rs, nil
}

// Validate checks that every rule carries the fields it needs to match
// anything.
func (rs *RuleSet) Validate() error {
	for i, r := range rs.L0 {
		if r.ID == "" {
			return fmt.Errorf("l0[%d]: id must not be empty", i)
		}
		if len(r.EventTypes) == 0 {
			return fmt.Errorf("l0[%d] %q: event_types must not be empty", i, r.ID)
		}
	}
	for i, r := range rs.L1 {
		if r.ID == "" {
			return fmt.Errorf("l1[%d]: id must not be empty", i)
		}
		if r.FollowUpDays <= 0 {
			return fmt.Errorf("l1[%d] %q: follow_up_days must be positive", i, r.ID)
		}
	}
	for i, r := range rs.L2 {
		if r.ID == "" {
			return fmt.Errorf("l2[%d]: id must not be empty", i)
		}
		if r.TopK <= 0 {
			return fmt.Errorf("l2[%d] %q: top_k must be positive", i, r.ID)
		}
	}
	return nil
}

// DefaultRuleSet is a minimal, always-valid rule set used when no
// configuration file is supplied, covering the worked example in spec.md
// §8 (critical_sanctions -> sector_drop prediction).
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		AutoExpire: DefaultAutoExpire,
		L0: []L0Rule{
			{
				ID:                  "critical_sanctions",
				EventTypes:          []models.EventType{models.EventTypeSanctions, models.EventTypeDefault},
				ImportanceThreshold: 0.6,
				BurstThreshold:      0,
			},
			{
				ID:                  "central_bank_rate_move",
				EventTypes:          []models.EventType{models.EventTypeRateHike, models.EventTypeRateCut},
				ImportanceThreshold: 0.5,
			},
			{
				ID:                  "large_m_and_a",
				EventTypes:          []models.EventType{models.EventTypeMergerAcquisition},
				ImportanceThreshold: 0.5,
			},
		},
		L1: []L1Rule{
			{ID: "sanctions_sector_reaction", EventTypes: []models.EventType{models.EventTypeSanctions}, FollowUpDays: 7},
		},
		L2: []L2Rule{
			{ID: "high_importance_forecast", MinImportance: 0.6, TopK: 3, HorizonDays: 7},
		},
	}
}

// matchesEventType reports whether et is in types.
func matchesEventType(et models.EventType, types []models.EventType) bool {
	for _, t := range types {
		if t == et {
			return true
		}
	}
	return false
}

// matchesAny reports whether any of needles is present in haystack.
func matchesAny(haystack, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
