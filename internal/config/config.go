// Package config loads and hot-reloads CEG pipeline configuration: per-
// source settings, CMNLN weights/thresholds, importance-scorer weights,
// the anchor-event set, and orchestrator concurrency knobs.
package config

import (
	"time"

	"github.com/shugein/ceg/internal/models"
)

// CMNLNConfig holds the CMNLN Engine's tunables (spec.md §4.G).
type CMNLNConfig struct {
	LookbackDays      int     `yaml:"lookback_days"`
	MinConfTotal      float64 `yaml:"min_conf_total"`
	EvidenceMaxCount  int     `yaml:"evidence_max_count"`  // hard cap, default 5
	EvidenceSoftTarget int    `yaml:"evidence_soft_target"` // soft target, default 3
	EvidenceMinScore  float64 `yaml:"evidence_min_score"`
	ChainDepthCap     int     `yaml:"chain_depth_cap"`
	ChainTimeWindowHours int  `yaml:"chain_time_window_hours"`
	ChainTopK         int     `yaml:"chain_top_k"`
	WeightsVersion    string  `yaml:"weights_version"`
}

// DefaultCMNLNConfig returns the spec.md §4.G defaults.
func DefaultCMNLNConfig() CMNLNConfig {
	return CMNLNConfig{
		LookbackDays:         30,
		MinConfTotal:         0.3,
		EvidenceMaxCount:     5,
		EvidenceSoftTarget:   3,
		EvidenceMinScore:     0.3,
		ChainDepthCap:        3,
		ChainTimeWindowHours: 168,
		ChainTopK:            5,
		WeightsVersion:       models.WeightsVersion,
	}
}

// ImportanceConfig holds the five Importance Scorer weights (spec.md §4.F).
// Weights must sum to 1.0; Validate enforces this.
type ImportanceConfig struct {
	WeightNovelty     float64 `yaml:"weight_novelty"`
	WeightBurst       float64 `yaml:"weight_burst"`
	WeightCredibility float64 `yaml:"weight_credibility"`
	WeightBreadth     float64 `yaml:"weight_breadth"`
	WeightPriceImpact float64 `yaml:"weight_price_impact"`
}

// DefaultImportanceConfig returns the spec.md §4.F defaults.
func DefaultImportanceConfig() ImportanceConfig {
	return ImportanceConfig{
		WeightNovelty:     0.25,
		WeightBurst:       0.20,
		WeightCredibility: 0.25,
		WeightBreadth:     0.15,
		WeightPriceImpact: 0.15,
	}
}

// LinkerConfig holds the Instrument Linker's tunables (spec.md §4.D).
type LinkerConfig struct {
	FuzzyThreshold     float64 `yaml:"fuzzy_threshold"`      // normalized [0,1], default 0.7
	ExchangeScoreAccept float64 `yaml:"exchange_score_accept"` // default 50
	LearnedAliasPath   string  `yaml:"learned_alias_path"`
}

// DefaultLinkerConfig returns the spec.md §4.D defaults.
func DefaultLinkerConfig() LinkerConfig {
	return LinkerConfig{
		FuzzyThreshold:      0.7,
		ExchangeScoreAccept: 50,
		LearnedAliasPath:    "data/learned_aliases.json",
	}
}

// EventStudyConfig holds the Market-Impact (Event Study) window defaults
// (spec.md §4.H).
type EventStudyConfig struct {
	PreDays             int     `yaml:"pre_days"`
	PostDays            int     `yaml:"post_days"`
	SignificanceZ       float64 `yaml:"significance_z"` // 1.96
}

// DefaultEventStudyConfig returns the spec.md §4.H defaults.
func DefaultEventStudyConfig() EventStudyConfig {
	return EventStudyConfig{PreDays: 5, PostDays: 1, SignificanceZ: 1.96}
}

// ReconcilerConfig holds the Retroactive Reconciler's tunables (spec.md
// §4.K).
type ReconcilerConfig struct {
	LookbackDays  int `yaml:"lookback_days"`
	RetroScanCap  int `yaml:"retro_scan_cap"` // default 100
}

// DefaultReconcilerConfig returns the spec.md §4.K defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{LookbackDays: 30, RetroScanCap: 100}
}

// OrchestratorConfig holds concurrency and timeout knobs (spec.md §5).
type OrchestratorConfig struct {
	BatchSize             int           `yaml:"batch_size"`
	ExtractionTimeout     time.Duration `yaml:"extraction_timeout"`
	ExchangeSearchTimeout time.Duration `yaml:"exchange_search_timeout"`
	MarketDataTimeout     time.Duration `yaml:"market_data_timeout"`
	GraphWriteTimeout     time.Duration `yaml:"graph_write_timeout"`
	RetryAttempts         int           `yaml:"retry_attempts"`
	RetryBaseDelay        time.Duration `yaml:"retry_base_delay"`
}

// DefaultOrchestratorConfig returns the spec.md §5 defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		BatchSize:             20,
		ExtractionTimeout:     60 * time.Second,
		ExchangeSearchTimeout: 30 * time.Second,
		MarketDataTimeout:     30 * time.Second,
		GraphWriteTimeout:     10 * time.Second,
		RetryAttempts:         3,
		RetryBaseDelay:        2 * time.Second,
	}
}

// BatchDeadline returns the overall per-batch deadline: batch_size * 2s.
func (c OrchestratorConfig) BatchDeadline() time.Duration {
	return time.Duration(c.BatchSize) * 2 * time.Second
}

// Config is the root pipeline configuration.
type Config struct {
	Sources       []models.Source    `yaml:"sources"`
	AnchorTypes   []models.EventType `yaml:"anchor_types"`
	CMNLN         CMNLNConfig        `yaml:"cmnln"`
	Importance    ImportanceConfig   `yaml:"importance"`
	Linker        LinkerConfig       `yaml:"linker"`
	EventStudy    EventStudyConfig   `yaml:"event_study"`
	Reconciler    ReconcilerConfig   `yaml:"reconciler"`
	Orchestrator  OrchestratorConfig `yaml:"orchestrator"`
}

// DefaultAnchorTypes is the default anchor-event set (spec.md §4.E, Open
// Question #4 — externalised to configuration rather than hardcoded).
func DefaultAnchorTypes() []models.EventType {
	return []models.EventType{
		models.EventTypeSanctions,
		models.EventTypeRateHike,
		models.EventTypeRateCut,
		models.EventTypeDefault,
		models.EventTypeMergerAcquisition,
		models.EventTypeEarningsBeat,
		models.EventTypeEarningsMiss,
	}
}

// Default returns a fully-populated default configuration.
func Default() *Config {
	return &Config{
		AnchorTypes:  DefaultAnchorTypes(),
		CMNLN:        DefaultCMNLNConfig(),
		Importance:   DefaultImportanceConfig(),
		Linker:       DefaultLinkerConfig(),
		EventStudy:   DefaultEventStudyConfig(),
		Reconciler:   DefaultReconcilerConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
	}
}

// IsAnchor reports whether et is in the configured anchor-event set.
func (c *Config) IsAnchor(et models.EventType) bool {
	for _, a := range c.AnchorTypes {
		if a == et {
			return true
		}
	}
	return false
}

// Validate checks cross-field invariants that a malformed YAML file could
// violate.
func (c *Config) Validate() error {
	sum := c.Importance.WeightNovelty + c.Importance.WeightBurst +
		c.Importance.WeightCredibility + c.Importance.WeightBreadth +
		c.Importance.WeightPriceImpact
	if sum < 0.999 || sum > 1.001 {
		return NewConfigError("importance weights must sum to 1.0")
	}
	if c.Orchestrator.BatchSize < 1 {
		return NewConfigError("orchestrator.batch_size must be at least 1")
	}
	if c.Linker.FuzzyThreshold < 0 || c.Linker.FuzzyThreshold > 1 {
		return NewConfigError("linker.fuzzy_threshold must be in [0,1]")
	}
	if c.CMNLN.EvidenceSoftTarget > c.CMNLN.EvidenceMaxCount {
		return NewConfigError("cmnln.evidence_soft_target must not exceed evidence_max_count")
	}
	return nil
}

// ConfigError represents a configuration validation failure.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

func (e *ConfigError) Error() string { return e.message }
