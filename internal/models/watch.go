package models

import "time"

// WatchLevel is the rule tier in the L0/L1/L2 watcher engine.
type WatchLevel string

const (
	WatchLevelL0 WatchLevel = "L0" // Basic: direct match
	WatchLevelL1 WatchLevel = "L1" // Pattern: multi-step follow-up monitor
	WatchLevelL2 WatchLevel = "L2" // Predictive: causal-neighborhood forecast
)

// TriggeredWatch is a materialised hit of a watcher rule on an event.
type TriggeredWatch struct {
	ID                 string     `json:"id"`
	RuleID             string     `json:"rule_id"`
	Level              WatchLevel `json:"level"`
	TriggerEventID     string     `json:"trigger_event_id"`
	TriggerTime        time.Time  `json:"trigger_time"`
	AutoExpireAt       time.Time  `json:"auto_expire_at"`
	Context            map[string]interface{} `json:"context,omitempty"`
	NotificationsSent  bool       `json:"notifications_sent"`
	Expired            bool       `json:"expired"`
}

// FulfilmentStatus is the lifecycle of an EventPrediction.
type FulfilmentStatus string

const (
	FulfilmentPending     FulfilmentStatus = "PENDING"
	FulfilmentFulfilled   FulfilmentStatus = "FULFILLED"
	FulfilmentUnfulfilled FulfilmentStatus = "UNFULFILLED"
)

// EventPrediction is a forecast generated by an L2 watcher.
type EventPrediction struct {
	ID               string           `json:"id"`
	RuleID           string           `json:"rule_id"`
	BaseEventID      string           `json:"base_event_id"`
	PredictedType    EventType        `json:"predicted_type"`
	Probability      float64          `json:"probability"`
	WindowStart      time.Time        `json:"window_start"`
	WindowEnd        time.Time        `json:"window_end"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Status           FulfilmentStatus `json:"status"`
	FulfilledByEvent string           `json:"fulfilled_by_event,omitempty"`
}

// InWindow reports whether t falls within [WindowStart, WindowEnd].
func (p EventPrediction) InWindow(t time.Time) bool {
	return !t.Before(p.WindowStart) && !t.After(p.WindowEnd)
}
