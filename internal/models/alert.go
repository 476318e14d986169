package models

import "time"

// Alert instance lifecycle: new -> acked -> resolved, or new -> resolved.
// Resolved is terminal.
const (
	AlertStatusNew      = "new"
	AlertStatusAcked    = "acked"
	AlertStatusResolved = "resolved"
)

// AlertInstance is one rule firing against one event. Unique per rule x event.
type AlertInstance struct {
	ID         string     `json:"alert_event_id"`
	RuleID     string     `json:"rule_id"`
	RuleName   string     `json:"rule_name,omitempty"`
	EventID    string     `json:"event_id"`
	Status     string     `json:"status"`
	FiredAt    time.Time  `json:"fired_at"`
	AckedAt    *time.Time `json:"acked_at"`
	ResolvedAt *time.Time `json:"resolved_at"`

	// Event context joined in for inbox listings; empty on bare instances.
	EventTitle    string    `json:"title,omitempty"`
	EventSource   string    `json:"source,omitempty"`
	EventCategory string    `json:"category,omitempty"`
	EventCountry  string    `json:"country,omitempty"`
	EventSeverity int       `json:"severity,omitempty"`
	EventOccurred time.Time `json:"occurred_at,omitempty"`
}
