package models

import (
	"encoding/json"
	"time"
)

// Event categories form a closed set; connectors and the normalizer must not
// emit anything outside it.
const (
	CategoryConflict  = "conflict"
	CategoryDiplomacy = "diplomacy"
	CategorySanctions = "sanctions"
	CategoryCyber     = "cyber"
	CategoryDisaster  = "disaster"
	CategoryMarkets   = "markets"
	CategoryOther     = "other"
)

// Categories lists every valid event category.
var Categories = []string{
	CategoryConflict,
	CategoryDiplomacy,
	CategorySanctions,
	CategoryCyber,
	CategoryDisaster,
	CategoryMarkets,
	CategoryOther,
}

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Event is the canonical normalized unit produced by the ingestion pipeline.
// ID is derived from the dedup key, so re-ingesting the same external record
// updates the stored row instead of duplicating it.
type Event struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"external_id"`
	Source      string          `json:"source"`
	SourceURL   string          `json:"source_url"`
	Title       string          `json:"title"`
	Summary     string          `json:"summary"`
	BodySnippet string          `json:"body_snippet"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Country     string          `json:"country"`
	Region      string          `json:"region"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	Geohash     *string         `json:"geohash"`
	Severity    int             `json:"severity"`
	Confidence  int             `json:"confidence"`
	OccurredAt  time.Time       `json:"occurred_at"`
	StartedAt   *time.Time      `json:"started_at"`
	IngestedAt  time.Time       `json:"ingested_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ClusterID   string          `json:"cluster_id"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// EventFilter narrows event queries; zero values mean "no constraint".
type EventFilter struct {
	SinceHours int
	Category   string
	Region     string
	Country    string
	Search     string
	Limit      int
}

// Hotspot aggregates event counts per country/region over a window.
type Hotspot struct {
	Country     string    `json:"country"`
	Region      string    `json:"region"`
	EventCount  int       `json:"event_count"`
	AvgSeverity float64   `json:"avg_severity"`
	LatestAt    time.Time `json:"latest_at"`
}

// TimelineBucket is one time slot of the event timeline.
type TimelineBucket struct {
	BucketTime  time.Time `json:"bucket_time"`
	EventCount  int       `json:"event_count"`
	AvgSeverity float64   `json:"avg_severity"`
}

// PulseEntry compares a country's recent event count against its trailing
// baseline. DeltaRatio drives spike detection.
type PulseEntry struct {
	Country       string  `json:"country"`
	RecentCount   int     `json:"recent_count"`
	BaselineCount int     `json:"baseline_count"`
	DeltaRatio    float64 `json:"delta_ratio"`
}

// StoreStats summarizes the event store for the readiness endpoint.
type StoreStats struct {
	TotalEvents   int        `json:"total_events"`
	Events24h     int        `json:"events_24h"`
	OpenAlerts    int        `json:"open_alerts"`
	LatestEventAt *time.Time `json:"latest_event_at"`
}
