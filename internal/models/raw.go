package models

import (
	"encoding/json"
	"time"
)

// RawRecord is what a connector yields before normalization: source-specific
// parsing already applied, canonical shape not yet. Optional fields left zero
// are filled in (or inferred) by the normalizer.
type RawRecord struct {
	ExternalID   string
	Source       string
	SourceURL    string
	Title        string
	Summary      string
	BodySnippet  string
	CategoryHint string
	Tags         []string
	Country      string
	Region       string
	Lat          *float64
	Lon          *float64
	OccurredAt   time.Time
	StartedAt    *time.Time
	Confidence   int
	SeverityHint int
	Raw          json.RawMessage
}
