package pipeline

import (
	"time"
	"unicode/utf8"

	"world-monitor/internal/models"
)

const defaultConfidence = 70

// Normalizer converts raw connector records into canonical events. All rules
// are fixed tables, so normalizing the same record twice yields byte-identical
// fields apart from the ingestion timestamps.
type Normalizer struct {
	geo *GeoResolver
}

func NewNormalizer() *Normalizer {
	return &Normalizer{geo: NewGeoResolver()}
}

// Normalize maps one raw record to its canonical Event. The event id comes
// from the dedup key so the store's upsert collapses repeat reports, and the
// cluster id is recomputed from the normalized fields.
func (n *Normalizer) Normalize(record models.RawRecord, now time.Time) models.Event {
	text := record.Title + " " + record.Summary + " " + record.Source

	category := record.CategoryHint
	if !models.ValidCategory(category) {
		category = ""
	}
	if category == "" {
		category = InferCategory(text, models.CategoryOther)
	}

	severity := InferSeverity(category, text)
	if record.SeverityHint > severity {
		severity = record.SeverityHint
	}
	if severity > 100 {
		severity = 100
	}

	confidence := record.Confidence
	if confidence <= 0 {
		confidence = defaultConfidence
	}

	geo := n.geo.Resolve(record.Country, record.Region, text)
	lat, lon := geo.Lat, geo.Lon
	if record.Lat != nil && record.Lon != nil {
		lat, lon = record.Lat, record.Lon
	}

	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	occurred = occurred.UTC().Truncate(time.Second)

	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}

	now = now.UTC().Truncate(time.Second)
	return models.Event{
		ID:          EventID(DedupKey(record.SourceURL, record.Title)),
		ExternalID:  record.ExternalID,
		Source:      record.Source,
		SourceURL:   record.SourceURL,
		Title:       record.Title,
		Summary:     clip(record.Summary, 240),
		BodySnippet: clip(record.BodySnippet, 320),
		Category:    category,
		Tags:        tags,
		Country:     geo.Country,
		Region:      geo.Region,
		Lat:         lat,
		Lon:         lon,
		Severity:    severity,
		Confidence:  confidence,
		OccurredAt:  occurred,
		StartedAt:   record.StartedAt,
		IngestedAt:  now,
		UpdatedAt:   now,
		ClusterID:   ClusterID(record.Title, geo.Country, occurred),
		Raw:         record.Raw,
	}
}

// clip truncates to at most max bytes without splitting a rune, so clipped
// text stays valid UTF-8 for the store.
func clip(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
