package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"world-monitor/internal/models"
)

const eonetName = "NASA EONET"

// EONET reads natural event data from the NASA EONET v3 API.
type EONET struct {
	fetcher *Fetcher
}

func NewEONET(fetcher *Fetcher) *EONET {
	return &EONET{fetcher: fetcher}
}

func (c *EONET) Name() string { return eonetName }

type eonetResponse struct {
	Events []eonetEvent `json:"events"`
}

type eonetEvent struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Sources    []eonetSource   `json:"sources"`
	Categories []eonetCategory `json:"categories"`
	Geometry   []eonetGeometry `json:"geometry"`
}

type eonetSource struct {
	URL string `json:"url"`
}

type eonetCategory struct {
	Title string `json:"title"`
}

type eonetGeometry struct {
	Date        string          `json:"date"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func (c *EONET) Fetch(ctx context.Context, since time.Time) ([]models.RawRecord, error) {
	days := int(time.Since(since).Hours()/24) + 2
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}
	url := fmt.Sprintf("https://eonet.gsfc.nasa.gov/api/v3/events?status=all&days=%d", days)

	body, err := c.fetcher.GetBytes(ctx, eonetName, url, "application/json")
	if err != nil {
		return nil, err
	}
	var payload eonetResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ConnectorError{Kind: KindParse, Source: eonetName, Err: err}
	}

	records := make([]models.RawRecord, 0, len(payload.Events))
	for _, event := range payload.Events {
		record, ok := c.toRecord(event)
		if !ok {
			continue
		}
		if record.OccurredAt.Before(since) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *EONET) toRecord(event eonetEvent) (models.RawRecord, bool) {
	externalID := strings.TrimSpace(event.ID)
	title := strings.TrimSpace(event.Title)
	if externalID == "" || title == "" {
		return models.RawRecord{}, false
	}

	sourceURL := "https://eonet.gsfc.nasa.gov/"
	if len(event.Sources) > 0 {
		if candidate := strings.TrimSpace(event.Sources[0].URL); candidate != "" {
			sourceURL = candidate
		}
	}

	var categoryTitles []string
	for _, category := range event.Categories {
		if text := strings.TrimSpace(category.Title); text != "" {
			categoryTitles = append(categoryTitles, text)
		}
	}

	occurred := time.Now().UTC()
	var lat, lon *float64
	if len(event.Geometry) > 0 {
		// The last geometry entry is the most recent observation.
		latest := event.Geometry[len(event.Geometry)-1]
		if parsed, err := parseISOTime(latest.Date); err == nil {
			occurred = parsed
		}
		// Point geometries carry [lon, lat]; polygons nest deeper and are skipped.
		var coords []float64
		if err := json.Unmarshal(latest.Coordinates, &coords); err == nil && len(coords) >= 2 {
			lonVal, latVal := coords[0], coords[1]
			lat, lon = &latVal, &lonVal
		}
	}

	summary := strings.Join(categoryTitles, ", ")
	if summary == "" {
		summary = "Natural event update"
	}

	tags := []string{"nasa-eonet"}
	for _, categoryTitle := range categoryTitles {
		tags = append(tags, strings.ToLower(categoryTitle))
	}

	raw, _ := json.Marshal(event)
	return models.RawRecord{
		ExternalID:   externalID,
		Source:       eonetName,
		SourceURL:    sourceURL,
		Title:        title,
		Summary:      summary,
		BodySnippet:  strings.Join(categoryTitles, " / "),
		CategoryHint: models.CategoryDisaster,
		Tags:         tags,
		Lat:          lat,
		Lon:          lon,
		OccurredAt:   occurred,
		StartedAt:    &occurred,
		Confidence:   82,
		Raw:          raw,
	}, true
}

func parseISOTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
