package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"world-monitor/internal/models"
)

const usgsName = "USGS Earthquakes"

// USGS reads the public earthquake summary GeoJSON feeds. The feed window is
// picked from the lookback: day, week, or month.
type USGS struct {
	fetcher *Fetcher
}

func NewUSGS(fetcher *Fetcher) *USGS {
	return &USGS{fetcher: fetcher}
}

func (c *USGS) Name() string { return usgsName }

type usgsFeed struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}

type usgsProperties struct {
	Title string   `json:"title"`
	Place string   `json:"place"`
	URL   string   `json:"url"`
	Mag   *float64 `json:"mag"`
	Time  int64    `json:"time"`
}

type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"`
}

func (c *USGS) Fetch(ctx context.Context, since time.Time) ([]models.RawRecord, error) {
	url := usgsFeedURL(time.Since(since))

	body, err := c.fetcher.GetBytes(ctx, usgsName, url, "application/json")
	if err != nil {
		return nil, err
	}
	var feed usgsFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &ConnectorError{Kind: KindParse, Source: usgsName, Err: err}
	}

	records := make([]models.RawRecord, 0, len(feed.Features))
	for _, feature := range feed.Features {
		record, ok := c.toRecord(feature)
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

func usgsFeedURL(lookback time.Duration) string {
	window := "all_day"
	switch {
	case lookback > 7*24*time.Hour:
		window = "all_month"
	case lookback > 24*time.Hour:
		window = "all_week"
	}
	return fmt.Sprintf("https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/%s.geojson", window)
}

func (c *USGS) toRecord(feature usgsFeature) (models.RawRecord, bool) {
	externalID := strings.TrimSpace(feature.ID)
	title := strings.TrimSpace(feature.Properties.Title)
	if externalID == "" || title == "" {
		return models.RawRecord{}, false
	}

	place := strings.TrimSpace(feature.Properties.Place)
	sourceURL := strings.TrimSpace(feature.Properties.URL)
	if sourceURL == "" {
		sourceURL = "https://earthquake.usgs.gov/"
	}

	occurred := time.UnixMilli(feature.Properties.Time).UTC()
	var lat, lon *float64
	if len(feature.Geometry.Coordinates) >= 2 {
		lonVal, latVal := feature.Geometry.Coordinates[0], feature.Geometry.Coordinates[1]
		lat, lon = &latVal, &lonVal
	}

	summary := place
	if summary == "" {
		summary = "Earthquake update"
	}

	snippet := ""
	magTag := "mag:na"
	severityHint := 0
	if feature.Properties.Mag != nil {
		mag := *feature.Properties.Mag
		snippet = fmt.Sprintf("Magnitude %.1f", mag)
		magTag = fmt.Sprintf("mag:%.1f", mag)
		// A magnitude 5.5 quake should not be outranked by wording alone.
		severityHint = int(45 + mag*10)
		if severityHint > 100 {
			severityHint = 100
		}
		if severityHint < 0 {
			severityHint = 0
		}
	}

	raw, _ := json.Marshal(feature)
	return models.RawRecord{
		ExternalID:   externalID,
		Source:       usgsName,
		SourceURL:    sourceURL,
		Title:        title,
		Summary:      summary,
		BodySnippet:  snippet,
		CategoryHint: models.CategoryDisaster,
		Tags:         []string{"earthquake", magTag},
		Country:      usgsCountryFromPlace(place),
		Lat:          lat,
		Lon:          lon,
		OccurredAt:   occurred,
		StartedAt:    &occurred,
		Confidence:   88,
		SeverityHint: severityHint,
		Raw:          raw,
	}, true
}

// usgsCountryFromPlace takes the last comma-separated token of the feed's
// "place" field, which is usually a state or country name.
func usgsCountryFromPlace(place string) string {
	text := strings.TrimSpace(place)
	if text == "" {
		return ""
	}
	if idx := strings.LastIndex(text, ","); idx >= 0 {
		if candidate := strings.TrimSpace(text[idx+1:]); candidate != "" {
			return candidate
		}
	}
	return ""
}
