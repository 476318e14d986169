package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"world-monitor/internal/models"
)

const (
	gdeltName         = "GDELT"
	gdeltDefaultQuery = "(conflict OR sanctions OR earthquake OR cyclone OR cyber OR diplomacy)"
	gdeltSeenLayout   = "20060102T150405Z"
)

// GDELT reads articles from the GDELT doc 2.0 API. The query and record cap
// are configurable because the default feed is extremely noisy.
type GDELT struct {
	fetcher    *Fetcher
	query      string
	maxRecords int
}

func NewGDELT(fetcher *Fetcher, query string, maxRecords int) *GDELT {
	query = strings.TrimSpace(query)
	if query == "" {
		query = gdeltDefaultQuery
	}
	if maxRecords < 20 {
		maxRecords = 20
	}
	if maxRecords > 250 {
		maxRecords = 250
	}
	return &GDELT{fetcher: fetcher, query: query, maxRecords: maxRecords}
}

func (c *GDELT) Name() string { return gdeltName }

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	URLMobile     string `json:"url_mobile"`
	Domain        string `json:"domain"`
	Snippet       string `json:"snippet"`
	SeenDate      string `json:"seendate"`
	SourceCountry string `json:"sourcecountry"`
}

func (c *GDELT) Fetch(ctx context.Context, since time.Time) ([]models.RawRecord, error) {
	hours := int(time.Since(since).Hours())
	if hours < 1 {
		hours = 1
	}
	params := url.Values{}
	params.Set("query", c.query)
	params.Set("mode", "ArtList")
	params.Set("format", "json")
	params.Set("sort", "datedesc")
	params.Set("timespan", fmt.Sprintf("%dh", hours))
	params.Set("maxrecords", fmt.Sprintf("%d", c.maxRecords))
	endpoint := "https://api.gdeltproject.org/api/v2/doc/doc?" + params.Encode()

	body, err := c.fetcher.GetBytes(ctx, gdeltName, endpoint, "application/json")
	if err != nil {
		return nil, err
	}
	var payload gdeltResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ConnectorError{Kind: KindParse, Source: gdeltName, Err: err}
	}

	records := make([]models.RawRecord, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		record, ok := c.toRecord(article)
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

func (c *GDELT) toRecord(article gdeltArticle) (models.RawRecord, bool) {
	title := strings.TrimSpace(article.Title)
	link := strings.TrimSpace(article.URL)
	if title == "" || link == "" {
		return models.RawRecord{}, false
	}

	occurred := time.Now().UTC()
	if parsed, err := time.Parse(gdeltSeenLayout, strings.TrimSpace(article.SeenDate)); err == nil {
		occurred = parsed.UTC()
	}

	domain := strings.TrimSpace(article.Domain)
	if domain == "" {
		domain = gdeltName
	}
	country := strings.TrimSpace(article.SourceCountry)

	externalID := strings.TrimSpace(article.URLMobile)
	if externalID == "" {
		externalID = link
	}

	tags := []string{"gdelt"}
	if country != "" {
		tags = append(tags, strings.ToLower(country))
	}

	summary := strings.TrimSpace(article.Snippet)
	if summary == "" {
		summary = "GDELT article"
	}

	raw, _ := json.Marshal(article)
	return models.RawRecord{
		ExternalID:  externalID,
		Source:      gdeltName + ":" + domain,
		SourceURL:   link,
		Title:       title,
		Summary:     summary,
		BodySnippet: summary,
		Tags:        tags,
		Country:     country,
		OccurredAt:  occurred,
		StartedAt:   &occurred,
		Confidence:  64,
		Raw:         raw,
	}, true
}
