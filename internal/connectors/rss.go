package connectors

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"time"

	"world-monitor/internal/models"
)

const (
	rssName            = "RSS"
	rssMaxItemsPerFeed = 40
)

// FeedSource is one configured RSS or Atom feed. Multiple URLs act as
// fallbacks: the first one that yields items wins.
type FeedSource struct {
	Name         string
	URLs         []string
	CategoryHint string
}

// RSS aggregates a configurable list of news feeds into one connector. Both
// RSS 2.0 and Atom documents are accepted.
type RSS struct {
	fetcher *Fetcher
	sources []FeedSource
}

func NewRSS(fetcher *Fetcher, sources []FeedSource) *RSS {
	return &RSS{fetcher: fetcher, sources: sources}
}

func (c *RSS) Name() string { return rssName }

type rssDocument struct {
	XMLName xml.Name
	Channel struct {
		Items []feedItem `xml:"item"`
	} `xml:"channel"`
	Entries []feedItem `xml:"entry"`
}

type feedItem struct {
	Title       string     `xml:"title"`
	Links       []feedLink `xml:"link"`
	GUID        string     `xml:"guid"`
	ID          string     `xml:"id"`
	Description string     `xml:"description"`
	Summary     string     `xml:"summary"`
	Content     string     `xml:"content"`
	Encoded     string     `xml:"encoded"`
	PubDate     string     `xml:"pubDate"`
	Published   string     `xml:"published"`
	Updated     string     `xml:"updated"`
	Date        string     `xml:"date"`
}

type feedLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Text string `xml:",chardata"`
}

// Fetch walks every configured feed and collects the items newer than since.
// A feed that fails is skipped; an error is returned only when every feed
// failed, so one dead feed cannot starve the rest.
func (c *RSS) Fetch(ctx context.Context, since time.Time) ([]models.RawRecord, error) {
	var records []models.RawRecord
	var errs []string

	for _, source := range c.sources {
		items, err := c.fetchSource(ctx, source, since)
		if err != nil {
			errs = append(errs, source.Name+": "+err.Error())
			continue
		}
		records = append(records, items...)
	}

	if len(records) == 0 && len(errs) > 0 {
		return nil, &ConnectorError{
			Kind:   KindHTTPStatus,
			Source: rssName,
			Err:    errors.New(strings.Join(errs, "; ")),
		}
	}
	return records, nil
}

func (c *RSS) fetchSource(ctx context.Context, source FeedSource, since time.Time) ([]models.RawRecord, error) {
	var lastErr error
	for _, feedURL := range source.URLs {
		body, err := c.fetcher.GetBytes(ctx, rssName, feedURL, "application/rss+xml, application/atom+xml, application/xml")
		if err != nil {
			lastErr = err
			continue
		}
		var doc rssDocument
		if err := xml.Unmarshal(body, &doc); err != nil {
			lastErr = &ConnectorError{Kind: KindParse, Source: rssName, Err: err}
			continue
		}
		items := doc.Channel.Items
		if len(items) == 0 {
			items = doc.Entries
		}
		records := c.toRecords(source, feedURL, items, since)
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, lastErr
}

func (c *RSS) toRecords(source FeedSource, feedURL string, items []feedItem, since time.Time) []models.RawRecord {
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := itemLink(item)
		if title == "" || link == "" {
			continue
		}

		occurred := parseFeedTime(firstNonEmpty(item.PubDate, item.Published, item.Updated, item.Date))
		if occurred.Before(since) {
			continue
		}

		summary := strings.TrimSpace(firstNonEmpty(item.Description, item.Summary, item.Content, item.Encoded))

		raw, _ := json.Marshal(map[string]string{
			"source":   source.Name,
			"feed_url": feedURL,
			"url":      link,
			"summary":  summary,
		})
		records = append(records, models.RawRecord{
			ExternalID:   source.Name + ":" + link,
			Source:       source.Name,
			SourceURL:    link,
			Title:        title,
			Summary:      summary,
			BodySnippet:  summary,
			CategoryHint: source.CategoryHint,
			Tags:         []string{"rss", strings.ReplaceAll(strings.ToLower(source.Name), " ", "-")},
			OccurredAt:   occurred,
			StartedAt:    &occurred,
			Confidence:   74,
			Raw:          raw,
		})
		if len(records) >= rssMaxItemsPerFeed {
			break
		}
	}
	return records
}

func itemLink(item feedItem) string {
	for _, link := range item.Links {
		href := strings.TrimSpace(link.Href)
		rel := strings.ToLower(strings.TrimSpace(link.Rel))
		if href != "" && (rel == "" || rel == "alternate") {
			return href
		}
	}
	for _, link := range item.Links {
		if text := strings.TrimSpace(link.Text); text != "" {
			return text
		}
	}
	for _, candidate := range []string{item.GUID, item.ID} {
		candidate = strings.TrimSpace(candidate)
		if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
			return candidate
		}
	}
	return ""
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range feedTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
