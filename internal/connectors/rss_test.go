package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssSample = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example World News</title>
    <item>
      <title>Floods displace thousands</title>
      <link>https://example.com/floods</link>
      <description>Rivers burst their banks overnight</description>
      <pubDate>Sun, 01 Mar 2026 09:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Old archive story</title>
      <link>https://example.com/archive</link>
      <pubDate>Mon, 02 Mar 2020 09:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom Feed</title>
  <entry>
    <title>Ceasefire talks stall</title>
    <link rel="alternate" href="https://example.com/talks"/>
    <summary>Negotiators left without a deal</summary>
    <updated>2026-03-01T10:30:00Z</updated>
  </entry>
</feed>`

func xmlServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRSSFetchParsesRSS2(t *testing.T) {
	server := xmlServer(t, rssSample)
	connector := NewRSS(newTestFetcher(0), []FeedSource{
		{Name: "Example News", URLs: []string{server.URL}, CategoryHint: "disaster"},
	})

	since := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	records, err := connector.Fetch(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, records, 1, "items older than since are dropped")

	record := records[0]
	assert.Equal(t, "Example News", record.Source)
	assert.Equal(t, "https://example.com/floods", record.SourceURL)
	assert.Equal(t, "Floods displace thousands", record.Title)
	assert.Equal(t, "Rivers burst their banks overnight", record.Summary)
	assert.Equal(t, "disaster", record.CategoryHint)
	assert.Equal(t, 74, record.Confidence)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), record.OccurredAt)
	assert.Contains(t, record.Tags, "rss")
	assert.Contains(t, record.Tags, "example-news")
}

func TestRSSFetchParsesAtom(t *testing.T) {
	server := xmlServer(t, atomSample)
	connector := NewRSS(newTestFetcher(0), []FeedSource{
		{Name: "Atom Source", URLs: []string{server.URL}},
	})

	records, err := connector.Fetch(context.Background(), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/talks", records[0].SourceURL)
	assert.Equal(t, "Negotiators left without a deal", records[0].Summary)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), records[0].OccurredAt)
}

func TestRSSFetchFallbackURL(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	alive := xmlServer(t, rssSample)

	connector := NewRSS(newTestFetcher(0), []FeedSource{
		{Name: "Example News", URLs: []string{dead.URL, alive.URL}},
	})

	records, err := connector.Fetch(context.Background(), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRSSFetchAllFeedsFailing(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	connector := NewRSS(newTestFetcher(0), []FeedSource{
		{Name: "First", URLs: []string{dead.URL}},
		{Name: "Second", URLs: []string{dead.URL}},
	})

	_, err := connector.Fetch(context.Background(), time.Now().Add(-time.Hour))
	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindHTTPStatus, connErr.Kind)
	assert.Contains(t, connErr.Error(), "First")
	assert.Contains(t, connErr.Error(), "Second")
}

func TestRSSFetchPartialFailureStillSucceeds(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()
	alive := xmlServer(t, rssSample)

	connector := NewRSS(newTestFetcher(0), []FeedSource{
		{Name: "Dead Feed", URLs: []string{dead.URL}},
		{Name: "Live Feed", URLs: []string{alive.URL}},
	})

	records, err := connector.Fetch(context.Background(), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestItemLinkPrecedence(t *testing.T) {
	// href with rel alternate wins over plain text links.
	assert.Equal(t, "https://example.com/a", itemLink(feedItem{Links: []feedLink{
		{Href: "https://example.com/a", Rel: "alternate"},
		{Text: "https://example.com/b"},
	}}))
	// rel self is skipped.
	assert.Equal(t, "https://example.com/alt", itemLink(feedItem{Links: []feedLink{
		{Href: "https://example.com/self", Rel: "self"},
		{Href: "https://example.com/alt", Rel: "alternate"},
	}}))
	// chardata link is the RSS 2.0 form.
	assert.Equal(t, "https://example.com/text", itemLink(feedItem{Links: []feedLink{
		{Text: "https://example.com/text"},
	}}))
	// http-looking guid is the last resort.
	assert.Equal(t, "https://example.com/guid", itemLink(feedItem{GUID: "https://example.com/guid"}))
	assert.Equal(t, "", itemLink(feedItem{GUID: "urn:uuid:1234"}))
}

func TestParseFeedTimeLayouts(t *testing.T) {
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, value := range []string{
		"Sun, 01 Mar 2026 09:00:00 +0000",
		"Sun, 01 Mar 2026 09:00:00 UTC",
		"2026-03-01T09:00:00Z",
		"2026-03-01T09:00:00",
		"2026-03-01 09:00:00",
	} {
		assert.Equal(t, want, parseFeedTime(value), value)
	}

	// Unparseable dates fall back to now so fresh items are not lost.
	assert.WithinDuration(t, time.Now().UTC(), parseFeedTime("not a date"), 5*time.Second)
}
