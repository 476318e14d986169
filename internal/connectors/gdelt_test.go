package connectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGDELTDefaults(t *testing.T) {
	connector := NewGDELT(nil, "", 0)
	assert.Equal(t, gdeltDefaultQuery, connector.query)
	assert.Equal(t, 20, connector.maxRecords)

	connector = NewGDELT(nil, "cyclone", 1000)
	assert.Equal(t, "cyclone", connector.query)
	assert.Equal(t, 250, connector.maxRecords)
}

func TestGDELTToRecord(t *testing.T) {
	connector := NewGDELT(nil, "", 100)

	record, ok := connector.toRecord(gdeltArticle{
		Title:         "Sanctions tightened on shipping firms",
		URL:           "https://news.example.com/sanctions",
		URLMobile:     "https://m.news.example.com/sanctions",
		Domain:        "news.example.com",
		Snippet:       "New measures announced today",
		SeenDate:      "20260301T091500Z",
		SourceCountry: "Panama",
	})
	require.True(t, ok)

	assert.Equal(t, "https://m.news.example.com/sanctions", record.ExternalID)
	assert.Equal(t, "GDELT:news.example.com", record.Source)
	assert.Equal(t, "https://news.example.com/sanctions", record.SourceURL)
	assert.Equal(t, "Panama", record.Country)
	assert.Equal(t, 64, record.Confidence)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC), record.OccurredAt)
	assert.Contains(t, record.Tags, "gdelt")
	assert.Contains(t, record.Tags, "panama")
}

func TestGDELTToRecordFallbacks(t *testing.T) {
	connector := NewGDELT(nil, "", 100)

	record, ok := connector.toRecord(gdeltArticle{
		Title: "Wire story",
		URL:   "https://example.com/wire",
	})
	require.True(t, ok)

	// Without url_mobile the canonical url identifies the article.
	assert.Equal(t, "https://example.com/wire", record.ExternalID)
	assert.Equal(t, "GDELT:GDELT", record.Source)
	assert.Equal(t, "GDELT article", record.Summary)
	assert.WithinDuration(t, time.Now().UTC(), record.OccurredAt, 5*time.Second)
}

func TestGDELTToRecordSkipsIncomplete(t *testing.T) {
	connector := NewGDELT(nil, "", 100)
	_, ok := connector.toRecord(gdeltArticle{Title: "No link"})
	assert.False(t, ok)
	_, ok = connector.toRecord(gdeltArticle{URL: "https://example.com"})
	assert.False(t, ok)
}
