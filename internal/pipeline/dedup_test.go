package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupKeyPrefersURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  string
	}{
		{"url wins over title", "https://example.com/a", "Some Title", "url:https://example.com/a"},
		{"url lowercased and trimmed", "  HTTPS://Example.com/A  ", "x", "url:https://example.com/a"},
		{"title fallback normalized", "", "Port Closed After Storm!!", "title:port closed after storm"},
		{"blank url falls back", "   ", "Breaking News", "title:breaking news"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupKey(tt.url, tt.title))
		})
	}
}

func TestDedupKeyCollapsesRepeatReports(t *testing.T) {
	// Same URL with different titles is one identity.
	first := DedupKey("https://example.com/story", "Early headline")
	second := DedupKey("https://example.com/story", "Updated headline with details")
	assert.Equal(t, first, second)
	assert.Equal(t, EventID(first), EventID(second))

	// Different URLs are different identities even with the same title.
	assert.NotEqual(t,
		DedupKey("https://example.com/a", "Same Title"),
		DedupKey("https://example.com/b", "Same Title"))
}

func TestEventIDStable(t *testing.T) {
	id := EventID("url:https://example.com/a")
	assert.Len(t, id, 64)
	assert.Equal(t, id, EventID("url:https://example.com/a"))
	assert.NotEqual(t, id, EventID("url:https://example.com/b"))
}
