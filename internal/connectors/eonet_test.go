package connectors

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-monitor/internal/models"
)

func TestEONETToRecord(t *testing.T) {
	connector := NewEONET(nil)

	record, ok := connector.toRecord(eonetEvent{
		ID:    "EONET_1234",
		Title: "Tropical Cyclone Freddy",
		Sources: []eonetSource{
			{URL: "https://www.nasa.gov/cyclone-freddy"},
		},
		Categories: []eonetCategory{{Title: "Severe Storms"}},
		Geometry: []eonetGeometry{
			{Date: "2026-02-28T00:00:00Z", Coordinates: json.RawMessage(`[40.1, -19.5]`)},
			{Date: "2026-03-01T06:00:00Z", Coordinates: json.RawMessage(`[41.2, -20.1]`)},
		},
	})
	require.True(t, ok)

	assert.Equal(t, "EONET_1234", record.ExternalID)
	assert.Equal(t, eonetName, record.Source)
	assert.Equal(t, "https://www.nasa.gov/cyclone-freddy", record.SourceURL)
	assert.Equal(t, models.CategoryDisaster, record.CategoryHint)
	assert.Equal(t, 82, record.Confidence)
	assert.Equal(t, "Severe Storms", record.Summary)
	assert.Contains(t, record.Tags, "severe storms")

	// The newest geometry entry wins.
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), record.OccurredAt)
	require.NotNil(t, record.Lat)
	assert.InDelta(t, -20.1, *record.Lat, 0.001)
	assert.InDelta(t, 41.2, *record.Lon, 0.001)
}

func TestEONETToRecordPolygonGeometrySkipped(t *testing.T) {
	connector := NewEONET(nil)

	record, ok := connector.toRecord(eonetEvent{
		ID:    "EONET_5678",
		Title: "Wildfire complex",
		Geometry: []eonetGeometry{
			{Date: "2026-03-01T00:00:00Z", Coordinates: json.RawMessage(`[[[1.0, 2.0], [3.0, 4.0]]]`)},
		},
	})
	require.True(t, ok)
	assert.Nil(t, record.Lat)
	assert.Nil(t, record.Lon)
	assert.Equal(t, "https://eonet.gsfc.nasa.gov/", record.SourceURL)
	assert.Equal(t, "Natural event update", record.Summary)
}

func TestEONETToRecordSkipsIncomplete(t *testing.T) {
	connector := NewEONET(nil)
	_, ok := connector.toRecord(eonetEvent{ID: "", Title: "Storm"})
	assert.False(t, ok)
	_, ok = connector.toRecord(eonetEvent{ID: "EONET_1", Title: ""})
	assert.False(t, ok)
}

func TestParseISOTime(t *testing.T) {
	parsed, err := parseISOTime("2026-03-01T06:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), parsed)

	parsed, err = parseISOTime("2026-03-01T06:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), parsed)

	_, err = parseISOTime("yesterday")
	assert.Error(t, err)
}
