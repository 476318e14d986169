package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoResolverExplicitCountry(t *testing.T) {
	r := NewGeoResolver()

	got := r.Resolve("Kenya", "", "")
	assert.Equal(t, "Kenya", got.Country)
	assert.Equal(t, "Africa", got.Region)
	require.NotNil(t, got.Lat)
	require.NotNil(t, got.Lon)

	// Aliases map onto the canonical entry.
	got = r.Resolve("UK", "", "")
	assert.Equal(t, "United Kingdom", got.Country)
	assert.Equal(t, "Europe", got.Region)
}

func TestGeoResolverUnknownCountryKeptVerbatim(t *testing.T) {
	r := NewGeoResolver()
	got := r.Resolve("Atlantis", "Oceania", "")
	assert.Equal(t, "Atlantis", got.Country)
	assert.Equal(t, "Oceania", got.Region)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lon)
}

func TestGeoResolverDetectsFromText(t *testing.T) {
	r := NewGeoResolver()

	got := r.Resolve("", "", "Explosion reported near Lagos port district")
	assert.Equal(t, "Nigeria", got.Country)
	assert.Equal(t, "Africa", got.Region)

	// Longer aliases are checked first.
	got = r.Resolve("", "", "Leaders meet in South Korea this week")
	assert.Equal(t, "South Korea", got.Country)
}

func TestGeoResolverGlobalFallback(t *testing.T) {
	r := NewGeoResolver()
	got := r.Resolve("", "", "No recognizable place names here")
	assert.Equal(t, "Global", got.Country)
	assert.Equal(t, "Global", got.Region)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lon)
}

func TestGeoResolverWholeWordMatching(t *testing.T) {
	r := NewGeoResolver()
	// "bunker" must not trip the "un" style short aliases.
	got := r.Resolve("", "", "bunker fuel shortage hits shipping")
	assert.Equal(t, "Global", got.Country)
}
