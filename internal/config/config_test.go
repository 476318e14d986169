package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/worldmonitor")
	for _, key := range []string{
		"API_PORT", "API_BASE_PATH", "LOG_DIR", "LOG_LEVEL",
		"EVENT_SCHEDULER_ENABLED", "EVENT_REFRESH_MINUTES",
		"EVENT_DEFAULT_SINCE_HOURS", "CONNECTOR_USGS_ENABLED",
		"GDELT_MAX_RECORDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, "logs", cfg.Logging.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10, cfg.Scheduler.RefreshMinutes)
	assert.Equal(t, 48, cfg.Scheduler.DefaultSinceHours)
	assert.True(t, cfg.Connectors.USGSEnabled)
	assert.Equal(t, 100, cfg.Connectors.GDELTMax)
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/worldmonitor")
	t.Setenv("EVENT_SCHEDULER_ENABLED", "false")
	t.Setenv("EVENT_REFRESH_MINUTES", "0")
	t.Setenv("EVENT_DEFAULT_SINCE_HOURS", "2")
	t.Setenv("CONNECTOR_GDELT_ENABLED", "off")
	t.Setenv("API_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10, cfg.Scheduler.RefreshMinutes, "sub-minute refresh falls back")
	assert.Equal(t, 48, cfg.Scheduler.DefaultSinceHours, "too-short lookback falls back")
	assert.False(t, cfg.Connectors.GDELTEnabled)
	assert.Equal(t, ":9090", cfg.API.Port)
}

func TestRSSFeedsDefaults(t *testing.T) {
	var cfg Config
	feeds := cfg.RSSFeeds()
	require.NotEmpty(t, feeds)
	assert.Equal(t, "BBC World", feeds[0].Name)

	var disasterFeeds int
	for _, feed := range feeds {
		if feed.Category == "disaster" {
			disasterFeeds++
		}
	}
	assert.Equal(t, 1, disasterFeeds)
}

func TestRSSFeedsParsing(t *testing.T) {
	var cfg Config
	cfg.Connectors.RSSSources = "Reuters=https://reuters.example/rss.xml|https://mirror.example/rss.xml,conflict; Local Wire=https://wire.example/feed"

	feeds := cfg.RSSFeeds()
	require.Len(t, feeds, 2)

	assert.Equal(t, "Reuters", feeds[0].Name)
	assert.Equal(t, []string{"https://reuters.example/rss.xml", "https://mirror.example/rss.xml"}, feeds[0].URLs)
	assert.Equal(t, "conflict", feeds[0].Category)

	assert.Equal(t, "Local Wire", feeds[1].Name)
	assert.Equal(t, []string{"https://wire.example/feed"}, feeds[1].URLs)
	assert.Equal(t, "", feeds[1].Category)
}

func TestRSSFeedsMalformedEntriesSkipped(t *testing.T) {
	var cfg Config
	cfg.Connectors.RSSSources = "NoEquals;=https://nameless.example/rss;Good=https://good.example/rss;Empty="

	feeds := cfg.RSSFeeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, "Good", feeds[0].Name)
}

func TestRSSFeedsAllMalformedFallsBackToDefaults(t *testing.T) {
	var cfg Config
	cfg.Connectors.RSSSources = "garbage;;;"
	feeds := cfg.RSSFeeds()
	assert.Equal(t, defaultRSSFeeds(), feeds)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG", "yes")
	assert.True(t, envBool("FLAG", false))
	t.Setenv("FLAG", "0")
	assert.False(t, envBool("FLAG", true))
	t.Setenv("FLAG", "maybe")
	assert.True(t, envBool("FLAG", true))
	t.Setenv("FLAG", "")
	assert.False(t, envBool("FLAG", false))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("COUNT", "42")
	assert.Equal(t, 42, envInt("COUNT", 7))
	t.Setenv("COUNT", "not-a-number")
	assert.Equal(t, 7, envInt("COUNT", 7))
	t.Setenv("COUNT", "")
	assert.Equal(t, 7, envInt("COUNT", 7))
}
