package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Scheduler struct {
		Enabled           bool
		RefreshMinutes    int
		DefaultSinceHours int
		ConnectorDelayMs  int
		ConnectorTimeout  int // seconds
	}
	Connectors struct {
		USGSEnabled  bool
		EONETEnabled bool
		GDELTEnabled bool
		RSSEnabled   bool
		RSSSources   string
		GDELTQuery   string
		GDELTMax     int
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken      string
		RatePerSecond int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
// Only DB_DSN is required; every optional key degrades to a disabled feature.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		return Config{}, fmt.Errorf("missing required configurations: [DB_DSN]")
	}

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Scheduler.Enabled = envBool("EVENT_SCHEDULER_ENABLED", true)
	cfg.Scheduler.RefreshMinutes = envInt("EVENT_REFRESH_MINUTES", 10)
	cfg.Scheduler.DefaultSinceHours = envInt("EVENT_DEFAULT_SINCE_HOURS", 48)
	cfg.Scheduler.ConnectorDelayMs = envInt("EVENT_CONNECTOR_DELAY_MS", 350)
	cfg.Scheduler.ConnectorTimeout = envInt("CONNECTOR_TIMEOUT_SECONDS", 30)

	cfg.Connectors.USGSEnabled = envBool("CONNECTOR_USGS_ENABLED", true)
	cfg.Connectors.EONETEnabled = envBool("CONNECTOR_EONET_ENABLED", true)
	cfg.Connectors.GDELTEnabled = envBool("CONNECTOR_GDELT_ENABLED", true)
	cfg.Connectors.RSSEnabled = envBool("CONNECTOR_RSS_ENABLED", true)
	cfg.Connectors.RSSSources = os.Getenv("RSS_SOURCES")
	cfg.Connectors.GDELTQuery = os.Getenv("GDELT_QUERY")
	cfg.Connectors.GDELTMax = envInt("GDELT_MAX_RECORDS", 100)

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_ALERT_TOPIC")

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RatePerSecond = envInt("TELEGRAM_RATE_PER_SECOND", 5)

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Scheduler.RefreshMinutes < 1 {
		cfg.Scheduler.RefreshMinutes = 10
	}
	if cfg.Scheduler.DefaultSinceHours < 6 {
		cfg.Scheduler.DefaultSinceHours = 48
	}

	return cfg, nil
}

// RSSFeeds parses RSS_SOURCES into name/url pairs. Format:
// "Name=url[|fallback-url][,category];Name2=url". Malformed entries are
// skipped; an empty value yields the built-in defaults.
type RSSFeed struct {
	Name     string
	URLs     []string
	Category string
}

func (c Config) RSSFeeds() []RSSFeed {
	raw := strings.TrimSpace(c.Connectors.RSSSources)
	if raw == "" {
		return defaultRSSFeeds()
	}
	var feeds []RSSFeed
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, found := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}
		category := ""
		if idx := strings.LastIndex(value, ","); idx >= 0 {
			category = strings.TrimSpace(value[idx+1:])
			value = value[:idx]
		}
		var urls []string
		for _, u := range strings.Split(value, "|") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			continue
		}
		feeds = append(feeds, RSSFeed{Name: name, URLs: urls, Category: category})
	}
	if len(feeds) == 0 {
		return defaultRSSFeeds()
	}
	return feeds
}

func defaultRSSFeeds() []RSSFeed {
	return []RSSFeed{
		{Name: "BBC World", URLs: []string{"https://feeds.bbci.co.uk/news/world/rss.xml"}},
		{Name: "Al Jazeera", URLs: []string{"https://www.aljazeera.com/xml/rss/all.xml"}},
		{Name: "UN News", URLs: []string{"https://news.un.org/feed/subscribe/en/news/all/rss.xml"}},
		{Name: "ReliefWeb Disasters", URLs: []string{"https://reliefweb.int/disasters/rss.xml"}, Category: "disaster"},
	}
}

func envBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
