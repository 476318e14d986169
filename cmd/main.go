package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"world-monitor/internal/alerts"
	"world-monitor/internal/api"
	"world-monitor/internal/config"
	"world-monitor/internal/connectors"
	"world-monitor/internal/db"
	"world-monitor/internal/kafka"
	"world-monitor/internal/logging"
	"world-monitor/internal/metrics"
	"world-monitor/internal/models"
	"world-monitor/internal/pipeline"
	"world-monitor/internal/scheduler"
)

// publishingDispatcher chains the channel dispatcher with the Kafka
// publisher so both see every fired alert.
type publishingDispatcher struct {
	inner     *alerts.ActionDispatcher
	publisher *kafka.Publisher
}

func (d *publishingDispatcher) Dispatch(ctx context.Context, instance models.AlertInstance, event models.Event, rule models.AlertRule) {
	d.inner.Dispatch(ctx, instance, event, rule)
	d.publisher.PublishAlert(ctx, instance, event, rule)
}

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database and apply schema
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dbConn.Migrate(ctx); err != nil {
		logger.Fatalf("Schema migration failed: %v", err)
	}
	if err := dbConn.EnsureDefaultRule(ctx); err != nil {
		logger.Errorf("Seeding default rule failed: %v", err)
	}

	// Connector registry
	timeout := time.Duration(cfg.Scheduler.ConnectorTimeout) * time.Second
	fetcher := connectors.NewFetcher(connectors.NewHTTPClient(timeout), 2, 500*time.Millisecond)

	var feeds []connectors.FeedSource
	for _, feed := range cfg.RSSFeeds() {
		feeds = append(feeds, connectors.FeedSource{
			Name:         feed.Name,
			URLs:         feed.URLs,
			CategoryHint: feed.Category,
		})
	}
	registry := connectors.NewRegistry(
		connectors.Registration{Connector: connectors.NewUSGS(fetcher), Enabled: cfg.Connectors.USGSEnabled},
		connectors.Registration{Connector: connectors.NewEONET(fetcher), Enabled: cfg.Connectors.EONETEnabled},
		connectors.Registration{Connector: connectors.NewGDELT(fetcher, cfg.Connectors.GDELTQuery, cfg.Connectors.GDELTMax), Enabled: cfg.Connectors.GDELTEnabled},
		connectors.Registration{Connector: connectors.NewRSS(fetcher, feeds), Enabled: cfg.Connectors.RSSEnabled},
	)

	// Alerting: engine plus outbound channels
	m := metrics.New()
	hub := api.NewAlertHub(logger)
	publisher := kafka.NewPublisher(kafka.Config{Broker: cfg.Kafka.Broker, Topic: cfg.Kafka.Topic}, logger)
	defer publisher.Close()

	dispatcher := alerts.NewActionDispatcher(cfg.Telegram.BotToken, cfg.Telegram.RatePerSecond, logger, hub.Broadcast)
	engine := alerts.NewEngine(dbConn, &publishingDispatcher{inner: dispatcher, publisher: publisher}, logger)

	// Scheduler
	sched := scheduler.New(scheduler.Config{
		Enabled:           cfg.Scheduler.Enabled,
		RefreshMinutes:    cfg.Scheduler.RefreshMinutes,
		DefaultSinceHours: cfg.Scheduler.DefaultSinceHours,
		ConnectorDelay:    time.Duration(cfg.Scheduler.ConnectorDelayMs) * time.Millisecond,
		ConnectorTimeout:  timeout,
	}, registry, pipeline.NewNormalizer(), dbConn, engine, m, logger)
	go sched.Start(ctx)

	// API server
	router := api.NewRouter(dbConn, sched, hub, m, logger, cfg.API.BasePath)
	logger.Infof("Starting API server on %s", cfg.API.Port)
	if err := router.Run(cfg.API.Port); err != nil {
		logger.Errorf("API server failed: %v", err)
	}
}
