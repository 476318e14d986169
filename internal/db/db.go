package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for row-level outcomes. ErrNoOp signals that the requested
// transition is already satisfied or not allowed from the current state.
var (
	ErrNotFound = errors.New("not found")
	ErrNoOp     = errors.New("no-op transition")
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		source TEXT NOT NULL,
		source_url TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT NOT NULL,
		body_snippet TEXT NOT NULL,
		category TEXT NOT NULL,
		tags JSONB NOT NULL DEFAULT '[]'::jsonb,
		country TEXT NOT NULL,
		region TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		geohash TEXT,
		severity INTEGER NOT NULL,
		confidence INTEGER NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		ingested_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		cluster_id TEXT NOT NULL,
		raw JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_category ON events (category)`,
	`CREATE INDEX IF NOT EXISTS idx_events_region ON events (region)`,
	`CREATE INDEX IF NOT EXISTS idx_events_country ON events (country)`,
	`CREATE INDEX IF NOT EXISTS idx_events_cluster ON events (cluster_id)`,
	`CREATE TABLE IF NOT EXISTS connector_health (
		name TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		last_success_at TIMESTAMPTZ,
		last_error_at TIMESTAMPTZ,
		last_error TEXT,
		next_run_at TIMESTAMPTZ,
		items_fetched INTEGER NOT NULL DEFAULT 0,
		last_duration_ms BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingestion_logs (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		level TEXT NOT NULL,
		connector TEXT NOT NULL,
		message TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingestion_logs_created_at ON ingestion_logs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		countries JSONB NOT NULL DEFAULT '[]'::jsonb,
		regions JSONB NOT NULL DEFAULT '[]'::jsonb,
		categories JSONB NOT NULL DEFAULT '[]'::jsonb,
		keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
		severity_threshold INTEGER NOT NULL,
		spike_detection BOOLEAN NOT NULL DEFAULT FALSE,
		action_in_app BOOLEAN NOT NULL DEFAULT TRUE,
		action_webhook_url TEXT NOT NULL DEFAULT '',
		action_telegram_chat_id BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_instances (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL REFERENCES alert_rules (id) ON DELETE CASCADE,
		event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		fired_at TIMESTAMPTZ NOT NULL,
		acked_at TIMESTAMPTZ,
		resolved_at TIMESTAMPTZ,
		UNIQUE (rule_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_instances_status ON alert_instances (status)`,
}

// Migrate applies the schema. Every statement is idempotent so startup can
// run this unconditionally.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
