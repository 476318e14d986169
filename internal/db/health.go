package db

import (
	"context"
	"fmt"
	"time"

	"world-monitor/internal/models"
)

// SetConnectorHealth upserts one connector's telemetry after a run attempt.
// Success and error timestamps only move forward: a failing run keeps the
// last success time and vice versa.
func (d *DB) SetConnectorHealth(ctx context.Context, health models.ConnectorHealth) error {
	query := `
	INSERT INTO connector_health (
		name, enabled, last_success_at, last_error_at, last_error,
		next_run_at, items_fetched, last_duration_ms, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (name) DO UPDATE SET
		enabled = excluded.enabled,
		last_success_at = COALESCE(excluded.last_success_at, connector_health.last_success_at),
		last_error_at = COALESCE(excluded.last_error_at, connector_health.last_error_at),
		last_error = excluded.last_error,
		next_run_at = excluded.next_run_at,
		items_fetched = excluded.items_fetched,
		last_duration_ms = excluded.last_duration_ms,
		updated_at = excluded.updated_at`

	updatedAt := health.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := d.Pool.Exec(ctx, query,
		health.Name,
		health.Enabled,
		health.LastSuccessAt,
		health.LastErrorAt,
		health.LastError,
		health.NextRunAt,
		health.ItemsFetched,
		health.LastDurationMs,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connector health: %w", err)
	}
	return nil
}

// ListConnectorHealth returns every known connector ordered by name.
func (d *DB) ListConnectorHealth(ctx context.Context) ([]models.ConnectorHealth, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT name, enabled, last_success_at, last_error_at, last_error,
			next_run_at, items_fetched, last_duration_ms, updated_at
		FROM connector_health
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connector health: %w", err)
	}
	defer rows.Close()

	var list []models.ConnectorHealth
	for rows.Next() {
		var h models.ConnectorHealth
		err := rows.Scan(
			&h.Name,
			&h.Enabled,
			&h.LastSuccessAt,
			&h.LastErrorAt,
			&h.LastError,
			&h.NextRunAt,
			&h.ItemsFetched,
			&h.LastDurationMs,
			&h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connector health: %w", err)
		}
		list = append(list, h)
	}
	return list, rows.Err()
}
