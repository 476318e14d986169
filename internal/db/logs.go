package db

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"world-monitor/internal/models"
)

const maxLogMessage = 800

// truncateMessage caps a log message at max bytes without splitting a rune;
// connector errors can carry non-ASCII feed titles.
func truncateMessage(message string, max int) string {
	if len(message) <= max {
		return message
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

// AddIngestionLog appends one operator-visible log row for a connector run.
func (d *DB) AddIngestionLog(ctx context.Context, level, connector, message string) error {
	message = truncateMessage(message, maxLogMessage)
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO ingestion_logs (created_at, level, connector, message)
		VALUES ($1, $2, $3, $4)`,
		time.Now().UTC(), strings.ToUpper(level), connector, message)
	if err != nil {
		return fmt.Errorf("failed to insert ingestion log: %w", err)
	}
	return nil
}

// ListIngestionLogs returns the newest log rows first.
func (d *DB) ListIngestionLogs(ctx context.Context, limit int) ([]models.IngestionLog, error) {
	if limit < 1 {
		limit = 200
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT id, created_at, level, connector, message
		FROM ingestion_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion logs: %w", err)
	}
	defer rows.Close()

	var logs []models.IngestionLog
	for rows.Next() {
		var log models.IngestionLog
		if err := rows.Scan(&log.ID, &log.CreatedAt, &log.Level, &log.Connector, &log.Message); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
