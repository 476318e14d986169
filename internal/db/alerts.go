package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"world-monitor/internal/models"
)

// AddAlertInstance records one rule firing against one event. The (rule_id,
// event_id) pair is unique, so re-evaluating the same event never produces a
// second instance; created reports whether a new row was inserted.
func (d *DB) AddAlertInstance(ctx context.Context, instance models.AlertInstance) (bool, error) {
	if instance.ID == "" {
		instance.ID = uuid.NewString()
	}
	if instance.Status == "" {
		instance.Status = models.AlertStatusNew
	}
	if instance.FiredAt.IsZero() {
		instance.FiredAt = time.Now().UTC()
	}

	tag, err := d.Pool.Exec(ctx, `
		INSERT INTO alert_instances (id, rule_id, event_id, status, fired_at, acked_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (rule_id, event_id) DO NOTHING`,
		instance.ID,
		instance.RuleID,
		instance.EventID,
		instance.Status,
		instance.FiredAt,
		instance.AckedAt,
		instance.ResolvedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert instance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAlertInbox returns fired alerts joined with rule and event context,
// newest first. An empty status means all statuses.
func (d *DB) ListAlertInbox(ctx context.Context, status string, limit int) ([]models.AlertInstance, error) {
	if limit < 1 {
		limit = 200
	}
	if limit > 500 {
		limit = 500
	}

	query := `
	SELECT
		ai.id, ai.rule_id, r.name, ai.event_id, ai.status, ai.fired_at,
		ai.acked_at, ai.resolved_at,
		e.title, e.source, e.category, e.country, e.severity, e.occurred_at
	FROM alert_instances ai
	JOIN alert_rules r ON r.id = ai.rule_id
	JOIN events e ON e.id = ai.event_id`

	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE ai.status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY ai.fired_at DESC LIMIT $%d", len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert inbox: %w", err)
	}
	defer rows.Close()

	var list []models.AlertInstance
	for rows.Next() {
		var a models.AlertInstance
		err := rows.Scan(
			&a.ID,
			&a.RuleID,
			&a.RuleName,
			&a.EventID,
			&a.Status,
			&a.FiredAt,
			&a.AckedAt,
			&a.ResolvedAt,
			&a.EventTitle,
			&a.EventSource,
			&a.EventCategory,
			&a.EventCountry,
			&a.EventSeverity,
			&a.EventOccurred,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert instance: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// AckAlert transitions a new alert to acked. Acking an already acked alert is
// ErrNoOp; acking a resolved alert is also ErrNoOp since resolved is terminal.
func (d *DB) AckAlert(ctx context.Context, id string) (models.AlertInstance, error) {
	now := time.Now().UTC()
	row := d.Pool.QueryRow(ctx, `
		UPDATE alert_instances
		SET status = $2, acked_at = $3
		WHERE id = $1 AND status = $4
		RETURNING id, rule_id, event_id, status, fired_at, acked_at, resolved_at`,
		id, models.AlertStatusAcked, now, models.AlertStatusNew)

	instance, err := scanAlertInstance(row)
	if err == nil {
		return instance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.AlertInstance{}, fmt.Errorf("failed to ack alert: %w", err)
	}
	return d.alertTransitionConflict(ctx, id)
}

// ResolveAlert transitions a new or acked alert to resolved. A resolved alert
// stays resolved; acked_at is backfilled when the alert skips the acked state.
func (d *DB) ResolveAlert(ctx context.Context, id string) (models.AlertInstance, error) {
	now := time.Now().UTC()
	row := d.Pool.QueryRow(ctx, `
		UPDATE alert_instances
		SET status = $2, resolved_at = $3, acked_at = COALESCE(acked_at, $3)
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING id, rule_id, event_id, status, fired_at, acked_at, resolved_at`,
		id, models.AlertStatusResolved, now, models.AlertStatusNew, models.AlertStatusAcked)

	instance, err := scanAlertInstance(row)
	if err == nil {
		return instance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.AlertInstance{}, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return d.alertTransitionConflict(ctx, id)
}

// alertTransitionConflict distinguishes a missing alert from a disallowed
// transition after a conditional update matched nothing.
func (d *DB) alertTransitionConflict(ctx context.Context, id string) (models.AlertInstance, error) {
	row := d.Pool.QueryRow(ctx, `
		SELECT id, rule_id, event_id, status, fired_at, acked_at, resolved_at
		FROM alert_instances WHERE id = $1`, id)
	instance, err := scanAlertInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AlertInstance{}, ErrNotFound
	}
	if err != nil {
		return models.AlertInstance{}, fmt.Errorf("failed to load alert: %w", err)
	}
	return instance, ErrNoOp
}

func scanAlertInstance(row pgx.Row) (models.AlertInstance, error) {
	var a models.AlertInstance
	err := row.Scan(&a.ID, &a.RuleID, &a.EventID, &a.Status, &a.FiredAt, &a.AckedAt, &a.ResolvedAt)
	return a, err
}
