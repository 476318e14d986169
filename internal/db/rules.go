package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"world-monitor/internal/models"
)

// UpsertRule creates or replaces an alert rule. The caller validates first;
// a missing id gets a fresh UUID.
func (d *DB) UpsertRule(ctx context.Context, rule models.AlertRule) (models.AlertRule, error) {
	now := time.Now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
		rule.CreatedAt = now
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	countries, regions, categories, keywords, err := marshalRuleLists(rule)
	if err != nil {
		return models.AlertRule{}, err
	}

	query := `
	INSERT INTO alert_rules (
		id, name, enabled, countries, regions, categories, keywords,
		severity_threshold, spike_detection, action_in_app,
		action_webhook_url, action_telegram_chat_id, created_at, updated_at
	) VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		enabled = excluded.enabled,
		countries = excluded.countries,
		regions = excluded.regions,
		categories = excluded.categories,
		keywords = excluded.keywords,
		severity_threshold = excluded.severity_threshold,
		spike_detection = excluded.spike_detection,
		action_in_app = excluded.action_in_app,
		action_webhook_url = excluded.action_webhook_url,
		action_telegram_chat_id = excluded.action_telegram_chat_id,
		updated_at = excluded.updated_at`

	_, err = d.Pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Enabled,
		countries,
		regions,
		categories,
		keywords,
		rule.SeverityThreshold,
		rule.SpikeDetection,
		rule.ActionInApp,
		rule.ActionWebhookURL,
		rule.ActionTelegramChatID,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return models.AlertRule{}, fmt.Errorf("failed to upsert rule: %w", err)
	}
	return rule, nil
}

// ListRules returns every rule, most recently updated first.
func (d *DB) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, name, enabled, countries, regions, categories, keywords,
			severity_threshold, spike_detection, action_in_app,
			action_webhook_url, action_telegram_chat_id, created_at, updated_at
		FROM alert_rules
		ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var rule models.AlertRule
		var countries, regions, categories, keywords []byte
		err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Enabled,
			&countries,
			&regions,
			&categories,
			&keywords,
			&rule.SeverityThreshold,
			&rule.SpikeDetection,
			&rule.ActionInApp,
			&rule.ActionWebhookURL,
			&rule.ActionTelegramChatID,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.Countries = unmarshalStrings(countries)
		rule.Regions = unmarshalStrings(regions)
		rule.Categories = unmarshalStrings(categories)
		rule.Keywords = unmarshalStrings(keywords)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// EnsureDefaultRule seeds one starter rule into an empty store so alerting
// works out of the box.
func (d *DB) EnsureDefaultRule(ctx context.Context) error {
	var count int
	if err := d.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM alert_rules").Scan(&count); err != nil {
		return fmt.Errorf("failed to count rules: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := d.UpsertRule(ctx, models.AlertRule{
		Name:              "High Severity Monitor",
		Enabled:           true,
		Categories:        []string{models.CategoryConflict, models.CategoryDisaster, models.CategorySanctions},
		Keywords:          []string{"attack", "earthquake", "sanctions", "ceasefire"},
		SeverityThreshold: 65,
		ActionInApp:       true,
	})
	return err
}

func marshalRuleLists(rule models.AlertRule) (string, string, string, string, error) {
	encode := func(values []string) (string, error) {
		if values == nil {
			values = []string{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("failed to encode rule list: %w", err)
		}
		return string(data), nil
	}
	countries, err := encode(rule.Countries)
	if err != nil {
		return "", "", "", "", err
	}
	regions, err := encode(rule.Regions)
	if err != nil {
		return "", "", "", "", err
	}
	categories, err := encode(rule.Categories)
	if err != nil {
		return "", "", "", "", err
	}
	keywords, err := encode(rule.Keywords)
	if err != nil {
		return "", "", "", "", err
	}
	return countries, regions, categories, keywords, nil
}

func unmarshalStrings(data []byte) []string {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil || values == nil {
		return []string{}
	}
	return values
}
