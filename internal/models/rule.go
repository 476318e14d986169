package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AlertRule is operator-defined matching criteria over incoming events.
// Country/region/category/keyword membership is OR'd together; the severity
// threshold is an AND gate on top.
type AlertRule struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Enabled              bool      `json:"enabled"`
	Countries            []string  `json:"countries"`
	Regions              []string  `json:"regions"`
	Categories           []string  `json:"categories"`
	Keywords             []string  `json:"keywords"`
	SeverityThreshold    int       `json:"severity_threshold"`
	SpikeDetection       bool      `json:"spike_detection"`
	ActionInApp          bool      `json:"action_in_app"`
	ActionWebhookURL     string    `json:"action_webhook_url,omitempty"`
	ActionTelegramChatID int64     `json:"action_telegram_chat_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RuleValidationError rejects a malformed rule synchronously on save.
type RuleValidationError struct {
	Field  string
	Reason string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s %s", e.Field, e.Reason)
}

// Validate checks rule constraints before the rule touches the store.
func (r *AlertRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &RuleValidationError{Field: "name", Reason: "must not be empty"}
	}
	if r.SeverityThreshold < 0 || r.SeverityThreshold > 100 {
		return &RuleValidationError{Field: "severity_threshold", Reason: "must be between 0 and 100"}
	}
	for _, category := range r.Categories {
		if !ValidCategory(category) {
			return &RuleValidationError{Field: "categories", Reason: fmt.Sprintf("unknown category %q", category)}
		}
	}
	if r.ActionWebhookURL != "" {
		parsed, err := url.Parse(r.ActionWebhookURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return &RuleValidationError{Field: "action_webhook_url", Reason: "must be an absolute URL"}
		}
	}
	return nil
}
