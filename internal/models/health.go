package models

import "time"

// ConnectorHealth is per-source last-run telemetry. Created on first
// registration, mutated after every run attempt, never deleted while the
// connector stays registered.
type ConnectorHealth struct {
	Name           string     `json:"name"`
	Enabled        bool       `json:"enabled"`
	LastSuccessAt  *time.Time `json:"last_success_at"`
	LastErrorAt    *time.Time `json:"last_error_at"`
	LastError      *string    `json:"last_error"`
	NextRunAt      *time.Time `json:"next_run_at"`
	ItemsFetched   int        `json:"items_fetched"`
	LastDurationMs int64      `json:"last_duration_ms"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ConnectorOutcome is one connector's result within a run summary.
type ConnectorOutcome struct {
	Name       string `json:"name"`
	Items      int    `json:"items"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Run summary statuses.
const (
	RunStatusOK     = "ok"
	RunStatusError  = "error"
	RunStatusQueued = "queued"
)

// RunSummary reports one ingestion run to the caller.
type RunSummary struct {
	Status        string             `json:"status"`
	Trigger       string             `json:"trigger"`
	IngestedCount int                `json:"ingested_count"`
	AlertsFired   int                `json:"alerts_fired"`
	PerConnector  []ConnectorOutcome `json:"per_connector"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	Error         string             `json:"error,omitempty"`
}

// SchedulerStatus is the scheduler's externally visible state snapshot.
type SchedulerStatus struct {
	Running           bool       `json:"running"`
	RefreshMinutes    int        `json:"refresh_minutes"`
	LastRunStartedAt  *time.Time `json:"last_run_started_at"`
	LastRunFinishedAt *time.Time `json:"last_run_finished_at"`
	LastError         *string    `json:"last_error"`
	NextRunAt         *time.Time `json:"next_run_at"`
}

// IngestionLog is one operator-visible log row for a connector outcome.
type IngestionLog struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Connector string    `json:"connector"`
	Message   string    `json:"message"`
}
