package connectors

import (
	"context"
	"fmt"
	"time"

	"world-monitor/internal/models"
)

// Connector fetches raw records from one external public source. Connectors
// share no mutable state with each other and never write to the event store
// directly; the scheduler owns the pipeline.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]models.RawRecord, error)
}

// Connector error kinds.
const (
	KindTimeout     = "timeout"
	KindHTTPStatus  = "http_status"
	KindParse       = "parse"
	KindRateLimited = "rate_limited"
)

// ConnectorError wraps a connector failure with its kind so the scheduler can
// record it in source health without aborting the run.
type ConnectorError struct {
	Kind   string
	Source string
	Err    error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// Registration pairs a connector with its enabled flag. Disabled connectors
// stay registered so their health rows survive and report the disabled state.
type Registration struct {
	Connector Connector
	Enabled   bool
}

// Registry is the static connector table assembled at startup. Adding a
// source means adding one Connector implementation and one entry here.
type Registry struct {
	entries []Registration
}

func NewRegistry(entries ...Registration) *Registry {
	return &Registry{entries: entries}
}

// All returns registrations in their configured order.
func (r *Registry) All() []Registration {
	return r.entries
}
