package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"world-monitor/internal/connectors"
	"world-monitor/internal/logging"
	"world-monitor/internal/metrics"
	"world-monitor/internal/models"
	"world-monitor/internal/pipeline"
)

// Run triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerStartup   = "startup"
)

// Store is the persistence surface the scheduler writes through.
type Store interface {
	UpsertEvents(ctx context.Context, events []models.Event) (int, error)
	SetConnectorHealth(ctx context.Context, health models.ConnectorHealth) error
	AddIngestionLog(ctx context.Context, level, connector, message string) error
}

// AlertEvaluator runs rule evaluation over the events upserted in a run.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, events []models.Event) (int, error)
}

type Config struct {
	Enabled           bool
	RefreshMinutes    int
	DefaultSinceHours int
	ConnectorDelay    time.Duration
	ConnectorTimeout  time.Duration
}

// Scheduler drives periodic ingestion runs. Exactly one run executes at a
// time; a manual trigger during a run is coalesced into one follow-up run
// instead of overlapping.
type Scheduler struct {
	cfg        Config
	registry   *connectors.Registry
	normalizer *pipeline.Normalizer
	store      Store
	engine     AlertEvaluator
	metrics    *metrics.Metrics
	logger     *logging.Logger

	mu              sync.Mutex
	running         bool
	pending         bool
	lastRunStarted  *time.Time
	lastRunFinished *time.Time
	lastError       *string
	nextRunAt       *time.Time
}

func New(cfg Config, registry *connectors.Registry, normalizer *pipeline.Normalizer, store Store, engine AlertEvaluator, m *metrics.Metrics, logger *logging.Logger) *Scheduler {
	if cfg.RefreshMinutes < 1 {
		cfg.RefreshMinutes = 10
	}
	if cfg.DefaultSinceHours < 6 {
		cfg.DefaultSinceHours = 48
	}
	if cfg.ConnectorTimeout <= 0 {
		cfg.ConnectorTimeout = 30 * time.Second
	}
	return &Scheduler{
		cfg:        cfg,
		registry:   registry,
		normalizer: normalizer,
		store:      store,
		engine:     engine,
		metrics:    m,
		logger:     logger,
	}
}

// Start runs one immediate ingestion pass and then, if enabled, drives the
// periodic timer until ctx is cancelled. Blocks; run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.Run(ctx, TriggerStartup)
	if !s.cfg.Enabled {
		s.logger.Infof("Scheduler disabled, periodic ingestion off")
		return
	}

	interval := time.Duration(s.cfg.RefreshMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick that lands mid-run is dropped; the in-flight run
			// already covers its window.
			if s.isRunning() {
				continue
			}
			s.Run(ctx, TriggerScheduled)
		}
	}
}

// Trigger requests a manual run. If a run is in flight the request is
// coalesced: one follow-up run starts as soon as the current one finishes,
// and the caller gets a queued summary immediately.
func (s *Scheduler) Trigger(ctx context.Context) models.RunSummary {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return models.RunSummary{Status: models.RunStatusQueued, Trigger: TriggerManual}
	}
	s.mu.Unlock()
	return s.Run(ctx, TriggerManual)
}

// Run executes one full ingestion pass. Safe to call concurrently; losers of
// the run-lock race get a queued summary.
func (s *Scheduler) Run(ctx context.Context, trigger string) models.RunSummary {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return models.RunSummary{Status: models.RunStatusQueued, Trigger: trigger}
	}
	s.running = true
	s.pending = false
	now := time.Now().UTC()
	s.lastRunStarted = &now
	s.lastError = nil
	s.nextRunAt = s.nextRunTime(now)
	s.mu.Unlock()

	summary := s.runOnce(ctx, trigger)

	s.mu.Lock()
	finished := time.Now().UTC()
	s.lastRunFinished = &finished
	if summary.Error != "" {
		s.lastError = &summary.Error
	}
	s.running = false
	rerun := s.pending
	s.pending = false
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(trigger, summary.Status).Inc()
		s.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}

	if rerun && ctx.Err() == nil {
		go s.Run(ctx, TriggerManual)
	}
	return summary
}

func (s *Scheduler) runOnce(ctx context.Context, trigger string) models.RunSummary {
	started := time.Now().UTC()
	since := started.Add(-time.Duration(s.cfg.DefaultSinceHours) * time.Hour)
	nextRun := s.nextRunTime(started)

	summary := models.RunSummary{
		Status:    models.RunStatusOK,
		Trigger:   trigger,
		StartedAt: started,
	}

	var runEvents []models.Event
	for _, registration := range s.registry.All() {
		name := registration.Connector.Name()

		if !registration.Enabled {
			disabled := "connector disabled"
			s.recordHealth(ctx, models.ConnectorHealth{
				Name:      name,
				Enabled:   false,
				LastError: &disabled,
				NextRunAt: nextRun,
			})
			continue
		}

		outcome, events, err := s.runConnector(ctx, registration.Connector, since)
		summary.PerConnector = append(summary.PerConnector, outcome)

		if err != nil {
			// Connector failures are recorded and skipped; the run goes on.
			s.logger.Errorf("Connector %s failed: %v", name, err)
			continue
		}

		count, err := s.store.UpsertEvents(ctx, events)
		if err != nil {
			// Store failures are not connector-local: abort the run.
			summary.Status = models.RunStatusError
			summary.Error = fmt.Sprintf("event store unavailable: %v", err)
			summary.FinishedAt = time.Now().UTC()
			s.logger.Errorf("Ingestion run aborted: %v", err)
			_ = s.store.AddIngestionLog(ctx, "ERROR", "scheduler", summary.Error)
			return summary
		}
		summary.IngestedCount += count
		runEvents = append(runEvents, events...)
		if s.metrics != nil {
			s.metrics.EventsUpserted.Add(float64(count))
		}

		if s.cfg.ConnectorDelay > 0 {
			select {
			case <-time.After(s.cfg.ConnectorDelay):
			case <-ctx.Done():
			}
		}
	}

	if s.engine != nil && len(runEvents) > 0 {
		fired, err := s.engine.Evaluate(ctx, runEvents)
		if err != nil {
			s.logger.Errorf("Alert evaluation failed: %v", err)
		}
		summary.AlertsFired = fired
		if s.metrics != nil {
			s.metrics.AlertsFired.Add(float64(fired))
		}
	}

	summary.FinishedAt = time.Now().UTC()
	s.logger.Infof("Ingestion run (%s) finished: %d events, %d alerts fired in %s",
		trigger, summary.IngestedCount, summary.AlertsFired, summary.FinishedAt.Sub(started).Round(time.Millisecond))
	return summary
}

// runConnector fetches and normalizes one connector's records under its own
// timeout. Health and the per-connector ingestion log are written here for
// both outcomes.
func (s *Scheduler) runConnector(ctx context.Context, connector connectors.Connector, since time.Time) (models.ConnectorOutcome, []models.Event, error) {
	name := connector.Name()
	nextRun := s.nextRunTime(time.Now().UTC())

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectorTimeout)
	defer cancel()

	fetchStarted := time.Now()
	records, err := connector.Fetch(fetchCtx, since)
	duration := time.Since(fetchStarted)
	durationMs := duration.Milliseconds()

	if s.metrics != nil {
		s.metrics.ConnectorDuration.WithLabelValues(name).Observe(duration.Seconds())
	}

	outcome := models.ConnectorOutcome{Name: name, DurationMs: durationMs}
	now := time.Now().UTC()

	if err != nil {
		message := err.Error()
		outcome.Error = message
		if s.metrics != nil {
			s.metrics.ConnectorErrors.WithLabelValues(name, errorKind(err)).Inc()
		}
		s.recordHealth(ctx, models.ConnectorHealth{
			Name:           name,
			Enabled:        true,
			LastErrorAt:    &now,
			LastError:      &message,
			NextRunAt:      nextRun,
			LastDurationMs: durationMs,
		})
		_ = s.store.AddIngestionLog(ctx, "ERROR", name, message)
		return outcome, nil, err
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		events = append(events, s.normalizer.Normalize(record, now))
	}
	outcome.Items = len(events)

	if s.metrics != nil {
		s.metrics.ConnectorItems.WithLabelValues(name).Add(float64(len(events)))
	}
	s.recordHealth(ctx, models.ConnectorHealth{
		Name:           name,
		Enabled:        true,
		LastSuccessAt:  &now,
		NextRunAt:      nextRun,
		ItemsFetched:   len(events),
		LastDurationMs: durationMs,
	})
	_ = s.store.AddIngestionLog(ctx, "INFO", name,
		fmt.Sprintf("Fetched %d events in %dms", len(events), durationMs))
	return outcome, events, nil
}

func (s *Scheduler) recordHealth(ctx context.Context, health models.ConnectorHealth) {
	health.UpdatedAt = time.Now().UTC()
	if err := s.store.SetConnectorHealth(ctx, health); err != nil {
		s.logger.Errorf("Update health for %s failed: %v", health.Name, err)
	}
}

// Status returns an eventually-consistent snapshot of scheduler state.
func (s *Scheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SchedulerStatus{
		Running:           s.running,
		RefreshMinutes:    s.cfg.RefreshMinutes,
		LastRunStartedAt:  s.lastRunStarted,
		LastRunFinishedAt: s.lastRunFinished,
		LastError:         s.lastError,
		NextRunAt:         s.nextRunAt,
	}
}

// nextRunTime returns when the periodic timer will fire next, or nil when the
// timer is off so status and health never advertise a run that will not happen.
func (s *Scheduler) nextRunTime(from time.Time) *time.Time {
	if !s.cfg.Enabled {
		return nil
	}
	next := from.Add(time.Duration(s.cfg.RefreshMinutes) * time.Minute)
	return &next
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func errorKind(err error) string {
	var connErr *connectors.ConnectorError
	if errors.As(err, &connErr) {
		return connErr.Kind
	}
	return "unknown"
}
