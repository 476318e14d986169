package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"world-monitor/internal/logging"
	"world-monitor/internal/models"
	"world-monitor/internal/pipeline"
)

// Spike detection windows. The recent-vs-baseline ratio threshold is the
// multiplier a country's activity must exceed before a spike rule fires.
const (
	spikeWindowHours   = 6
	spikeBaselineHours = 24
	spikeFireRatio     = 3.0
)

// Store is the persistence surface the engine needs.
type Store interface {
	ListRules(ctx context.Context) ([]models.AlertRule, error)
	AddAlertInstance(ctx context.Context, instance models.AlertInstance) (bool, error)
	Pulse(ctx context.Context, windowHours, baselineHours int) ([]models.PulseEntry, error)
}

// Dispatcher delivers fired alerts to their configured channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, instance models.AlertInstance, event models.Event, rule models.AlertRule)
}

// Engine evaluates alert rules against freshly ingested events.
type Engine struct {
	store      Store
	dispatcher Dispatcher
	logger     *logging.Logger
}

func NewEngine(store Store, dispatcher Dispatcher, logger *logging.Logger) *Engine {
	return &Engine{store: store, dispatcher: dispatcher, logger: logger}
}

// Evaluate matches every enabled rule against the given events and persists
// one alert instance per new (rule, event) pair. Returns the number of
// instances created; pairs that already fired are skipped by the store's
// uniqueness constraint.
func (e *Engine) Evaluate(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return 0, err
	}
	if len(rules) == 0 {
		return 0, nil
	}

	// The pulse snapshot is shared across all spike rules in this pass.
	var spiking map[string]bool
	for _, rule := range rules {
		if rule.Enabled && rule.SpikeDetection {
			spiking, err = e.spikingCountries(ctx)
			if err != nil {
				e.logger.Errorf("Spike detection query failed: %v", err)
				spiking = map[string]bool{}
			}
			break
		}
	}

	fired := 0
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		for _, event := range events {
			if !RuleMatches(rule, event) && !(rule.SpikeDetection && spiking[event.Country]) {
				continue
			}
			instance := models.AlertInstance{
				ID:      uuid.NewString(),
				RuleID:  rule.ID,
				EventID: event.ID,
				Status:  models.AlertStatusNew,
				FiredAt: time.Now().UTC(),
			}
			created, err := e.store.AddAlertInstance(ctx, instance)
			if err != nil {
				return fired, err
			}
			if !created {
				continue
			}
			fired++
			if e.dispatcher != nil {
				e.dispatcher.Dispatch(ctx, instance, event, rule)
			}
		}
	}
	return fired, nil
}

// RuleMatches reports whether a rule's field criteria select an event.
// Country, region, category, and keyword membership are OR'd together; the
// severity threshold is an AND gate on top. A rule with no field criteria at
// all matches on severity alone.
func RuleMatches(rule models.AlertRule, event models.Event) bool {
	if event.Severity < rule.SeverityThreshold {
		return false
	}

	hasCriteria := len(rule.Countries) > 0 || len(rule.Regions) > 0 ||
		len(rule.Categories) > 0 || len(rule.Keywords) > 0
	if !hasCriteria {
		return true
	}

	if containsString(rule.Countries, event.Country) {
		return true
	}
	if containsString(rule.Regions, event.Region) {
		return true
	}
	if containsString(rule.Categories, event.Category) {
		return true
	}
	if len(rule.Keywords) > 0 {
		haystack := strings.ToLower(event.Title + " " + event.Summary + " " + event.BodySnippet)
		for _, keyword := range rule.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(haystack, keyword) {
				return true
			}
		}
	}
	return false
}

// spikingCountries returns the countries whose recent event rate exceeds the
// spike ratio against their trailing baseline.
func (e *Engine) spikingCountries(ctx context.Context) (map[string]bool, error) {
	pulse, err := e.store.Pulse(ctx, spikeWindowHours, spikeBaselineHours)
	if err != nil {
		return nil, err
	}
	spiking := make(map[string]bool, len(pulse))
	for _, entry := range pulse {
		baseline := entry.BaselineCount
		if baseline < 1 {
			baseline = 1
		}
		if float64(entry.RecentCount) > spikeFireRatio*float64(baseline) {
			spiking[entry.Country] = true
		}
	}
	return spiking, nil
}

func containsString(values []string, target string) bool {
	normalized := pipeline.NormalizeText(target)
	for _, value := range values {
		if pipeline.NormalizeText(value) == normalized {
			return true
		}
	}
	return false
}
