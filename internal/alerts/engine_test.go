package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-monitor/internal/logging"
	"world-monitor/internal/models"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)
	return logger
}

type fakeStore struct {
	rules     []models.AlertRule
	pulse     []models.PulseEntry
	instances []models.AlertInstance
	seen      map[string]bool
}

func newFakeStore(rules ...models.AlertRule) *fakeStore {
	return &fakeStore{rules: rules, seen: map[string]bool{}}
}

func (s *fakeStore) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	return s.rules, nil
}

func (s *fakeStore) AddAlertInstance(ctx context.Context, instance models.AlertInstance) (bool, error) {
	key := instance.RuleID + "|" + instance.EventID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	s.instances = append(s.instances, instance)
	return true, nil
}

func (s *fakeStore) Pulse(ctx context.Context, windowHours, baselineHours int) ([]models.PulseEntry, error) {
	return s.pulse, nil
}

func event(id, country, category, title string, severity int) models.Event {
	return models.Event{
		ID:       id,
		Country:  country,
		Region:   "Africa",
		Category: category,
		Title:    title,
		Severity: severity,
	}
}

func TestRuleMatchesCountryWithSeverityGate(t *testing.T) {
	rule := models.AlertRule{
		ID:                "r1",
		Name:              "Nigeria watch",
		Enabled:           true,
		Countries:         []string{"Nigeria"},
		SeverityThreshold: 50,
	}

	assert.True(t, RuleMatches(rule, event("e1", "Nigeria", "conflict", "Clashes reported", 60)))
	assert.False(t, RuleMatches(rule, event("e2", "Nigeria", "conflict", "Clashes reported", 40)),
		"severity below threshold must not match")
	assert.False(t, RuleMatches(rule, event("e3", "Ghana", "conflict", "Clashes reported", 60)))
}

func TestRuleMatchesKeywordCaseInsensitive(t *testing.T) {
	rule := models.AlertRule{
		ID:       "r1",
		Enabled:  true,
		Keywords: []string{"sanctions"},
	}

	assert.True(t, RuleMatches(rule, event("e1", "Global", "sanctions", "Sanctions imposed on exporters", 30)))
	assert.True(t, RuleMatches(rule, event("e2", "Global", "sanctions", "NEW SANCTIONS PACKAGE", 30)))
	assert.False(t, RuleMatches(rule, event("e3", "Global", "other", "Trade talks resume", 30)))
}

func TestRuleMatchesFieldsAreORd(t *testing.T) {
	rule := models.AlertRule{
		ID:         "r1",
		Enabled:    true,
		Countries:  []string{"Kenya"},
		Categories: []string{"cyber"},
	}

	// Either field alone is enough.
	assert.True(t, RuleMatches(rule, event("e1", "Kenya", "markets", "Shilling slides", 10)))
	assert.True(t, RuleMatches(rule, event("e2", "Brazil", "cyber", "Breach disclosed", 10)))
	assert.False(t, RuleMatches(rule, event("e3", "Brazil", "markets", "Real slides", 10)))
}

func TestRuleMatchesNoCriteriaSeverityOnly(t *testing.T) {
	rule := models.AlertRule{ID: "r1", Enabled: true, SeverityThreshold: 65}
	assert.True(t, RuleMatches(rule, event("e1", "Anywhere", "other", "Big story", 70)))
	assert.False(t, RuleMatches(rule, event("e2", "Anywhere", "other", "Small story", 64)))
}

func TestEvaluateCreatesInstancesOnce(t *testing.T) {
	store := newFakeStore(models.AlertRule{
		ID:                "r1",
		Enabled:           true,
		Countries:         []string{"Nigeria"},
		SeverityThreshold: 50,
	})
	engine := NewEngine(store, nil, testLogger(t))

	events := []models.Event{
		event("e1", "Nigeria", "conflict", "Clashes", 60),
		event("e2", "Nigeria", "conflict", "More clashes", 55),
		event("e3", "Ghana", "conflict", "Unrelated", 90),
	}

	fired, err := engine.Evaluate(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 2, fired)

	// Re-evaluating the same events is idempotent.
	fired, err = engine.Evaluate(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Len(t, store.instances, 2)

	for _, instance := range store.instances {
		assert.Equal(t, models.AlertStatusNew, instance.Status)
		assert.NotEmpty(t, instance.ID)
		assert.False(t, instance.FiredAt.IsZero())
	}
}

func TestEvaluateSkipsDisabledRules(t *testing.T) {
	store := newFakeStore(models.AlertRule{
		ID:        "r1",
		Enabled:   false,
		Countries: []string{"Nigeria"},
	})
	engine := NewEngine(store, nil, testLogger(t))

	fired, err := engine.Evaluate(context.Background(), []models.Event{
		event("e1", "Nigeria", "conflict", "Clashes", 90),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}

func TestEvaluateSpikeDetection(t *testing.T) {
	store := newFakeStore(models.AlertRule{
		ID:             "r1",
		Enabled:        true,
		Countries:      []string{"Elsewhere"},
		SpikeDetection: true,
	})
	store.pulse = []models.PulseEntry{
		{Country: "Kenya", RecentCount: 8, BaselineCount: 2},  // 8 > 3*2, spiking
		{Country: "Brazil", RecentCount: 4, BaselineCount: 3}, // 4 <= 3*3, not spiking
	}
	engine := NewEngine(store, nil, testLogger(t))

	fired, err := engine.Evaluate(context.Background(), []models.Event{
		event("e1", "Kenya", "other", "Routine story", 10),
		event("e2", "Brazil", "other", "Routine story", 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired, "only the spiking country fires")
	require.Len(t, store.instances, 1)
	assert.Equal(t, "e1", store.instances[0].EventID)
}

func TestEvaluateNoEventsNoWork(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, testLogger(t))
	fired, err := engine.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}
