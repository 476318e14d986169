package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"world-monitor/internal/db"
	"world-monitor/internal/logging"
	"world-monitor/internal/models"
)

// Store is the read/write surface the handlers use. *db.DB satisfies it;
// tests plug in fakes.
type Store interface {
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (models.Event, error)
	ListClusterEvents(ctx context.Context, clusterID, excludeID string, limit int) ([]models.Event, error)
	Hotspots(ctx context.Context, sinceHours, limit int) ([]models.Hotspot, error)
	Timeline(ctx context.Context, sinceHours, bucketMinutes int) ([]models.TimelineBucket, error)
	Pulse(ctx context.Context, windowHours, baselineHours int) ([]models.PulseEntry, error)
	Stats(ctx context.Context) (models.StoreStats, error)
	ListConnectorHealth(ctx context.Context) ([]models.ConnectorHealth, error)
	ListIngestionLogs(ctx context.Context, limit int) ([]models.IngestionLog, error)
	UpsertRule(ctx context.Context, rule models.AlertRule) (models.AlertRule, error)
	ListRules(ctx context.Context) ([]models.AlertRule, error)
	ListAlertInbox(ctx context.Context, status string, limit int) ([]models.AlertInstance, error)
	AckAlert(ctx context.Context, id string) (models.AlertInstance, error)
	ResolveAlert(ctx context.Context, id string) (models.AlertInstance, error)
	Ping(ctx context.Context) error
}

// Scheduler is the ingestion control surface exposed over the API.
type Scheduler interface {
	Trigger(ctx context.Context) models.RunSummary
	Status() models.SchedulerStatus
}

type Handler struct {
	store     Store
	scheduler Scheduler
	hub       *AlertHub
	logger    *logging.Logger
}

func NewHandler(store Store, scheduler Scheduler, hub *AlertHub, logger *logging.Logger) *Handler {
	return &Handler{store: store, scheduler: scheduler, hub: hub, logger: logger}
}

func (h *Handler) RunIngestion(c *gin.Context) {
	summary := h.scheduler.Trigger(c.Request.Context())
	if summary.Status == models.RunStatusQueued {
		c.JSON(http.StatusAccepted, summary)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetEvents(c *gin.Context) {
	filter := models.EventFilter{
		SinceHours: intQuery(c, "since_hours", 0),
		Category:   c.Query("category"),
		Region:     c.Query("region"),
		Country:    c.Query("country"),
		Search:     c.Query("q"),
		Limit:      intQuery(c, "limit", 0),
	}
	events, err := h.store.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorf("Failed to list events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"items": events, "count": len(events)})
}

func (h *Handler) GetEvent(c *gin.Context) {
	id := c.Param("id")
	event, err := h.store.GetEvent(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get event %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get event"})
		return
	}
	related, err := h.store.ListClusterEvents(c.Request.Context(), event.ClusterID, event.ID, 12)
	if err != nil {
		h.logger.Errorf("Failed to list cluster events for %s: %v", id, err)
		related = nil
	}
	if related == nil {
		related = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"event": event, "related": related})
}

func (h *Handler) GetHotspots(c *gin.Context) {
	hotspots, err := h.store.Hotspots(c.Request.Context(), intQuery(c, "since_hours", 24), intQuery(c, "limit", 12))
	if err != nil {
		h.logger.Errorf("Failed to query hotspots: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query hotspots"})
		return
	}
	if hotspots == nil {
		hotspots = []models.Hotspot{}
	}
	c.JSON(http.StatusOK, gin.H{"items": hotspots})
}

func (h *Handler) GetTimeline(c *gin.Context) {
	buckets, err := h.store.Timeline(c.Request.Context(), intQuery(c, "since_hours", 24*7), intQuery(c, "bucket_minutes", 60))
	if err != nil {
		h.logger.Errorf("Failed to query timeline: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query timeline"})
		return
	}
	if buckets == nil {
		buckets = []models.TimelineBucket{}
	}
	c.JSON(http.StatusOK, gin.H{"items": buckets})
}

func (h *Handler) GetPulse(c *gin.Context) {
	pulse, err := h.store.Pulse(c.Request.Context(), intQuery(c, "window_hours", 6), intQuery(c, "baseline_hours", 24))
	if err != nil {
		h.logger.Errorf("Failed to query pulse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query pulse"})
		return
	}
	if pulse == nil {
		pulse = []models.PulseEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": pulse})
}

func (h *Handler) GetSources(c *gin.Context) {
	health, err := h.store.ListConnectorHealth(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list connector health: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}
	if health == nil {
		health = []models.ConnectorHealth{}
	}
	c.JSON(http.StatusOK, gin.H{"items": health})
}

func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

func (h *Handler) GetIngestionLogs(c *gin.Context) {
	logs, err := h.store.ListIngestionLogs(c.Request.Context(), intQuery(c, "limit", 200))
	if err != nil {
		h.logger.Errorf("Failed to list ingestion logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list logs"})
		return
	}
	if logs == nil {
		logs = []models.IngestionLog{}
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

func (h *Handler) SaveRule(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		h.logger.Errorf("Invalid request body for rule: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := rule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.store.UpsertRule(c.Request.Context(), rule)
	if err != nil {
		h.logger.Errorf("Failed to save rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rule"})
		return
	}
	h.logger.Infof("Saved rule %s (%s)", saved.ID, saved.Name)
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) GetRules(c *gin.Context) {
	rules, err := h.store.ListRules(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list rules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rules"})
		return
	}
	if rules == nil {
		rules = []models.AlertRule{}
	}
	c.JSON(http.StatusOK, gin.H{"items": rules})
}

func (h *Handler) GetAlertInbox(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.AlertStatusNew, models.AlertStatusAcked, models.AlertStatusResolved:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}
	alerts, err := h.store.ListAlertInbox(c.Request.Context(), status, intQuery(c, "limit", 200))
	if err != nil {
		h.logger.Errorf("Failed to list alert inbox: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.AlertInstance{}
	}
	c.JSON(http.StatusOK, gin.H{"items": alerts})
}

func (h *Handler) AckAlert(c *gin.Context) {
	h.transitionAlert(c, h.store.AckAlert)
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	h.transitionAlert(c, h.store.ResolveAlert)
}

// transitionAlert applies an alert lifecycle action. A disallowed transition
// returns the current state with 200 so callers can treat it as settled.
func (h *Handler) transitionAlert(c *gin.Context, action func(context.Context, string) (models.AlertInstance, error)) {
	id := c.Param("id")
	instance, err := action(c.Request.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
	case errors.Is(err, db.ErrNoOp):
		c.JSON(http.StatusOK, gin.H{"alert": instance, "changed": false})
	case err != nil:
		h.logger.Errorf("Alert transition for %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
	default:
		c.JSON(http.StatusOK, gin.H{"alert": instance, "changed": true})
	}
}

func (h *Handler) StreamAlerts(c *gin.Context) {
	if err := h.hub.Upgrade(c.Writer, c.Request); err != nil {
		h.logger.Errorf("Websocket upgrade failed: %v", err)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "stats": stats})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
