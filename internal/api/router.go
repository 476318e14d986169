package api

import (
	"github.com/gin-gonic/gin"

	"world-monitor/internal/logging"
	"world-monitor/internal/metrics"
)

func NewRouter(store Store, scheduler Scheduler, hub *AlertHub, m *metrics.Metrics, logger *logging.Logger, basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	if basePath == "" {
		basePath = "/api/v0"
	}

	h := NewHandler(store, scheduler, hub, logger)
	api := r.Group(basePath)
	{
		// Ingestion
		api.POST("/ingest/run", h.RunIngestion)
		api.GET("/ingest/logs", h.GetIngestionLogs)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
		api.GET("/sources", h.GetSources)

		// Events
		api.GET("/events", h.GetEvents)
		api.GET("/events/hotspots", h.GetHotspots)
		api.GET("/events/timeline", h.GetTimeline)
		api.GET("/events/pulse", h.GetPulse)
		api.GET("/events/:id", h.GetEvent)

		// Rules and alerts
		api.POST("/rules", h.SaveRule)
		api.GET("/rules", h.GetRules)
		api.GET("/alerts", h.GetAlertInbox)
		api.POST("/alerts/:id/ack", h.AckAlert)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)
	}

	r.GET("/ws/alerts", h.StreamAlerts)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return r
}
