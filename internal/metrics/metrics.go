package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	ConnectorItems    *prometheus.CounterVec
	ConnectorDuration *prometheus.HistogramVec
	ConnectorErrors   *prometheus.CounterVec
	EventsUpserted    prometheus.Counter
	AlertsFired       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world_monitor",
			Name:      "ingestion_runs_total",
			Help:      "Ingestion runs by trigger and status.",
		}, []string{"trigger", "status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "world_monitor",
			Name:      "ingestion_run_duration_seconds",
			Help:      "Wall time of a full ingestion run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ConnectorItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world_monitor",
			Name:      "connector_items_total",
			Help:      "Raw records fetched per connector.",
		}, []string{"connector"}),
		ConnectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "world_monitor",
			Name:      "connector_fetch_duration_seconds",
			Help:      "Fetch duration per connector.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"connector"}),
		ConnectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world_monitor",
			Name:      "connector_errors_total",
			Help:      "Connector failures by error kind.",
		}, []string{"connector", "kind"}),
		EventsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world_monitor",
			Name:      "events_upserted_total",
			Help:      "Normalized events written to the store.",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world_monitor",
			Name:      "alerts_fired_total",
			Help:      "Alert instances created by rule evaluation.",
		}),
	}
	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ConnectorItems,
		m.ConnectorDuration,
		m.ConnectorErrors,
		m.EventsUpserted,
		m.AlertsFired,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
