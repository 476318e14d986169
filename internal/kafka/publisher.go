package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"world-monitor/internal/logging"
	"world-monitor/internal/models"
)

type Config struct {
	Broker string
	Topic  string
}

// Publisher emits fired alert instances to Kafka for downstream consumers.
// With no broker configured it becomes a no-op so the pipeline runs without
// Kafka in development.
type Publisher struct {
	writer *kafka.Writer
	logger *logging.Logger
}

func NewPublisher(cfg Config, logger *logging.Logger) *Publisher {
	if cfg.Broker == "" {
		return &Publisher{logger: logger}
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "world-monitor.alerts"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Publisher{writer: writer, logger: logger}
}

type alertMessage struct {
	AlertID   string    `json:"alert_id"`
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Country   string    `json:"country"`
	Severity  int       `json:"severity"`
	FiredAt   time.Time `json:"fired_at"`
	EventTime time.Time `json:"occurred_at"`
}

// PublishAlert sends one fired alert. Failures are logged, not returned, so a
// broker outage never blocks the ingestion run.
func (p *Publisher) PublishAlert(ctx context.Context, instance models.AlertInstance, event models.Event, rule models.AlertRule) {
	if p.writer == nil {
		return
	}
	payload, err := json.Marshal(alertMessage{
		AlertID:   instance.ID,
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		EventID:   event.ID,
		Title:     event.Title,
		Category:  event.Category,
		Country:   event.Country,
		Severity:  event.Severity,
		FiredAt:   instance.FiredAt,
		EventTime: event.OccurredAt,
	})
	if err != nil {
		p.logger.Errorf("Marshal alert message failed: %v", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(instance.ID),
		Value: payload,
	})
	if err != nil {
		p.logger.Errorf("Publish alert to Kafka failed: %v", err)
	}
}

func (p *Publisher) Close() {
	if p.writer == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Errorf("Close Kafka writer failed: %v", err)
	}
}
