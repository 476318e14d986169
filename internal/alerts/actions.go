package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"world-monitor/internal/logging"
	"world-monitor/internal/models"
	"world-monitor/internal/utils"
)

// ActionDispatcher fans a fired alert out to the rule's configured channels.
// In-app delivery is the alert inbox itself; webhook and Telegram are pushed
// here. Delivery runs in the background so the ingestion run never waits on
// slow receivers.
type ActionDispatcher struct {
	httpClient    *http.Client
	botToken      string
	telegramLimit *rate.Limiter
	logger        *logging.Logger
	notify        func(payload []byte)
}

// NewActionDispatcher builds the dispatcher. botToken may be empty, which
// disables the Telegram channel. notify, when set, receives each fired alert
// payload for live streaming; it must not block.
func NewActionDispatcher(botToken string, telegramRatePerSecond int, logger *logging.Logger, notify func(payload []byte)) *ActionDispatcher {
	if telegramRatePerSecond < 1 {
		telegramRatePerSecond = 1
	}
	return &ActionDispatcher{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		botToken:      botToken,
		telegramLimit: rate.NewLimiter(rate.Limit(float64(telegramRatePerSecond)), telegramRatePerSecond),
		logger:        logger,
		notify:        notify,
	}
}

type alertPayload struct {
	AlertID  string    `json:"alert_id"`
	RuleID   string    `json:"rule_id"`
	RuleName string    `json:"rule_name"`
	EventID  string    `json:"event_id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Country  string    `json:"country"`
	Severity int       `json:"severity"`
	FiredAt  time.Time `json:"fired_at"`
}

// Dispatch delivers one fired alert. Failures are logged per channel and do
// not affect the other channels.
func (d *ActionDispatcher) Dispatch(ctx context.Context, instance models.AlertInstance, event models.Event, rule models.AlertRule) {
	payload, err := json.Marshal(alertPayload{
		AlertID:  instance.ID,
		RuleID:   rule.ID,
		RuleName: rule.Name,
		EventID:  event.ID,
		Title:    event.Title,
		Category: event.Category,
		Country:  event.Country,
		Severity: event.Severity,
		FiredAt:  instance.FiredAt,
	})
	if err != nil {
		d.logger.Errorf("Marshal alert payload failed: %v", err)
		return
	}

	if d.notify != nil {
		d.notify(payload)
	}
	if rule.ActionWebhookURL != "" {
		go d.sendWebhook(rule.ActionWebhookURL, payload)
	}
	if rule.ActionTelegramChatID != 0 && d.botToken != "" {
		go d.sendTelegram(rule.ActionTelegramChatID, event, rule)
	}
}

func (d *ActionDispatcher) sendWebhook(url string, payload []byte) {
	err := utils.Retry(d.logger, 3, time.Second, func() error {
		resp, err := d.httpClient.Post(url, "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		d.logger.Errorf("Webhook delivery to %s failed: %v", url, err)
	}
}

func (d *ActionDispatcher) sendTelegram(chatID int64, event models.Event, rule models.AlertRule) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.telegramLimit.Wait(ctx); err != nil {
		d.logger.Errorf("Telegram rate limit wait failed: %v", err)
		return
	}

	text := fmt.Sprintf(
		"*%s*\n%s\n\n*Category:* %s\n*Country:* %s\n*Severity:* %d",
		rule.Name,
		event.Title,
		event.Category,
		event.Country,
		event.Severity,
	)

	err := utils.Retry(d.logger, 3, time.Second, func() error {
		b, err := bot.New(d.botToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		})
		return err
	})
	if err != nil {
		d.logger.Errorf("Telegram delivery to chat %d failed: %v", chatID, err)
	}
}
