package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/model"
)

// SlackChannel posts an attachment-style message to an incoming webhook.
type SlackChannel struct {
	webhookURL string
	channel    string
	client     *http.Client
}

func NewSlackChannel(cfg config.SlackConfig) *SlackChannel {
	if cfg.WebhookURL == "" {
		return nil
	}
	return &SlackChannel{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SlackChannel) Name() model.AlertChannel { return model.ChannelSlack }

func (c *SlackChannel) Deliver(ctx context.Context, alert Alert) error {
	color := "#ff9800"
	switch alert.Severity {
	case model.SeverityCritical:
		color = "#d32f2f"
	case model.SeverityHigh:
		color = "#f44336"
	case model.SeverityLow:
		color = "#2196f3"
	}

	fields := []map[string]interface{}{
		{"title": "Rule", "value": alert.RuleName, "short": true},
		{"title": "Severity", "value": string(alert.Severity), "short": true},
	}
	if alert.Event != nil {
		fields = append(fields,
			map[string]interface{}{"title": "Event Type", "value": alert.Event.EventType, "short": true},
			map[string]interface{}{"title": "Category", "value": string(alert.Event.Category), "short": true},
		)
		if alert.Event.UserID != "" {
			fields = append(fields, map[string]interface{}{"title": "User", "value": alert.Event.UserID, "short": true})
		}
	}

	payload := map[string]interface{}{
		"text": alert.Summary(),
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"fields": fields,
				"ts":     alert.DetectedAt.Unix(),
			},
		},
	}
	if c.channel != "" {
		payload["channel"] = c.channel
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
