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

// WebhookChannel POSTs the alert as JSON to a configured endpoint, with
// bounded exponential backoff on transient failures. A 2xx response is a
// delivery; anything else after the last retry is a channel error.
type WebhookChannel struct {
	url        string
	authToken  string
	maxRetries int
	backoff    time.Duration
	client     *http.Client
}

func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	if cfg.URL == "" {
		return nil
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		url:        cfg.URL,
		authToken:  cfg.AuthToken,
		maxRetries: maxRetries,
		backoff:    backoff,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() model.AlertChannel { return model.ChannelWebhook }

func (c *WebhookChannel) Deliver(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	var lastErr error
	delay := c.backoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		lastErr = c.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *WebhookChannel) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
