package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/model"
)

// SMSChannel delivers a short alert text through an HTTP SMS provider
// (Twilio-compatible form API). Reserved for high/critical rules in
// practice, but the channel itself does not filter.
type SMSChannel struct {
	providerURL string
	accountSID  string
	authToken   string
	from        string
	to          []string
	client      *http.Client
}

func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	if cfg.ProviderURL == "" || len(cfg.To) == 0 {
		return nil
	}
	return &SMSChannel{
		providerURL: cfg.ProviderURL,
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		from:        cfg.From,
		to:          cfg.To,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SMSChannel) Name() model.AlertChannel { return model.ChannelSMS }

func (c *SMSChannel) Deliver(ctx context.Context, alert Alert) error {
	text := alert.Summary()
	if len(text) > 160 {
		text = text[:157] + "..."
	}

	var failures []string
	for _, recipient := range c.to {
		form := url.Values{}
		form.Set("From", c.from)
		form.Set("To", recipient)
		form.Set("Body", text)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerURL, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if c.accountSID != "" {
			req.SetBasicAuth(c.accountSID, c.authToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", recipient, err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			failures = append(failures, fmt.Sprintf("%s: status %d", recipient, resp.StatusCode))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("sms delivery failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
