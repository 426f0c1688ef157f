package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/model"
)

// EmailChannel delivers alerts over SMTP to the compliance distribution
// list. Delivery is fire-and-forget; the pipeline only needs success or
// failure, not read receipts.
type EmailChannel struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailChannel{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:     auth,
		from:     cfg.From,
		to:       cfg.To,
		sendMail: smtp.SendMail,
	}
}

func (c *EmailChannel) Name() model.AlertChannel { return model.ChannelEmail }

func (c *EmailChannel) Deliver(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("Compliance alert: %s (%s)", alert.RuleName, alert.Severity)

	var body strings.Builder
	body.WriteString(alert.Summary())
	body.WriteString("\r\n\r\n")
	if alert.Event != nil {
		fmt.Fprintf(&body, "Request ID: %s\r\n", alert.Event.RequestID)
		fmt.Fprintf(&body, "Event type: %s\r\n", alert.Event.EventType)
		fmt.Fprintf(&body, "Category:   %s\r\n", alert.Event.Category)
		fmt.Fprintf(&body, "Detected:   %s\r\n", alert.DetectedAt.Format("2006-01-02 15:04:05 MST"))
		if alert.Event.UserID != "" {
			fmt.Fprintf(&body, "User:       %s\r\n", alert.Event.UserID)
		}
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		c.from, strings.Join(c.to, ", "), subject, body.String())

	done := make(chan error, 1)
	go func() {
		done <- c.sendMail(c.addr, c.auth, c.from, c.to, []byte(msg))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
