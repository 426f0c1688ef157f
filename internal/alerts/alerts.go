// Package alerts implements the delivery channels a compliance rule may
// route violations to: email, Slack, generic webhook and SMS. Channels
// are independent; a failure in one never affects delivery to another.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/raisket/audittrail/internal/model"
)

// Alert is the payload delivered when a rule matched an event.
type Alert struct {
	RuleID     string            `json:"rule_id"`
	RuleName   string            `json:"rule_name"`
	Severity   model.Severity    `json:"severity"`
	DetectedAt time.Time         `json:"detected_at"`
	Event      *model.AuditEvent `json:"event"`
}

// Summary renders a one-line human-readable description of the alert.
func (a Alert) Summary() string {
	userID := "-"
	if a.Event != nil && a.Event.UserID != "" {
		userID = a.Event.UserID
	}
	eventType := ""
	if a.Event != nil {
		eventType = a.Event.EventType
	}
	return fmt.Sprintf("[%s] compliance rule %q matched event %s (user %s)",
		a.Severity, a.RuleName, eventType, userID)
}

// Channel delivers an alert through one configured medium.
type Channel interface {
	Name() model.AlertChannel
	Deliver(ctx context.Context, alert Alert) error
}

// Registry maps channel names to configured implementations.
type Registry map[model.AlertChannel]Channel

// NewRegistry collects the non-nil channels into a lookup table.
func NewRegistry(channels ...Channel) Registry {
	reg := Registry{}
	for _, ch := range channels {
		if ch != nil {
			reg[ch.Name()] = ch
		}
	}
	return reg
}
