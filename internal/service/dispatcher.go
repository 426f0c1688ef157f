package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raisket/audittrail/internal/alerts"
	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/logger"
	"github.com/raisket/audittrail/internal/pkg/metrics"
)

// AccountStore is the account/identity collaborator auto-responses act on.
type AccountStore interface {
	SetStatus(ctx context.Context, userID, status string) error
	RaiseRiskScore(ctx context.Context, userID string, floor int) error
}

// Collaborator forwards opaque payloads to an owning external system.
type Collaborator interface {
	Send(ctx context.Context, payload map[string]interface{}) error
}

// ViolationStore persists one record per rule match.
type ViolationStore interface {
	Insert(ctx context.Context, v *model.Violation) error
}

// FlagRiskFloor is the minimum risk score a flag_account response
// raises the actor to. The score is never lowered.
const FlagRiskFloor = 80

// Dispatcher handles matched rules: alert delivery per channel, the
// rule's automated response, and a violation record per match. Every
// failure inside dispatch is isolated and logged; none of them fail the
// originating LogEvent call.
type Dispatcher struct {
	channels   alerts.Registry
	accounts   AccountStore
	compliance Collaborator
	ticketing  Collaborator
	violations ViolationStore
	log        *slog.Logger

	// emit logs follow-up events (account blocked/flagged) back through
	// the pipeline. Set by the pipeline after construction.
	emit func(ctx context.Context, ev *model.AuditEvent)
}

func NewDispatcher(channels alerts.Registry, accounts AccountStore, compliance, ticketing Collaborator, violations ViolationStore) *Dispatcher {
	return &Dispatcher{
		channels:   channels,
		accounts:   accounts,
		compliance: compliance,
		ticketing:  ticketing,
		violations: violations,
		log:        logger.Component("dispatcher"),
		emit:       func(context.Context, *model.AuditEvent) {},
	}
}

// SetEmitter wires the follow-up event sink. The pipeline passes its own
// LogEvent here so automated responses leave their own audit trail.
func (d *Dispatcher) SetEmitter(emit func(ctx context.Context, ev *model.AuditEvent)) {
	if emit != nil {
		d.emit = emit
	}
}

// Dispatch processes every matched rule independently and concurrently,
// returning after all per-rule work has finished.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *model.AuditEvent, matched []*model.ComplianceRule) {
	var wg sync.WaitGroup
	for _, rule := range matched {
		wg.Add(1)
		go func(rule *model.ComplianceRule) {
			defer wg.Done()
			d.dispatchRule(ctx, ev, rule)
		}(rule)
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchRule(ctx context.Context, ev *model.AuditEvent, rule *model.ComplianceRule) {
	metrics.ViolationsTotal.WithLabelValues(rule.Name).Inc()

	alert := alerts.Alert{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Severity:   rule.Severity,
		DetectedAt: time.Now().UTC(),
		Event:      ev,
	}

	for _, name := range rule.AlertChannels {
		ch, ok := d.channels[name]
		if !ok {
			d.log.Warn("alert channel not configured", "channel", name, "rule", rule.Name)
			continue
		}
		if err := ch.Deliver(ctx, alert); err != nil {
			metrics.AlertFailures.WithLabelValues(string(name)).Inc()
			d.log.Error("alert delivery failed", "channel", name, "rule", rule.Name, "error", err)
		}
	}

	if rule.AutoResponse != nil {
		d.execute(ctx, ev, rule)
	}

	// The violation record is written regardless of alert or
	// auto-response outcomes. The snapshot is sanitized here because it
	// is persisted before the pipeline sanitizes the event itself.
	if d.violations != nil {
		v := &model.Violation{
			ID:         uuid.New().String(),
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			Severity:   rule.Severity,
			DetectedAt: alert.DetectedAt,
			Event:      SanitizedCopy(ev),
		}
		if err := d.violations.Insert(ctx, v); err != nil {
			d.log.Error("violation record write failed", "rule", rule.Name, "error", err)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, ev *model.AuditEvent, rule *model.ComplianceRule) {
	action := rule.AutoResponse.Action

	// block_user and flag_account act on a specific actor.
	if (action == model.ActionBlockUser || action == model.ActionFlagAccount) && ev.UserID == "" {
		metrics.AutoResponses.WithLabelValues(string(action), "skipped").Inc()
		d.log.Warn("auto-response skipped: event has no user_id", "action", action, "rule", rule.Name)
		return
	}

	var err error
	switch action {
	case model.ActionBlockUser:
		err = d.blockUser(ctx, ev, rule)
	case model.ActionFlagAccount:
		err = d.flagAccount(ctx, ev, rule)
	case model.ActionNotifyCompliance:
		err = d.forward(ctx, d.compliance, "compliance notification", ev, rule)
	case model.ActionCreateTicket:
		err = d.forward(ctx, d.ticketing, "ticketing", ev, rule)
	default:
		d.log.Warn("unknown auto-response action", "action", action, "rule", rule.Name)
		return
	}

	if err != nil {
		metrics.AutoResponses.WithLabelValues(string(action), "failed").Inc()
		d.log.Error("auto-response failed", "action", action, "rule", rule.Name, "error", err)
		return
	}
	metrics.AutoResponses.WithLabelValues(string(action), "ok").Inc()
}

func (d *Dispatcher) blockUser(ctx context.Context, ev *model.AuditEvent, rule *model.ComplianceRule) error {
	if d.accounts == nil {
		return nil
	}
	if err := d.accounts.SetStatus(ctx, ev.UserID, "blocked"); err != nil {
		return err
	}

	followUp := model.NewAuditEvent()
	followUp.EventType = "AUTO_ACCOUNT_BLOCK"
	followUp.Category = model.CategorySecurity
	followUp.Severity = model.SeverityCritical
	followUp.UserID = ev.UserID
	followUp.Description = "account automatically blocked by compliance rule " + rule.Name
	followUp.RequestData = map[string]interface{}{
		"rule_id":            rule.ID,
		"rule_name":          rule.Name,
		"trigger_request_id": ev.RequestID,
	}
	d.emit(ctx, &followUp)
	return nil
}

func (d *Dispatcher) flagAccount(ctx context.Context, ev *model.AuditEvent, rule *model.ComplianceRule) error {
	if d.accounts == nil {
		return nil
	}
	floor := FlagRiskFloor
	if rule.AutoResponse.Parameters != nil {
		if v, ok := rule.AutoResponse.Parameters["min_score"].(float64); ok && int(v) > floor {
			floor = int(v)
		}
	}
	if err := d.accounts.RaiseRiskScore(ctx, ev.UserID, floor); err != nil {
		return err
	}

	followUp := model.NewAuditEvent()
	followUp.EventType = "ACCOUNT_RISK_FLAGGED"
	followUp.Category = model.CategoryCompliance
	followUp.Severity = model.SeverityHigh
	followUp.UserID = ev.UserID
	followUp.Description = "account risk score raised by compliance rule " + rule.Name
	followUp.RequestData = map[string]interface{}{
		"rule_id":            rule.ID,
		"rule_name":          rule.Name,
		"risk_floor":         floor,
		"trigger_request_id": ev.RequestID,
	}
	d.emit(ctx, &followUp)
	return nil
}

func (d *Dispatcher) forward(ctx context.Context, target Collaborator, name string, ev *model.AuditEvent, rule *model.ComplianceRule) error {
	if target == nil {
		d.log.Warn("collaborator not configured", "collaborator", name, "rule", rule.Name)
		return nil
	}
	payload := map[string]interface{}{
		"rule_id":    rule.ID,
		"rule_name":  rule.Name,
		"severity":   rule.Severity,
		"request_id": ev.RequestID,
		"event_type": ev.EventType,
		"user_id":    ev.UserID,
		"parameters": rule.AutoResponse.Parameters,
	}
	return target.Send(ctx, payload)
}
