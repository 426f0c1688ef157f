package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
	"github.com/raisket/audittrail/internal/pkg/logger"
	"github.com/raisket/audittrail/internal/pkg/metrics"
)

// InternalErrorEventType marks events the pipeline emits about its own
// failures. A storage failure for this type is never self-logged again;
// it goes to the process log only, which terminates the error path.
const InternalErrorEventType = "AUDIT_PIPELINE_ERROR"

// maxEmitDepth bounds chains of pipeline-emitted follow-up events
// (auto-block emits an event, which could itself match a rule, ...).
// Past this depth events are still persisted but no longer dispatched.
const maxEmitDepth = 3

type emitDepthKey struct{}

// EventStore is the durable append-only store behind the pipeline.
type EventStore interface {
	Insert(ctx context.Context, ev *model.AuditEvent) error
	Trail(ctx context.Context, f model.TrailFilter) ([]*model.AuditEvent, error)
	Report(ctx context.Context, from, to time.Time, violationsOnly bool) ([]model.ReportRow, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RecentCache mirrors stored events into a fast side store (Redis).
// Optional; cache failures never affect the caller.
type RecentCache interface {
	Push(ctx context.Context, ev *model.AuditEvent) error
}

// Pipeline is the audit pipeline facade: the single LogEvent entry point
// plus the read paths. Constructed once at process start and shared.
type Pipeline struct {
	enricher   *Enricher
	registry   *RuleRegistry
	engine     *RuleEngine
	dispatcher *Dispatcher
	store      EventStore
	cache      RecentCache
	hub        *FeedHub
	log        *slog.Logger
}

func NewPipeline(registry *RuleRegistry, dispatcher *Dispatcher, store EventStore, cache RecentCache, hub *FeedHub) *Pipeline {
	p := &Pipeline{
		enricher:   NewEnricher(),
		registry:   registry,
		engine:     NewRuleEngine(registry),
		dispatcher: dispatcher,
		store:      store,
		cache:      cache,
		hub:        hub,
		log:        logger.Component("pipeline"),
	}
	if dispatcher != nil {
		dispatcher.SetEmitter(p.emitFollowUp)
	}
	return p
}

// LogEvent runs the full pipeline for one event: validate and enrich,
// evaluate rules, dispatch violations, sanitize, persist, publish.
// Callers observe exactly two failure kinds: a validation error before
// any I/O, or a storage error when the durable write failed. Everything
// else is absorbed.
func (p *Pipeline) LogEvent(ctx context.Context, ev *model.AuditEvent) error {
	if err := p.enricher.Enrich(ev); err != nil {
		return err
	}

	matched := p.engine.Evaluate(ev)
	if len(matched) > 0 {
		// The stored event itself carries the evidence of the match.
		ev.ComplianceFlags = ruleNames(matched)
		if depth, _ := ctx.Value(emitDepthKey{}).(int); p.dispatcher != nil && depth < maxEmitDepth {
			p.dispatcher.Dispatch(ctx, ev, matched)
		} else if p.dispatcher != nil {
			p.log.Warn("follow-up chain too deep, dispatch suppressed",
				"event_type", ev.EventType, "request_id", ev.RequestID)
		}
	}

	Sanitize(ev)

	if err := p.store.Insert(ctx, ev); err != nil {
		metrics.StorageFailures.Inc()
		p.reportInternalFailure(ctx, ev, err)
		return apperrors.NewStorage("audit event write failed", err)
	}

	metrics.EventsTotal.WithLabelValues(string(ev.Category), string(ev.Severity)).Inc()

	if p.cache != nil {
		if err := p.cache.Push(ctx, ev); err != nil {
			p.log.Warn("recent-event cache write failed", "error", err)
		}
	}
	if p.hub != nil {
		p.hub.Publish(ev)
	}
	return nil
}

// QueryTrail is the read path over the persisted trail.
func (p *Pipeline) QueryTrail(ctx context.Context, userID string, f model.TrailFilter) ([]*model.AuditEvent, error) {
	if userID != "" {
		f.UserID = userID
	}
	events, err := p.store.Trail(ctx, f)
	if err != nil {
		return nil, apperrors.NewStorage("audit trail query failed", err)
	}
	return events, nil
}

// Registry exposes the rule registry for the admin surface.
func (p *Pipeline) Registry() *RuleRegistry {
	return p.registry
}

// ReloadRules refreshes the rule snapshot. A load failure keeps the
// cached snapshot, is self-logged as a low-severity internal event, and
// is never surfaced to event-logging callers.
func (p *Pipeline) ReloadRules(ctx context.Context) error {
	err := p.registry.Reload(ctx)
	if err != nil {
		p.log.Warn("rule reload failed, keeping cached snapshot",
			"error", err, "rules", len(p.registry.Rules()))
		ev := model.NewAuditEvent()
		ev.EventType = "COMPLIANCE_RULE_LOAD_FAILED"
		ev.Category = model.CategoryError
		ev.Severity = model.SeverityLow
		ev.Description = "compliance rule reload failed; continuing with cached rule set"
		ev.Error = err.Error()
		p.emitFollowUp(ctx, &ev)
	}
	return err
}

// StartRuleReloader refreshes rules on the interval until ctx ends.
func (p *Pipeline) StartRuleReloader(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = p.ReloadRules(ctx)
			}
		}
	}()
}

// emitFollowUp logs a pipeline-generated event through the pipeline
// itself, with the emit depth bumped. Failures are absorbed: follow-up
// events must never change the originating caller's control flow.
func (p *Pipeline) emitFollowUp(ctx context.Context, ev *model.AuditEvent) {
	depth, _ := ctx.Value(emitDepthKey{}).(int)
	ctx = context.WithValue(ctx, emitDepthKey{}, depth+1)
	if err := p.LogEvent(ctx, ev); err != nil {
		p.log.Error("follow-up event not persisted", "event_type", ev.EventType, "error", err)
	}
}

// reportInternalFailure records a storage failure as an audit event in
// its own right; losing a financial-transaction or kyc record is a
// compliance-relevant fact. The loop guard: failures while storing an
// internal-error event go to the process log only.
func (p *Pipeline) reportInternalFailure(ctx context.Context, failed *model.AuditEvent, cause error) {
	if failed.EventType == InternalErrorEventType {
		p.log.Error("internal-error event could not be persisted, stopping here",
			"request_id", failed.RequestID, "error", cause)
		return
	}
	ev := model.NewAuditEvent()
	ev.EventType = InternalErrorEventType
	ev.Category = model.CategoryError
	ev.Severity = model.SeverityHigh
	ev.Description = "audit event could not be persisted"
	ev.Error = cause.Error()
	ev.RequestData = map[string]interface{}{
		"failed_request_id": failed.RequestID,
		"failed_event_type": failed.EventType,
	}
	p.emitFollowUp(ctx, &ev)
}

func ruleNames(rules []*model.ComplianceRule) []string {
	names := make([]string, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	return names
}
