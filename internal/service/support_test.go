package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/raisket/audittrail/internal/alerts"
	"github.com/raisket/audittrail/internal/model"
)

// memStore is an in-memory EventStore for pipeline, sweeper and reporter
// tests. Insert failures can be injected per event type.
type memStore struct {
	mu         sync.Mutex
	events     []*model.AuditEvent
	inserts    map[string]int
	failTypes  map[string]bool
	deleteErr  error
	deleteHold chan struct{} // when set, DeleteExpired blocks until closed
}

func newMemStore() *memStore {
	return &memStore{inserts: map[string]int{}, failTypes: map[string]bool{}}
}

func (s *memStore) Insert(ctx context.Context, ev *model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTypes[ev.EventType] {
		return errors.New("simulated storage failure")
	}
	s.inserts[ev.RequestID]++
	if s.inserts[ev.RequestID] > 1 {
		// Mirrors ON CONFLICT DO NOTHING.
		return nil
	}
	clone := *ev
	s.events = append(s.events, &clone)
	return nil
}

func (s *memStore) Trail(ctx context.Context, f model.TrailFilter) ([]*model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AuditEvent
	for _, ev := range s.events {
		if f.UserID != "" && ev.UserID != f.UserID {
			continue
		}
		if f.EventType != "" && ev.EventType != f.EventType {
			continue
		}
		if f.Category != "" && ev.Category != f.Category {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *memStore) Report(ctx context.Context, from, to time.Time, violationsOnly bool) ([]model.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct {
		cat model.EventCategory
		typ string
	}
	buckets := map[key]*model.ReportRow{}
	for _, ev := range s.events {
		if ev.Timestamp.Before(from) || ev.Timestamp.After(to) {
			continue
		}
		if violationsOnly && len(ev.ComplianceFlags) == 0 {
			continue
		}
		k := key{ev.Category, ev.EventType}
		row, ok := buckets[k]
		if !ok {
			row = &model.ReportRow{Category: ev.Category, EventType: ev.EventType}
			buckets[k] = row
		}
		row.Total++
		if ev.Severity == model.SeverityCritical {
			row.Critical++
		}
		if ev.Severity == model.SeverityHigh {
			row.High++
		}
		if len(ev.ComplianceFlags) > 0 {
			row.Violations++
		}
	}
	out := make([]model.ReportRow, 0, len(buckets))
	for _, row := range buckets {
		out = append(out, *row)
	}
	return out, nil
}

func (s *memStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.deleteHold != nil {
		<-s.deleteHold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var kept []*model.AuditEvent
	var deleted int64
	for _, ev := range s.events {
		expired := !ev.RequiresRetention && ev.Timestamp.Before(now.AddDate(-ev.RetentionYears, 0, 0))
		if expired {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

func (s *memStore) find(eventType string) []*model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AuditEvent
	for _, ev := range s.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeAccounts records auto-response actions.
type fakeAccounts struct {
	mu       sync.Mutex
	statuses map[string]string
	scores   map[string]int
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{statuses: map[string]string{}, scores: map[string]int{}}
}

func (a *fakeAccounts) SetStatus(ctx context.Context, userID, status string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.statuses[userID] = status
	return nil
}

func (a *fakeAccounts) RaiseRiskScore(ctx context.Context, userID string, floor int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.scores[userID] < floor {
		a.scores[userID] = floor
	}
	return nil
}

func (a *fakeAccounts) status(userID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statuses[userID]
}

func (a *fakeAccounts) score(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scores[userID]
}

// fakeChannel counts deliveries and can be told to fail.
type fakeChannel struct {
	name  model.AlertChannel
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *fakeChannel) Name() model.AlertChannel { return c.name }

func (c *fakeChannel) Deliver(ctx context.Context, alert alerts.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return errors.New("simulated channel failure")
	}
	return nil
}

func (c *fakeChannel) delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// memViolations collects violation records.
type memViolations struct {
	mu      sync.Mutex
	records []*model.Violation
}

func (v *memViolations) Insert(ctx context.Context, violation *model.Violation) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = append(v.records, violation)
	return nil
}

func (v *memViolations) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.records)
}

// failingRuleSource simulates an unreachable rule store.
type failingRuleSource struct{}

func (failingRuleSource) ListActive(ctx context.Context) ([]*model.ComplianceRule, error) {
	return nil, errors.New("rule store unreachable")
}

func baseEvent(eventType string, category model.EventCategory) model.AuditEvent {
	ev := model.NewAuditEvent()
	ev.EventType = eventType
	ev.Category = category
	ev.Description = strings.ToLower(eventType) + " test event"
	return ev
}
