package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// RuleSource lists the currently active compliance rules. The response is
// treated as a full-replacement snapshot, not a delta.
type RuleSource interface {
	ListActive(ctx context.Context) ([]*model.ComplianceRule, error)
}

// RuleRegistry holds an immutable snapshot of active rules, swapped
// wholesale on reload. Readers never observe a partially-updated set.
type RuleRegistry struct {
	source   RuleSource
	snapshot atomic.Pointer[[]*model.ComplianceRule]
	loadedAt atomic.Pointer[time.Time]
}

func NewRuleRegistry(source RuleSource) *RuleRegistry {
	r := &RuleRegistry{source: source}
	empty := []*model.ComplianceRule{}
	r.snapshot.Store(&empty)
	return r
}

// Rules returns the current snapshot. The returned slice must not be
// mutated.
func (r *RuleRegistry) Rules() []*model.ComplianceRule {
	return *r.snapshot.Load()
}

// Reload fetches a fresh snapshot from the source. On failure the
// previous snapshot stays in place and an ErrRuleLoad is returned; an
// empty set is a valid snapshot and simply yields no matches.
func (r *RuleRegistry) Reload(ctx context.Context) error {
	if r.source == nil {
		return nil
	}
	rules, err := r.source.ListActive(ctx)
	if err != nil {
		return apperrors.New(apperrors.ErrRuleLoad, "rule source unavailable", err)
	}
	active := make([]*model.ComplianceRule, 0, len(rules))
	for _, rule := range rules {
		if rule != nil && rule.IsActive {
			active = append(active, rule)
		}
	}
	r.snapshot.Store(&active)
	now := time.Now().UTC()
	r.loadedAt.Store(&now)
	return nil
}

// LoadedAt returns when the current snapshot was loaded, zero if never.
func (r *RuleRegistry) LoadedAt() time.Time {
	if t := r.loadedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// RuleEngine evaluates enriched events against the registry snapshot.
// Evaluation is deterministic and side-effect free so violation handling
// can be retried without re-deriving different matches.
type RuleEngine struct {
	registry *RuleRegistry
}

func NewRuleEngine(registry *RuleRegistry) *RuleEngine {
	return &RuleEngine{registry: registry}
}

// Evaluate returns every active rule matching the event: the event type
// is in the rule's set and all conditions hold.
func (e *RuleEngine) Evaluate(ev *model.AuditEvent) []*model.ComplianceRule {
	rules := e.registry.Rules()
	if len(rules) == 0 {
		return nil
	}

	fields := eventFields(ev)
	var matched []*model.ComplianceRule
	for _, rule := range rules {
		if !rule.AppliesTo(ev.EventType) {
			continue
		}
		if ruleMatches(rule, fields) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func ruleMatches(rule *model.ComplianceRule, fields map[string]interface{}) bool {
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, fields) {
			return false
		}
	}
	return true
}

func evalCondition(cond model.RuleCondition, fields map[string]interface{}) bool {
	resolved, ok := resolvePath(fields, cond.Field)
	if !ok {
		return false
	}
	switch cond.Operator {
	case model.OpEquals:
		return stringify(resolved) == stringify(cond.Value)
	case model.OpContains:
		return strings.Contains(stringify(resolved), stringify(cond.Value))
	case model.OpGreaterThan:
		a, b, ok := asDecimals(resolved, cond.Value)
		return ok && a.GreaterThan(b)
	case model.OpLessThan:
		a, b, ok := asDecimals(resolved, cond.Value)
		return ok && a.LessThan(b)
	case model.OpRegex:
		re, err := regexp.Compile(stringify(cond.Value))
		if err != nil {
			return false
		}
		return re.MatchString(stringify(resolved))
	default:
		return false
	}
}

// eventFields renders the event as its wire representation so conditions
// address fields by their JSON names (e.g. "request_data.channel").
func eventFields(ev *model.AuditEvent) map[string]interface{} {
	raw, err := json.Marshal(ev)
	if err != nil {
		return map[string]interface{}{}
	}
	fields := map[string]interface{}{}
	_ = json.Unmarshal(raw, &fields)
	return fields
}

// resolvePath walks a dotted path into the field map. A missing segment
// resolves to absent, never an error.
func resolvePath(fields map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var current interface{} = fields
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// Trim the float artifacts json decoding introduces for integers.
		if d := decimal.NewFromFloat(val); d.IsInteger() {
			return d.String()
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asDecimals(a, b interface{}) (decimal.Decimal, decimal.Decimal, bool) {
	da, err := decimal.NewFromString(stringify(a))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	db, err := decimal.NewFromString(stringify(b))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return da, db, true
}
