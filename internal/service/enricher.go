package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
)

// Keyword lists for data classification. The exact lists are a
// product/compliance decision confirmed with the compliance team;
// matching is case-insensitive substring over field names and values.
var (
	personalDataKeywords = []string{
		"curp", "rfc", "email", "phone", "address", "name",
		"birth", "passport", "license",
	}
	sensitiveDataKeywords = []string{
		"account", "card", "balance", "transaction", "payment",
		"credit", "loan", "score", "income", "salary",
	}
)

// Enricher stamps a raw event with identity, timestamp, retention class
// and data-classification flags. Pure aside from the clock and the
// request-id generator.
type Enricher struct {
	now   func() time.Time
	newID func() string
}

func NewEnricher() *Enricher {
	return &Enricher{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Enrich validates and completes the event in place. The only failure
// mode is malformed input: missing event_type, event_category or
// description, or an unknown category.
func (e *Enricher) Enrich(ev *model.AuditEvent) error {
	if ev == nil {
		return apperrors.NewValidation("event is required")
	}
	if ev.EventType == "" {
		return apperrors.NewValidation("event_type is required")
	}
	if ev.Category == "" {
		return apperrors.NewValidation("event_category is required")
	}
	if !model.ValidCategory(ev.Category) {
		return apperrors.NewValidation(fmt.Sprintf("unknown event_category %q", ev.Category))
	}
	if ev.Description == "" {
		return apperrors.NewValidation("description is required")
	}

	if ev.RequestID == "" {
		ev.RequestID = e.newID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	if ev.Severity == "" {
		ev.Severity = model.SeverityLow
	}

	// Risk score lives on a 0..100 scale; caller input is clamped, not
	// rejected, so a misbehaving producer cannot break ingestion.
	if ev.RiskScore < 0 {
		ev.RiskScore = 0
	}
	if ev.RiskScore > 100 {
		ev.RiskScore = 100
	}

	// Retention period defaults per category when the caller did not
	// supply one. RequiresRetention is defaulted to true at the decode
	// boundary (see model.NewAuditEvent) so an explicit false survives.
	if ev.RetentionYears <= 0 {
		ev.RetentionYears = model.RetentionYearsFor(ev.Category)
	}

	// Classification flags are recomputed on every call; caller input
	// for these fields is never trusted.
	ev.ComplianceFlags = nil
	ev.PersonalDataIncluded = scanKeywords(ev, personalDataKeywords)
	ev.SensitiveDataIncluded = scanKeywords(ev, sensitiveDataKeywords)

	return nil
}

// scanKeywords walks the event's serialized form and reports whether any
// keyword occurs in a field name or string value. Field names of
// populated fields count too: an event carrying a user_email is personal
// data even when the address itself contains no keyword.
func scanKeywords(ev *model.AuditEvent, keywords []string) bool {
	var sb strings.Builder
	appendField := func(name, value string) {
		if value == "" {
			return
		}
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(value)
		sb.WriteByte(' ')
	}
	appendField("event_type", ev.EventType)
	appendField("description", ev.Description)
	appendField("user_email", ev.UserEmail)
	appendField("ip_address", ev.IPAddress)
	appendField("user_agent", ev.UserAgent)
	appendField("resource_type", ev.ResourceType)
	appendField("endpoint", ev.Endpoint)
	appendField("error", ev.Error)
	collectMap(&sb, ev.RequestData, 0)
	collectMap(&sb, ev.ResponseData, 0)

	haystack := strings.ToLower(sb.String())
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

const maxScanDepth = 8

func collectMap(sb *strings.Builder, m map[string]interface{}, depth int) {
	if depth > maxScanDepth {
		return
	}
	for k, v := range m {
		sb.WriteByte(' ')
		sb.WriteString(k)
		collectValue(sb, v, depth+1)
	}
}

func collectValue(sb *strings.Builder, v interface{}, depth int) {
	if depth > maxScanDepth {
		return
	}
	switch val := v.(type) {
	case string:
		sb.WriteByte(' ')
		sb.WriteString(val)
	case map[string]interface{}:
		collectMap(sb, val, depth)
	case []interface{}:
		for _, item := range val {
			collectValue(sb, item, depth+1)
		}
	}
}
