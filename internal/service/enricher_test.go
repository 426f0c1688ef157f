package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
)

func testEnricher() *Enricher {
	e := NewEnricher()
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	e.newID = func() string { return "fixed-request-id" }
	return e
}

func TestEnrichRejectsMalformedInput(t *testing.T) {
	e := testEnricher()

	cases := []struct {
		name  string
		event model.AuditEvent
	}{
		{"missing event_type", model.AuditEvent{Category: model.CategorySecurity, Description: "x"}},
		{"missing category", model.AuditEvent{EventType: "LOGIN", Description: "x"}},
		{"missing description", model.AuditEvent{EventType: "LOGIN", Category: model.CategoryAuthentication}},
		{"unknown category", model.AuditEvent{EventType: "LOGIN", Category: "not_a_category", Description: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := tc.event
			err := e.Enrich(&ev)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}

	require.Error(t, e.Enrich(nil))
}

func TestEnrichFillsIdentityAndTimestamp(t *testing.T) {
	e := testEnricher()
	ev := baseEvent("USER_LOGIN", model.CategoryAuthentication)

	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, "fixed-request-id", ev.RequestID)
	assert.Equal(t, e.now(), ev.Timestamp)
	assert.Equal(t, model.SeverityLow, ev.Severity)
}

func TestEnrichKeepsCallerIdentity(t *testing.T) {
	e := testEnricher()
	ev := baseEvent("USER_LOGIN", model.CategoryAuthentication)
	ev.RequestID = "caller-id"
	stamp := time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	ev.Timestamp = stamp
	ev.Severity = model.SeverityCritical

	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, "caller-id", ev.RequestID)
	assert.Equal(t, stamp, ev.Timestamp)
	assert.Equal(t, model.SeverityCritical, ev.Severity)
}

func TestEnrichRetentionDefaultsPerCategory(t *testing.T) {
	e := testEnricher()

	cases := []struct {
		category model.EventCategory
		years    int
	}{
		{model.CategoryFinancialTransaction, 10},
		{model.CategoryCreditInquiry, 6},
		{model.CategoryKYC, 7},
		{model.CategoryCompliance, 10},
		{model.CategorySecurity, 7},
		{model.CategoryAuthentication, 3},
		{model.CategoryDataAccess, 7},
		{model.CategoryPrivacy, 7},
		{model.CategoryFraudDetection, 10},
		{model.CategoryPerformance, model.DefaultRetentionYears},
		{model.CategoryBusinessOperation, model.DefaultRetentionYears},
	}
	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			ev := baseEvent("SOME_EVENT", tc.category)
			require.NoError(t, e.Enrich(&ev))
			assert.Equal(t, tc.years, ev.RetentionYears)
		})
	}
}

func TestEnrichKeepsExplicitRetentionYears(t *testing.T) {
	e := testEnricher()
	ev := baseEvent("SOME_EVENT", model.CategoryAuthentication)
	ev.RetentionYears = 12

	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, 12, ev.RetentionYears)
}

func TestEnrichDetectsPersonalData(t *testing.T) {
	e := testEnricher()

	ev := baseEvent("PROFILE_UPDATE", model.CategoryDataModification)
	ev.RequestData = map[string]interface{}{
		"profile": map[string]interface{}{"curp": "ABCD860315HDFLRN01"},
	}
	require.NoError(t, e.Enrich(&ev))
	assert.True(t, ev.PersonalDataIncluded)

	// Keyword in a field name counts even when the value is opaque.
	ev = baseEvent("PROFILE_UPDATE", model.CategoryDataModification)
	ev.RequestData = map[string]interface{}{"phoneNumber": 5512345678}
	require.NoError(t, e.Enrich(&ev))
	assert.True(t, ev.PersonalDataIncluded)

	ev = baseEvent("CACHE_EVICTION", model.CategorySystemOperation)
	ev.Description = "evicted stale rate limit buckets"
	require.NoError(t, e.Enrich(&ev))
	assert.False(t, ev.PersonalDataIncluded)
}

// Presence of an identity-bearing field is personal data even when the
// value itself contains no keyword: the serialized form carries the
// field name.
func TestEnrichFlagsIdentityFieldsAsPersonal(t *testing.T) {
	e := testEnricher()

	ev := baseEvent("NOTIFICATION_SENT", model.CategorySystemOperation)
	ev.Description = "notification dispatched"
	ev.UserEmail = "a@b.mx"
	require.NoError(t, e.Enrich(&ev))
	assert.True(t, ev.PersonalDataIncluded)

	ev = baseEvent("NOTIFICATION_SENT", model.CategorySystemOperation)
	ev.Description = "notification dispatched"
	ev.IPAddress = "203.0.113.7"
	require.NoError(t, e.Enrich(&ev))
	assert.True(t, ev.PersonalDataIncluded)
}

func TestEnrichClampsRiskScore(t *testing.T) {
	e := testEnricher()

	ev := baseEvent("USER_LOGIN", model.CategoryAuthentication)
	ev.RiskScore = 250
	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, 100, ev.RiskScore)

	ev = baseEvent("USER_LOGIN", model.CategoryAuthentication)
	ev.RiskScore = -5
	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, 0, ev.RiskScore)

	ev = baseEvent("USER_LOGIN", model.CategoryAuthentication)
	ev.RiskScore = 65
	require.NoError(t, e.Enrich(&ev))
	assert.Equal(t, 65, ev.RiskScore)
}

func TestEnrichDetectsSensitiveData(t *testing.T) {
	e := testEnricher()

	ev := baseEvent("WIRE_OUT", model.CategoryFinancialTransaction)
	ev.Description = "outbound wire transaction settled"
	require.NoError(t, e.Enrich(&ev))
	assert.True(t, ev.SensitiveDataIncluded)

	ev = baseEvent("HEALTHCHECK", model.CategorySystemOperation)
	ev.Description = "liveness probe ok"
	require.NoError(t, e.Enrich(&ev))
	assert.False(t, ev.SensitiveDataIncluded)
}

func TestEnrichRecomputesClassification(t *testing.T) {
	e := testEnricher()
	ev := baseEvent("HEALTHCHECK", model.CategorySystemOperation)
	ev.Description = "liveness probe ok"
	// Caller-supplied flags are never trusted.
	ev.ComplianceFlags = []string{"spoofed"}
	ev.PersonalDataIncluded = true
	ev.SensitiveDataIncluded = true

	require.NoError(t, e.Enrich(&ev))
	assert.Nil(t, ev.ComplianceFlags)
	assert.False(t, ev.PersonalDataIncluded)
	assert.False(t, ev.SensitiveDataIncluded)
}
