package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raisket/audittrail/internal/model"
)

func TestSanitizeRedactsPersonalPayloadKeys(t *testing.T) {
	ev := baseEvent("PROFILE_UPDATE", model.CategoryDataModification)
	ev.PersonalDataIncluded = true
	ev.RequestData = map[string]interface{}{
		"curp":    "ABCD860315HDFLRN01",
		"rfc":     "ABCD860315XX1",
		"email":   "user@example.com",
		"channel": "mobile",
	}
	ev.ResponseData = map[string]interface{}{
		"accountNumber": "0123456789",
		"status":        "ok",
	}

	Sanitize(&ev)

	assert.Equal(t, RedactionMarker, ev.RequestData["curp"])
	assert.Equal(t, RedactionMarker, ev.RequestData["rfc"])
	assert.Equal(t, RedactionMarker, ev.RequestData["email"])
	assert.Equal(t, "mobile", ev.RequestData["channel"])
	assert.Equal(t, RedactionMarker, ev.ResponseData["accountNumber"])
	assert.Equal(t, "ok", ev.ResponseData["status"])
}

func TestSanitizeSkipsRedactionWithoutPersonalData(t *testing.T) {
	ev := baseEvent("API_CALL", model.CategoryExternalAPI)
	ev.RequestData = map[string]interface{}{"email": "ops@example.com"}

	Sanitize(&ev)

	assert.Equal(t, "ops@example.com", ev.RequestData["email"])
}

func TestSanitizeIsIdempotentForRedaction(t *testing.T) {
	ev := baseEvent("PROFILE_UPDATE", model.CategoryDataModification)
	ev.PersonalDataIncluded = true
	ev.RequestData = map[string]interface{}{"curp": "ABCD860315HDFLRN01"}

	Sanitize(&ev)
	first := ev.RequestData["curp"]
	ev.IPAddress = "" // IP hashing is once-only; redaction alone is re-runnable
	Sanitize(&ev)

	assert.Equal(t, first, ev.RequestData["curp"])
	assert.Equal(t, RedactionMarker, ev.RequestData["curp"])
}

func TestHashIPProperties(t *testing.T) {
	h1 := HashIP("203.0.113.7")
	h2 := HashIP("203.0.113.7")
	h3 := HashIP("203.0.113.8")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, "203.0.113.7", h1)
	assert.Len(t, h1, 16)
}

func TestSanitizeHashesIPInPlace(t *testing.T) {
	ev := baseEvent("USER_LOGIN", model.CategoryAuthentication)
	ev.IPAddress = "198.51.100.23"

	Sanitize(&ev)

	assert.Equal(t, HashIP("198.51.100.23"), ev.IPAddress)
	assert.NotContains(t, ev.IPAddress, ".")
}
