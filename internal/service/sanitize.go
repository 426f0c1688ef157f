package service

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/raisket/audittrail/internal/model"
)

// RedactionMarker replaces sensitive field values before persistence.
const RedactionMarker = "[REDACTED]"

// redactedKeys are the payload fields stripped when an event carries
// personal data. Redaction is shallow (one level) and idempotent.
var redactedKeys = []string{
	"curp", "rfc", "email", "phone", "accountNumber", "cardNumber",
}

// ipHashSalt makes stored IP hashes useless as a raw-IP lookup table
// while keeping them joinable across events for fraud analysis.
const ipHashSalt = "audittrail:ip:v1"

// Sanitize prepares an event for the durable store: redacts sensitive
// payload keys when personal data was detected and replaces the raw IP
// with a fixed-length one-way hash. The input is modified in place.
func Sanitize(ev *model.AuditEvent) {
	if ev == nil {
		return
	}
	if ev.PersonalDataIncluded {
		ev.RequestData = redactMap(ev.RequestData)
		ev.ResponseData = redactMap(ev.ResponseData)
	}
	if ev.IPAddress != "" {
		ev.IPAddress = HashIP(ev.IPAddress)
	}
}

// SanitizedCopy returns a sanitized copy of the event, leaving the
// original untouched for the caller's own sanitize step. Payload maps
// are copied one level deep, matching the redaction depth, so the copy
// never mutates maps shared with the original.
func SanitizedCopy(ev *model.AuditEvent) model.AuditEvent {
	clone := *ev
	clone.RequestData = copyShallow(ev.RequestData)
	clone.ResponseData = copyShallow(ev.ResponseData)
	Sanitize(&clone)
	return clone
}

func copyShallow(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func redactMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	for _, key := range redactedKeys {
		if _, ok := m[key]; ok {
			m[key] = RedactionMarker
		}
	}
	return m
}

// HashIP returns the first 16 hex characters of a salted SHA-256 digest
// of the address. Hashing an already-hashed value yields a different
// string, so callers must hash exactly once; Sanitize guarantees that by
// running only on the un-persisted event.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ipHashSalt + ip))
	return hex.EncodeToString(sum[:])[:16]
}
