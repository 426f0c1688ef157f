package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventCategory classifies an audit event for retention and reporting.
type EventCategory string

const (
	CategoryAuthentication       EventCategory = "authentication"
	CategoryAuthorization        EventCategory = "authorization"
	CategoryDataAccess           EventCategory = "data_access"
	CategoryDataModification     EventCategory = "data_modification"
	CategoryFinancialTransaction EventCategory = "financial_transaction"
	CategoryCreditInquiry        EventCategory = "credit_inquiry"
	CategoryKYC                  EventCategory = "kyc"
	CategoryCompliance           EventCategory = "compliance"
	CategorySecurity             EventCategory = "security"
	CategoryExternalAPI          EventCategory = "external_api"
	CategorySystemOperation      EventCategory = "system_operation"
	CategoryBusinessOperation    EventCategory = "business_operation"
	CategoryPrivacy              EventCategory = "privacy"
	CategoryFraudDetection       EventCategory = "fraud_detection"
	CategoryPerformance          EventCategory = "performance"
	CategoryError                EventCategory = "error"
)

// ValidCategory reports whether c is one of the closed category enumeration.
func ValidCategory(c EventCategory) bool {
	switch c {
	case CategoryAuthentication, CategoryAuthorization, CategoryDataAccess,
		CategoryDataModification, CategoryFinancialTransaction, CategoryCreditInquiry,
		CategoryKYC, CategoryCompliance, CategorySecurity, CategoryExternalAPI,
		CategorySystemOperation, CategoryBusinessOperation, CategoryPrivacy,
		CategoryFraudDetection, CategoryPerformance, CategoryError:
		return true
	}
	return false
}

// Severity ranks an event or rule for alerting and reporting.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AuditEvent is the unit of record. Once persisted it is immutable;
// corrections are new events, never updates.
//
// ComplianceFlags, PersonalDataIncluded, SensitiveDataIncluded and
// RetentionYears are always set by the pipeline and never trusted
// from caller input.
type AuditEvent struct {
	RequestID   string        `json:"request_id" db:"request_id"`
	Timestamp   time.Time     `json:"timestamp" db:"timestamp"`
	EventType   string        `json:"event_type" db:"event_type"`
	Category    EventCategory `json:"event_category" db:"event_category"`
	Description string        `json:"description" db:"description"`

	// Actor / request context
	UserID     string `json:"user_id,omitempty" db:"user_id"`
	UserEmail  string `json:"user_email,omitempty" db:"user_email"`
	SessionID  string `json:"session_id,omitempty" db:"session_id"`
	IPAddress  string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string `json:"user_agent,omitempty" db:"user_agent"`
	Endpoint   string `json:"endpoint,omitempty" db:"endpoint"`
	HTTPMethod string `json:"http_method,omitempty" db:"http_method"`

	// Resource / business context
	ResourceType  string           `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID    string           `json:"resource_id,omitempty" db:"resource_id"`
	Amount        *decimal.Decimal `json:"amount,omitempty" db:"amount"`
	Currency      string           `json:"currency,omitempty" db:"currency"`
	ProductID     string           `json:"product_id,omitempty" db:"product_id"`
	InstitutionID string           `json:"institution_id,omitempty" db:"institution_id"`

	// Payloads
	RequestData    map[string]interface{} `json:"request_data,omitempty" db:"-"`
	ResponseData   map[string]interface{} `json:"response_data,omitempty" db:"-"`
	ResponseStatus int                    `json:"response_status,omitempty" db:"response_status"`

	// Risk / compliance
	Severity        Severity `json:"severity" db:"severity"`
	RiskScore       int      `json:"risk_score" db:"risk_score"`
	ComplianceFlags []string `json:"compliance_flags,omitempty" db:"-"`

	// Error context
	Error     string `json:"error,omitempty" db:"error"`
	ErrorCode string `json:"error_code,omitempty" db:"error_code"`

	// Retention
	RequiresRetention     bool `json:"requires_retention" db:"requires_retention"`
	RetentionYears        int  `json:"retention_years" db:"retention_years"`
	PersonalDataIncluded  bool `json:"personal_data_included" db:"personal_data_included"`
	SensitiveDataIncluded bool `json:"sensitive_data_included" db:"sensitive_data_included"`
}

// NewAuditEvent returns an event with pipeline defaults applied.
// Decode caller JSON over this value so that requires_retention is
// true unless the caller explicitly sent false.
func NewAuditEvent() AuditEvent {
	return AuditEvent{
		RequiresRetention: true,
		Severity:          SeverityLow,
	}
}

// retentionDefaults maps categories to their minimum retention in years.
// Categories not listed fall back to DefaultRetentionYears.
var retentionDefaults = map[EventCategory]int{
	CategoryFinancialTransaction: 10,
	CategoryCreditInquiry:        6,
	CategoryKYC:                  7,
	CategoryCompliance:           10,
	CategorySecurity:             7,
	CategoryAuthentication:       3,
	CategoryDataAccess:           7,
	CategoryPrivacy:              7,
	CategoryFraudDetection:       10,
}

// DefaultRetentionYears applies to categories without a specific policy.
const DefaultRetentionYears = 5

// RetentionYearsFor returns the default retention period for a category.
func RetentionYearsFor(c EventCategory) int {
	if y, ok := retentionDefaults[c]; ok {
		return y
	}
	return DefaultRetentionYears
}
