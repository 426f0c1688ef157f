package model

import "time"

// ConditionOperator enumerates the predicate operators a rule condition
// may apply to an event field.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpRegex       ConditionOperator = "regex"
)

// RuleCondition is a single pure predicate over one event field,
// addressed by dotted path (e.g. "request_data.channel").
type RuleCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// ResponseAction enumerates the automated responses a rule may trigger.
type ResponseAction string

const (
	ActionBlockUser        ResponseAction = "block_user"
	ActionFlagAccount      ResponseAction = "flag_account"
	ActionNotifyCompliance ResponseAction = "notify_compliance"
	ActionCreateTicket     ResponseAction = "create_ticket"
)

// AutoResponse is the optional automated action attached to a rule.
type AutoResponse struct {
	Action     ResponseAction         `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// AlertChannel names a configured delivery channel.
type AlertChannel string

const (
	ChannelEmail   AlertChannel = "email"
	ChannelSlack   AlertChannel = "slack"
	ChannelWebhook AlertChannel = "webhook"
	ChannelSMS     AlertChannel = "sms"
)

// ComplianceRule is a named predicate over audit events. A rule matches an
// event iff the event type is in EventTypes and every condition holds.
type ComplianceRule struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	EventTypes    []string        `json:"event_types"`
	Conditions    []RuleCondition `json:"conditions"`
	Severity      Severity        `json:"severity"`
	AlertChannels []AlertChannel  `json:"alert_channels"`
	AutoResponse  *AutoResponse   `json:"auto_response,omitempty"`
	IsActive      bool            `json:"is_active"`
}

// AppliesTo reports whether the rule's event-type set contains eventType.
func (r *ComplianceRule) AppliesTo(eventType string) bool {
	for _, t := range r.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Violation links one audit event to one matched rule, with a snapshot of
// the triggering event for independent review of the engine's decision.
// Created only as a side effect of a match; never mutated.
type Violation struct {
	ID         string     `json:"id" db:"id"`
	RuleID     string     `json:"rule_id" db:"rule_id"`
	RuleName   string     `json:"rule_name" db:"rule_name"`
	Severity   Severity   `json:"severity" db:"severity"`
	DetectedAt time.Time  `json:"detected_at" db:"detected_at"`
	Event      AuditEvent `json:"event" db:"-"`
}
