package model

import "time"

// ReportType selects the aggregation produced by the reporting path.
type ReportType string

const (
	ReportActivity   ReportType = "activity"
	ReportViolations ReportType = "violations"
)

// ReportRow is one (category, event type) bucket of a report window.
type ReportRow struct {
	Category   EventCategory `json:"event_category" db:"event_category"`
	EventType  string        `json:"event_type" db:"event_type"`
	Total      int64         `json:"total" db:"total"`
	Critical   int64         `json:"critical" db:"critical"`
	High       int64         `json:"high" db:"high"`
	Violations int64         `json:"violations" db:"violations"`
}

// ReportSummary is the result of a reporting window. An empty window is a
// valid summary with zero totals, not an error.
type ReportSummary struct {
	Type        ReportType  `json:"report_type"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	GeneratedAt time.Time   `json:"generated_at"`
	Rows        []ReportRow `json:"rows"`
	Total       int64       `json:"total"`
	Critical    int64       `json:"critical"`
	High        int64       `json:"high"`
	Violations  int64       `json:"violations"`
}

// TrailFilter narrows a trail query. Zero values mean "any".
type TrailFilter struct {
	UserID    string
	Category  EventCategory
	EventType string
	Severity  Severity
	From      *time.Time
	To        *time.Time
	Limit     int
}
