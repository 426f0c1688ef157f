package service

import (
	"context"
	"time"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
)

// Reporter produces time-window compliance summaries over the persisted
// store. Pure read path; an empty window yields a zero-filled summary.
type Reporter struct {
	store EventStore
	now   func() time.Time
}

func NewReporter(store EventStore) *Reporter {
	return &Reporter{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Report aggregates the window grouped by (category, event type).
func (r *Reporter) Report(ctx context.Context, reportType model.ReportType, from, to time.Time) (*model.ReportSummary, error) {
	var violationsOnly bool
	switch reportType {
	case model.ReportActivity:
	case model.ReportViolations:
		violationsOnly = true
	default:
		return nil, apperrors.NewValidation("unknown report type: " + string(reportType))
	}
	if to.Before(from) {
		return nil, apperrors.NewValidation("report window end precedes start")
	}

	rows, err := r.store.Report(ctx, from, to, violationsOnly)
	if err != nil {
		return nil, apperrors.NewStorage("report aggregation failed", err)
	}

	summary := &model.ReportSummary{
		Type:        reportType,
		From:        from,
		To:          to,
		GeneratedAt: r.now(),
		Rows:        rows,
	}
	for _, row := range rows {
		summary.Total += row.Total
		summary.Critical += row.Critical
		summary.High += row.High
		summary.Violations += row.Violations
	}
	return summary, nil
}
