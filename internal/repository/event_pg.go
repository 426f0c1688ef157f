package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/raisket/audittrail/internal/model"
	"github.com/shopspring/decimal"
)

// PostgresEventRepo is the append-only durable store for audit events.
// Rows are never updated; the only delete path is DeleteExpired.
type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) *PostgresEventRepo {
	repo := &PostgresEventRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresEventRepo) Insert(ctx context.Context, ev *model.AuditEvent) error {
	if ev == nil {
		return nil
	}
	reqJSON, _ := json.Marshal(ev.RequestData)
	respJSON, _ := json.Marshal(ev.ResponseData)

	// Empty flag sets are stored as SQL NULL so the violation filters in
	// Report can rely on IS NOT NULL.
	var flagsJSON interface{}
	if len(ev.ComplianceFlags) > 0 {
		b, _ := json.Marshal(ev.ComplianceFlags)
		flagsJSON = b
	}

	var amount interface{}
	if ev.Amount != nil {
		amount = ev.Amount.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			request_id, timestamp, event_type, event_category, description,
			user_id, user_email, session_id, ip_address, user_agent, endpoint, http_method,
			resource_type, resource_id, amount, currency, product_id, institution_id,
			request_data, response_data, response_status,
			severity, risk_score, compliance_flags, error, error_code,
			requires_retention, retention_years, personal_data_included, sensitive_data_included
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11,$12,
			$13,$14,$15,$16,$17,$18,
			$19,$20,$21,
			$22,$23,$24,$25,$26,
			$27,$28,$29,$30
		)
		ON CONFLICT (request_id) DO NOTHING
	`, ev.RequestID, ev.Timestamp, ev.EventType, ev.Category, ev.Description,
		ev.UserID, ev.UserEmail, ev.SessionID, ev.IPAddress, ev.UserAgent, ev.Endpoint, ev.HTTPMethod,
		ev.ResourceType, ev.ResourceID, amount, ev.Currency, ev.ProductID, ev.InstitutionID,
		reqJSON, respJSON, ev.ResponseStatus,
		ev.Severity, ev.RiskScore, flagsJSON, ev.Error, ev.ErrorCode,
		ev.RequiresRetention, ev.RetentionYears, ev.PersonalDataIncluded, ev.SensitiveDataIncluded)
	return err
}

// Trail returns persisted events matching the filter, newest first.
func (r *PostgresEventRepo) Trail(ctx context.Context, f model.TrailFilter) ([]*model.AuditEvent, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT request_id, timestamp, event_type, event_category, description,
		user_id, user_email, session_id, ip_address, user_agent, endpoint, http_method,
		resource_type, resource_id, amount, currency, product_id, institution_id,
		request_data, response_data, response_status,
		severity, risk_score, compliance_flags, error, error_code,
		requires_retention, retention_years, personal_data_included, sensitive_data_included
		FROM audit_events`
	clauses := []string{}
	args := []interface{}{}
	idx := 1

	if f.UserID != "" {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", idx))
		args = append(args, f.UserID)
		idx++
	}
	if f.Category != "" {
		clauses = append(clauses, fmt.Sprintf("event_category = $%d", idx))
		args = append(args, f.Category)
		idx++
	}
	if f.EventType != "" {
		clauses = append(clauses, fmt.Sprintf("event_type = $%d", idx))
		args = append(args, f.EventType)
		idx++
	}
	if f.Severity != "" {
		clauses = append(clauses, fmt.Sprintf("severity = $%d", idx))
		args = append(args, f.Severity)
		idx++
	}
	if f.From != nil {
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", idx))
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", idx))
		args = append(args, *f.To)
		idx++
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.AuditEvent, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Report aggregates a time window grouped by (category, event type).
// With violationsOnly set, only rows carrying compliance flags are counted.
func (r *PostgresEventRepo) Report(ctx context.Context, from, to time.Time, violationsOnly bool) ([]model.ReportRow, error) {
	query := `
		SELECT event_category, event_type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE severity = 'critical') AS critical,
			COUNT(*) FILTER (WHERE severity = 'high') AS high,
			COUNT(*) FILTER (WHERE compliance_flags != '[]' AND compliance_flags IS NOT NULL) AS violations
		FROM audit_events
		WHERE timestamp >= $1 AND timestamp <= $2`
	if violationsOnly {
		query += ` AND compliance_flags != '[]' AND compliance_flags IS NOT NULL`
	}
	query += ` GROUP BY event_category, event_type ORDER BY total DESC`

	rows, err := r.db.QueryxContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReportRow{}
	for rows.Next() {
		var row model.ReportRow
		if err := rows.Scan(&row.Category, &row.EventType, &row.Total, &row.Critical, &row.High, &row.Violations); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteExpired removes records whose age exceeds their retention period.
// Records with requires_retention = true are never touched here.
func (r *PostgresEventRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM audit_events
		WHERE requires_retention = false
		  AND timestamp < $1 - make_interval(years => retention_years)
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountExpired reports how many records a sweep would delete right now.
func (r *PostgresEventRepo) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*) FROM audit_events
		WHERE requires_retention = false
		  AND timestamp < $1 - make_interval(years => retention_years)
	`, now).Scan(&count)
	return count, err
}

func scanEvent(rows *sqlx.Rows) (*model.AuditEvent, error) {
	var ev model.AuditEvent
	var reqJSON, respJSON, flagsJSON []byte
	var amount sql.NullString
	if err := rows.Scan(
		&ev.RequestID, &ev.Timestamp, &ev.EventType, &ev.Category, &ev.Description,
		&ev.UserID, &ev.UserEmail, &ev.SessionID, &ev.IPAddress, &ev.UserAgent, &ev.Endpoint, &ev.HTTPMethod,
		&ev.ResourceType, &ev.ResourceID, &amount, &ev.Currency, &ev.ProductID, &ev.InstitutionID,
		&reqJSON, &respJSON, &ev.ResponseStatus,
		&ev.Severity, &ev.RiskScore, &flagsJSON, &ev.Error, &ev.ErrorCode,
		&ev.RequiresRetention, &ev.RetentionYears, &ev.PersonalDataIncluded, &ev.SensitiveDataIncluded,
	); err != nil {
		return nil, err
	}
	if amount.Valid {
		if d, err := decimal.NewFromString(amount.String); err == nil {
			ev.Amount = &d
		}
	}
	if len(reqJSON) > 0 {
		_ = json.Unmarshal(reqJSON, &ev.RequestData)
	}
	if len(respJSON) > 0 {
		_ = json.Unmarshal(respJSON, &ev.ResponseData)
	}
	if len(flagsJSON) > 0 {
		_ = json.Unmarshal(flagsJSON, &ev.ComplianceFlags)
	}
	return &ev, nil
}

func (r *PostgresEventRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			request_id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			event_category TEXT NOT NULL,
			description TEXT NOT NULL,
			user_id TEXT,
			user_email TEXT,
			session_id TEXT,
			ip_address TEXT,
			user_agent TEXT,
			endpoint TEXT,
			http_method TEXT,
			resource_type TEXT,
			resource_id TEXT,
			amount NUMERIC,
			currency TEXT,
			product_id TEXT,
			institution_id TEXT,
			request_data JSONB,
			response_data JSONB,
			response_status INTEGER,
			severity TEXT,
			risk_score INTEGER,
			compliance_flags JSONB,
			error TEXT,
			error_code TEXT,
			requires_retention BOOLEAN NOT NULL DEFAULT true,
			retention_years INTEGER NOT NULL,
			personal_data_included BOOLEAN,
			sensitive_data_included BOOLEAN
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_audit_events_user ON audit_events(user_id, timestamp DESC)`)
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_audit_events_window ON audit_events(timestamp, event_category)`)
	return nil
}
