package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/raisket/audittrail/internal/model"
)

// PostgresViolationRepo stores one row per rule match, with a snapshot of
// the triggering event so the engine's decisions can be audited on their own.
type PostgresViolationRepo struct {
	db *sqlx.DB
}

func NewPostgresViolationRepo(db *sqlx.DB) *PostgresViolationRepo {
	repo := &PostgresViolationRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresViolationRepo) Insert(ctx context.Context, v *model.Violation) error {
	if v == nil {
		return nil
	}
	snapshot, _ := json.Marshal(v.Event)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO violations (id, rule_id, rule_name, severity, detected_at, event_request_id, event_snapshot)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, v.ID, v.RuleID, v.RuleName, v.Severity, v.DetectedAt, v.Event.RequestID, snapshot)
	return err
}

// ListByRule returns violations for one rule inside a window, newest first.
func (r *PostgresViolationRepo) ListByRule(ctx context.Context, ruleID string, from, to time.Time, limit int) ([]*model.Violation, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, rule_id, rule_name, severity, detected_at, event_snapshot
		FROM violations
		WHERE rule_id = $1 AND detected_at >= $2 AND detected_at <= $3
		ORDER BY detected_at DESC LIMIT $4
	`, ruleID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Violation, 0, limit)
	for rows.Next() {
		var v model.Violation
		var snapshot []byte
		if err := rows.Scan(&v.ID, &v.RuleID, &v.RuleName, &v.Severity, &v.DetectedAt, &snapshot); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(snapshot, &v.Event)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (r *PostgresViolationRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS violations (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			rule_name TEXT NOT NULL,
			severity TEXT NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			event_request_id TEXT,
			event_snapshot JSONB
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule_id, detected_at DESC)`)
	return nil
}
