package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/raisket/audittrail/internal/model"
)

// PostgresRuleRepo serves "list active rules" full-replacement snapshots.
type PostgresRuleRepo struct {
	db *sqlx.DB
}

func NewPostgresRuleRepo(db *sqlx.DB) *PostgresRuleRepo {
	repo := &PostgresRuleRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresRuleRepo) ListActive(ctx context.Context) ([]*model.ComplianceRule, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, name, event_types, conditions, severity, alert_channels, auto_response, is_active
		FROM compliance_rules
		WHERE is_active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []*model.ComplianceRule{}
	for rows.Next() {
		var rule model.ComplianceRule
		var eventTypes, conditions, channels, autoResp []byte
		if err := rows.Scan(&rule.ID, &rule.Name, &eventTypes, &conditions, &channels, &autoResp, &rule.IsActive); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(eventTypes, &rule.EventTypes)
		_ = json.Unmarshal(conditions, &rule.Conditions)
		_ = json.Unmarshal(channels, &rule.AlertChannels)
		if len(autoResp) > 0 && string(autoResp) != "null" {
			var ar model.AutoResponse
			if err := json.Unmarshal(autoResp, &ar); err == nil && ar.Action != "" {
				rule.AutoResponse = &ar
			}
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

func (r *PostgresRuleRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS compliance_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			event_types JSONB NOT NULL DEFAULT '[]',
			conditions JSONB NOT NULL DEFAULT '[]',
			severity TEXT NOT NULL DEFAULT 'medium',
			alert_channels JSONB NOT NULL DEFAULT '[]',
			auto_response JSONB,
			is_active BOOLEAN NOT NULL DEFAULT true
		)
	`)
	return err
}
