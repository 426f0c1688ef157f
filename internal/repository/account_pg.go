package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresAccountRepo is the account/identity collaborator used by
// auto-responses: block an account, or raise its risk score to a floor.
type PostgresAccountRepo struct {
	db *sqlx.DB
}

func NewPostgresAccountRepo(db *sqlx.DB) *PostgresAccountRepo {
	repo := &PostgresAccountRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

// SetStatus upserts the account row with the given status.
func (r *PostgresAccountRepo) SetStatus(ctx context.Context, userID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, status, risk_score, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET status = $2, updated_at = $3
	`, userID, status, time.Now().UTC())
	return err
}

// RaiseRiskScore lifts the account's risk score to at least floor.
// GREATEST keeps the operation idempotent and monotone: the score
// never decreases through this path.
func (r *PostgresAccountRepo) RaiseRiskScore(ctx context.Context, userID string, floor int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, status, risk_score, updated_at)
		VALUES ($1, 'active', $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET risk_score = GREATEST(accounts.risk_score, $2), updated_at = $3
	`, userID, floor, time.Now().UTC())
	return err
}

// GetRiskScore returns the current score, or 0 for unknown accounts.
func (r *PostgresAccountRepo) GetRiskScore(ctx context.Context, userID string) (int, error) {
	var score int
	err := r.db.QueryRowxContext(ctx, `SELECT risk_score FROM accounts WHERE user_id = $1`, userID).Scan(&score)
	if err != nil {
		return 0, nil
	}
	return score, nil
}

func (r *PostgresAccountRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'active',
			risk_score INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ
		)
	`)
	return err
}
