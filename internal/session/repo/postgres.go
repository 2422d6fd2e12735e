package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	db    *sqlx.DB
	table string
}

func NewPostgresRepo(db *sqlx.DB, table string) *PostgresRepo {
	return &PostgresRepo{db: db, table: table}
}

var _ Repository = (*PostgresRepo)(nil)

func (r *PostgresRepo) quoted() string { return pq.QuoteIdentifier(r.table) }

// EnsureTable creates the access token table and its principal index.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  token TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  revoked_at TIMESTAMPTZ
)`, r.quoted())
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (tenant_id, student_id)`,
		pq.QuoteIdentifier(r.table+"_principal_idx"), r.quoted())
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *PostgresRepo) Save(ctx context.Context, t *entity.AccessToken) error {
	q := fmt.Sprintf(`INSERT INTO %s (token, tenant_id, student_id, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`, r.quoted())
	_, err := r.db.ExecContext(ctx, q, t.Token, t.TenantID, t.StudentID, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("token %w", common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, token string) (*entity.AccessToken, error) {
	q := fmt.Sprintf(`SELECT token, tenant_id, student_id, expires_at, created_at, revoked_at FROM %s WHERE token = $1`, r.quoted())
	var t entity.AccessToken
	if err := r.db.GetContext(ctx, &t, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepo) Revoke(ctx context.Context, token string, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET revoked_at = COALESCE(revoked_at, $1) WHERE token = $2`, r.quoted())
	res, err := r.db.ExecContext(ctx, q, at.UTC(), token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}
	return nil
}
