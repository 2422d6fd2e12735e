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
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/entity"
)

const uniqueViolation = "23505"

// PostgresRepo provides data access for the rockies table using sqlx.
type PostgresRepo struct {
	db    *sqlx.DB
	table string
	now   func() time.Time
}

func NewPostgresRepo(db *sqlx.DB, table string) *PostgresRepo {
	return &PostgresRepo{db: db, table: table, now: time.Now}
}

var _ Repository = (*PostgresRepo)(nil)

func (r *PostgresRepo) quoted() string { return pq.QuoteIdentifier(r.table) }

// EnsureTable creates the rockies table if not exists (idempotent).
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  tenant_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  level BIGINT NOT NULL DEFAULT 1,
  experience BIGINT NOT NULL DEFAULT 0,
  rockie_data JSONB NOT NULL DEFAULT '{}'::jsonb,
  version BIGINT NOT NULL DEFAULT 1,
  creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (tenant_id, student_id)
)`, r.quoted())
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, rk *entity.Rockie) error {
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, student_id, level, experience, rockie_data, version, creation_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.quoted())
	_, err := r.db.ExecContext(ctx, q,
		rk.TenantID, rk.StudentID, rk.Level, rk.Experience, rk.Data, rk.Version, rk.CreationDate, rk.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("rockie for this student_id %w", common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, studentID string) (*entity.Rockie, error) {
	q := fmt.Sprintf(`SELECT tenant_id, student_id, level, experience, rockie_data, version, creation_date, updated_at
		FROM %s WHERE tenant_id = $1 AND student_id = $2`, r.quoted())
	var rk entity.Rockie
	if err := r.db.GetContext(ctx, &rk, q, tenantID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rk, nil
}

// Update uses optimistic locking on version.
func (r *PostgresRepo) Update(ctx context.Context, rk *entity.Rockie, expectedVersion int64) error {
	q := fmt.Sprintf(`UPDATE %s SET level = $1, experience = $2, rockie_data = $3, version = version + 1, updated_at = $4
		WHERE tenant_id = $5 AND student_id = $6 AND version = $7`, r.quoted())
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, q, rk.Level, rk.Experience, rk.Data, now, rk.TenantID, rk.StudentID, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows == 0 {
		return common.ErrVersionConflict
	}
	rk.Version = expectedVersion + 1
	rk.UpdatedAt = now
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, tenantID, studentID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND student_id = $2`, r.quoted())
	res, err := r.db.ExecContext(ctx, q, tenantID, studentID)
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
