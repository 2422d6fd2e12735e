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
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
)

const uniqueViolation = "23505"

// PostgresRepo provides data access for the students table using sqlx.
type PostgresRepo struct {
	db              *sqlx.DB
	table           string
	emailConstraint string
	now             func() time.Time
}

// NewPostgresRepo binds the repository to the configured table name.
func NewPostgresRepo(db *sqlx.DB, table string) *PostgresRepo {
	return &PostgresRepo{
		db:              db,
		table:           table,
		emailConstraint: table + "_email_key",
		now:             time.Now,
	}
}

var _ Repository = (*PostgresRepo)(nil)

func (r *PostgresRepo) quoted() string { return pq.QuoteIdentifier(r.table) }

// EnsureTable creates the students table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  tenant_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  student_email TEXT NOT NULL,
  password_hash TEXT NOT NULL CHECK (password_hash <> ''),
  password_algo TEXT NOT NULL,
  student_data JSONB NOT NULL DEFAULT '{}'::jsonb,
  version BIGINT NOT NULL DEFAULT 1,
  creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT %s PRIMARY KEY (tenant_id, student_id),
  CONSTRAINT %s UNIQUE (tenant_id, student_email)
)`, r.quoted(), pq.QuoteIdentifier(r.table+"_pkey"), pq.QuoteIdentifier(r.emailConstraint))
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create relies on the table constraints for the conditional write, so two
// concurrent registrations of the same identity cannot both succeed.
func (r *PostgresRepo) Create(ctx context.Context, s *entity.Student) error {
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, student_id, student_email, password_hash, password_algo, student_data, version, creation_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, r.quoted())
	_, err := r.db.ExecContext(ctx, q,
		s.TenantID, s.StudentID, s.StudentEmail, s.PasswordHash, s.PasswordAlgo,
		s.Data, s.Version, s.CreationDate, s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == r.emailConstraint {
				return fmt.Errorf("student with this student_email %w", common.ErrConflict)
			}
			return fmt.Errorf("student with this student_id %w", common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) selectColumns() string {
	return fmt.Sprintf(`SELECT tenant_id, student_id, student_email, password_hash, password_algo,
		student_data, version, creation_date, updated_at FROM %s`, r.quoted())
}

// GetByID fetches a full student row.
func (r *PostgresRepo) GetByID(ctx context.Context, tenantID, studentID string) (*entity.Student, error) {
	q := r.selectColumns() + ` WHERE tenant_id = $1 AND student_id = $2`
	return r.get(ctx, q, tenantID, studentID)
}

// GetByEmail fetches by the (tenant_id, student_email) secondary key.
func (r *PostgresRepo) GetByEmail(ctx context.Context, tenantID, email string) (*entity.Student, error) {
	q := r.selectColumns() + ` WHERE tenant_id = $1 AND student_email = $2`
	return r.get(ctx, q, tenantID, email)
}

func (r *PostgresRepo) get(ctx context.Context, q string, args ...any) (*entity.Student, error) {
	var row entity.Student
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &row, nil
}

func (r *PostgresRepo) Exists(ctx context.Context, tenantID, studentID string) (bool, error) {
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND student_id = $2)`, r.quoted())
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, tenantID, studentID); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Update uses optimistic locking on version.
func (r *PostgresRepo) Update(ctx context.Context, s *entity.Student, expectedVersion int64) error {
	q := fmt.Sprintf(`UPDATE %s SET student_data = $1, version = version + 1, updated_at = $2
		WHERE tenant_id = $3 AND student_id = $4 AND version = $5`, r.quoted())
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, q, s.Data, now, s.TenantID, s.StudentID, expectedVersion)
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
	s.Version = expectedVersion + 1
	s.UpdatedAt = now
	return nil
}

// UpdatePassword replaces hash & algo and bumps the version.
func (r *PostgresRepo) UpdatePassword(ctx context.Context, tenantID, studentID, hash, algo string) error {
	q := fmt.Sprintf(`UPDATE %s SET password_hash = $1, password_algo = $2, version = version + 1, updated_at = $3
		WHERE tenant_id = $4 AND student_id = $5`, r.quoted())
	res, err := r.db.ExecContext(ctx, q, hash, algo, r.now().UTC(), tenantID, studentID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepo) Delete(ctx context.Context, tenantID, studentID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND student_id = $2`, r.quoted())
	res, err := r.db.ExecContext(ctx, q, tenantID, studentID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}
	return nil
}
