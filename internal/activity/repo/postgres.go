package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
)

const uniqueViolation = "23505"

const columns = `tenant_id, student_id, activity_id, activity_type, activity_data, version, creation_date, updated_at`

// PostgresRepo provides data access for the activities table using sqlx.
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

// EnsureTable creates the activities table and its type index if not exists.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  tenant_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  activity_id TEXT NOT NULL,
  activity_type TEXT NOT NULL,
  activity_data JSONB NOT NULL DEFAULT '{}'::jsonb,
  version BIGINT NOT NULL DEFAULT 1,
  creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (tenant_id, student_id, activity_id)
)`, r.quoted())
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (tenant_id, student_id, activity_type)`,
		pq.QuoteIdentifier(r.table+"_type_idx"), r.quoted())
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, a *entity.Activity) error {
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.quoted(), columns)
	_, err := r.db.ExecContext(ctx, q,
		a.TenantID, a.StudentID, a.ActivityID, a.ActivityType, a.Data, a.Version, a.CreationDate, a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("activity with this activity_id %w", common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, studentID, activityID string) (*entity.Activity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND student_id = $2 AND activity_id = $3`, columns, r.quoted())
	var a entity.Activity
	if err := r.db.GetContext(ctx, &a, q, tenantID, studentID, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

// List pages by activity_id; an empty ActivityType matches every type.
func (r *PostgresRepo) List(ctx context.Context, lq entity.ListQuery) ([]*entity.Activity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
		WHERE tenant_id = $1 AND student_id = $2 AND ($3 = '' OR activity_type = $3) AND activity_id > $4
		ORDER BY activity_id LIMIT $5`, columns, r.quoted())
	var out []*entity.Activity
	if err := r.db.SelectContext(ctx, &out, q, lq.TenantID, lq.StudentID, lq.ActivityType, lq.After, lq.Limit); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update uses optimistic locking on version.
func (r *PostgresRepo) Update(ctx context.Context, a *entity.Activity, expectedVersion int64) error {
	q := fmt.Sprintf(`UPDATE %s SET activity_type = $1, activity_data = $2, version = version + 1, updated_at = $3
		WHERE tenant_id = $4 AND student_id = $5 AND activity_id = $6 AND version = $7`, r.quoted())
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, q, a.ActivityType, a.Data, now, a.TenantID, a.StudentID, a.ActivityID, expectedVersion)
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
	a.Version = expectedVersion + 1
	a.UpdatedAt = now
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, tenantID, studentID, activityID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND student_id = $2 AND activity_id = $3`, r.quoted())
	res, err := r.db.ExecContext(ctx, q, tenantID, studentID, activityID)
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
