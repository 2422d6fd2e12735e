package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
)

func newRepoWithMock(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepo(sqlx.NewDb(db, "postgres"), "dev_t_students"), mock
}

func sampleStudent() *entity.Student {
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	return &entity.Student{
		TenantID:     "t1",
		StudentID:    "s1",
		StudentEmail: "a@x.com",
		PasswordHash: "$2a$04$hash",
		PasswordAlgo: "bcrypt:4",
		Data:         resource.Document{"student_name": "Ana"},
		Version:      1,
		CreationDate: now,
		UpdatedAt:    now,
	}
}

var studentColumns = []string{"tenant_id", "student_id", "student_email", "password_hash", "password_algo", "student_data", "version", "creation_date", "updated_at"}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	s := sampleStudent()

	mock.ExpectExec(`INSERT INTO "dev_t_students"`).
		WithArgs("t1", "s1", "a@x.com", "$2a$04$hash", "bcrypt:4", sqlmock.AnyArg(), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateConflicts(t *testing.T) {
	cases := []struct {
		constraint string
		want       string
	}{
		{"dev_t_students_email_key", "student with this student_email already exists"},
		{"dev_t_students_pkey", "student with this student_id already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectExec(`INSERT INTO "dev_t_students"`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

			err := repo.Create(context.Background(), sampleStudent())
			require.ErrorIs(t, err, common.ErrConflict)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestPostgresCreateDBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT INTO "dev_t_students"`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleStudent())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrConflict)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestPostgresGetByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(studentColumns).
		AddRow("t1", "s1", "a@x.com", "$2a$04$hash", "bcrypt:4", []byte(`{"student_name":"Ana","rockie_coins":0}`), int64(3), now, now)
	mock.ExpectQuery(`SELECT .+ FROM "dev_t_students" WHERE tenant_id = \$1 AND student_email = \$2`).
		WithArgs("t1", "a@x.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "t1", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.StudentID)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, "Ana", got.Data["student_name"])
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "dev_t_students" WHERE tenant_id = \$1 AND student_id = \$2`).
		WithArgs("t1", "ghost").
		WillReturnRows(sqlmock.NewRows(studentColumns))

	_, err := repo.GetByID(context.Background(), "t1", "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgresExists(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresUpdateVersionConflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	s := sampleStudent()
	mock.ExpectExec(`UPDATE "dev_t_students" SET student_data = \$1`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "t1", "s1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), s, 1)
	assert.ErrorIs(t, err, common.ErrVersionConflict)
	assert.Equal(t, int64(1), s.Version)
}

func TestPostgresUpdateBumpsVersion(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	s := sampleStudent()
	mock.ExpectExec(`UPDATE "dev_t_students" SET student_data = \$1`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "t1", "s1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), s, 1))
	assert.Equal(t, int64(2), s.Version)
}

func TestPostgresDeleteNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`DELETE FROM "dev_t_students"`).
		WithArgs("t1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "t1", "s1"), common.ErrNotFound)
}

func TestPostgresUpdatePassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE "dev_t_students" SET password_hash = \$1, password_algo = \$2`).
		WithArgs("newhash", "bcrypt:12", sqlmock.AnyArg(), "t1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "t1", "s1", "newhash", "bcrypt:12"))
}
