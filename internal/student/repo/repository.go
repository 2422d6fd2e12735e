// Package repo declares the credential store contract and its Postgres and
// in-memory implementations.
package repo

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
)

// Repository persists student records scoped by tenant.
type Repository interface {
	// Create inserts s only if neither (tenant_id, student_id) nor
	// (tenant_id, student_email) exists yet; otherwise common.ErrConflict.
	Create(ctx context.Context, s *entity.Student) error

	// GetByID and GetByEmail return common.ErrNotFound when absent.
	GetByID(ctx context.Context, tenantID, studentID string) (*entity.Student, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*entity.Student, error)

	Exists(ctx context.Context, tenantID, studentID string) (bool, error)

	// Update writes s.Data if the stored version still equals
	// expectedVersion, bumping the version; otherwise common.ErrVersionConflict.
	Update(ctx context.Context, s *entity.Student, expectedVersion int64) error

	UpdatePassword(ctx context.Context, tenantID, studentID, hash, algo string) error

	// Delete returns common.ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, tenantID, studentID string) error
}
