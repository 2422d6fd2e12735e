package repo

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/entity"
)

type Repository interface {
	// Create fails with common.ErrConflict if the student already has a rockie.
	Create(ctx context.Context, r *entity.Rockie) error
	Get(ctx context.Context, tenantID, studentID string) (*entity.Rockie, error)
	// Update writes level, experience and data when the stored version
	// equals expectedVersion; otherwise common.ErrVersionConflict.
	Update(ctx context.Context, r *entity.Rockie, expectedVersion int64) error
	Delete(ctx context.Context, tenantID, studentID string) error
}
