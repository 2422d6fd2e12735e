package repo

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
)

type Repository interface {
	// Create fails with common.ErrConflict if the student already has an
	// activity with the same id.
	Create(ctx context.Context, a *entity.Activity) error
	Get(ctx context.Context, tenantID, studentID, activityID string) (*entity.Activity, error)
	List(ctx context.Context, q entity.ListQuery) ([]*entity.Activity, error)
	// Update writes type and data when the stored version equals
	// expectedVersion; otherwise common.ErrVersionConflict.
	Update(ctx context.Context, a *entity.Activity, expectedVersion int64) error
	Delete(ctx context.Context, tenantID, studentID, activityID string) error
}
