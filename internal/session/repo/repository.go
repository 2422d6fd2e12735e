// Package repo stores session tokens in Postgres, Redis or process memory.
package repo

import (
	"context"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// Repository persists access tokens. Tokens share one namespace across
// tenants.
type Repository interface {
	// Save inserts t only if its token is not taken; otherwise common.ErrConflict.
	Save(ctx context.Context, t *entity.AccessToken) error
	// Get returns common.ErrNotFound when the token is unknown.
	Get(ctx context.Context, token string) (*entity.AccessToken, error)
	// Revoke stamps RevokedAt once; revoking twice keeps the first stamp.
	Revoke(ctx context.Context, token string, at time.Time) error
}
