package session

import (
	"context"
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/repo"
)

// TokenValidator resolves a token to its principal. Implementations never
// modify the token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (entity.AuthContext, error)
}

// PrincipalChecker reports whether a principal still exists.
type PrincipalChecker interface {
	Exists(ctx context.Context, tenantID, studentID string) (bool, error)
}

// Validator validates against the local token store.
type Validator struct {
	tokens     repo.Repository
	principals PrincipalChecker
	now        func() time.Time
}

// NewValidator builds a Validator. principals may be nil, in which case a
// token of a deleted student keeps validating until it expires.
func NewValidator(tokens repo.Repository, principals PrincipalChecker) *Validator {
	return &Validator{tokens: tokens, principals: principals, now: time.Now}
}

var _ TokenValidator = (*Validator)(nil)

func (v *Validator) Validate(ctx context.Context, token string) (entity.AuthContext, error) {
	ac, err := v.validate(ctx, token)
	validationsTotal.WithLabelValues(validationResult(err)).Inc()
	return ac, err
}

func (v *Validator) validate(ctx context.Context, token string) (entity.AuthContext, error) {
	if token == "" {
		return entity.AuthContext{}, common.ErrMissingCredential
	}
	t, err := v.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return entity.AuthContext{}, common.ErrInvalidToken
		}
		return entity.AuthContext{}, err
	}
	switch t.State(v.now()) {
	case entity.Revoked:
		return entity.AuthContext{}, common.ErrRevokedToken
	case entity.Expired:
		return entity.AuthContext{}, common.ErrExpiredToken
	}
	if v.principals != nil {
		ok, err := v.principals.Exists(ctx, t.TenantID, t.StudentID)
		if err != nil {
			return entity.AuthContext{}, err
		}
		if !ok {
			return entity.AuthContext{}, common.ErrInvalidToken
		}
	}
	return entity.AuthContext{TenantID: t.TenantID, StudentID: t.StudentID, ExpiresAt: t.ExpiresAt}, nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, common.ErrMissingCredential):
		return "missing"
	case errors.Is(err, common.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, common.ErrExpiredToken):
		return "expired"
	case errors.Is(err, common.ErrRevokedToken):
		return "revoked"
	default:
		return "error"
	}
}
