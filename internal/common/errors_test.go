package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", fmt.Errorf("%w: missing tenant_id", ErrValidation), http.StatusBadRequest},
		{"missing credential", ErrMissingCredential, http.StatusUnauthorized},
		{"unauthorized", ErrUnauthorized, http.StatusForbidden},
		{"invalid token", ErrInvalidToken, http.StatusForbidden},
		{"expired token", ErrExpiredToken, http.StatusForbidden},
		{"revoked token", ErrRevokedToken, http.StatusForbidden},
		{"not found", fmt.Errorf("rockie %w", ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("student_email %w", ErrConflict), http.StatusConflict},
		{"version conflict", ErrVersionConflict, http.StatusConflict},
		{"driver error", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: password authentication failed for user postgres")))
	assert.Equal(t, "validation error: missing tenant_id", PublicMessage(fmt.Errorf("%w: missing tenant_id", ErrValidation)))
	assert.Equal(t, "Token expired", PublicMessage(ErrExpiredToken))
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrNotFound, "user does not exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "user does not exist", PublicMessage(err))
	assert.Equal(t, 404, HTTPStatus(err))
}
