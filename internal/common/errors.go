// Package common holds the error taxonomy shared by every layer of the
// service and its mapping onto HTTP status codes.
package common

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// request errors
	ErrValidation        = errors.New("validation error")
	ErrMissingCredential = errors.New("missing authorization token")

	// authentication errors
	ErrUnauthorized = errors.New("incorrect password")
	ErrInvalidToken = errors.New("Token does not exist")
	ErrExpiredToken = errors.New("Token expired")
	ErrRevokedToken = errors.New("Token revoked")

	// repository errors
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	ErrInternal = errors.New("internal error")
)

// HTTPStatus maps an error from any layer to the status code returned to
// clients. Unknown errors are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrRevokedToken):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to a client for err.
// Errors outside the taxonomy never leak their text.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return ErrInternal.Error()
	}
	return strings.TrimSpace(err.Error())
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// WithMessage returns an error that matches kind under errors.Is but
// reads as msg.
func WithMessage(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
