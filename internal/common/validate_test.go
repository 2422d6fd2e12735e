package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Email    string `json:"student_email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(payload{TenantID: "t1", Email: "a@x.com", Password: "p"}))

	err := ValidateStruct(payload{Email: "not-an-email"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation error: missing tenant_id, password; malformed student_email", err.Error())
}
