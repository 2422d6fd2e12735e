package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
)

func TestServiceAuthRoundTrip(t *testing.T) {
	a := NewServiceAuth("s3cret")
	tok, err := a.Mint()
	require.NoError(t, err)
	assert.NoError(t, a.Check(tok))

	assert.ErrorIs(t, a.Check(""), common.ErrMissingCredential)
	assert.ErrorIs(t, NewServiceAuth("other").Check(tok), common.ErrUnauthorized)
	assert.ErrorIs(t, a.Check(tok+"x"), common.ErrUnauthorized)

	later := time.Now().Add(2 * time.Minute)
	a.now = func() time.Time { return later }
	assert.ErrorIs(t, a.Check(tok), common.ErrUnauthorized)

	assert.Nil(t, NewServiceAuth(""))
}

func TestValidateEndpointRequiresServiceToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	logger := zap.NewNop().Sugar()
	auth := NewServiceAuth("s3cret")

	h := NewHandler(f.issuer, f.validator, logger).RequireServiceToken(auth)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/validate", h.Validate)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := f.issuer.Login(context.Background(), "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)

	// anonymous callers are turned away before the token is looked at
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/validate", strings.NewReader(`{"token":"`+sess.Token+`"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"body":"missing service token"}`, rec.Body.String())

	_, err = newRemote(t, srv.URL).Validate(context.Background(), sess.Token)
	assert.Error(t, err)

	ac, err := newRemote(t, srv.URL).WithServiceAuth(auth).Validate(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "s1", ac.StudentID)
}
