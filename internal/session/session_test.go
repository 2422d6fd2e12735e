package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/password"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/resource"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/repo"
	studententity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
	studentrepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/repo"
)

type fixture struct {
	students  *studentrepo.MemoryRepo
	tokens    *repo.MemoryRepo
	hasher    password.BcryptHasher
	issuer    *Issuer
	validator *Validator
	clock     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	f := &fixture{
		students: studentrepo.NewMemoryRepo(),
		tokens:   repo.NewMemoryRepo(),
		hasher:   password.BcryptHasher{Cost: bcrypt.MinCost},
		clock:    &now,
	}
	clock := func() time.Time { return *f.clock }
	f.issuer = NewIssuer(f.students, f.tokens, f.hasher, 0, zap.NewNop().Sugar())
	f.issuer.now = clock
	f.validator = NewValidator(f.tokens, f.students)
	f.validator.now = clock
	return f
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) register(t *testing.T, tenant, id, email, pw string) {
	t.Helper()
	hash, algo, err := f.hasher.Hash(pw)
	require.NoError(t, err)
	f.registerHash(t, tenant, id, email, hash, algo)
}

func (f *fixture) registerHash(t *testing.T, tenant, id, email, hash, algo string) {
	t.Helper()
	require.NoError(t, f.students.Create(context.Background(), &studententity.Student{
		TenantID: tenant, StudentID: id, StudentEmail: email,
		PasswordHash: hash, PasswordAlgo: algo,
		Data: resource.Document{}, Version: 1,
	}))
}

func TestLoginThenValidate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ctx := context.Background()

	sess, err := f.issuer.Login(ctx, "t1", ByEmail, "A@x.com", "secret")
	require.NoError(t, err)
	assert.Len(t, sess.Token, 36)
	assert.Equal(t, f.clock.Add(DefaultTTL), sess.ExpiresAt)

	ac, err := f.validator.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "t1", ac.TenantID)
	assert.Equal(t, "s1", ac.StudentID)

	// idempotent and side-effect free
	again, err := f.validator.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, ac, again)
	stored, err := f.tokens.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ExpiresAt, stored.ExpiresAt)
}

func TestLoginByStudentID(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	sess, err := f.issuer.Login(context.Background(), "t1", ByID, "s1", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestLoginKeyIsNotGuessed(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "kid@home", "a@x.com", "secret")
	ctx := context.Background()

	sess, err := f.issuer.Login(ctx, "t1", ByID, "kid@home", "secret")
	require.NoError(t, err)
	ac, err := f.validator.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "kid@home", ac.StudentID)

	// an id is never looked up as an email and the other way round
	_, err = f.issuer.Login(ctx, "t1", ByEmail, "kid@home", "secret")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.issuer.Login(ctx, "t1", ByID, "a@x.com", "secret")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ctx := context.Background()

	_, err := f.issuer.Login(ctx, "t1", ByEmail, "b@x.com", "secret")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "user does not exist", err.Error())

	_, err = f.issuer.Login(ctx, "t2", ByEmail, "a@x.com", "secret")
	assert.ErrorIs(t, err, common.ErrNotFound)

	for _, pw := range []string{"Secret", "secret ", " secret", "secre", "SECRET"} {
		_, err = f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", pw)
		assert.ErrorIs(t, err, common.ErrUnauthorized, "password %q", pw)
	}

	_, err = f.issuer.Login(ctx, "", ByEmail, "a@x.com", "")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "password")

	_, err = f.issuer.Login(ctx, "t1", ByID, "  ", "secret")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "missing student_email or student_id")
}

func TestMultipleConcurrentSessions(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ctx := context.Background()

	a, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	b, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)

	_, err = f.validator.Validate(ctx, a.Token)
	assert.NoError(t, err)
	_, err = f.validator.Validate(ctx, b.Token)
	assert.NoError(t, err)
}

func TestExpiry(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	f.issuer.ttl = time.Second
	ctx := context.Background()

	sess, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)

	f.advance(time.Second)
	_, err = f.validator.Validate(ctx, sess.Token)
	assert.NoError(t, err, "valid at exactly expires_at")

	f.advance(time.Second)
	_, err = f.validator.Validate(ctx, sess.Token)
	assert.ErrorIs(t, err, common.ErrExpiredToken)
	assert.Equal(t, "Token expired", err.Error())
}

func TestValidateUnknownAndMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.validator.Validate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Equal(t, "Token does not exist", err.Error())

	_, err = f.validator.Validate(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrMissingCredential)
}

func TestLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ctx := context.Background()

	a, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	b, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)

	require.NoError(t, f.issuer.Logout(ctx, a.Token))
	_, err = f.validator.Validate(ctx, a.Token)
	assert.ErrorIs(t, err, common.ErrRevokedToken)

	// other sessions are untouched
	_, err = f.validator.Validate(ctx, b.Token)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.issuer.Logout(ctx, "unknown"), common.ErrInvalidToken)
}

func TestOrphanedTokenIsInvalid(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ctx := context.Background()

	sess, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	require.NoError(t, f.students.Delete(ctx, "t1", "s1"))

	_, err = f.validator.Validate(ctx, sess.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	// without a principal check the token itself is still well formed
	bare := NewValidator(f.tokens, nil)
	bare.now = f.validator.now
	_, err = bare.Validate(ctx, sess.Token)
	assert.NoError(t, err)
}

func TestLoginRehashesLegacyDigest(t *testing.T) {
	f := newFixture(t)
	f.registerHash(t, "t1", "s1", "a@x.com", password.LegacyDigest("secret"), password.AlgoLegacySHA256)
	ctx := context.Background()

	_, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)

	st, err := f.students.GetByID(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.False(t, password.IsLegacyDigest(st.PasswordHash))
	assert.Equal(t, "bcrypt:4", st.PasswordAlgo)

	// the upgraded hash keeps working
	_, err = f.issuer.Login(ctx, "t1", ByID, "s1", "secret")
	assert.NoError(t, err)
}

func TestTokenCollisionRetries(t *testing.T) {
	f := newFixture(t)
	f.register(t, "t1", "s1", "a@x.com", "secret")
	ids := []string{"dup", "dup", "fresh"}
	f.issuer.newToken = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()

	first, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "dup", first.Token)
	second, err := f.issuer.Login(ctx, "t1", ByEmail, "a@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.Token)
}
