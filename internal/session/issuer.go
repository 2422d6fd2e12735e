// Package session issues, validates and revokes opaque access tokens and
// guards protected handlers with them.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/password"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/repo"
	studententity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
	studentrepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/repo"
)

const DefaultTTL = 60 * time.Minute

var errUserNotFound = common.WithMessage(common.ErrNotFound, "user does not exist")

type Issuer struct {
	students studentrepo.Repository
	tokens   repo.Repository
	hasher   password.Hasher
	ttl      time.Duration
	logger   *zap.SugaredLogger
	newToken func() string
	now      func() time.Time
}

func NewIssuer(students studentrepo.Repository, tokens repo.Repository, hasher password.Hasher, ttl time.Duration, logger *zap.SugaredLogger) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Issuer{
		students: students,
		tokens:   tokens,
		hasher:   hasher,
		ttl:      ttl,
		logger:   logger,
		newToken: uuid.NewString,
		now:      time.Now,
	}
}

// LoginBy selects the key a student is looked up by at login.
type LoginBy int

const (
	ByEmail LoginBy = iota
	ByID
)

// Login checks the password of the student whose email or id is key and
// stores a fresh token. Every successful login creates a new session.
func (i *Issuer) Login(ctx context.Context, tenantID string, by LoginBy, key, pw string) (entity.Session, error) {
	tenantID = strings.TrimSpace(tenantID)
	key = strings.TrimSpace(key)
	var missing []string
	if tenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if key == "" {
		missing = append(missing, "student_email or student_id")
	}
	if pw == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return entity.Session{}, fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}

	var (
		st  *studententity.Student
		err error
	)
	switch by {
	case ByEmail:
		st, err = i.students.GetByEmail(ctx, tenantID, studententity.NormalizeEmail(key))
	case ByID:
		st, err = i.students.GetByID(ctx, tenantID, key)
	default:
		return entity.Session{}, fmt.Errorf("%w: unknown login key", common.ErrValidation)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			loginsTotal.WithLabelValues("unknown_user").Inc()
			return entity.Session{}, errUserNotFound
		}
		loginsTotal.WithLabelValues("error").Inc()
		return entity.Session{}, err
	}
	if !i.hasher.Verify(st.PasswordHash, pw) {
		loginsTotal.WithLabelValues("bad_password").Inc()
		return entity.Session{}, common.ErrUnauthorized
	}
	if i.hasher.NeedsRehash(st.PasswordHash) {
		i.rehash(ctx, st, pw)
	}

	now := i.now().UTC()
	tok := &entity.AccessToken{
		TenantID:  st.TenantID,
		StudentID: st.StudentID,
		ExpiresAt: now.Add(i.ttl),
		CreatedAt: now,
	}
	// a collision on a v4 uuid means the generator is broken; retry a couple of times anyway
	for attempt := 0; ; attempt++ {
		tok.Token = i.newToken()
		err = i.tokens.Save(ctx, tok)
		if err == nil || !errors.Is(err, common.ErrConflict) || attempt == 2 {
			break
		}
	}
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return entity.Session{}, fmt.Errorf("save token: %w", err)
	}
	loginsTotal.WithLabelValues("ok").Inc()
	i.logger.Infow("session issued", "tenant_id", st.TenantID, "student_id", st.StudentID, "expires_at", tok.ExpiresAt)
	return entity.Session{Token: tok.Token, ExpiresAt: tok.ExpiresAt}, nil
}

// rehash upgrades a legacy or outdated hash. Failure only costs the upgrade.
func (i *Issuer) rehash(ctx context.Context, st *studententity.Student, pw string) {
	hash, algo, err := i.hasher.Hash(pw)
	if err == nil {
		err = i.students.UpdatePassword(ctx, st.TenantID, st.StudentID, hash, algo)
	}
	if err != nil {
		i.logger.Warnw("password rehash failed", "tenant_id", st.TenantID, "student_id", st.StudentID, "err", err)
		return
	}
	rehashesTotal.Inc()
	i.logger.Infow("password rehashed", "tenant_id", st.TenantID, "student_id", st.StudentID, "algo", algo)
}

// Logout revokes token. Unknown tokens are ErrInvalidToken.
func (i *Issuer) Logout(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrMissingCredential
	}
	if err := i.tokens.Revoke(ctx, token, i.now()); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	return nil
}
