package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
)

// ServiceTokenHeader carries the short lived JWT other services present
// when calling /auth/validate.
const ServiceTokenHeader = "X-Service-Token"

const (
	serviceIssuer   = "rockie-api"
	serviceAudience = "rockie-auth-validate"
)

var (
	errNoServiceToken  = common.WithMessage(common.ErrMissingCredential, "missing service token")
	errBadServiceToken = common.WithMessage(common.ErrUnauthorized, "invalid service token")
)

// ServiceAuth signs and checks HS256 service tokens with a shared secret.
type ServiceAuth struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewServiceAuth returns nil for an empty secret, which disables the check.
func NewServiceAuth(secret string) *ServiceAuth {
	if secret == "" {
		return nil
	}
	return &ServiceAuth{key: []byte(secret), ttl: time.Minute, now: time.Now}
}

func (a *ServiceAuth) Mint() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    serviceIssuer,
		Audience:  jwt.ClaimStrings{serviceAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

func (a *ServiceAuth) Check(token string) error {
	if token == "" {
		return errNoServiceToken
	}
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(serviceIssuer),
		jwt.WithAudience(serviceAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return errBadServiceToken
	}
	return nil
}
