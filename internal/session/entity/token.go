// Package entity holds session token records and the identity resolved
// from them.
package entity

import "time"

// State is computed on read; nothing sweeps expired tokens.
type State int

const (
	Valid State = iota
	Expired
	Revoked
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Revoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// AccessToken binds an opaque token to a principal until ExpiresAt.
// The principal never changes after creation.
type AccessToken struct {
	Token     string     `db:"token" json:"token"`
	TenantID  string     `db:"tenant_id" json:"tenant_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// State reports the token's lifecycle state at now. A token is still valid
// at exactly ExpiresAt.
func (t *AccessToken) State(now time.Time) State {
	switch {
	case t.RevokedAt != nil:
		return Revoked
	case now.After(t.ExpiresAt):
		return Expired
	default:
		return Valid
	}
}

// AuthContext is the principal resolved from a valid token. Handlers take
// identity from here and never from the request body.
type AuthContext struct {
	TenantID  string    `json:"tenant_id"`
	StudentID string    `json:"student_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is what a successful login returns.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
