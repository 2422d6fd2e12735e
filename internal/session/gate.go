package session

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// ProtectedFunc is a handler that runs only with a validated principal.
type ProtectedFunc func(w http.ResponseWriter, r *http.Request, ac entity.AuthContext)

// Gate resolves identity from the Authorization header before a protected
// handler runs.
type Gate struct {
	validator TokenValidator
	logger    *zap.SugaredLogger
}

func NewGate(v TokenValidator, logger *zap.SugaredLogger) *Gate {
	return &Gate{validator: v, logger: logger}
}

// TokenFromRequest accepts both "Bearer <token>" and a bare token.
func TokenFromRequest(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// Protect wraps op. op is not called unless the token validates, and the
// identity it receives always comes from the token.
func (g *Gate) Protect(op ProtectedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			common.WriteError(w, g.logger, "authorize", common.ErrMissingCredential)
			return
		}
		ac, err := g.validator.Validate(r.Context(), token)
		if err != nil {
			common.WriteError(w, g.logger, "authorize", err)
			return
		}
		op(w, r, ac)
	}
}
