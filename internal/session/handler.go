package session

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// Handler exposes login, token validation and logout.
type Handler struct {
	issuer    *Issuer
	validator TokenValidator
	service   *ServiceAuth
	logger    *zap.SugaredLogger
}

func NewHandler(issuer *Issuer, validator TokenValidator, logger *zap.SugaredLogger) *Handler {
	return &Handler{issuer: issuer, validator: validator, logger: logger}
}

// RequireServiceToken makes /auth/validate reject callers without a valid
// service token. A nil a leaves the endpoint open.
func (h *Handler) RequireServiceToken(a *ServiceAuth) *Handler {
	h.service = a
	return h
}

// LoginRequest identifies the student by email or by id.
type LoginRequest struct {
	TenantID     string `json:"tenant_id"`
	StudentEmail string `json:"student_email"`
	StudentID    string `json:"student_id"`
	Password     string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, "login", err)
		return
	}
	by, key := ByEmail, req.StudentEmail
	if strings.TrimSpace(key) == "" {
		by, key = ByID, req.StudentID
	}
	sess, err := h.issuer.Login(r.Context(), req.TenantID, by, key, req.Password)
	if err != nil {
		common.WriteError(w, h.logger, "login", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, sess)
}

type ValidateRequest struct {
	Token string `json:"token"`
}

type Principal struct {
	TenantID  string `json:"tenant_id"`
	StudentID string `json:"student_id"`
}

// ValidateResponse carries either Principal (200) or Body (failure text).
type ValidateResponse struct {
	StatusCode int        `json:"statusCode"`
	Principal  *Principal `json:"principal,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Body       string     `json:"body,omitempty"`
}

// Validate serves other services. The token comes from the body, falling
// back to the Authorization header.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.service != nil {
		if err := h.service.Check(r.Header.Get(ServiceTokenHeader)); err != nil {
			h.logger.Warnw("validate caller rejected", "remote", r.RemoteAddr, "err", err)
			h.writeValidate(w, err)
			return
		}
	}
	var req ValidateRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			h.writeValidate(w, err)
			return
		}
	}
	if req.Token == "" {
		req.Token = TokenFromRequest(r)
	}
	if req.Token == "" {
		// an absent token is just an invalid one here; the gate answers 401
		h.writeValidate(w, common.ErrInvalidToken)
		return
	}
	ac, err := h.validator.Validate(r.Context(), req.Token)
	if err != nil {
		h.logger.Debugw("token rejected", "err", err)
		h.writeValidate(w, err)
		return
	}
	exp := ac.ExpiresAt
	common.WriteJSON(w, http.StatusOK, ValidateResponse{
		StatusCode: http.StatusOK,
		Principal:  &Principal{TenantID: ac.TenantID, StudentID: ac.StudentID},
		ExpiresAt:  &exp,
	})
}

func (h *Handler) writeValidate(w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("validate failed", "err", err)
	}
	common.WriteJSON(w, status, ValidateResponse{StatusCode: status, Body: common.PublicMessage(err)})
}

// Logout revokes the token the request was authorized with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, ac entity.AuthContext) {
	if err := h.issuer.Logout(r.Context(), TokenFromRequest(r)); err != nil {
		common.WriteError(w, h.logger, "logout", err)
		return
	}
	h.logger.Infow("session revoked", "tenant_id", ac.TenantID, "student_id", ac.StudentID)
	w.WriteHeader(http.StatusNoContent)
}
