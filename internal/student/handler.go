package student

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	sessionentity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// Handler exposes HTTP endpoints for student registration and the
// authenticated student's own record.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, "register", err)
		return
	}
	st, err := h.svc.Register(r.Context(), req)
	if err != nil {
		common.WriteError(w, h.logger, "register", err)
		return
	}
	h.logger.Infow("student registered", "tenant_id", st.TenantID, "student_id", st.StudentID)
	common.WriteJSON(w, http.StatusOK, st.View())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	st, err := h.svc.Get(r.Context(), ac.TenantID, ac.StudentID)
	if err != nil {
		common.WriteError(w, h.logger, "get student", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, st.View())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	var patch map[string]any
	if err := common.DecodeJSON(r, &patch); err != nil {
		common.WriteError(w, h.logger, "update student", err)
		return
	}
	st, err := h.svc.Update(r.Context(), ac.TenantID, ac.StudentID, patch)
	if err != nil {
		common.WriteError(w, h.logger, "update student", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, st.View())
}

// ChangePasswordRequest is the body of PUT /students/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	var req ChangePasswordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, "change password", err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), ac.TenantID, ac.StudentID, req.CurrentPassword, req.NewPassword); err != nil {
		common.WriteError(w, h.logger, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	if err := h.svc.Delete(r.Context(), ac.TenantID, ac.StudentID); err != nil {
		common.WriteError(w, h.logger, "delete student", err)
		return
	}
	h.logger.Infow("student deleted", "tenant_id", ac.TenantID, "student_id", ac.StudentID)
	w.WriteHeader(http.StatusNoContent)
}
