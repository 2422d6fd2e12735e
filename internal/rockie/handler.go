package rockie

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	sessionentity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// Handler exposes the authenticated student's rockie.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	var req CreateInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, "create rockie", err)
		return
	}
	rk, err := h.svc.Create(r.Context(), ac.TenantID, ac.StudentID, req)
	if err != nil {
		common.WriteError(w, h.logger, "create rockie", err)
		return
	}
	h.logger.Infow("rockie created", "tenant_id", ac.TenantID, "student_id", ac.StudentID)
	common.WriteJSON(w, http.StatusCreated, rk.View())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	rk, err := h.svc.Get(r.Context(), ac.TenantID, ac.StudentID)
	if err != nil {
		common.WriteError(w, h.logger, "get rockie", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, rk.View())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	var patch map[string]any
	if err := common.DecodeJSON(r, &patch); err != nil {
		common.WriteError(w, h.logger, "update rockie", err)
		return
	}
	rk, err := h.svc.Update(r.Context(), ac.TenantID, ac.StudentID, patch)
	if err != nil {
		common.WriteError(w, h.logger, "update rockie", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, rk.View())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	if err := h.svc.Delete(r.Context(), ac.TenantID, ac.StudentID); err != nil {
		common.WriteError(w, h.logger, "delete rockie", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
