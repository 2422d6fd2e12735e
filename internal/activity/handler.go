package activity

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	sessionentity "github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// Handler exposes the authenticated student's activities. Routes carry the
// id as {activity_id}.
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
		common.WriteError(w, h.logger, "create activity", err)
		return
	}
	a, err := h.svc.Create(r.Context(), ac.TenantID, ac.StudentID, req)
	if err != nil {
		common.WriteError(w, h.logger, "create activity", err)
		return
	}
	h.logger.Infow("activity created", "tenant_id", ac.TenantID, "student_id", ac.StudentID, "activity_id", a.ActivityID)
	common.WriteJSON(w, http.StatusCreated, a.View())
}

// List reads activity_type, limit and after from the query string.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	qs := r.URL.Query()
	q := entity.ListQuery{
		TenantID:     ac.TenantID,
		StudentID:    ac.StudentID,
		ActivityType: qs.Get("activity_type"),
		After:        qs.Get("after"),
	}
	if raw := qs.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteError(w, h.logger, "list activities", fmt.Errorf("%w: limit must be an integer", common.ErrValidation))
			return
		}
		q.Limit = n
	}
	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		common.WriteError(w, h.logger, "list activities", err)
		return
	}
	items := make([]map[string]any, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, a.View())
	}
	resp := map[string]any{"items": items}
	if page.Next != "" {
		resp["next"] = page.Next
	}
	common.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	a, err := h.svc.Get(r.Context(), ac.TenantID, ac.StudentID, r.PathValue("activity_id"))
	if err != nil {
		common.WriteError(w, h.logger, "get activity", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, a.View())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	var patch map[string]any
	if err := common.DecodeJSON(r, &patch); err != nil {
		common.WriteError(w, h.logger, "update activity", err)
		return
	}
	a, err := h.svc.Update(r.Context(), ac.TenantID, ac.StudentID, r.PathValue("activity_id"), patch)
	if err != nil {
		common.WriteError(w, h.logger, "update activity", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, a.View())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ac sessionentity.AuthContext) {
	if err := h.svc.Delete(r.Context(), ac.TenantID, ac.StudentID, r.PathValue("activity_id")); err != nil {
		common.WriteError(w, h.logger, "delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
