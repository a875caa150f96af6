package leave

import (
	"fmt"
	"net/http"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
	}
}

// ApplyLeave handles POST /leaves
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto ApplyLeaveDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	view, err := h.Service.Apply(r.Context(), userID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, LeaveResponse{
		Message: "Leave applied successfully",
		Leave:   *view,
	})
}

// GetMyLeaves handles GET /leaves
func (h *Handler) GetMyLeaves(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}

	views, err := h.Service.ListOwn(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, views)
}

// CancelLeave handles DELETE /leaves/{id}
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Service.Cancel(r.Context(), userID, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, transport.MessageResponse{Message: "Leave cancelled successfully"})
}

// ListAllLeaves handles GET /admin/leaves
func (h *Handler) ListAllLeaves(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListFilter{
		EmployeeID: query.Get("employee"),
		Status:     query.Get("status"),
		Search:     query.Get("search"),
	}

	views, err := h.Service.ListAll(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, views)
}

// UpdateLeaveStatus handles PUT /admin/leaves/{id}/status
func (h *Handler) UpdateLeaveStatus(w http.ResponseWriter, r *http.Request) {
	var dto UpdateStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	view, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	logger.From(r.Context()).Info("leave decided", "leave_id", id, "status", view.Status)

	h.WriteJSON(w, http.StatusOK, LeaveResponse{
		Message: fmt.Sprintf("Leave %s successfully", view.Status),
		Leave:   *view,
	})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, internal.ErrMissingToken)
		return "", false
	}
	return userID, true
}
