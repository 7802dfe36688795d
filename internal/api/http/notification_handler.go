package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/service"
)

type notificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
	Page          int32                 `json:"page"`
}

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func queryInt32(r *http.Request, name string) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError("%s must be an integer", name)
	}
	return int32(v), nil
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := queryInt32(r, "page")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	pageSize, err := queryInt32(r, "page_size")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	notes, total, err := h.svc.GetNotifications(ctx, userID, page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	if page < 1 {
		page = 1
	}
	respondJSON(w, http.StatusOK, notificationListResponse{Notifications: notes, Total: total, Page: page})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.svc.MarkAsRead(ctx, userID, mux.Vars(r)["id"]); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
