package handlers

import (
	"net/http"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
)

const defaultNotificationLimit = 50

// NotificationsHandler lists notifications and marks them read.
type NotificationsHandler struct {
	svc *finance.Service
}

func NewNotificationsHandler(svc *finance.Service) *NotificationsHandler {
	return &NotificationsHandler{svc: svc}
}

// ListNotifications handles GET /api/notifications?unread=true&limit=
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultNotificationLimit)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit == 0 {
		limit = defaultNotificationLimit
	}
	unread := r.URL.Query().Get("unread") == "true"

	list, err := h.svc.Store().ListNotifications(r.Context(), userID(r), unread, limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list notifications")
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	unreadCount := 0
	for _, n := range list {
		if !n.IsRead {
			unreadCount++
		}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"count":         len(list),
		"unread":        unreadCount,
	})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	owner, id := userID(r), r.PathValue("id")
	if err := h.svc.Store().MarkNotificationRead(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, err, "Failed to mark notification read")
		return
	}
	h.svc.Publish(owner, "notifications", realtime.ActionUpdate, map[string]interface{}{"id": id, "is_read": true})
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	n, err := h.svc.Store().MarkAllNotificationsRead(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err, "Failed to mark notifications read")
		return
	}
	if n > 0 {
		h.svc.Publish(owner, "notifications", realtime.ActionUpdate, map[string]interface{}{"all_read": true})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
