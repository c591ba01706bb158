package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityHandler records and lists the caller's audit trail.
type ActivityHandler struct {
	svc *finance.Service
}

func NewActivityHandler(svc *finance.Service) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// TrackActivity handles POST /api/activity
func (h *ActivityHandler) TrackActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     string          `json:"action"`
		EntityType string          `json:"entity_type"`
		EntityID   string          `json:"entity_id"`
		Metadata   json.RawMessage `json:"metadata"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		middleware.WriteError(w, http.StatusBadRequest, "action is required")
		return
	}

	info := requestInfo(r)
	a := &domain.Activity{
		UserID:     userID(r),
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		IP:         info.IP,
		UserAgent:  info.UserAgent,
	}
	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		a.Metadata = req.Metadata
	}
	if err := h.svc.Store().LogActivity(r.Context(), a); err != nil {
		writeServiceError(w, r, err, "Failed to record activity")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, a)
}

// ListActivity handles GET /api/activity?limit=
func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultActivityLimit)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit == 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	entries, err := h.svc.Store().ListActivity(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list activity")
		return
	}
	if entries == nil {
		entries = []domain.Activity{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"activity": entries,
		"count":    len(entries),
	})
}
