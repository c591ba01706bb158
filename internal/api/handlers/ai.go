package handlers

import (
	"net/http"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/rs/zerolog"
)

// AIHandler serves the advisor endpoints. A nil assistant means AI is not
// configured and every endpoint answers 503.
type AIHandler struct {
	assistant *finance.Assistant
	log       zerolog.Logger
}

func NewAIHandler(assistant *finance.Assistant, log zerolog.Logger) *AIHandler {
	return &AIHandler{assistant: assistant, log: log}
}

func (h *AIHandler) available(w http.ResponseWriter) bool {
	if h.assistant == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI is not configured")
		return false
	}
	return true
}

// Categorize handles POST /api/ai/categorize
func (h *AIHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req ai.CategorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.assistant.Categorize(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to categorize transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Chat handles POST /api/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := h.assistant.Chat(r.Context(), userID(r), req.Message)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get a reply from the advisor")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}

// History handles GET /api/ai/chat
func (h *AIHandler) History(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	msgs, err := h.assistant.History(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load chat history")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// ClearHistory handles DELETE /api/ai/chat
func (h *AIHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	if err := h.assistant.ClearHistory(r.Context(), userID(r)); err != nil {
		writeServiceError(w, r, err, "Failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Insights handles POST /api/ai/insights
func (h *AIHandler) Insights(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	out, err := h.assistant.Insights(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to generate insights")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
