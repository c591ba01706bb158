package handlers

import (
	"net/http"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
)

// BillsHandler handles bill actions beyond CRUD.
type BillsHandler struct {
	svc *finance.Service
}

func NewBillsHandler(svc *finance.Service) *BillsHandler {
	return &BillsHandler{svc: svc}
}

// PayBill handles POST /api/bills/{id}/pay
func (h *BillsHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.PayBill(r.Context(), userID(r), r.PathValue("id"), requestInfo(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to pay bill")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
