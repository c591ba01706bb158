package handlers

import (
	"net/http"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	svc *finance.Service
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *finance.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var f store.TransactionFilter

	if s := query.Get("start_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		f.Start = d
	}
	if s := query.Get("end_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		// end_date is inclusive for clients
		f.End = d.AddDate(0, 0, 1)
	}
	if t := query.Get("type"); t != "" {
		f.Type = domain.TransactionType(t)
		if !f.Type.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid type")
			return
		}
	}
	f.CategoryID = query.Get("category_id")
	f.AccountID = query.Get("account_id")

	var ok bool
	if f.Limit, ok = queryInt(r, "limit", 0); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if f.Offset, ok = queryInt(r, "offset", 0); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in finance.TransactionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	tx, err := h.svc.CreateTransaction(r.Context(), userID(r), in, requestInfo(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in finance.TransactionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	tx, err := h.svc.UpdateTransaction(r.Context(), userID(r), r.PathValue("id"), in, requestInfo(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), userID(r), r.PathValue("id"), requestInfo(r)); err != nil {
		writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardHandler serves the aggregated dashboard.
type DashboardHandler struct {
	svc *finance.Service
}

func NewDashboardHandler(svc *finance.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetDashboard handles GET /api/dashboard?period=
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), userID(r), r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to build dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}
