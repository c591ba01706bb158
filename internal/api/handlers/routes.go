package handlers

import (
	"net/http"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
)

// Handlers groups every endpoint group served by the API.
type Handlers struct {
	Transactions  *TransactionsHandler
	Dashboard     *DashboardHandler
	AI            *AIHandler
	Market        *MarketHandler
	Activity      *ActivityHandler
	Resources     *Resources
	Bills         *BillsHandler
	Profile       *ProfileHandler
	Notifications *NotificationsHandler
	Imports       *ImportsHandler
	Realtime      *realtime.Hub
}

// crud is the route surface of a Resource.
type crud interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

func registerCRUD(mux *http.ServeMux, prefix string, h crud) {
	mux.HandleFunc("GET "+prefix, h.List)
	mux.HandleFunc("POST "+prefix, h.Create)
	mux.HandleFunc("GET "+prefix+"/{id}", h.Get)
	mux.HandleFunc("PUT "+prefix+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", h.Delete)
}

// Register mounts every route on mux.
func Register(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /api/dashboard", h.Dashboard.GetDashboard)

	mux.HandleFunc("GET /api/transactions", h.Transactions.ListTransactions)
	mux.HandleFunc("POST /api/transactions", h.Transactions.CreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", h.Transactions.GetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", h.Transactions.UpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.Transactions.DeleteTransaction)

	mux.HandleFunc("POST /api/ai/categorize", h.AI.Categorize)
	mux.HandleFunc("GET /api/ai/chat", h.AI.History)
	mux.HandleFunc("POST /api/ai/chat", h.AI.Chat)
	mux.HandleFunc("DELETE /api/ai/chat", h.AI.ClearHistory)
	mux.HandleFunc("POST /api/ai/insights", h.AI.Insights)

	mux.HandleFunc("GET /api/market/crypto", h.Market.CryptoPrices)
	mux.HandleFunc("GET /api/market/metals", h.Market.MetalPrices)
	mux.HandleFunc("POST /api/holdings/crypto/refresh", h.Market.RefreshCrypto)
	mux.HandleFunc("POST /api/holdings/metals/refresh", h.Market.RefreshMetals)
	mux.HandleFunc("GET /api/news", h.Market.News)

	mux.HandleFunc("POST /api/activity", h.Activity.TrackActivity)
	mux.HandleFunc("GET /api/activity", h.Activity.ListActivity)

	registerCRUD(mux, "/api/accounts", h.Resources.Accounts)
	registerCRUD(mux, "/api/categories", h.Resources.Categories)
	registerCRUD(mux, "/api/budgets", h.Resources.Budgets)
	registerCRUD(mux, "/api/bills", h.Resources.Bills)
	registerCRUD(mux, "/api/family-members", h.Resources.FamilyMembers)
	registerCRUD(mux, "/api/holdings/stocks", h.Resources.Stocks)
	registerCRUD(mux, "/api/holdings/crypto", h.Resources.Crypto)
	registerCRUD(mux, "/api/holdings/metals", h.Resources.Metals)
	mux.HandleFunc("POST /api/bills/{id}/pay", h.Bills.PayBill)

	mux.HandleFunc("GET /api/profile", h.Profile.GetProfile)
	mux.HandleFunc("PUT /api/profile", h.Profile.UpdateProfile)
	mux.HandleFunc("PUT /api/profile/avatar", h.Profile.UploadAvatar)

	mux.HandleFunc("GET /api/notifications", h.Notifications.ListNotifications)
	mux.HandleFunc("POST /api/notifications/read-all", h.Notifications.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.Notifications.MarkRead)

	mux.HandleFunc("POST /api/imports", h.Imports.CreateImport)
	mux.HandleFunc("GET /api/imports", h.Imports.ListImports)
	mux.HandleFunc("GET /api/imports/{id}", h.Imports.GetImport)
	mux.HandleFunc("GET /api/jobs", h.Imports.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.Imports.GetJob)

	if h.Realtime != nil {
		mux.HandleFunc("GET /api/realtime", func(w http.ResponseWriter, r *http.Request) {
			h.Realtime.Serve(w, r, userID(r))
		})
	}
}
