package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/news"
)

// NewsSource fetches headlines.
type NewsSource interface {
	Headlines(ctx context.Context, category, q string) ([]news.Article, error)
}

// MarketHandler serves quotes, holding refreshes and news.
type MarketHandler struct {
	svc    *finance.Service
	prices finance.PriceSource
	news   NewsSource
}

// NewMarketHandler creates a market handler. prices and news may be nil.
func NewMarketHandler(svc *finance.Service, prices finance.PriceSource, news NewsSource) *MarketHandler {
	return &MarketHandler{svc: svc, prices: prices, news: news}
}

// CryptoPrices handles GET /api/market/crypto?ids=&vs=
func (h *MarketHandler) CryptoPrices(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		writeServiceError(w, r, finance.ErrNoPriceSource, "")
		return
	}
	ids := market.NormalizeIDs(strings.Split(r.URL.Query().Get("ids"), ","))
	if len(ids) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "ids is required")
		return
	}
	vs := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("vs")))
	if vs == "" {
		vs = "usd"
	}
	quotes, err := h.prices.CryptoPrices(r.Context(), ids, vs)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch crypto prices")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": quotes,
		"vs":     vs,
	})
}

// MetalPrices handles GET /api/market/metals
func (h *MarketHandler) MetalPrices(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		writeServiceError(w, r, finance.ErrNoPriceSource, "")
		return
	}
	prices, err := h.prices.MetalPrices(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch metal prices")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
		"unit":   "gram",
	})
}

// RefreshCrypto handles POST /api/holdings/crypto/refresh
func (h *MarketHandler) RefreshCrypto(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RefreshCryptoPrices(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to refresh crypto prices")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// RefreshMetals handles POST /api/holdings/metals/refresh
func (h *MarketHandler) RefreshMetals(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RefreshMetalPrices(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to refresh metal prices")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// News handles GET /api/news?category=&q=
func (h *MarketHandler) News(w http.ResponseWriter, r *http.Request) {
	if h.news == nil {
		writeServiceError(w, r, news.ErrNotConfigured, "")
		return
	}
	q := r.URL.Query()
	articles, err := h.news.Headlines(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch news")
		return
	}
	if articles == nil {
		articles = []news.Article{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
	})
}
