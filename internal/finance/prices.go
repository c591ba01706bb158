package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/shopspring/decimal"
)

// ErrNoPriceSource is returned by the refresh operations when market data
// is not configured.
var ErrNoPriceSource = errors.New("market data is not configured")

// PriceRefresh reports how many holdings were repriced.
type PriceRefresh struct {
	Updated int `json:"updated"`
	// Missing lists holdings the provider had no quote for.
	Missing []string `json:"missing"`
}

// RefreshCryptoPrices reprices the caller's crypto holdings in the user's
// currency.
func (s *Service) RefreshCryptoPrices(ctx context.Context, userID string) (*PriceRefresh, error) {
	if s.prices == nil {
		return nil, ErrNoPriceSource
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("RefreshCryptoPrices: loading user: %w", err)
	}
	holdings, err := s.repo.Holdings().Crypto().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("RefreshCryptoPrices: %w", err)
	}
	out := &PriceRefresh{Missing: []string{}}
	if len(holdings) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.CoinID)
	}
	quotes, err := s.prices.CryptoPrices(ctx, market.NormalizeIDs(ids), strings.ToLower(user.Currency))
	if err != nil {
		return nil, fmt.Errorf("RefreshCryptoPrices: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(quotes))
	for id, q := range quotes {
		prices[id] = q.Price
	}
	for _, h := range holdings {
		if _, ok := prices[h.CoinID]; !ok {
			out.Missing = append(out.Missing, h.CoinID)
		}
	}

	if out.Updated, err = s.repo.Holdings().UpdateCryptoPrices(ctx, userID, prices, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("RefreshCryptoPrices: %w", err)
	}
	if updated, err := s.repo.Holdings().Crypto().List(ctx, userID); err == nil {
		for i := range updated {
			s.Publish(userID, "crypto", realtime.ActionUpdate, &updated[i])
		}
	}
	return out, nil
}

// RefreshMetalPrices reprices the caller's precious metal holdings.
func (s *Service) RefreshMetalPrices(ctx context.Context, userID string) (*PriceRefresh, error) {
	if s.prices == nil {
		return nil, ErrNoPriceSource
	}
	holdings, err := s.repo.Holdings().Metals().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("RefreshMetalPrices: %w", err)
	}
	out := &PriceRefresh{Missing: []string{}}
	if len(holdings) == 0 {
		return out, nil
	}

	prices, err := s.prices.MetalPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("RefreshMetalPrices: %w", err)
	}
	for _, h := range holdings {
		if _, ok := prices[h.Metal]; !ok {
			out.Missing = append(out.Missing, string(h.Metal))
		}
	}

	if out.Updated, err = s.repo.Holdings().UpdateMetalPrices(ctx, userID, prices); err != nil {
		return nil, fmt.Errorf("RefreshMetalPrices: %w", err)
	}
	if updated, err := s.repo.Holdings().Metals().List(ctx, userID); err == nil {
		for i := range updated {
			s.Publish(userID, "precious_metals", realtime.ActionUpdate, &updated[i])
		}
	}
	return out, nil
}
