package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/shopspring/decimal"
)

type holdingsRepo struct {
	s *Store
}

func (h *holdingsRepo) Stocks() store.Owned[domain.StockHolding]  { return h.s.stocks() }
func (h *holdingsRepo) Crypto() store.Owned[domain.CryptoHolding] { return h.s.crypto() }
func (h *holdingsRepo) Metals() store.Owned[domain.MetalHolding]  { return h.s.metals() }

// UpdateCryptoPrices sets current_price on the caller's holdings of each coin.
func (h *holdingsRepo) UpdateCryptoPrices(ctx context.Context, userID string, prices map[string]decimal.Decimal, at time.Time) (int, error) {
	var n int64
	err := h.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		for coin, price := range prices {
			tag, err := tx.Exec(ctx,
				`UPDATE crypto SET current_price = $1, price_updated_at = $2, updated_at = now()
				 WHERE user_id = $3 AND coin_id = $4`,
				price, at, userID, coin)
			if err != nil {
				return err
			}
			n += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateCryptoPrices: %w", err)
	}
	return int(n), nil
}

// UpdateMetalPrices sets current_price_per_gram on the caller's metal holdings.
func (h *holdingsRepo) UpdateMetalPrices(ctx context.Context, userID string, prices map[domain.Metal]decimal.Decimal) (int, error) {
	var n int64
	err := h.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		for metal, price := range prices {
			tag, err := tx.Exec(ctx,
				`UPDATE precious_metals SET current_price_per_gram = $1, updated_at = now()
				 WHERE user_id = $2 AND metal = $3`,
				price, userID, metal)
			if err != nil {
				return err
			}
			n += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateMetalPrices: %w", err)
	}
	return int(n), nil
}
