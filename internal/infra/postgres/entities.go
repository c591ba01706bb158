package postgres

import (
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

func (s *Store) accounts() *ownedTable[domain.Account] {
	return &ownedTable[domain.Account]{
		s:       s,
		name:    "accounts",
		orderBy: "created_at",
		columns: []string{"name", "type", "balance", "currency", "is_active"},
		values: func(a *domain.Account) []any {
			return []any{a.Name, a.Type, a.Balance, a.Currency, a.IsActive}
		},
		fields: func(a *domain.Account) []any {
			return []any{&a.Name, &a.Type, &a.Balance, &a.Currency, &a.IsActive}
		},
		meta: func(a *domain.Account) (*string, *string, *time.Time, *time.Time) {
			return &a.ID, &a.UserID, &a.CreatedAt, &a.UpdatedAt
		},
	}
}

func (s *Store) budgets() *ownedTable[domain.Budget] {
	return &ownedTable[domain.Budget]{
		s:       s,
		name:    "budgets",
		orderBy: "created_at",
		columns: []string{"category_id", "name", "amount", "period", "alert_threshold", "start_date"},
		values: func(b *domain.Budget) []any {
			return []any{b.CategoryID, b.Name, b.Amount, b.Period, b.AlertThreshold, b.StartDate}
		},
		fields: func(b *domain.Budget) []any {
			return []any{&b.CategoryID, &b.Name, &b.Amount, &b.Period, &b.AlertThreshold, &b.StartDate}
		},
		meta: func(b *domain.Budget) (*string, *string, *time.Time, *time.Time) {
			return &b.ID, &b.UserID, &b.CreatedAt, &b.UpdatedAt
		},
	}
}

func (s *Store) familyMembers() *ownedTable[domain.FamilyMember] {
	return &ownedTable[domain.FamilyMember]{
		s:       s,
		name:    "family_members",
		orderBy: "name",
		columns: []string{"name", "relationship", "monthly_allowance"},
		values: func(m *domain.FamilyMember) []any {
			return []any{m.Name, m.Relationship, m.MonthlyAllowance}
		},
		fields: func(m *domain.FamilyMember) []any {
			return []any{&m.Name, &m.Relationship, &m.MonthlyAllowance}
		},
		meta: func(m *domain.FamilyMember) (*string, *string, *time.Time, *time.Time) {
			return &m.ID, &m.UserID, &m.CreatedAt, &m.UpdatedAt
		},
	}
}

var billColumns = []string{
	"name", "amount", "due_date", "frequency", "category_id", "account_id",
	"reminder_days", "is_paid", "last_paid_on", "last_reminded_on",
}

func (s *Store) bills() *ownedTable[domain.Bill] {
	return &ownedTable[domain.Bill]{
		s:       s,
		name:    "bills",
		orderBy: "due_date",
		columns: billColumns,
		values: func(b *domain.Bill) []any {
			return []any{b.Name, b.Amount, b.DueDate, b.Frequency, b.CategoryID, b.AccountID,
				b.ReminderDays, b.IsPaid, b.LastPaidOn, b.LastRemindedOn}
		},
		fields: func(b *domain.Bill) []any {
			return []any{&b.Name, &b.Amount, &b.DueDate, &b.Frequency, &b.CategoryID, &b.AccountID,
				&b.ReminderDays, &b.IsPaid, &b.LastPaidOn, &b.LastRemindedOn}
		},
		meta: func(b *domain.Bill) (*string, *string, *time.Time, *time.Time) {
			return &b.ID, &b.UserID, &b.CreatedAt, &b.UpdatedAt
		},
	}
}

func (s *Store) stocks() *ownedTable[domain.StockHolding] {
	return &ownedTable[domain.StockHolding]{
		s:       s,
		name:    "stocks",
		orderBy: "symbol",
		columns: []string{"symbol", "name", "shares", "purchase_price", "current_price", "purchase_date"},
		values: func(h *domain.StockHolding) []any {
			return []any{h.Symbol, h.Name, h.Shares, h.PurchasePrice, h.CurrentPrice, h.PurchaseDate}
		},
		fields: func(h *domain.StockHolding) []any {
			return []any{&h.Symbol, &h.Name, &h.Shares, &h.PurchasePrice, &h.CurrentPrice, &h.PurchaseDate}
		},
		meta: func(h *domain.StockHolding) (*string, *string, *time.Time, *time.Time) {
			return &h.ID, &h.UserID, &h.CreatedAt, &h.UpdatedAt
		},
	}
}

func (s *Store) crypto() *ownedTable[domain.CryptoHolding] {
	return &ownedTable[domain.CryptoHolding]{
		s:       s,
		name:    "crypto",
		orderBy: "coin_id",
		columns: []string{"coin_id", "symbol", "amount", "purchase_price", "current_price", "price_updated_at"},
		values: func(h *domain.CryptoHolding) []any {
			return []any{h.CoinID, h.Symbol, h.Amount, h.PurchasePrice, h.CurrentPrice, h.PriceUpdatedAt}
		},
		fields: func(h *domain.CryptoHolding) []any {
			return []any{&h.CoinID, &h.Symbol, &h.Amount, &h.PurchasePrice, &h.CurrentPrice, &h.PriceUpdatedAt}
		},
		meta: func(h *domain.CryptoHolding) (*string, *string, *time.Time, *time.Time) {
			return &h.ID, &h.UserID, &h.CreatedAt, &h.UpdatedAt
		},
	}
}

func (s *Store) metals() *ownedTable[domain.MetalHolding] {
	return &ownedTable[domain.MetalHolding]{
		s:       s,
		name:    "precious_metals",
		orderBy: "metal",
		columns: []string{"metal", "weight_grams", "purchase_price_per_gram", "current_price_per_gram"},
		values: func(h *domain.MetalHolding) []any {
			return []any{h.Metal, h.WeightGrams, h.PurchasePricePerGram, h.CurrentPricePerGram}
		},
		fields: func(h *domain.MetalHolding) []any {
			return []any{&h.Metal, &h.WeightGrams, &h.PurchasePricePerGram, &h.CurrentPricePerGram}
		},
		meta: func(h *domain.MetalHolding) (*string, *string, *time.Time, *time.Time) {
			return &h.ID, &h.UserID, &h.CreatedAt, &h.UpdatedAt
		},
	}
}
