package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/shopspring/decimal"
)

const maxNameSize = 100

var themes = map[string]bool{"light": true, "dark": true, "system": true}

func requireName(field string, name *string) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return invalid(field, "is required")
	}
	if len(*name) > maxNameSize {
		return invalid(field, "must be at most %d characters", maxNameSize)
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return invalid(field, "must not be negative")
	}
	return nil
}

// currencyOrDefault normalizes code, falling back to the user's currency.
func (s *Service) currencyOrDefault(ctx context.Context, userID, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		u, err := s.user(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("loading user: %w", err)
		}
		return domain.NormalizeCurrency(u.Currency), nil
	}
	if len(code) != 3 {
		return "", invalid("currency", "must be a 3-letter ISO code")
	}
	return domain.NormalizeCurrency(code), nil
}

func (s *Service) checkRef(ctx context.Context, field string, get func() error) error {
	err := get()
	if errors.Is(err, store.ErrNotFound) {
		return invalid(field, "unknown reference")
	}
	return err
}

// PrepareAccount validates and normalizes an account before it is stored.
func (s *Service) PrepareAccount(ctx context.Context, a *domain.Account) error {
	if err := requireName("name", &a.Name); err != nil {
		return err
	}
	if !a.Type.Valid() {
		return invalid("type", "must be one of checking, savings, credit, cash, investment, loan")
	}
	cur, err := s.currencyOrDefault(ctx, a.UserID, a.Currency)
	if err != nil {
		return err
	}
	a.Currency = cur
	return nil
}

// PrepareCategory validates a user category. Defaults can only be seeded.
func (s *Service) PrepareCategory(ctx context.Context, c *domain.Category) error {
	if err := requireName("name", &c.Name); err != nil {
		return err
	}
	if c.Type != domain.TransactionIncome && c.Type != domain.TransactionExpense {
		return invalid("type", "must be income or expense")
	}
	c.IsDefault = false
	return nil
}

// PrepareBudget validates a budget and its optional category.
func (s *Service) PrepareBudget(ctx context.Context, b *domain.Budget) error {
	if err := requireName("name", &b.Name); err != nil {
		return err
	}
	if !b.Amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !domain.FitsMoneyScale(b.Amount) {
		return invalid("amount", "must have at most %d decimal places", domain.MoneyPlaces)
	}
	if b.Period == "" {
		b.Period = domain.BudgetMonthly
	}
	if !b.Period.Valid() {
		return invalid("period", "must be weekly, monthly or yearly")
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = 80
	}
	if b.AlertThreshold < 1 || b.AlertThreshold > 100 {
		return invalid("alert_threshold", "must be between 1 and 100")
	}
	if b.StartDate.IsZero() {
		b.StartDate = today(s.now())
	}
	b.CategoryID = emptyToNil(b.CategoryID)
	if b.CategoryID != nil {
		return s.checkRef(ctx, "category_id", func() error {
			c, err := s.repo.Categories().Get(ctx, b.UserID, *b.CategoryID)
			if err == nil && c.Type != domain.TransactionExpense {
				return invalid("category_id", "budgets need an expense category")
			}
			return err
		})
	}
	return nil
}

// PrepareBill validates a bill and its optional category and account.
func (s *Service) PrepareBill(ctx context.Context, b *domain.Bill) error {
	if err := requireName("name", &b.Name); err != nil {
		return err
	}
	if !b.Amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !domain.FitsMoneyScale(b.Amount) {
		return invalid("amount", "must have at most %d decimal places", domain.MoneyPlaces)
	}
	if b.DueDate.IsZero() {
		return invalid("due_date", "is required")
	}
	if b.Frequency == "" {
		b.Frequency = domain.BillMonthly
	}
	if !b.Frequency.Valid() {
		return invalid("frequency", "must be once, weekly, monthly, quarterly or yearly")
	}
	if b.ReminderDays < 0 || b.ReminderDays > 60 {
		return invalid("reminder_days", "must be between 0 and 60")
	}
	b.CategoryID = emptyToNil(b.CategoryID)
	b.AccountID = emptyToNil(b.AccountID)
	if b.CategoryID != nil {
		if err := s.checkRef(ctx, "category_id", func() error {
			_, err := s.repo.Categories().Get(ctx, b.UserID, *b.CategoryID)
			return err
		}); err != nil {
			return err
		}
	}
	if b.AccountID != nil {
		return s.checkRef(ctx, "account_id", func() error {
			_, err := s.repo.Accounts().Get(ctx, b.UserID, *b.AccountID)
			return err
		})
	}
	return nil
}

func (s *Service) PrepareFamilyMember(ctx context.Context, m *domain.FamilyMember) error {
	if err := requireName("name", &m.Name); err != nil {
		return err
	}
	m.Relationship = strings.TrimSpace(m.Relationship)
	if m.MonthlyAllowance != nil {
		return nonNegative("monthly_allowance", *m.MonthlyAllowance)
	}
	return nil
}

func (s *Service) PrepareStock(ctx context.Context, h *domain.StockHolding) error {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if h.Symbol == "" {
		return invalid("symbol", "is required")
	}
	if !h.Shares.IsPositive() {
		return invalid("shares", "must be greater than zero")
	}
	if err := nonNegative("purchase_price", h.PurchasePrice); err != nil {
		return err
	}
	if h.CurrentPrice.IsZero() {
		h.CurrentPrice = h.PurchasePrice
	}
	return nonNegative("current_price", h.CurrentPrice)
}

func (s *Service) PrepareCrypto(ctx context.Context, h *domain.CryptoHolding) error {
	h.CoinID = strings.ToLower(strings.TrimSpace(h.CoinID))
	if h.CoinID == "" {
		return invalid("coin_id", "is required")
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if !h.Amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if err := nonNegative("purchase_price", h.PurchasePrice); err != nil {
		return err
	}
	if h.CurrentPrice.IsZero() {
		h.CurrentPrice = h.PurchasePrice
	}
	return nonNegative("current_price", h.CurrentPrice)
}

func (s *Service) PrepareMetal(ctx context.Context, h *domain.MetalHolding) error {
	h.Metal = domain.Metal(strings.ToLower(string(h.Metal)))
	if !h.Metal.Valid() {
		return invalid("metal", "must be gold, silver, platinum or palladium")
	}
	if !h.WeightGrams.IsPositive() {
		return invalid("weight_grams", "must be greater than zero")
	}
	if err := nonNegative("purchase_price_per_gram", h.PurchasePricePerGram); err != nil {
		return err
	}
	if h.CurrentPricePerGram.IsZero() {
		h.CurrentPricePerGram = h.PurchasePricePerGram
	}
	return nonNegative("current_price_per_gram", h.CurrentPricePerGram)
}

// Profile returns the caller's profile, creating it on first use.
func (s *Service) Profile(ctx context.Context, userID, email string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		u, err = s.repo.EnsureUser(ctx, userID, email)
	}
	if err != nil {
		return nil, fmt.Errorf("Profile: %w", err)
	}
	return u, nil
}

// ProfileInput holds the editable profile fields. Nil fields are unchanged.
type ProfileInput struct {
	FullName       *string `json:"full_name"`
	Currency       *string `json:"currency"`
	Theme          *string `json:"theme"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

// UpdateProfile applies in to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput, info RequestInfo) (*domain.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("UpdateProfile: loading user: %w", err)
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if len(name) > maxNameSize {
			return nil, invalid("full_name", "must be at most %d characters", maxNameSize)
		}
		u.FullName = name
	}
	if in.Currency != nil {
		c := strings.TrimSpace(*in.Currency)
		if len(c) != 3 {
			return nil, invalid("currency", "must be a 3-letter ISO code")
		}
		u.Currency = domain.NormalizeCurrency(c)
	}
	if in.Theme != nil {
		if !themes[*in.Theme] {
			return nil, invalid("theme", "must be light, dark or system")
		}
		u.Theme = *in.Theme
	}
	if in.TelegramChatID != nil {
		if *in.TelegramChatID == 0 {
			u.TelegramChatID = nil
		} else {
			id := *in.TelegramChatID
			u.TelegramChatID = &id
		}
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("UpdateProfile: %w", err)
	}
	s.Track(ctx, userID, "profile.updated", "profile", userID, nil, info)
	return u, nil
}
