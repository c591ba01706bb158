package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/analytics"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit   = 100
	MaxListLimit       = 1000
	DefaultListMonths  = 12
	maxDescriptionSize = 500
	dateLayout         = "2006-01-02"
)

// TransactionInput is the client payload for creating or replacing a
// transaction.
type TransactionInput struct {
	AccountID      *string                `json:"account_id"`
	ToAccountID    *string                `json:"to_account_id"`
	CategoryID     *string                `json:"category_id"`
	FamilyMemberID *string                `json:"family_member_id"`
	Type           domain.TransactionType `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	Description    string                 `json:"description"`
	Merchant       string                 `json:"merchant"`
	Date           string                 `json:"date"`
	Notes          string                 `json:"notes"`
	Tags           []string               `json:"tags"`
	AutoCategorize *bool                  `json:"auto_categorize"`
}

func emptyToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// build validates in and resolves its references against the caller's rows.
func (s *Service) build(ctx context.Context, userID string, in TransactionInput, user *domain.User) (*domain.Transaction, error) {
	if !in.Type.Valid() {
		return nil, invalid("type", "must be income, expense or transfer")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !domain.FitsMoneyScale(in.Amount) {
		return nil, invalid("amount", "must have at most %d decimal places", domain.MoneyPlaces)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, invalid("description", "is required")
	}
	if len(desc) > maxDescriptionSize {
		return nil, invalid("description", "must be at most %d characters", maxDescriptionSize)
	}

	occurred := today(s.now())
	if in.Date != "" {
		d, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return nil, invalid("date", "must be YYYY-MM-DD")
		}
		occurred = d
	}

	currency := user.Currency
	if in.Currency != "" {
		currency = strings.ToUpper(strings.TrimSpace(in.Currency))
		if len(currency) != 3 {
			return nil, invalid("currency", "must be a 3-letter ISO code")
		}
	}

	tx := &domain.Transaction{
		UserID:         userID,
		AccountID:      emptyToNil(in.AccountID),
		ToAccountID:    emptyToNil(in.ToAccountID),
		CategoryID:     emptyToNil(in.CategoryID),
		FamilyMemberID: emptyToNil(in.FamilyMemberID),
		Type:           in.Type,
		Amount:         in.Amount,
		Currency:       domain.NormalizeCurrency(currency),
		Description:    desc,
		Merchant:       strings.TrimSpace(in.Merchant),
		OccurredOn:     occurred,
		Notes:          in.Notes,
		Tags:           in.Tags,
		Source:         domain.SourceManual,
	}

	if tx.Type == domain.TransactionTransfer {
		if tx.AccountID == nil || tx.ToAccountID == nil {
			return nil, invalid("to_account_id", "transfers need both account_id and to_account_id")
		}
		if *tx.AccountID == *tx.ToAccountID {
			return nil, invalid("to_account_id", "must differ from account_id")
		}
		tx.CategoryID = nil
	} else {
		tx.ToAccountID = nil
	}

	refs := []struct {
		field string
		id    *string
	}{{"account_id", tx.AccountID}, {"to_account_id", tx.ToAccountID}}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if _, err := s.repo.Accounts().Get(ctx, userID, *ref.id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid(ref.field, "unknown account")
			}
			return nil, err
		}
	}
	if tx.CategoryID != nil {
		c, err := s.repo.Categories().Get(ctx, userID, *tx.CategoryID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("category_id", "unknown category")
			}
			return nil, err
		}
		if c.Type != tx.Type {
			return nil, invalid("category_id", "category %q is for %s transactions", c.Name, c.Type)
		}
	}
	if tx.FamilyMemberID != nil {
		if _, err := s.repo.FamilyMembers().Get(ctx, userID, *tx.FamilyMemberID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("family_member_id", "unknown family member")
			}
			return nil, err
		}
	}
	return tx, nil
}

// categorize asks the model for a category. Failures leave tx uncategorized.
func (s *Service) categorize(ctx context.Context, tx *domain.Transaction) {
	if s.categorizer == nil || tx.CategoryID != nil || tx.Type == domain.TransactionTransfer {
		return
	}
	cats, err := s.repo.Categories().List(ctx, tx.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", tx.UserID).Msg("Failed to list categories for categorization")
		return
	}
	res, err := s.categorizer.Categorize(ctx, ai.CategorizeRequest{
		Description: tx.Description,
		Merchant:    tx.Merchant,
		Amount:      tx.Amount,
		Type:        tx.Type,
	}, cats)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", tx.UserID).Msg("AI categorization failed, storing uncategorized")
		return
	}
	id := res.CategoryID
	tx.CategoryID = &id
	tx.AICategorized = true
}

// ListTransactions applies the default window and limit to f.
func (s *Service) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, invalid("type", "must be income, expense or transfer")
	}
	if f.Start.IsZero() && f.End.IsZero() {
		f.Start = today(s.now()).AddDate(0, -DefaultListMonths, 0)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return nil, invalid("end_date", "must not be before start_date")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	txs, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, nil
}

// CreateTransaction validates in, optionally categorizes it with AI, stores
// it together with its balance effect and then records activity, publishes
// change events and checks budgets.
func (s *Service) CreateTransaction(ctx context.Context, userID string, in TransactionInput, info RequestInfo) (*domain.Transaction, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: loading user: %w", err)
	}
	tx, err := s.build(ctx, userID, in, user)
	if err != nil {
		return nil, err
	}
	if in.AutoCategorize == nil || *in.AutoCategorize {
		s.categorize(ctx, tx)
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	s.Track(ctx, userID, "transaction.created", "transaction", tx.ID, map[string]any{
		"type": tx.Type, "amount": tx.Amount.String(), "ai_categorized": tx.AICategorized,
	}, info)
	s.Publish(userID, "transactions", realtime.ActionInsert, tx)
	s.publishAccounts(ctx, userID, tx.BalanceEffects())
	s.checkBudgets(ctx, userID, tx, nil)
	return tx, nil
}

// GetTransaction returns one of the caller's transactions.
func (s *Service) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

// UpdateTransaction replaces a transaction, moving its balance effect.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id string, in TransactionInput, info RequestInfo) (*domain.Transaction, error) {
	old, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: loading user: %w", err)
	}
	tx, err := s.build(ctx, userID, in, user)
	if err != nil {
		return nil, err
	}
	tx.ID = old.ID
	tx.Source = old.Source
	if in.Date == "" {
		tx.OccurredOn = old.OccurredOn
	}
	if tx.CategoryID != nil && old.CategoryID != nil && *tx.CategoryID == *old.CategoryID {
		tx.AICategorized = old.AICategorized
	}
	if in.AutoCategorize != nil && *in.AutoCategorize {
		s.categorize(ctx, tx)
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	s.Track(ctx, userID, "transaction.updated", "transaction", tx.ID, nil, info)
	s.Publish(userID, "transactions", realtime.ActionUpdate, tx)
	s.publishAccounts(ctx, userID, domain.MergeDeltas(domain.Reverse(old.BalanceEffects()), tx.BalanceEffects()))
	s.checkBudgets(ctx, userID, tx, old)
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id string, info RequestInfo) error {
	tx, err := s.repo.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	s.Track(ctx, userID, "transaction.deleted", "transaction", id, nil, info)
	s.Publish(userID, "transactions", realtime.ActionDelete, map[string]string{"id": id})
	s.publishAccounts(ctx, userID, domain.Reverse(tx.BalanceEffects()))
	return nil
}

func (s *Service) publishAccounts(ctx context.Context, userID string, deltas []domain.BalanceDelta) {
	if s.events == nil {
		return
	}
	for _, d := range deltas {
		a, err := s.repo.Accounts().Get(ctx, userID, d.AccountID)
		if err != nil {
			continue
		}
		s.Publish(userID, "accounts", realtime.ActionUpdate, a)
	}
}

var stateRank = map[string]int{
	analytics.StatusOK:       0,
	analytics.StatusWarning:  1,
	analytics.StatusExceeded: 2,
}

// countsToward reports whether t is spending inside budget b's window w.
func countsToward(b domain.Budget, w analytics.Period, t *domain.Transaction) bool {
	if t == nil || t.Type != domain.TransactionExpense || !w.Contains(t.OccurredOn) {
		return false
	}
	return b.CategoryID == nil || (t.CategoryID != nil && *t.CategoryID == *b.CategoryID)
}

// checkBudgets notifies once per budget whose status got worse because of tx.
// replaced is the previous version of tx on update and nil otherwise.
func (s *Service) checkBudgets(ctx context.Context, userID string, tx, replaced *domain.Transaction) {
	if tx.Type != domain.TransactionExpense {
		return
	}
	budgets, err := s.repo.Budgets().List(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to list budgets for alert check")
		return
	}
	now := s.now()
	for _, b := range budgets {
		w := analytics.BudgetWindow(b.Period, now)
		if !countsToward(b, w, tx) {
			continue
		}
		f := store.TransactionFilter{Start: w.Start, End: w.End, Type: domain.TransactionExpense}
		if b.CategoryID != nil {
			f.CategoryID = *b.CategoryID
		}
		txs, err := s.repo.ListTransactions(ctx, userID, f)
		if err != nil {
			s.log.Warn().Err(err).Str("budget_id", b.ID).Msg("Failed to load budget transactions")
			continue
		}
		after := analytics.SpentInWindow(b, txs, w)
		before := after.Sub(tx.Amount)
		if countsToward(b, w, replaced) {
			before = before.Add(replaced.Amount)
		}
		prev := analytics.BudgetState(domain.Percent(before, b.Amount), b.AlertThreshold)
		pct := domain.Percent(after, b.Amount)
		cur := analytics.BudgetState(pct, b.AlertThreshold)
		if stateRank[cur] <= stateRank[prev] {
			continue
		}

		user, _ := s.user(ctx, userID)
		currency := domain.DefaultCurrency
		if user != nil {
			currency = user.Currency
		}
		title := "Budget warning: " + b.Name
		if cur == analytics.StatusExceeded {
			title = "Budget exceeded: " + b.Name
		}
		s.notify(ctx, &domain.Notification{
			UserID: userID,
			Title:  title,
			Message: fmt.Sprintf("You have spent %s of %s (%s%%) this %s.",
				domain.FormatMoney(after, currency), domain.FormatMoney(b.Amount, currency), pct.StringFixed(0), w.Name),
			Kind: domain.NotificationBudgetAlert,
			Link: "/budgets/" + b.ID,
		})
	}
}
