package finance

import (
	"context"
	"fmt"

	"github.com/ns-gamming/ns-tracker-sub000/internal/analytics"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// Dashboard loads the caller's rows and computes the dashboard for the
// named period (week, month, quarter or year).
func (s *Service) Dashboard(ctx context.Context, userID, period string) (*analytics.Dashboard, error) {
	now := s.now().UTC()
	p, err := analytics.ParsePeriod(period, now)
	if err != nil {
		return nil, invalid("period", "must be week, month, quarter or year")
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: loading user: %w", err)
	}

	start, end := analytics.LoadRange(p, now, analytics.TrendMonths)
	in := analytics.Input{Currency: user.Currency}
	if in.Transactions, err = s.repo.ListTransactions(ctx, userID, store.TransactionFilter{Start: start, End: end}); err != nil {
		return nil, fmt.Errorf("Dashboard: transactions: %w", err)
	}
	accounts, err := s.repo.Accounts().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: accounts: %w", err)
	}
	for _, a := range accounts {
		if a.IsActive {
			in.Accounts = append(in.Accounts, a)
		}
	}
	if in.Budgets, err = s.repo.Budgets().List(ctx, userID); err != nil {
		return nil, fmt.Errorf("Dashboard: budgets: %w", err)
	}
	if in.Bills, err = s.repo.Bills().List(ctx, userID); err != nil {
		return nil, fmt.Errorf("Dashboard: bills: %w", err)
	}
	h := s.repo.Holdings()
	if in.Stocks, err = h.Stocks().List(ctx, userID); err != nil {
		return nil, fmt.Errorf("Dashboard: stocks: %w", err)
	}
	if in.Crypto, err = h.Crypto().List(ctx, userID); err != nil {
		return nil, fmt.Errorf("Dashboard: crypto: %w", err)
	}
	if in.Metals, err = h.Metals().List(ctx, userID); err != nil {
		return nil, fmt.Errorf("Dashboard: metals: %w", err)
	}

	d := analytics.Build(in, p, now)
	return &d, nil
}

// FinancialContext is the text handed to the AI advisor: the monthly
// dashboard summary and a few recent transactions.
func (s *Service) FinancialContext(ctx context.Context, userID string) (string, []string, error) {
	d, err := s.Dashboard(ctx, userID, "month")
	if err != nil {
		return "", nil, err
	}
	recent := make([]string, 0, len(d.RecentTransactions))
	for _, tx := range d.RecentTransactions {
		recent = append(recent, analytics.Describe(tx))
	}
	return analytics.Summary(*d), recent, nil
}
