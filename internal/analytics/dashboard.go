package analytics

import (
	"sort"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	TrendMonths        = 6
	UpcomingBillDays   = 30
	RecentTransactions = 10

	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"

	uncategorized = "Uncategorized"
)

var hundred = decimal.NewFromInt(100)

// Totals are the income and expense sums of a period. Transfers are excluded.
type Totals struct {
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Net         decimal.Decimal `json:"net"`
	SavingsRate decimal.Decimal `json:"savings_rate"`
}

// ComputeTotals sums the transactions of p.
func ComputeTotals(txs []domain.Transaction, p Period) Totals {
	var t Totals
	for _, tx := range txs {
		if !p.Contains(tx.OccurredOn) {
			continue
		}
		switch tx.Type {
		case domain.TransactionIncome:
			t.Income = t.Income.Add(tx.Amount)
		case domain.TransactionExpense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expenses)
	t.SavingsRate = domain.Percent(t.Net, t.Income)
	return t
}

// NetWorth splits net worth by asset class.
type NetWorth struct {
	Accounts decimal.Decimal `json:"accounts"`
	Stocks   decimal.Decimal `json:"stocks"`
	Crypto   decimal.Decimal `json:"crypto"`
	Metals   decimal.Decimal `json:"metals"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeNetWorth adds active account balances and holding market values.
// Positive balances on credit and loan accounts are debt and subtract.
func ComputeNetWorth(accounts []domain.Account, stocks []domain.StockHolding, crypto []domain.CryptoHolding, metals []domain.MetalHolding) NetWorth {
	var nw NetWorth
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		if a.Type.IsLiability() && a.Balance.IsPositive() {
			nw.Accounts = nw.Accounts.Sub(a.Balance)
		} else {
			nw.Accounts = nw.Accounts.Add(a.Balance)
		}
	}
	for _, s := range stocks {
		nw.Stocks = nw.Stocks.Add(s.MarketValue())
	}
	for _, c := range crypto {
		nw.Crypto = nw.Crypto.Add(c.MarketValue())
	}
	for _, m := range metals {
		nw.Metals = nw.Metals.Add(m.MarketValue())
	}
	nw.Total = nw.Accounts.Add(nw.Stocks).Add(nw.Crypto).Add(nw.Metals)
	return nw
}

// CategorySpend is one row of the expense breakdown.
type CategorySpend struct {
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percent    decimal.Decimal `json:"percent"`
	Count      int             `json:"count"`
}

// CategoryBreakdown groups the expenses of p by category, largest first.
func CategoryBreakdown(txs []domain.Transaction, p Period) []CategorySpend {
	groups := map[string]*CategorySpend{}
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != domain.TransactionExpense || !p.Contains(tx.OccurredOn) {
			continue
		}
		key, name := "", uncategorized
		if tx.CategoryID != nil {
			key = *tx.CategoryID
			if tx.CategoryName != "" {
				name = tx.CategoryName
			}
		}
		g, ok := groups[key]
		if !ok {
			g = &CategorySpend{CategoryID: key, Name: name}
			groups[key] = g
		}
		g.Amount = g.Amount.Add(tx.Amount)
		g.Count++
		total = total.Add(tx.Amount)
	}

	out := make([]CategorySpend, 0, len(groups))
	for _, g := range groups {
		g.Percent = domain.Percent(g.Amount, total)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthTotals is one month of the trend.
type MonthTotals struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// MonthlyTrend returns the last n calendar months up to now, oldest first.
// Months without transactions are present with zero totals.
func MonthlyTrend(txs []domain.Transaction, now time.Time, n int) []MonthTotals {
	first := startOfMonth(now).AddDate(0, -(n - 1), 0)
	out := make([]MonthTotals, n)
	for i := range out {
		out[i].Month = first.AddDate(0, i, 0).Format("2006-01")
	}
	for _, tx := range txs {
		m := startOfMonth(tx.OccurredOn)
		if m.Before(first) {
			continue
		}
		idx := (m.Year()-first.Year())*12 + int(m.Month()) - int(first.Month())
		if idx >= n {
			continue
		}
		switch tx.Type {
		case domain.TransactionIncome:
			out[idx].Income = out[idx].Income.Add(tx.Amount)
		case domain.TransactionExpense:
			out[idx].Expenses = out[idx].Expenses.Add(tx.Amount)
		}
	}
	for i := range out {
		out[i].Net = out[i].Income.Sub(out[i].Expenses)
	}
	return out
}

// BudgetStatus is a budget's progress in its current window.
type BudgetStatus struct {
	domain.Budget
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	Status      string          `json:"status"`
}

// BudgetState classifies percent used against an alert threshold.
func BudgetState(percent decimal.Decimal, threshold int) string {
	switch {
	case percent.GreaterThan(hundred):
		return StatusExceeded
	case percent.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold))):
		return StatusWarning
	}
	return StatusOK
}

// SpentInWindow sums the expenses b covers within w. A budget without a
// category covers every expense.
func SpentInWindow(b domain.Budget, txs []domain.Transaction, w Period) decimal.Decimal {
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Type != domain.TransactionExpense || !w.Contains(tx.OccurredOn) {
			continue
		}
		if b.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *b.CategoryID) {
			continue
		}
		spent = spent.Add(tx.Amount)
	}
	return spent
}

// EvaluateBudget computes b's status at now.
func EvaluateBudget(b domain.Budget, txs []domain.Transaction, now time.Time) BudgetStatus {
	w := BudgetWindow(b.Period, now)
	spent := SpentInWindow(b, txs, w)
	pct := domain.Percent(spent, b.Amount)
	return BudgetStatus{
		Budget:      b,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		Spent:       spent,
		Remaining:   b.Amount.Sub(spent),
		PercentUsed: pct,
		Status:      BudgetState(pct, b.AlertThreshold),
	}
}

// BudgetStatuses evaluates every budget.
func BudgetStatuses(budgets []domain.Budget, txs []domain.Transaction, now time.Time) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, EvaluateBudget(b, txs, now))
	}
	return out
}

// UpcomingBill is an unpaid bill with its distance from today in days.
type UpcomingBill struct {
	domain.Bill
	DaysUntilDue int `json:"days_until_due"`
}

// DaysUntil counts whole days from today to due; negative when overdue.
func DaysUntil(due, now time.Time) int {
	return int(startOfDay(due).Sub(startOfDay(now)).Hours() / 24)
}

// UpcomingBills lists unpaid bills due within horizon days, overdue ones
// included, by ascending due date.
func UpcomingBills(bills []domain.Bill, now time.Time, horizon int) []UpcomingBill {
	out := []UpcomingBill{}
	for _, b := range bills {
		if b.IsPaid {
			continue
		}
		days := DaysUntil(b.DueDate, now)
		if days > horizon {
			continue
		}
		out = append(out, UpcomingBill{Bill: b, DaysUntilDue: days})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

// Recent returns the n latest transactions.
func Recent(txs []domain.Transaction, n int) []domain.Transaction {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredOn.Equal(sorted[j].OccurredOn) {
			return sorted[i].OccurredOn.After(sorted[j].OccurredOn)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Input is everything a dashboard is computed from.
type Input struct {
	Currency     string
	Transactions []domain.Transaction
	Accounts     []domain.Account
	Budgets      []domain.Budget
	Bills        []domain.Bill
	Stocks       []domain.StockHolding
	Crypto       []domain.CryptoHolding
	Metals       []domain.MetalHolding
}

// Dashboard is the response of the dashboard endpoint.
type Dashboard struct {
	Period             Period               `json:"period"`
	Currency           string               `json:"currency"`
	Totals             Totals               `json:"totals"`
	NetWorth           NetWorth             `json:"net_worth"`
	CategoryBreakdown  []CategorySpend      `json:"category_breakdown"`
	MonthlyTrend       []MonthTotals        `json:"monthly_trend"`
	Budgets            []BudgetStatus       `json:"budgets"`
	UpcomingBills      []UpcomingBill       `json:"upcoming_bills"`
	RecentTransactions []domain.Transaction `json:"recent_transactions"`
	Formatted          map[string]string    `json:"formatted"`
}

// Build computes the dashboard for period p at now.
func Build(in Input, p Period, now time.Time) Dashboard {
	currency := domain.NormalizeCurrency(in.Currency)
	d := Dashboard{
		Period:             p,
		Currency:           currency,
		Totals:             ComputeTotals(in.Transactions, p),
		NetWorth:           ComputeNetWorth(in.Accounts, in.Stocks, in.Crypto, in.Metals),
		CategoryBreakdown:  CategoryBreakdown(in.Transactions, p),
		MonthlyTrend:       MonthlyTrend(in.Transactions, now, TrendMonths),
		Budgets:            BudgetStatuses(in.Budgets, in.Transactions, now),
		UpcomingBills:      UpcomingBills(in.Bills, now, UpcomingBillDays),
		RecentTransactions: Recent(in.Transactions, RecentTransactions),
	}
	d.Formatted = map[string]string{
		"income":       domain.FormatMoney(d.Totals.Income, currency),
		"expenses":     domain.FormatMoney(d.Totals.Expenses, currency),
		"net":          domain.FormatMoney(d.Totals.Net, currency),
		"net_worth":    domain.FormatMoney(d.NetWorth.Total, currency),
		"savings_rate": d.Totals.SavingsRate.StringFixed(2) + "%",
	}
	return d
}
