package analytics

import (
	"testing"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *string { return &s }

func tx(typ domain.TransactionType, amount string, on time.Time, category *string, name string) domain.Transaction {
	return domain.Transaction{Type: typ, Amount: dec(amount), OccurredOn: on, CategoryID: category, CategoryName: name}
}

// Wednesday
var now = time.Date(2025, 5, 14, 15, 30, 0, 0, time.UTC)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name  string
		want  string
		start time.Time
		end   time.Time
	}{
		{"", "month", day(2025, 5, 1), day(2025, 6, 1)},
		{"month", "month", day(2025, 5, 1), day(2025, 6, 1)},
		{"week", "week", day(2025, 5, 12), day(2025, 5, 19)},
		{"quarter", "quarter", day(2025, 4, 1), day(2025, 7, 1)},
		{"year", "year", day(2025, 1, 1), day(2026, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.name, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, tt.start, p.Start)
			assert.Equal(t, tt.end, p.End)
		})
	}

	_, err := ParsePeriod("decade", now)
	assert.Error(t, err)
}

func TestParsePeriodSundayBelongsToPreviousWeek(t *testing.T) {
	p, err := ParsePeriod("week", day(2025, 5, 18))
	require.NoError(t, err)
	assert.Equal(t, day(2025, 5, 12), p.Start)
}

func TestComputeTotals(t *testing.T) {
	p, _ := ParsePeriod("month", now)
	txs := []domain.Transaction{
		tx(domain.TransactionIncome, "3000", day(2025, 5, 1), nil, ""),
		tx(domain.TransactionExpense, "1000.50", day(2025, 5, 3), nil, ""),
		tx(domain.TransactionTransfer, "500", day(2025, 5, 4), nil, ""),
		tx(domain.TransactionExpense, "999", day(2025, 4, 30), nil, ""),
	}

	got := ComputeTotals(txs, p)
	assert.Equal(t, "3000", got.Income.String())
	assert.Equal(t, "1000.5", got.Expenses.String())
	assert.Equal(t, "1999.5", got.Net.String())
	assert.Equal(t, "66.65", got.SavingsRate.String())
}

func TestComputeTotalsNoIncome(t *testing.T) {
	p, _ := ParsePeriod("month", now)
	got := ComputeTotals([]domain.Transaction{tx(domain.TransactionExpense, "10", day(2025, 5, 2), nil, "")}, p)
	assert.True(t, got.SavingsRate.IsZero())
	assert.Equal(t, "-10", got.Net.String())
}

func TestComputeNetWorth(t *testing.T) {
	accounts := []domain.Account{
		{Type: domain.AccountChecking, Balance: dec("1000"), IsActive: true},
		{Type: domain.AccountCredit, Balance: dec("200"), IsActive: true},
		{Type: domain.AccountSavings, Balance: dec("5000"), IsActive: false},
	}
	stocks := []domain.StockHolding{{Shares: dec("2"), CurrentPrice: dec("150")}}
	crypto := []domain.CryptoHolding{{Amount: dec("0.1"), CurrentPrice: dec("50000")}}
	metals := []domain.MetalHolding{{WeightGrams: dec("10"), CurrentPricePerGram: dec("70")}}

	nw := ComputeNetWorth(accounts, stocks, crypto, metals)
	assert.Equal(t, "800", nw.Accounts.String())
	assert.Equal(t, "300", nw.Stocks.String())
	assert.Equal(t, "5000", nw.Crypto.String())
	assert.Equal(t, "700", nw.Metals.String())
	assert.Equal(t, "6800", nw.Total.String())
}

func TestCategoryBreakdown(t *testing.T) {
	p, _ := ParsePeriod("month", now)
	food, rent := ptr("food"), ptr("rent")
	txs := []domain.Transaction{
		tx(domain.TransactionExpense, "100", day(2025, 5, 2), food, "Groceries"),
		tx(domain.TransactionExpense, "50", day(2025, 5, 3), food, "Groceries"),
		tx(domain.TransactionExpense, "800", day(2025, 5, 1), rent, "Housing"),
		tx(domain.TransactionExpense, "50", day(2025, 5, 4), nil, ""),
		tx(domain.TransactionIncome, "5000", day(2025, 5, 1), nil, ""),
	}

	got := CategoryBreakdown(txs, p)
	require.Len(t, got, 3)
	assert.Equal(t, "Housing", got[0].Name)
	assert.Equal(t, "80", got[0].Percent.String())
	assert.Equal(t, "Groceries", got[1].Name)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, "15", got[1].Percent.String())
	assert.Equal(t, "Uncategorized", got[2].Name)
}

func TestMonthlyTrend(t *testing.T) {
	txs := []domain.Transaction{
		tx(domain.TransactionIncome, "100", day(2025, 5, 2), nil, ""),
		tx(domain.TransactionExpense, "40", day(2025, 3, 10), nil, ""),
		tx(domain.TransactionExpense, "999", day(2024, 11, 30), nil, ""),
	}

	got := MonthlyTrend(txs, now, 6)
	require.Len(t, got, 6)
	assert.Equal(t, "2024-12", got[0].Month)
	assert.Equal(t, "2025-05", got[5].Month)
	assert.Equal(t, "100", got[5].Net.String())
	assert.Equal(t, "-40", got[3].Net.String())
	assert.True(t, got[0].Expenses.IsZero())
}

func TestEvaluateBudget(t *testing.T) {
	food := ptr("food")
	txs := []domain.Transaction{
		tx(domain.TransactionExpense, "85", day(2025, 5, 2), food, "Groceries"),
		tx(domain.TransactionExpense, "500", day(2025, 5, 2), ptr("rent"), "Housing"),
		tx(domain.TransactionExpense, "70", day(2025, 4, 28), food, "Groceries"),
	}

	tests := []struct {
		name   string
		budget domain.Budget
		spent  string
		status string
	}{
		{"warning", domain.Budget{CategoryID: food, Amount: dec("100"), Period: domain.BudgetMonthly, AlertThreshold: 80}, "85", StatusWarning},
		{"ok", domain.Budget{CategoryID: food, Amount: dec("200"), Period: domain.BudgetMonthly, AlertThreshold: 80}, "85", StatusOK},
		{"overall exceeded", domain.Budget{Amount: dec("500"), Period: domain.BudgetMonthly, AlertThreshold: 80}, "585", StatusExceeded},
		{"weekly window", domain.Budget{CategoryID: food, Amount: dec("100"), Period: domain.BudgetWeekly, AlertThreshold: 80}, "0", StatusOK},
		{"yearly window", domain.Budget{CategoryID: food, Amount: dec("1000"), Period: domain.BudgetYearly, AlertThreshold: 80}, "155", StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateBudget(tt.budget, txs, now)
			assert.Equal(t, tt.spent, got.Spent.String())
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.budget.Amount.Sub(got.Spent).String(), got.Remaining.String())
		})
	}
}

func TestBudgetStateBoundaries(t *testing.T) {
	assert.Equal(t, StatusWarning, BudgetState(dec("100"), 80))
	assert.Equal(t, StatusExceeded, BudgetState(dec("100.01"), 80))
	assert.Equal(t, StatusWarning, BudgetState(dec("80"), 80))
	assert.Equal(t, StatusOK, BudgetState(dec("79.99"), 80))
}

func TestUpcomingBills(t *testing.T) {
	bills := []domain.Bill{
		{Name: "later", DueDate: day(2025, 6, 10)},
		{Name: "overdue", DueDate: day(2025, 5, 10)},
		{Name: "paid", DueDate: day(2025, 5, 20), IsPaid: true},
		{Name: "far", DueDate: day(2025, 7, 1)},
	}

	got := UpcomingBills(bills, now, 30)
	require.Len(t, got, 2)
	assert.Equal(t, "overdue", got[0].Name)
	assert.Equal(t, -4, got[0].DaysUntilDue)
	assert.Equal(t, "later", got[1].Name)
	assert.Equal(t, 27, got[1].DaysUntilDue)
}

func TestRecent(t *testing.T) {
	var txs []domain.Transaction
	for i := 1; i <= 12; i++ {
		txs = append(txs, tx(domain.TransactionExpense, "1", day(2025, 5, i), nil, ""))
	}
	got := Recent(txs, 10)
	require.Len(t, got, 10)
	assert.Equal(t, day(2025, 5, 12), got[0].OccurredOn)
	assert.Equal(t, day(2025, 5, 1), txs[0].OccurredOn, "input must not be reordered")
}

func TestLoadRange(t *testing.T) {
	p, _ := ParsePeriod("week", now)
	start, end := LoadRange(p, now, TrendMonths)
	assert.Equal(t, day(2024, 12, 1), start)
	assert.Equal(t, day(2025, 5, 19), end)
}

func TestBuild(t *testing.T) {
	p, _ := ParsePeriod("month", now)
	in := Input{
		Currency: "usd",
		Transactions: []domain.Transaction{
			tx(domain.TransactionIncome, "2000", day(2025, 5, 1), nil, ""),
			tx(domain.TransactionExpense, "500", day(2025, 5, 2), nil, ""),
		},
		Accounts: []domain.Account{{Type: domain.AccountChecking, Balance: dec("1234.5"), IsActive: true}},
	}

	d := Build(in, p, now)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "$2,000.00", d.Formatted["income"])
	assert.Equal(t, "$1,234.50", d.Formatted["net_worth"])
	assert.Equal(t, "75.00%", d.Formatted["savings_rate"])
	assert.Len(t, d.MonthlyTrend, TrendMonths)
	assert.NotNil(t, d.UpcomingBills)

	summary := Summary(d)
	assert.Contains(t, summary, "Income: 2000 USD")
	assert.Contains(t, summary, "Uncategorized")
}
