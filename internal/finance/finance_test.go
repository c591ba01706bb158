package finance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "7f1c2f64-0c49-4c1e-9d3e-1a2b3c4d5e6f"

var fixedNow = time.Date(2025, 5, 15, 12, 0, 0, 0, time.UTC)

// MockAdvisor is a function-field mock of the AI advisor.
type MockAdvisor struct {
	CategorizeFunc func(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error)
	ChatFunc       func(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error)
	InsightsFunc   func(ctx context.Context, summary string, recent []string) (*ai.Insights, error)
}

func (m *MockAdvisor) Categorize(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error) {
	if m.CategorizeFunc != nil {
		return m.CategorizeFunc(ctx, req, categories)
	}
	return nil, errors.New("not implemented")
}

func (m *MockAdvisor) Chat(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, summary, history, message)
	}
	return "", errors.New("not implemented")
}

func (m *MockAdvisor) RenderHTML(markdown string) (string, error) {
	return "<p>" + markdown + "</p>", nil
}

func (m *MockAdvisor) Insights(ctx context.Context, summary string, recent []string) (*ai.Insights, error) {
	if m.InsightsFunc != nil {
		return m.InsightsFunc(ctx, summary, recent)
	}
	return nil, errors.New("not implemented")
}

// MockPrices is a function-field mock of the market client.
type MockPrices struct {
	CryptoPricesFunc func(ctx context.Context, ids []string, vs string) (map[string]market.Quote, error)
	MetalPricesFunc  func(ctx context.Context) (map[domain.Metal]decimal.Decimal, error)
}

func (m *MockPrices) CryptoPrices(ctx context.Context, ids []string, vs string) (map[string]market.Quote, error) {
	return m.CryptoPricesFunc(ctx, ids, vs)
}

func (m *MockPrices) MetalPrices(ctx context.Context) (map[domain.Metal]decimal.Decimal, error) {
	return m.MetalPricesFunc(ctx)
}

type recordingNotifier struct {
	sent []*domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note *domain.Notification) error {
	n.sent = append(n.sent, note)
	return nil
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(userID string, ev realtime.Event) {
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) tables() []string {
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Table+":"+ev.Action)
	}
	return out
}

type fixture struct {
	svc      *Service
	repo     *memory.Store
	advisor  *MockAdvisor
	notifier *recordingNotifier
	events   *recordingPublisher
	prices   *MockPrices
	checking *domain.Account
	savings  *domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.New(
		domain.Category{ID: "food", Name: "Food & Dining", Type: domain.TransactionExpense},
		domain.Category{ID: "rent", Name: "Housing", Type: domain.TransactionExpense},
		domain.Category{ID: "salary", Name: "Salary", Type: domain.TransactionIncome},
	)
	_, err := repo.EnsureUser(ctx, userID, "me@example.com")
	require.NoError(t, err)

	f := &fixture{
		repo:     repo,
		advisor:  &MockAdvisor{},
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		prices:   &MockPrices{},
		checking: &domain.Account{UserID: userID, Name: "Checking", Type: domain.AccountChecking, Balance: decimal.NewFromInt(1000), Currency: "USD", IsActive: true},
		savings:  &domain.Account{UserID: userID, Name: "Savings", Type: domain.AccountSavings, Currency: "USD", IsActive: true},
	}
	require.NoError(t, repo.Accounts().Create(ctx, f.checking))
	require.NoError(t, repo.Accounts().Create(ctx, f.savings))

	f.svc = NewService(repo, f.advisor, f.notifier, f.events, f.prices, zerolog.New(io.Discard))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := f.repo.Accounts().Get(context.Background(), userID, id)
	require.NoError(t, err)
	return a.Balance
}

func ptr[T any](v T) *T { return &v }

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	ok := TransactionInput{Type: domain.TransactionExpense, Amount: decimal.NewFromInt(10), Description: "Lunch"}

	tests := []struct {
		name   string
		mutate func(in *TransactionInput)
		field  string
	}{
		{"bad type", func(in *TransactionInput) { in.Type = "gift" }, "type"},
		{"zero amount", func(in *TransactionInput) { in.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(in *TransactionInput) { in.Amount = decimal.NewFromInt(-5) }, "amount"},
		{"rounds to zero", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("0.001") }, "amount"},
		{"sub-cent amount", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("10.005") }, "amount"},
		{"missing description", func(in *TransactionInput) { in.Description = "  " }, "description"},
		{"bad date", func(in *TransactionInput) { in.Date = "15/05/2025" }, "date"},
		{"bad currency", func(in *TransactionInput) { in.Currency = "dollars" }, "currency"},
		{"unknown account", func(in *TransactionInput) { in.AccountID = ptr("nope") }, "account_id"},
		{"unknown category", func(in *TransactionInput) { in.CategoryID = ptr("nope") }, "category_id"},
		{"category type mismatch", func(in *TransactionInput) { in.CategoryID = ptr("salary") }, "category_id"},
		{"transfer without destination", func(in *TransactionInput) {
			in.Type = domain.TransactionTransfer
			in.AccountID = ptr(f.checking.ID)
		}, "to_account_id"},
		{"transfer to same account", func(in *TransactionInput) {
			in.Type = domain.TransactionTransfer
			in.AccountID = ptr(f.checking.ID)
			in.ToAccountID = ptr(f.checking.ID)
		}, "to_account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mutate(&in)
			_, err := f.svc.CreateTransaction(context.Background(), userID, in, RequestInfo{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateTransactionAutoCategorizes(t *testing.T) {
	f := newFixture(t)
	f.advisor.CategorizeFunc = func(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error) {
		assert.Equal(t, "Pizza night", req.Description)
		assert.Equal(t, domain.TransactionExpense, req.Type)
		return &ai.Categorization{CategoryID: "food", Category: "Food & Dining", Confidence: 0.9}, nil
	}

	tx, err := f.svc.CreateTransaction(context.Background(), userID, TransactionInput{
		AccountID:   ptr(f.checking.ID),
		Type:        domain.TransactionExpense,
		Amount:      decimal.RequireFromString("42.50"),
		Description: "Pizza night",
	}, RequestInfo{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)

	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, "food", *tx.CategoryID)
	assert.True(t, tx.AICategorized)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, domain.SourceManual, tx.Source)
	assert.True(t, tx.OccurredOn.Equal(time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.balance(t, f.checking.ID).Equal(decimal.RequireFromString("957.50")))

	assert.Equal(t, []string{"transactions:INSERT", "accounts:UPDATE"}, f.events.tables())

	acts, err := f.repo.ListActivity(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "transaction.created", acts[0].Action)
	assert.Equal(t, "10.0.0.1", acts[0].IP)
}

func TestCreateTransactionSurvivesCategorizerFailure(t *testing.T) {
	f := newFixture(t)
	f.advisor.CategorizeFunc = func(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error) {
		return nil, errors.New("quota exceeded")
	}

	tx, err := f.svc.CreateTransaction(context.Background(), userID, TransactionInput{
		Type: domain.TransactionIncome, Amount: decimal.NewFromInt(3000), Description: "Payroll",
	}, RequestInfo{})
	require.NoError(t, err)
	assert.Nil(t, tx.CategoryID)
	assert.False(t, tx.AICategorized)
}

func TestCreateTransactionSkipsCategorizerWhenDisabled(t *testing.T) {
	f := newFixture(t)
	called := false
	f.advisor.CategorizeFunc = func(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error) {
		called = true
		return nil, errors.New("unexpected")
	}

	_, err := f.svc.CreateTransaction(context.Background(), userID, TransactionInput{
		Type: domain.TransactionExpense, Amount: decimal.NewFromInt(5), Description: "Coffee", AutoCategorize: ptr(false),
	}, RequestInfo{})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestTransferUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, userID, TransactionInput{
		AccountID:   ptr(f.checking.ID),
		ToAccountID: ptr(f.savings.ID),
		Type:        domain.TransactionTransfer,
		Amount:      decimal.NewFromInt(200),
		Description: "Move to savings",
		Date:        "2025-05-10",
	}, RequestInfo{})
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.checking.ID).Equal(decimal.NewFromInt(800)))
	assert.True(t, f.balance(t, f.savings.ID).Equal(decimal.NewFromInt(200)))

	_, err = f.svc.UpdateTransaction(ctx, userID, tx.ID, TransactionInput{
		AccountID:   ptr(f.checking.ID),
		Type:        domain.TransactionExpense,
		Amount:      decimal.NewFromInt(50),
		Description: "Actually groceries",
		CategoryID:  ptr("food"),
	}, RequestInfo{})
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.checking.ID).Equal(decimal.NewFromInt(950)))
	assert.True(t, f.balance(t, f.savings.ID).IsZero())

	got, err := f.svc.GetTransaction(ctx, userID, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.OccurredOn.Equal(time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)), "date is kept when omitted")

	require.NoError(t, f.svc.DeleteTransaction(ctx, userID, tx.ID, RequestInfo{}))
	assert.True(t, f.balance(t, f.checking.ID).Equal(decimal.NewFromInt(1000)))

	err = f.svc.DeleteTransaction(ctx, userID, tx.ID, RequestInfo{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBudgetAlertsFireOnThresholdCrossings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Budgets().Create(ctx, &domain.Budget{
		UserID: userID, CategoryID: ptr("food"), Name: "Eating out",
		Amount: decimal.NewFromInt(100), Period: domain.BudgetMonthly, AlertThreshold: 80,
	}))

	spend := func(amount int64) {
		_, err := f.svc.CreateTransaction(ctx, userID, TransactionInput{
			Type: domain.TransactionExpense, Amount: decimal.NewFromInt(amount), Description: "Food", CategoryID: ptr("food"),
		}, RequestInfo{})
		require.NoError(t, err)
	}

	spend(50)
	assert.Empty(t, f.notifier.sent)

	spend(35)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Budget warning: Eating out", f.notifier.sent[0].Title)
	assert.Equal(t, domain.NotificationBudgetAlert, f.notifier.sent[0].Kind)
	assert.Contains(t, f.notifier.sent[0].Message, "$85.00")

	spend(5)
	assert.Len(t, f.notifier.sent, 1, "still in warning")

	spend(20)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "Budget exceeded: Eating out", f.notifier.sent[1].Title)

	_, err := f.svc.CreateTransaction(ctx, userID, TransactionInput{
		Type: domain.TransactionExpense, Amount: decimal.NewFromInt(500), Description: "Rent", CategoryID: ptr("rent"),
	}, RequestInfo{})
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 2, "other categories do not count")
}

func TestBudgetAlertsOnUpdateCompareWithReplacedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Budgets().Create(ctx, &domain.Budget{
		UserID: userID, CategoryID: ptr("food"), Name: "Eating out",
		Amount: decimal.NewFromInt(100), Period: domain.BudgetMonthly, AlertThreshold: 80,
	}))

	in := TransactionInput{
		Type: domain.TransactionExpense, Amount: decimal.NewFromInt(90), Description: "Dinner", CategoryID: ptr("food"),
	}
	tx, err := f.svc.CreateTransaction(ctx, userID, in, RequestInfo{})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)

	in.Amount = decimal.NewFromInt(91)
	_, err = f.svc.UpdateTransaction(ctx, userID, tx.ID, in, RequestInfo{})
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1, "still in warning")

	in.Amount = decimal.NewFromInt(50)
	_, err = f.svc.UpdateTransaction(ctx, userID, tx.ID, in, RequestInfo{})
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1, "status improved")

	in.Amount = decimal.NewFromInt(120)
	_, err = f.svc.UpdateTransaction(ctx, userID, tx.ID, in, RequestInfo{})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "Budget exceeded: Eating out", f.notifier.sent[1].Title)

	// moving spending into the category counts in full
	other, err := f.svc.CreateTransaction(ctx, userID, TransactionInput{
		Type: domain.TransactionExpense, Amount: decimal.NewFromInt(10), Description: "Taxi",
		CategoryID: ptr("rent"),
	}, RequestInfo{})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTransaction(ctx, userID, tx.ID, RequestInfo{}))
	_, err = f.svc.UpdateTransaction(ctx, userID, other.ID, TransactionInput{
		Type: domain.TransactionExpense, Amount: decimal.NewFromInt(85), Description: "Taxi",
		CategoryID: ptr("food"),
	}, RequestInfo{})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 3)
	assert.Equal(t, "Budget warning: Eating out", f.notifier.sent[2].Title)
}

func TestPayBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monthly := &domain.Bill{
		UserID: userID, Name: "Rent", Amount: decimal.NewFromInt(700), DueDate: time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		Frequency: domain.BillMonthly, AccountID: ptr(f.checking.ID), CategoryID: ptr("rent"), ReminderDays: 3,
	}
	once := &domain.Bill{
		UserID: userID, Name: "Car repair", Amount: decimal.NewFromInt(120), DueDate: fixedNow, Frequency: domain.BillOnce,
	}
	require.NoError(t, f.repo.Bills().Create(ctx, monthly))
	require.NoError(t, f.repo.Bills().Create(ctx, once))

	res, err := f.svc.PayBill(ctx, userID, monthly.ID, RequestInfo{})
	require.NoError(t, err)
	assert.False(t, res.Bill.IsPaid)
	assert.True(t, res.Bill.DueDate.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, res.Bill.LastPaidOn)
	assert.Equal(t, domain.SourceBill, res.Transaction.Source)
	assert.Equal(t, domain.TransactionExpense, res.Transaction.Type)
	assert.True(t, f.balance(t, f.checking.ID).Equal(decimal.NewFromInt(300)))

	res, err = f.svc.PayBill(ctx, userID, once.ID, RequestInfo{})
	require.NoError(t, err)
	assert.True(t, res.Bill.IsPaid)

	_, err = f.svc.PayBill(ctx, userID, once.ID, RequestInfo{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.PayBill(ctx, "someone-else", monthly.ID, RequestInfo{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, in := range []TransactionInput{
		{Type: domain.TransactionIncome, Amount: decimal.NewFromInt(4000), Description: "Salary", CategoryID: ptr("salary"), Date: "2025-05-01"},
		{Type: domain.TransactionExpense, Amount: decimal.NewFromInt(1000), Description: "Rent", CategoryID: ptr("rent"), Date: "2025-05-02"},
		{Type: domain.TransactionExpense, Amount: decimal.NewFromInt(300), Description: "Food", CategoryID: ptr("food"), Date: "2025-04-20"},
	} {
		in.AutoCategorize = ptr(false)
		_, err := f.svc.CreateTransaction(ctx, userID, in, RequestInfo{})
		require.NoError(t, err)
	}
	require.NoError(t, f.repo.Holdings().Crypto().Create(ctx, &domain.CryptoHolding{
		UserID: userID, CoinID: "bitcoin", Symbol: "BTC", Amount: decimal.RequireFromString("0.5"), CurrentPrice: decimal.NewFromInt(60000),
	}))

	d, err := f.svc.Dashboard(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, "month", d.Period.Name)
	assert.True(t, d.Totals.Income.Equal(decimal.NewFromInt(4000)))
	assert.True(t, d.Totals.Expenses.Equal(decimal.NewFromInt(1000)))
	assert.True(t, d.Totals.SavingsRate.Equal(decimal.NewFromInt(75)))
	assert.True(t, d.NetWorth.Crypto.Equal(decimal.NewFromInt(30000)))
	assert.True(t, d.NetWorth.Accounts.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, d.MonthlyTrend, 6)
	assert.Len(t, d.RecentTransactions, 3)
	assert.Equal(t, "$4,000.00", d.Formatted["income"])

	_, err = f.svc.Dashboard(ctx, userID, "decade")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRefreshCryptoPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Holdings().Crypto().Create(ctx, &domain.CryptoHolding{UserID: userID, CoinID: "bitcoin", Amount: decimal.NewFromInt(1)}))
	require.NoError(t, f.repo.Holdings().Crypto().Create(ctx, &domain.CryptoHolding{UserID: userID, CoinID: "dogecoin", Amount: decimal.NewFromInt(10)}))
	f.prices.CryptoPricesFunc = func(ctx context.Context, ids []string, vs string) (map[string]market.Quote, error) {
		assert.ElementsMatch(t, []string{"bitcoin", "dogecoin"}, ids)
		assert.Equal(t, "usd", vs)
		return map[string]market.Quote{"bitcoin": {Price: decimal.NewFromInt(65000)}}, nil
	}

	res, err := f.svc.RefreshCryptoPrices(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"dogecoin"}, res.Missing)

	list, err := f.repo.Holdings().Crypto().List(ctx, userID)
	require.NoError(t, err)
	for _, h := range list {
		if h.CoinID == "bitcoin" {
			assert.True(t, h.CurrentPrice.Equal(decimal.NewFromInt(65000)))
			assert.NotNil(t, h.PriceUpdatedAt)
		}
	}
}

func TestRefreshMetalPricesWithoutSource(t *testing.T) {
	f := newFixture(t)
	f.svc.prices = nil
	_, err := f.svc.RefreshMetalPrices(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNoPriceSource)
}

func TestAssistantChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := NewAssistant(f.svc, f.advisor)
	f.advisor.ChatFunc = func(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
		assert.Contains(t, summary, "Income:")
		assert.Equal(t, "How am I doing?", message)
		return "**Great**", nil
	}

	reply, err := a.Chat(ctx, userID, "  How am I doing?  ")
	require.NoError(t, err)
	assert.Equal(t, "**Great**", reply.Reply)
	assert.Equal(t, "<p>**Great**</p>", reply.HTML)

	history, err := a.History(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatRoleUser, history[0].Role)
	assert.Equal(t, domain.ChatRoleAssistant, history[1].Role)

	require.NoError(t, a.ClearHistory(ctx, userID))
	history, _ = a.History(ctx, userID, 0)
	assert.Empty(t, history)

	_, err = a.Chat(ctx, userID, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssistantChatDoesNotStoreOnModelFailure(t *testing.T) {
	f := newFixture(t)
	a := NewAssistant(f.svc, f.advisor)
	f.advisor.ChatFunc = func(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
		return "", ai.ErrEmptyResponse
	}

	_, err := a.Chat(context.Background(), userID, "hi")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	history, _ := a.History(context.Background(), userID, 0)
	assert.Empty(t, history)
}
