package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of ObjectFetcher.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return m.FetchFunc(ctx, uri)
}

// MockParser is a mock implementation of StatementParser.
type MockParser struct {
	ParseStatementFunc func(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error)
}

func (m *MockParser) ParseStatement(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error) {
	return m.ParseStatementFunc(ctx, data, mimeType, categories)
}

type recordingNotifier struct {
	sent []*domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note *domain.Notification) error {
	n.sent = append(n.sent, note)
	return nil
}

var testCategories = []domain.Category{
	{ID: "groceries", Name: "Groceries", Type: domain.TransactionExpense, IsDefault: true},
	{ID: "salary", Name: "Salary", Type: domain.TransactionIncome, IsDefault: true},
	{ID: "my-groceries", UserID: "u1", Name: "groceries", Type: domain.TransactionExpense},
}

func row(date, desc, amount, currency, category string) ai.StatementRow {
	return ai.StatementRow{Date: date, Description: desc, Amount: decimal.RequireFromString(amount), Currency: currency, Category: category}
}

func TestCategoryMatcher(t *testing.T) {
	m := NewCategoryMatcher(testCategories)

	got := m.Match("  GROCERIES ", domain.TransactionExpense)
	require.NotNil(t, got)
	assert.Equal(t, "my-groceries", *got, "user category wins over default")

	assert.Nil(t, m.Match("Groceries", domain.TransactionIncome))
	assert.Nil(t, m.Match("Travel", domain.TransactionExpense))
	assert.Nil(t, m.Match("", domain.TransactionExpense))
}

func TestTransformRows(t *testing.T) {
	rows := []ai.StatementRow{
		row("2025-04-01", "Tesco", "-23.40", "gbp", "Groceries"),
		row("2025-04-02", "ACME payroll", "2500", "", "Salary"),
		row("01/04/2025", "Bad date", "-1", "GBP", ""),
		row("2025-04-03", "  ", "-1", "GBP", ""),
		row("2025-04-04", "Balance carried forward", "0", "GBP", ""),
		row("2025-04-05", "Mystery", "-9.99", "GBP", "Unknown"),
	}

	txs, skipped := TransformRows(rows, "u1", "EUR", NewCategoryMatcher(testCategories))
	require.Len(t, txs, 3)
	require.Len(t, skipped, 3)

	assert.Equal(t, domain.TransactionExpense, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("23.40")))
	assert.Equal(t, "GBP", txs[0].Currency)
	assert.Equal(t, "my-groceries", *txs[0].CategoryID)
	assert.Equal(t, domain.SourceImport, txs[0].Source)
	assert.Equal(t, "u1", txs[0].UserID)

	assert.Equal(t, domain.TransactionIncome, txs[1].Type)
	assert.Equal(t, "EUR", txs[1].Currency)
	assert.Equal(t, "salary", *txs[1].CategoryID)

	assert.Nil(t, txs[2].CategoryID)

	assert.Equal(t, 2, skipped[0].Row)
	assert.Contains(t, skipped[0].Reason, "invalid date")
	assert.Equal(t, "missing description", skipped[1].Reason)
	assert.Equal(t, "zero amount", skipped[2].Reason)
}

func TestTransformRowsKeepsDescriptionsValidUTF8(t *testing.T) {
	long := "a" + strings.Repeat("é", 300)
	txs, skipped := TransformRows([]ai.StatementRow{
		row("2025-04-01", long, "-5", "EUR", ""),
	}, "u1", "EUR", NewCategoryMatcher(testCategories))
	require.Empty(t, skipped)
	require.Len(t, txs, 1)

	desc := txs[0].Description
	assert.True(t, utf8.ValidString(desc))
	assert.LessOrEqual(t, len(desc), maxDescription)
	assert.True(t, strings.HasPrefix(long, desc))
	assert.Equal(t, 499, len(desc))
}

func TestTransformRowsSkipsSubCentAmounts(t *testing.T) {
	txs, skipped := TransformRows([]ai.StatementRow{
		row("2025-04-01", "Rounding fee", "-0.004", "EUR", ""),
		row("2025-04-02", "Coffee", "-3.50", "EUR", ""),
		row("2025-04-03", "Interest", "10.005", "EUR", ""),
	}, "u1", "EUR", NewCategoryMatcher(testCategories))

	require.Len(t, txs, 1)
	assert.Equal(t, "Coffee", txs[0].Description)
	require.Len(t, skipped, 2)
	assert.Equal(t, 0, skipped[0].Row)
	assert.Contains(t, skipped[0].Reason, "decimal places")
	assert.Equal(t, 2, skipped[1].Row)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	out := Truncate(strings.Repeat("é", 10), 8)
	assert.True(t, len(out) <= 8)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, utf8.ValidString(out))
}

type importFixture struct {
	repo     *memory.Store
	notifier *recordingNotifier
	fetcher  *MockFetcher
	parser   *MockParser
	importer *Importer
	imp      *domain.Import
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.New(testCategories[:2]...)
	_, err := repo.EnsureUser(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	imp := &domain.Import{UserID: "u1", ObjectURI: "gs://bucket/imports/u1/2025/04/30/x-april.csv", OriginalFilename: "april.csv", MimeType: "text/csv"}
	require.NoError(t, repo.CreateImport(ctx, imp))

	f := &importFixture{
		repo:     repo,
		notifier: &recordingNotifier{},
		fetcher: &MockFetcher{FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte("date,description,amount\n"), nil
		}},
		parser: &MockParser{},
		imp:    imp,
	}
	f.importer = NewImporter(repo, f.fetcher, f.parser, f.notifier)
	return f
}

func (f *importFixture) job() *jobs.ImportStatementJob {
	return &jobs.ImportStatementJob{JobID: "job-1", ImportID: f.imp.ID, UserID: "u1", MaxRetries: 3}
}

func (f *importFixture) load(t *testing.T) *domain.Import {
	t.Helper()
	imp, err := f.repo.GetImport(context.Background(), "u1", f.imp.ID)
	require.NoError(t, err)
	return imp
}

func TestImporterSuccess(t *testing.T) {
	f := newImportFixture(t)
	f.parser.ParseStatementFunc = func(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error) {
		assert.Equal(t, "text/csv", mimeType)
		assert.Len(t, categories, 2)
		return []ai.StatementRow{
			row("2025-04-01", "Tesco", "-23.40", "USD", "Groceries"),
			row("2025-04-02", "Payroll", "2500", "USD", "Salary"),
			row("bad", "Broken", "-1", "USD", ""),
		}, nil
	}

	require.NoError(t, f.importer.Handle(context.Background(), f.job()))

	imp := f.load(t)
	assert.Equal(t, domain.ImportCompleted, imp.Status)
	assert.Equal(t, 2, imp.TransactionsCreated)
	assert.Contains(t, imp.Error, "1 rows skipped")

	txs, err := f.repo.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Statement imported", f.notifier.sent[0].Title)
	assert.Contains(t, f.notifier.sent[0].Message, "2 transactions imported from april.csv")

	// A redelivered job does not import twice.
	require.NoError(t, f.importer.Handle(context.Background(), f.job()))
	txs, _ = f.repo.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	assert.Len(t, txs, 2)
}

func TestImporterTransientFailureKeepsImportPending(t *testing.T) {
	f := newImportFixture(t)
	f.fetcher.FetchFunc = func(ctx context.Context, uri string) ([]byte, error) {
		return nil, errors.New("storage unavailable")
	}

	err := f.importer.Handle(context.Background(), f.job())
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrPermanent)

	imp := f.load(t)
	assert.Equal(t, domain.ImportPending, imp.Status)
	assert.Contains(t, imp.Error, "storage unavailable")
	assert.Empty(t, f.notifier.sent)
}

func TestImporterFinalFailureMarksFailed(t *testing.T) {
	f := newImportFixture(t)
	f.parser.ParseStatementFunc = func(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error) {
		return nil, errors.New(strings.Repeat("x", 2000))
	}
	job := f.job()
	job.RetryCount = job.MaxRetries

	require.Error(t, f.importer.Handle(context.Background(), job))

	imp := f.load(t)
	assert.Equal(t, domain.ImportFailed, imp.Status)
	assert.LessOrEqual(t, len(imp.Error), MaxErrorLength)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Statement import failed", f.notifier.sent[0].Title)
}

func TestImporterNoValidRowsIsPermanent(t *testing.T) {
	f := newImportFixture(t)
	f.parser.ParseStatementFunc = func(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error) {
		return []ai.StatementRow{}, nil
	}

	err := f.importer.Handle(context.Background(), f.job())
	assert.ErrorIs(t, err, ErrNoTransactions)
	assert.ErrorIs(t, err, jobs.ErrPermanent)
	assert.Equal(t, domain.ImportFailed, f.load(t).Status)
}

func TestImporterUnknownImport(t *testing.T) {
	f := newImportFixture(t)
	job := f.job()
	job.UserID = "someone-else"

	err := f.importer.Handle(context.Background(), job)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, jobs.ErrPermanent)
}
