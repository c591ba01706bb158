package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/auth"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs/inmemory"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/news"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "11111111-1111-4111-8111-111111111111"
	bob   = "22222222-2222-4222-8222-222222222222"
)

// MockStorage is a function-field mock of object storage.
type MockStorage struct {
	UploadFunc func(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
	uploaded   map[string][]byte
}

func (m *MockStorage) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, objectName, contentType, r)
	}
	data, _ := io.ReadAll(r)
	if m.uploaded == nil {
		m.uploaded = map[string][]byte{}
	}
	m.uploaded[objectName] = data
	return "gs://test-bucket/" + objectName, nil
}

func (m *MockStorage) PublicURL(objectName string) string {
	return "https://storage.example/" + objectName
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

// MockAdvisor is a function-field mock of the AI advisor.
type MockAdvisor struct {
	ChatFunc func(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error)
}

func (m *MockAdvisor) Categorize(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error) {
	return nil, fmt.Errorf("categorize: %w", ai.ErrUpstream)
}

func (m *MockAdvisor) Chat(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
	return m.ChatFunc(ctx, summary, history, message)
}

func (m *MockAdvisor) RenderHTML(markdown string) (string, error) {
	return "<p>" + markdown + "</p>", nil
}

func (m *MockAdvisor) Insights(ctx context.Context, summary string, recent []string) (*ai.Insights, error) {
	return &ai.Insights{Insights: []ai.Insight{}, Score: 50}, nil
}

type server struct {
	*httptest.Server
	repo     *memory.Store
	verifier *auth.Verifier
	storage  *MockStorage
	prices   *MockPrices
	jobStore *inmemory.Store
}

type options struct {
	advisor finance.Advisor
}

func newServer(t *testing.T, opts options) *server {
	t.Helper()
	log := zerolog.Nop()
	repo := memory.New(
		domain.Category{ID: "food", Name: "Food & Dining", Type: domain.TransactionExpense},
		domain.Category{ID: "salary", Name: "Salary", Type: domain.TransactionIncome},
	)
	prices := &MockPrices{}
	storage := &MockStorage{}
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore, log)
	t.Cleanup(func() { queue.Close() })

	svc := finance.NewService(repo, nil, nil, nil, prices, log)
	var assistant *finance.Assistant
	if opts.advisor != nil {
		assistant = finance.NewAssistant(svc, opts.advisor)
	}

	mux := http.NewServeMux()
	Register(mux, &Handlers{
		Transactions:  NewTransactionsHandler(svc, log),
		Dashboard:     NewDashboardHandler(svc),
		AI:            NewAIHandler(assistant, log),
		Market:        NewMarketHandler(svc, prices, news.NewClient("http://news.invalid", "", nil)),
		Activity:      NewActivityHandler(svc),
		Resources:     NewResources(svc),
		Bills:         NewBillsHandler(svc),
		Profile:       NewProfileHandler(svc, storage, log),
		Notifications: NewNotificationsHandler(svc),
		Imports:       NewImportsHandler(svc, storage, queue, jobStore, log),
	})

	verifier := auth.NewVerifier("test-secret", "authenticated")
	handler := middleware.Recovery(log)(middleware.Logger(log)(middleware.RequestID(middleware.Auth(verifier, "/health")(mux))))
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &server{Server: ts, repo: repo, verifier: verifier, storage: storage, prices: prices, jobStore: jobStore}
}

func (s *server) do(t *testing.T, user, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	if user != "" {
		token, err := s.verifier.Issue(user, user[:4]+"@example.com", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t, options{})

	resp, _ := s.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, "", http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "error")
}

func TestTransactionLifecycle(t *testing.T) {
	s := newServer(t, options{})

	resp, body := s.do(t, alice, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "checking", "balance": "100", "currency": "eur",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	account := decode[domain.Account](t, body)
	assert.Equal(t, "EUR", account.Currency)
	assert.Equal(t, alice, account.UserID)

	resp, body = s.do(t, alice, http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": "25.50", "description": "Groceries",
		"account_id": account.ID, "category_id": "food", "date": "2025-05-10",
	}, "User-Agent", "test-agent", "X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	tx := decode[domain.Transaction](t, body)
	assert.Equal(t, domain.SourceManual, tx.Source)

	resp, body = s.do(t, alice, http.MethodGet, "/api/accounts/"+account.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.Account](t, body).Balance.Equal(decimal.RequireFromString("74.5")))

	resp, body = s.do(t, alice, http.MethodGet, "/api/transactions?start_date=2025-05-01&end_date=2025-05-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Transaction](t, body), 1)

	resp, _ = s.do(t, bob, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, alice, http.MethodPut, "/api/transactions/"+tx.ID, map[string]any{
		"type": "expense", "amount": "30", "description": "Groceries", "account_id": account.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	_, body = s.do(t, alice, http.MethodGet, "/api/accounts/"+account.ID, nil)
	assert.True(t, decode[domain.Account](t, body).Balance.Equal(decimal.NewFromInt(70)))

	resp, _ = s.do(t, alice, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = s.do(t, alice, http.MethodGet, "/api/accounts/"+account.ID, nil)
	assert.True(t, decode[domain.Account](t, body).Balance.Equal(decimal.NewFromInt(100)))

	_, body = s.do(t, alice, http.MethodGet, "/api/activity", nil)
	activity := decode[struct {
		Activity []domain.Activity `json:"activity"`
	}](t, body)
	require.NotEmpty(t, activity.Activity)
	var created *domain.Activity
	for i := range activity.Activity {
		if activity.Activity[i].Action == "transaction.created" {
			created = &activity.Activity[i]
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "203.0.113.9", created.IP)
	assert.Equal(t, "test-agent", created.UserAgent)
}

func TestTransactionValidation(t *testing.T) {
	s := newServer(t, options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero amount", `{"type":"expense","amount":"0","description":"x"}`, "amount"},
		{"bad type", `{"type":"gift","amount":"1","description":"x"}`, "type"},
		{"bad date", `{"type":"income","amount":"1","description":"x","date":"05/10/2025"}`, "date"},
		{"malformed", `{"type":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, alice, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), tt.want)
		})
	}

	resp, body := s.do(t, alice, http.MethodGet, "/api/transactions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestDefaultCategoriesAreReadOnly(t *testing.T) {
	s := newServer(t, options{})

	resp, body := s.do(t, alice, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Category](t, body), 2)

	resp, _ = s.do(t, alice, http.MethodPut, "/api/categories/food", map[string]any{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, alice, http.MethodDelete, "/api/categories/food", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, alice, http.MethodPost, "/api/categories", map[string]any{"name": "Pets", "type": "expense", "is_default": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, decode[domain.Category](t, body).IsDefault)

	_, body = s.do(t, bob, http.MethodGet, "/api/categories", nil)
	assert.Len(t, decode[[]domain.Category](t, body), 2)
}

func TestUpdateKeepsOmittedFields(t *testing.T) {
	s := newServer(t, options{})

	_, body := s.do(t, alice, http.MethodPost, "/api/budgets", map[string]any{"name": "Food", "amount": "300", "category_id": "food"})
	budget := decode[domain.Budget](t, body)
	assert.Equal(t, domain.BudgetMonthly, budget.Period)
	assert.Equal(t, 80, budget.AlertThreshold)

	resp, body := s.do(t, alice, http.MethodPut, "/api/budgets/"+budget.ID, map[string]any{"amount": "350"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decode[domain.Budget](t, body)
	assert.Equal(t, "Food", updated.Name)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(350)))

	resp, _ = s.do(t, alice, http.MethodPut, "/api/budgets/"+budget.ID, map[string]any{"alert_threshold": 150})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, bob, http.MethodDelete, "/api/budgets/"+budget.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, alice, http.MethodDelete, "/api/budgets/"+budget.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPayBill(t *testing.T) {
	s := newServer(t, options{})

	due := time.Now().UTC().AddDate(0, 0, 3).Truncate(24 * time.Hour)
	resp, body := s.do(t, alice, http.MethodPost, "/api/bills", map[string]any{
		"name": "Internet", "amount": "40", "due_date": due, "frequency": "monthly",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	bill := decode[domain.Bill](t, body)

	resp, body = s.do(t, alice, http.MethodPost, "/api/bills/"+bill.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	paid := decode[finance.BillPayment](t, body)
	assert.Equal(t, domain.SourceBill, paid.Transaction.Source)
	assert.Equal(t, "Bill payment: Internet", paid.Transaction.Description)
	assert.False(t, paid.Bill.IsPaid)
	assert.True(t, paid.Bill.DueDate.After(due))

	resp, _ = s.do(t, bob, http.MethodPost, "/api/bills/"+bill.ID+"/pay", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifications(t *testing.T) {
	s := newServer(t, options{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.NoError(t, s.repo.CreateNotification(ctx, &domain.Notification{UserID: alice, Title: "Hi", Kind: domain.NotificationSystem}))
	}
	n := &domain.Notification{UserID: alice, Title: "One", Kind: domain.NotificationSystem}
	require.NoError(t, s.repo.CreateNotification(ctx, n))

	resp, _ := s.do(t, bob, http.MethodPost, "/api/notifications/"+n.ID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, alice, http.MethodPost, "/api/notifications/"+n.ID+"/read", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := s.do(t, alice, http.MethodGet, "/api/notifications?unread=true", nil)
	list := decode[struct {
		Count  int `json:"count"`
		Unread int `json:"unread"`
	}](t, body)
	assert.Equal(t, 2, list.Count)

	resp, body = s.do(t, alice, http.MethodPost, "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":2}`, string(body))
}

func TestActivityRequiresAction(t *testing.T) {
	s := newServer(t, options{})

	resp, _ := s.do(t, alice, http.MethodPost, "/api/activity", map[string]any{"entity_type": "page"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, alice, http.MethodPost, "/api/activity", map[string]any{
		"action": "page.viewed", "metadata": map[string]any{"page": "dashboard"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"page":"dashboard"}`, string(decode[domain.Activity](t, body).Metadata))
}

func TestCreateImport(t *testing.T) {
	s := newServer(t, options{})

	resp, _ := s.do(t, alice, http.MethodPost, "/api/imports?filename=photo.png", []byte("x"), "Content-Type", "image/png")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, body := s.do(t, alice, http.MethodPost, "/api/imports?filename=May%20statement.pdf", []byte("%PDF-1.4"), "Content-Type", "application/pdf")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	imp := decode[domain.Import](t, body)
	assert.Equal(t, domain.ImportPending, imp.Status)
	assert.NotEmpty(t, imp.JobID)
	assert.True(t, strings.HasPrefix(imp.ObjectURI, "gs://test-bucket/imports/"+alice+"/"))
	assert.True(t, strings.HasSuffix(imp.ObjectURI, "-May_statement.pdf"))
	require.Len(t, s.storage.uploaded, 1)

	job, err := s.jobStore.GetJob(context.Background(), imp.JobID)
	require.NoError(t, err)
	assert.Equal(t, imp.ID, job.ImportID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)

	resp, body = s.do(t, alice, http.MethodGet, "/api/jobs/"+imp.JobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, imp.ID, decode[jobs.ImportStatementJob](t, body).ImportID)

	resp, _ = s.do(t, bob, http.MethodGet, "/api/jobs/"+imp.JobID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, bob, http.MethodGet, "/api/imports/"+imp.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = s.do(t, alice, http.MethodGet, "/api/imports", nil)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, body).Count)
}

func TestImportUploadFailure(t *testing.T) {
	s := newServer(t, options{})
	s.storage.UploadFunc = func(context.Context, string, string, io.Reader) (string, error) {
		return "", errors.New("bucket missing")
	}
	resp, _ := s.do(t, alice, http.MethodPost, "/api/imports?filename=s.csv", "date,amount\n", "Content-Type", "text/csv")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, body := s.do(t, alice, http.MethodGet, "/api/imports", nil)
	assert.Equal(t, 0, decode[struct {
		Count int `json:"count"`
	}](t, body).Count)
}

func TestAIEndpoints(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newServer(t, options{})
		resp, _ := s.do(t, alice, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hi"})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("chat", func(t *testing.T) {
		s := newServer(t, options{advisor: &MockAdvisor{
			ChatFunc: func(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
				return "Save **more**.", nil
			},
		}})
		resp, body := s.do(t, alice, http.MethodPost, "/api/ai/chat", map[string]any{"message": "How am I doing?"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		reply := decode[finance.ChatReply](t, body)
		assert.Equal(t, "Save **more**.", reply.Reply)
		assert.Contains(t, reply.HTML, "<p>")

		_, body = s.do(t, alice, http.MethodGet, "/api/ai/chat", nil)
		assert.Equal(t, 2, decode[struct {
			Count int `json:"count"`
		}](t, body).Count)

		resp, _ = s.do(t, alice, http.MethodDelete, "/api/ai/chat", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("upstream failure", func(t *testing.T) {
		s := newServer(t, options{advisor: &MockAdvisor{}})
		resp, _ := s.do(t, alice, http.MethodPost, "/api/ai/categorize", map[string]any{"description": "Coffee", "amount": "3"})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestMarketEndpoints(t *testing.T) {
	s := newServer(t, options{})

	resp, _ := s.do(t, alice, http.MethodGet, "/api/market/crypto", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	s.prices.CryptoPricesFunc = func(ctx context.Context, ids []string, vs string) (map[string]market.Quote, error) {
		assert.Equal(t, []string{"bitcoin", "ethereum"}, ids)
		assert.Equal(t, "eur", vs)
		return map[string]market.Quote{"bitcoin": {Price: decimal.NewFromInt(60000)}}, nil
	}
	resp, body := s.do(t, alice, http.MethodGet, "/api/market/crypto?ids=Ethereum,bitcoin&vs=EUR", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"bitcoin"`)

	s.prices.MetalPricesFunc = func(ctx context.Context) (map[domain.Metal]decimal.Decimal, error) {
		return nil, fmt.Errorf("metals: %w", market.ErrUpstream)
	}
	resp, _ = s.do(t, alice, http.MethodGet, "/api/market/metals", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, _ = s.do(t, alice, http.MethodGet, "/api/news", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	s := newServer(t, options{})

	resp, body := s.do(t, alice, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1111@example.com", decode[domain.User](t, body).Email)

	resp, _ = s.do(t, alice, http.MethodPut, "/api/profile", map[string]any{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, alice, http.MethodPut, "/api/profile", map[string]any{"currency": "gbp", "full_name": "Alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decode[domain.User](t, body)
	assert.Equal(t, "GBP", u.Currency)
	assert.Equal(t, "Alice", u.FullName)

	resp, _ = s.do(t, alice, http.MethodPut, "/api/profile/avatar", "not an image", "Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, body = s.do(t, alice, http.MethodPut, "/api/profile/avatar", []byte{0x89, 'P', 'N', 'G'}, "Content-Type", "image/png")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	url := decode[map[string]string](t, body)["avatar_url"]
	assert.True(t, strings.HasPrefix(url, "https://storage.example/avatars/"+alice+"/"))

	_, body = s.do(t, alice, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, url, decode[domain.User](t, body).AvatarURL)
}

func TestDashboard(t *testing.T) {
	s := newServer(t, options{})

	resp, _ := s.do(t, alice, http.MethodGet, "/api/dashboard?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, alice, http.MethodGet, "/api/dashboard?period=month", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"net_worth"`)
	assert.Contains(t, string(body), `"monthly_trend"`)
}
