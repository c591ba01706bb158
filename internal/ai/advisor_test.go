package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockModel records prompts and returns canned output.
type MockModel struct {
	GenerateFunc func(ctx context.Context, p Prompt) (string, error)
	Prompts      []Prompt
}

func (m *MockModel) Generate(ctx context.Context, p Prompt) (string, error) {
	m.Prompts = append(m.Prompts, p)
	return m.GenerateFunc(ctx, p)
}

func reply(s string) *MockModel {
	return &MockModel{GenerateFunc: func(context.Context, Prompt) (string, error) { return s, nil }}
}

var categories = []domain.Category{
	{ID: "c-groceries", Name: "Groceries", Type: domain.TransactionExpense},
	{ID: "c-dining", Name: "Dining", Type: domain.TransactionExpense},
	{ID: "c-salary", Name: "Salary", Type: domain.TransactionIncome},
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced json", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced object", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"no json", "sorry", "sorry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestCategorize(t *testing.T) {
	model := reply("```json\n{\"category\": \"dining\", \"confidence\": 1.4}\n```")
	a := NewAdvisor(model)

	got, err := a.Categorize(context.Background(), CategorizeRequest{
		Description: "Pizza place",
		Amount:      decimal.NewFromInt(25),
		Type:        domain.TransactionExpense,
	}, categories)
	require.NoError(t, err)
	assert.Equal(t, "c-dining", got.CategoryID)
	assert.Equal(t, "Dining", got.Category)
	assert.Equal(t, 1.0, got.Confidence)

	require.Len(t, model.Prompts, 1)
	assert.Contains(t, model.Prompts[0].Text, "- Groceries")
	assert.NotContains(t, model.Prompts[0].Text, "Salary", "income categories are not candidates for expenses")
}

func TestCategorizeUnknownCategory(t *testing.T) {
	a := NewAdvisor(reply(`{"category": "Spaceships", "confidence": 0.9}`))
	_, err := a.Categorize(context.Background(), CategorizeRequest{Description: "x", Type: domain.TransactionExpense}, categories)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategorizeModelError(t *testing.T) {
	boom := errors.New("quota")
	a := NewAdvisor(&MockModel{GenerateFunc: func(context.Context, Prompt) (string, error) { return "", boom }})
	_, err := a.Categorize(context.Background(), CategorizeRequest{Description: "x", Type: domain.TransactionExpense}, categories)
	assert.ErrorIs(t, err, boom)
}

func TestChatPassesContextAndHistory(t *testing.T) {
	model := reply("Spend **less** on dining.")
	a := NewAdvisor(model)

	history := []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hi"},
		{Role: domain.ChatRoleAssistant, Content: "hello"},
	}
	got, err := a.Chat(context.Background(), "Income: 100 USD", history, "how do I save?")
	require.NoError(t, err)
	assert.Equal(t, "Spend **less** on dining.", got)

	p := model.Prompts[0]
	assert.Contains(t, p.System, "Income: 100 USD")
	require.Len(t, p.History, 2)
	assert.False(t, p.History[0].FromModel)
	assert.True(t, p.History[1].FromModel)
	assert.Equal(t, "how do I save?", p.Text)

	html, err := a.RenderHTML(got)
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>less</strong>")
}

func TestRenderHTMLDropsRawHTML(t *testing.T) {
	a := NewAdvisor(reply(""))
	html, err := a.RenderHTML("<script>alert(1)</script>\n\nok")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestInsights(t *testing.T) {
	a := NewAdvisor(reply(`{"insights":[{"title":"Dining up","detail":"20% more","severity":"WARNING"},{"title":"x","detail":"y","severity":"weird"}],"score":140}`))

	got, err := a.Insights(context.Background(), "summary", []string{"2025-05-01 expense 10.00 USD \"coffee\" [Dining]"})
	require.NoError(t, err)
	require.Len(t, got.Insights, 2)
	assert.Equal(t, "warning", got.Insights[0].Severity)
	assert.Equal(t, "info", got.Insights[1].Severity)
	assert.Equal(t, 100, got.Score)
}

func TestInsightsInvalidJSON(t *testing.T) {
	a := NewAdvisor(reply("I cannot do that"))
	_, err := a.Insights(context.Background(), "summary", nil)
	assert.Error(t, err)
}

func TestParseStatement(t *testing.T) {
	model := reply("```json\n[{\"date\":\"2025-05-01\",\"description\":\"TESCO\",\"amount\":-12.5,\"currency\":\"gbp\",\"category\":\"Groceries\"}]\n```")
	a := NewAdvisor(model)

	rows, err := a.ParseStatement(context.Background(), []byte("%PDF"), "application/pdf", categories)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-05-01", rows[0].Date)
	assert.Equal(t, "-12.5", rows[0].Amount.String())
	assert.Equal(t, "Groceries", rows[0].Category)

	p := model.Prompts[0]
	assert.Equal(t, "application/pdf", p.MIMEType)
	assert.Equal(t, []byte("%PDF"), p.Data)
}

func TestParseStatementCSVInline(t *testing.T) {
	model := reply("[]")
	a := NewAdvisor(model)

	rows, err := a.ParseStatement(context.Background(), []byte("date,amount\n2025-05-01,-3"), "text/csv", categories)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Nil(t, model.Prompts[0].Data)
	assert.Contains(t, model.Prompts[0].Text, "2025-05-01,-3")
}
