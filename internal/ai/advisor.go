package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrUnknownCategory is returned when the model picks a category that is not
// among the candidates.
var ErrUnknownCategory = errors.New("model chose an unknown category")

// ErrUpstream marks failures of the model call or of its output.
var ErrUpstream = errors.New("ai provider error")

// Advisor implements the AI features on top of a Model.
type Advisor struct {
	model Model
	md    goldmark.Markdown
}

// NewAdvisor creates an advisor using model.
func NewAdvisor(model Model) *Advisor {
	return &Advisor{
		model: model,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// CategorizeRequest describes a transaction to categorize.
type CategorizeRequest struct {
	Description string                 `json:"description"`
	Merchant    string                 `json:"merchant,omitempty"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        domain.TransactionType `json:"type"`
}

// Categorization is the chosen category.
type Categorization struct {
	CategoryID string  `json:"category_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorize picks one of categories (those matching req.Type) for req.
func (a *Advisor) Categorize(ctx context.Context, req CategorizeRequest, categories []domain.Category) (*Categorization, error) {
	var candidates []domain.Category
	for _, c := range categories {
		if req.Type == "" || c.Type == req.Type {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("Categorize: no %s categories available", req.Type)
	}

	var b strings.Builder
	b.WriteString("Classify this personal finance transaction into exactly one category.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if req.Merchant != "" {
		fmt.Fprintf(&b, "Merchant: %s\n", req.Merchant)
	}
	fmt.Fprintf(&b, "Amount: %s\nType: %s\n\nCategories:\n", req.Amount.StringFixed(2), req.Type)
	for _, c := range candidates {
		b.WriteString("- " + c.Name + "\n")
	}
	b.WriteString("\nRespond with STRICT JSON only: {\"category\": \"<one name from the list>\", \"confidence\": <number between 0 and 1>}\n")

	raw, err := a.model.Generate(ctx, Prompt{Text: b.String(), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("Categorize: %w: %w", ErrUpstream, err)
	}

	var out struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("Categorize: unmarshal JSON: %w: %w", ErrUpstream, err)
	}

	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(out.Category), c.Name) {
			return &Categorization{CategoryID: c.ID, Category: c.Name, Confidence: clamp01(out.Confidence)}, nil
		}
	}
	return nil, fmt.Errorf("Categorize: %q: %w: %w", out.Category, ErrUpstream, ErrUnknownCategory)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

const advisorSystem = `You are FinSight, a friendly personal finance advisor.
Answer using the user's financial context below. Be concise and concrete, use Markdown,
and never invent numbers that are not in the context. You do not give regulated investment advice.`

// Chat answers message given the user's financial context summary and prior turns.
func (a *Advisor) Chat(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error) {
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{FromModel: m.Role == domain.ChatRoleAssistant, Text: m.Content})
	}
	reply, err := a.model.Generate(ctx, Prompt{
		System:  advisorSystem + "\n\nFinancial context:\n" + summary,
		History: turns,
		Text:    message,
	})
	if err != nil {
		return "", fmt.Errorf("Chat: %w: %w", ErrUpstream, err)
	}
	return reply, nil
}

// RenderHTML converts Markdown to HTML. Raw HTML in the input is not passed through.
func (a *Advisor) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("RenderHTML: %w", err)
	}
	return buf.String(), nil
}

// Insight is one observation about the user's finances.
type Insight struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// Insights is the result of an insights request.
type Insights struct {
	Insights []Insight `json:"insights"`
	Score    int       `json:"score"`
}

var severities = map[string]bool{"info": true, "warning": true, "critical": true, "positive": true}

// Insights asks the model for observations and a 0-100 financial health score.
func (a *Advisor) Insights(ctx context.Context, summary string, recent []string) (*Insights, error) {
	var b strings.Builder
	b.WriteString("Analyze this user's finances and return 3 to 6 actionable insights.\n\n")
	b.WriteString("Financial context:\n" + summary + "\n")
	if len(recent) > 0 {
		b.WriteString("Recent transactions:\n")
		for _, r := range recent {
			b.WriteString("- " + r + "\n")
		}
	}
	b.WriteString(`
Respond with STRICT JSON only, no Markdown:
{"insights": [{"title": string, "detail": string, "severity": "info" | "warning" | "critical" | "positive"}], "score": integer 0-100}
`)

	raw, err := a.model.Generate(ctx, Prompt{Text: b.String(), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("Insights: %w: %w", ErrUpstream, err)
	}

	var out Insights
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("Insights: unmarshal JSON: %w: %w", ErrUpstream, err)
	}
	for i := range out.Insights {
		sev := strings.ToLower(strings.TrimSpace(out.Insights[i].Severity))
		if !severities[sev] {
			sev = "info"
		}
		out.Insights[i].Severity = sev
	}
	if out.Insights == nil {
		out.Insights = []Insight{}
	}
	out.Score = max(0, min(100, out.Score))
	return &out, nil
}

// StatementRow is one transaction as extracted by the model, before validation.
type StatementRow struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	// Amount is signed: positive for money in, negative for money out.
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
}

// ParseStatement extracts transactions from a PDF or CSV bank statement.
func (a *Advisor) ParseStatement(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]StatementRow, error) {
	var b strings.Builder
	b.WriteString(`You are a financial statement parser.

Task:
- Parse ALL transactions in the attached bank or card statement.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a JSON array of objects.

Each object must have these fields:
- "date": string, ISO format "YYYY-MM-DD"
- "description": string
- "amount": number (positive for money IN, negative for money OUT)
- "currency": string (ISO 4217, e.g. "USD")
- "category": string (one of the categories below, or "" when unsure)

Categories:
`)
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Type)
	}
	b.WriteString(`
Rules:
- If the statement has separate "paid out" / "paid in" columns, convert to a single signed "amount".
- Skip opening/closing balance lines; they are not transactions.
Output must begin with "[" and end with "]".
`)

	p := Prompt{Text: b.String(), JSON: true, Data: data, MIMEType: mimeType}
	if strings.HasPrefix(mimeType, "text/") {
		// plain-text statements go inline rather than as a blob
		p.Text += "\nStatement:\n" + string(data)
		p.Data, p.MIMEType = nil, ""
	}

	raw, err := a.model.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w: %w", ErrUpstream, err)
	}

	var rows []StatementRow
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &rows); err != nil {
		return nil, fmt.Errorf("ParseStatement: unmarshal JSON: %w: %w", ErrUpstream, err)
	}
	return rows, nil
}
