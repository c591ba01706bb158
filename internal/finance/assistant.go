package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
)

// ChatHistoryLimit is how many prior messages the model sees.
const ChatHistoryLimit = 20

const maxChatMessage = 4000

// Advisor is the AI surface the assistant needs.
type Advisor interface {
	Categorizer
	Chat(ctx context.Context, summary string, history []domain.ChatMessage, message string) (string, error)
	RenderHTML(markdown string) (string, error)
	Insights(ctx context.Context, summary string, recent []string) (*ai.Insights, error)
}

// Assistant runs the AI chat, insights and categorization features on top
// of the caller's data.
type Assistant struct {
	svc     *Service
	advisor Advisor
}

// NewAssistant creates an assistant.
func NewAssistant(svc *Service, advisor Advisor) *Assistant {
	return &Assistant{svc: svc, advisor: advisor}
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Reply   string              `json:"reply"`
	HTML    string              `json:"html"`
	Message *domain.ChatMessage `json:"message"`
}

// Chat stores message, asks the model with the financial context and the
// recent history, stores the answer and returns it.
func (a *Assistant) Chat(ctx context.Context, userID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message", "is required")
	}
	if len(message) > maxChatMessage {
		return nil, invalid("message", "must be at most %d characters", maxChatMessage)
	}

	summary, _, err := a.svc.FinancialContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Chat: %w", err)
	}
	history, err := a.svc.repo.ChatHistory(ctx, userID, ChatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("Chat: loading history: %w", err)
	}

	reply, err := a.advisor.Chat(ctx, summary, history, message)
	if err != nil {
		return nil, fmt.Errorf("Chat: %w", err)
	}

	question := &domain.ChatMessage{UserID: userID, Role: domain.ChatRoleUser, Content: message}
	if err := a.svc.repo.AppendChatMessage(ctx, question); err != nil {
		return nil, fmt.Errorf("Chat: storing message: %w", err)
	}
	answer := &domain.ChatMessage{UserID: userID, Role: domain.ChatRoleAssistant, Content: reply}
	if err := a.svc.repo.AppendChatMessage(ctx, answer); err != nil {
		return nil, fmt.Errorf("Chat: storing reply: %w", err)
	}
	a.svc.Publish(userID, "chat_messages", realtime.ActionInsert, answer)

	html, err := a.advisor.RenderHTML(reply)
	if err != nil {
		a.svc.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to render chat reply")
	}
	return &ChatReply{Reply: reply, HTML: html, Message: answer}, nil
}

// History returns the stored conversation, oldest first.
func (a *Assistant) History(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs, err := a.svc.repo.ChatHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}

// ClearHistory deletes the conversation.
func (a *Assistant) ClearHistory(ctx context.Context, userID string) error {
	if err := a.svc.repo.ClearChat(ctx, userID); err != nil {
		return fmt.Errorf("ClearHistory: %w", err)
	}
	return nil
}

// Insights asks the model to analyze the caller's month.
func (a *Assistant) Insights(ctx context.Context, userID string) (*ai.Insights, error) {
	summary, recent, err := a.svc.FinancialContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Insights: %w", err)
	}
	out, err := a.advisor.Insights(ctx, summary, recent)
	if err != nil {
		return nil, fmt.Errorf("Insights: %w", err)
	}
	return out, nil
}

// Categorize suggests one of the caller's categories without storing anything.
func (a *Assistant) Categorize(ctx context.Context, userID string, req ai.CategorizeRequest) (*ai.Categorization, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, invalid("description", "is required")
	}
	if req.Type == "" {
		req.Type = domain.TransactionExpense
	}
	if req.Type != domain.TransactionIncome && req.Type != domain.TransactionExpense {
		return nil, invalid("type", "must be income or expense")
	}
	cats, err := a.svc.repo.Categories().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Categorize: %w", err)
	}
	out, err := a.advisor.Categorize(ctx, req, cats)
	if err != nil {
		return nil, fmt.Errorf("Categorize: %w", err)
	}
	return out, nil
}
