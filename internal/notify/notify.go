// Package notify creates in-app notifications, pushes them to realtime
// subscribers and mirrors reminders to Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/rs/zerolog"
)

// Sender delivers a text message to a chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// Telegram is a Sender backed by the Telegram Bot API.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram authenticates the bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("NewTelegram: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	return nil
}

// Repository is the storage Service needs.
type Repository interface {
	store.Notifications
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Service creates notifications.
type Service struct {
	repo     Repository
	events   realtime.Publisher
	telegram Sender
	log      zerolog.Logger
}

// NewService creates a service. events and telegram may be nil.
func NewService(repo Repository, events realtime.Publisher, telegram Sender, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: events, telegram: telegram, log: log}
}

// Notify stores n, publishes it and, for reminders and alerts, forwards it
// to the user's Telegram chat when one is linked.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) error {
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("Notify: %w", err)
	}
	if s.events != nil {
		s.events.Publish(n.UserID, realtime.Event{Table: "notifications", Action: realtime.ActionInsert, Record: n})
	}
	if s.telegram != nil && (n.Kind == domain.NotificationBillReminder || n.Kind == domain.NotificationBudgetAlert) {
		s.forward(ctx, n)
	}
	return nil
}

func (s *Service) forward(ctx context.Context, n *domain.Notification) {
	user, err := s.repo.GetUser(ctx, n.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error().Err(err).Str("user_id", n.UserID).Msg("Failed to load user for Telegram")
		}
		return
	}
	if user.TelegramChatID == nil {
		return
	}
	if err := s.telegram.Send(*user.TelegramChatID, n.Title+"\n"+n.Message); err != nil {
		s.log.Error().Err(err).Str("user_id", n.UserID).Msg("Failed to send Telegram message")
	}
}

// ReminderStore is the bill storage the reminder sweep needs.
type ReminderStore interface {
	ListReminderCandidates(ctx context.Context, today time.Time) ([]domain.Bill, error)
	MarkReminded(ctx context.Context, id string, day time.Time) error
}

// ReminderText renders the notification for bill as of today.
func ReminderText(b domain.Bill, currency string, today time.Time) (string, string) {
	amount := domain.FormatMoney(b.Amount, currency)
	due := b.DueDate.UTC().Truncate(24 * time.Hour)
	days := int(due.Sub(today.UTC().Truncate(24*time.Hour)).Hours() / 24)
	switch {
	case days < 0:
		return "Bill overdue: " + b.Name, fmt.Sprintf("%s of %s was due on %s (%d days ago).", b.Name, amount, due.Format("2006-01-02"), -days)
	case days == 0:
		return "Bill due today: " + b.Name, fmt.Sprintf("%s of %s is due today.", b.Name, amount)
	}
	return "Upcoming bill: " + b.Name, fmt.Sprintf("%s of %s is due on %s (in %d days).", b.Name, amount, due.Format("2006-01-02"), days)
}

// SendBillReminders notifies the owner of every bill whose reminder window is
// open and marks it reminded for today. It returns how many were sent.
func (s *Service) SendBillReminders(ctx context.Context, bills ReminderStore, today time.Time) (int, error) {
	candidates, err := bills.ListReminderCandidates(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("SendBillReminders: %w", err)
	}

	currencies := map[string]string{}
	sent := 0
	var errs []error
	for _, b := range candidates {
		currency, ok := currencies[b.UserID]
		if !ok {
			currency = domain.DefaultCurrency
			if u, err := s.repo.GetUser(ctx, b.UserID); err == nil {
				currency = u.Currency
			}
			currencies[b.UserID] = currency
		}

		title, message := ReminderText(b, currency, today)
		n := &domain.Notification{
			UserID:  b.UserID,
			Title:   title,
			Message: message,
			Kind:    domain.NotificationBillReminder,
			Link:    "/bills/" + b.ID,
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("bill %s: %w", b.ID, err))
			continue
		}
		if err := bills.MarkReminded(ctx, b.ID, today); err != nil {
			errs = append(errs, fmt.Errorf("bill %s: %w", b.ID, err))
			continue
		}
		s.log.Info().Str("user_id", b.UserID).Str("bill_id", b.ID).Msg("Bill reminder sent")
		sent++
	}
	if len(errs) > 0 {
		return sent, fmt.Errorf("SendBillReminders: %w", errors.Join(errs...))
	}
	return sent, nil
}
