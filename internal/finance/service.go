// Package finance implements the user-facing operations that span several
// tables: recording transactions with their balance and budget side effects,
// paying bills, building the dashboard and refreshing holding prices.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Categorizer picks a category for a transaction.
type Categorizer interface {
	Categorize(ctx context.Context, req ai.CategorizeRequest, categories []domain.Category) (*ai.Categorization, error)
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// PriceSource quotes market prices.
type PriceSource interface {
	CryptoPrices(ctx context.Context, ids []string, vs string) (map[string]market.Quote, error)
	MetalPrices(ctx context.Context) (map[domain.Metal]decimal.Decimal, error)
}

// Service coordinates the store with the optional collaborators. Any of
// categorizer, notifier, events and prices may be nil.
type Service struct {
	repo        store.Store
	categorizer Categorizer
	notifier    Notifier
	events      realtime.Publisher
	prices      PriceSource
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a finance service.
func NewService(repo store.Store, categorizer Categorizer, notifier Notifier, events realtime.Publisher, prices PriceSource, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		categorizer: categorizer,
		notifier:    notifier,
		events:      events,
		prices:      prices,
		log:         log,
		now:         time.Now,
	}
}

// Store returns the underlying repository.
func (s *Service) Store() store.Store { return s.repo }

// Publish forwards a change event when realtime delivery is configured.
func (s *Service) Publish(userID, table, action string, record any) {
	if s.events == nil {
		return
	}
	s.events.Publish(userID, realtime.Event{Table: table, Action: action, Record: record, Timestamp: s.now().UTC()})
}

// RequestInfo carries the client details recorded with activity entries.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// Track records an activity entry. Failures are logged, not returned, so a
// broken audit log never fails the operation being audited.
func (s *Service) Track(ctx context.Context, userID, action, entityType, entityID string, metadata any, info RequestInfo) {
	a := &domain.Activity{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IP:         info.IP,
		UserAgent:  info.UserAgent,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			a.Metadata = raw
		}
	}
	if err := s.repo.LogActivity(ctx, a); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("action", action).Msg("Failed to record activity")
	}
}

// user loads the caller's profile, creating it on first use.
func (s *Service) user(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return s.repo.EnsureUser(ctx, userID, "")
	}
	return u, err
}

func (s *Service) notify(ctx context.Context, n *domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Error().Err(err).Str("user_id", n.UserID).Str("kind", string(n.Kind)).Msg("Failed to send notification")
	}
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
