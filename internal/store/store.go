// Package store declares the persistence contracts used by the API, the
// worker and the CLI. Every method that touches user data takes the owner's
// user ID and must never return or modify rows belonging to anyone else.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a visible row may not be modified by the caller.
	ErrForbidden = errors.New("forbidden")
)

// Owned is the CRUD contract shared by the simple per-user tables.
type Owned[T any] interface {
	List(ctx context.Context, userID string) ([]T, error)
	Get(ctx context.Context, userID, id string) (*T, error)
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, userID, id string) error
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Start      time.Time // inclusive
	End        time.Time // exclusive
	Type       domain.TransactionType
	CategoryID string
	AccountID  string
	Limit      int
	Offset     int
}

// Users stores profiles.
type Users interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	EnsureUser(ctx context.Context, userID, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	SetAvatarURL(ctx context.Context, userID, url string) error
}

// Transactions stores transactions. Create, Update and Delete apply the
// balance effects on linked accounts in the same database transaction.
type Transactions interface {
	ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	CreateTransactions(ctx context.Context, ts []domain.Transaction) (int, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
}

// BillPayment mutates a locked bill and returns the transaction recording the payment.
type BillPayment func(b *domain.Bill) (*domain.Transaction, error)

// Bills stores bills and supports the reminder sweep.
type Bills interface {
	Owned[domain.Bill]
	PayBill(ctx context.Context, userID, id string, pay BillPayment) (*domain.Bill, *domain.Transaction, error)
	ListReminderCandidates(ctx context.Context, today time.Time) ([]domain.Bill, error)
	MarkReminded(ctx context.Context, id string, day time.Time) error
}

// Holdings stores the three asset tables and applies market price refreshes.
type Holdings interface {
	Stocks() Owned[domain.StockHolding]
	Crypto() Owned[domain.CryptoHolding]
	Metals() Owned[domain.MetalHolding]
	UpdateCryptoPrices(ctx context.Context, userID string, prices map[string]decimal.Decimal, at time.Time) (int, error)
	UpdateMetalPrices(ctx context.Context, userID string, prices map[domain.Metal]decimal.Decimal) (int, error)
}

// Notifications stores in-app notifications.
type Notifications interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Activity stores the audit trail.
type Activity interface {
	LogActivity(ctx context.Context, a *domain.Activity) error
	ListActivity(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

// Chat stores the AI advisor conversation.
type Chat interface {
	AppendChatMessage(ctx context.Context, m *domain.ChatMessage) error
	ChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error)
	ClearChat(ctx context.Context, userID string) error
}

// Imports stores statement import records.
type Imports interface {
	CreateImport(ctx context.Context, imp *domain.Import) error
	GetImport(ctx context.Context, userID, id string) (*domain.Import, error)
	ListImports(ctx context.Context, userID string, limit int) ([]domain.Import, error)
	UpdateImportStatus(ctx context.Context, id string, status domain.ImportStatus, created int, errMsg string) error
	SetImportJob(ctx context.Context, id, jobID string) error
}

// Store aggregates every repository.
type Store interface {
	Users
	Transactions
	Notifications
	Activity
	Chat
	Imports
	Accounts() Owned[domain.Account]
	Categories() Owned[domain.Category]
	Budgets() Owned[domain.Budget]
	FamilyMembers() Owned[domain.FamilyMember]
	Bills() Bills
	Holdings() Holdings
}
