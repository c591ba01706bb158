package pipeline

import (
	"context"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// ObjectFetcher reads uploaded files.
type ObjectFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// StatementParser extracts raw rows from a statement with an AI model.
type StatementParser interface {
	ParseStatement(ctx context.Context, data []byte, mimeType string, categories []domain.Category) ([]ai.StatementRow, error)
}

// Repository is the storage the import pipeline needs. store.Store
// satisfies it.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetImport(ctx context.Context, userID, id string) (*domain.Import, error)
	UpdateImportStatus(ctx context.Context, id string, status domain.ImportStatus, created int, errMsg string) error
	CreateTransactions(ctx context.Context, ts []domain.Transaction) (int, error)
	Categories() store.Owned[domain.Category]
}

// Notifier delivers the completion notification.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}
