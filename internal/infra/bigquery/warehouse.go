package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// insertBatch bounds one streaming insert request.
const insertBatch = 500

// Warehouse writes to and reads from one dataset.
type Warehouse struct {
	client  *bigquery.Client
	dataset string
}

// NewWarehouse creates a BigQuery client for project and dataset.
func NewWarehouse(ctx context.Context, projectID, dataset string, opts ...option.ClientOption) (*Warehouse, error) {
	if projectID == "" || dataset == "" {
		return nil, fmt.Errorf("NewWarehouse: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: bigquery client: %w", err)
	}
	return &Warehouse{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

func (w *Warehouse) table() *bigquery.Table {
	return w.client.Dataset(w.dataset).Table(TransactionsTable)
}

// EnsureTable creates the transactions table, partitioned by day on
// transaction_date, when it does not exist yet.
func (w *Warehouse) EnsureTable(ctx context.Context) error {
	t := w.table()
	if _, err := t.Metadata(ctx); err == nil {
		return nil
	} else {
		var apiErr *googleapi.Error
		if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
			return fmt.Errorf("EnsureTable: metadata: %w", err)
		}
	}

	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}
	err = t.Create(ctx, &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: "transaction_date"},
		Clustering:       &bigquery.Clustering{Fields: []string{"user_id"}},
		Description:      "Mirror of FinSight transactions for reporting",
	})
	if err != nil {
		return fmt.Errorf("EnsureTable: create: %w", err)
	}
	return nil
}

// ExportTransactions streams txs into the transactions table. The
// transaction ID is used as the insert ID so that re-running an export
// within BigQuery's deduplication window does not duplicate rows.
func (w *Warehouse) ExportTransactions(ctx context.Context, txs []domain.Transaction, exportedAt time.Time) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	inserter := w.table().Inserter()
	sent := 0
	for start := 0; start < len(txs); start += insertBatch {
		end := min(start+insertBatch, len(txs))
		savers := make([]*bigquery.StructSaver, 0, end-start)
		for _, tx := range txs[start:end] {
			savers = append(savers, &bigquery.StructSaver{
				Struct:   ToRow(tx, exportedAt),
				InsertID: tx.ID,
			})
		}
		if err := inserter.Put(ctx, savers); err != nil {
			return sent, fmt.Errorf("ExportTransactions: inserting rows: %w", err)
		}
		sent += len(savers)
	}
	return sent, nil
}

// Totals are the per-type sums of a user's exported transactions.
type Totals struct {
	Type   string   `bigquery:"type"`
	Count  int64    `bigquery:"n"`
	Amount *big.Rat `bigquery:"amount"`
}

// SummarizeTransactions reads back the exported totals for a user between
// from and to (inclusive), grouped by transaction type.
func (w *Warehouse) SummarizeTransactions(ctx context.Context, userID string, from, to time.Time) ([]Totals, error) {
	q := w.client.Query(fmt.Sprintf(`
		SELECT type, COUNT(DISTINCT transaction_id) AS n, SUM(amount) AS amount
		FROM `+"`%s.%s`"+`
		WHERE user_id = @user_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		GROUP BY type
		ORDER BY type
	`, w.dataset, TransactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: civil.DateOf(from)},
		{Name: "end_date", Value: civil.DateOf(to)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SummarizeTransactions: query read: %w", err)
	}

	var out []Totals
	for {
		var r Totals
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SummarizeTransactions: iter next: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
