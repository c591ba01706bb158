package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

const transactionSelect = `
	SELECT t.id, t.user_id, t.account_id, t.to_account_id, t.category_id, t.family_member_id,
	       t.type, t.amount, t.currency, t.description, t.merchant, t.occurred_on, t.notes,
	       t.tags, t.ai_categorized, t.source, t.created_at, t.updated_at, COALESCE(c.name, '')
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.ToAccountID, &t.CategoryID, &t.FamilyMemberID,
		&t.Type, &t.Amount, &t.Currency, &t.Description, &t.Merchant, &t.OccurredOn, &t.Notes,
		&t.Tags, &t.AICategorized, &t.Source, &t.CreatedAt, &t.UpdatedAt, &t.CategoryName)
	return t, err
}

// buildTransactionQuery renders the filtered list query for userID.
func buildTransactionQuery(userID string, f store.TransactionFilter) (string, []any) {
	var (
		where = []string{"t.user_id = $1"}
		args  = []any{userID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.Start.IsZero() {
		add("t.occurred_on >= $%d", f.Start)
	}
	if !f.End.IsZero() {
		add("t.occurred_on < $%d", f.End)
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.CategoryID != "" {
		add("t.category_id = $%d", f.CategoryID)
	}
	if f.AccountID != "" {
		add("(t.account_id = $%[1]d OR t.to_account_id = $%[1]d)", f.AccountID)
	}

	query := transactionSelect + "\n\tWHERE " + strings.Join(where, " AND ") +
		"\n\tORDER BY t.occurred_on DESC, t.created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	query, args := buildTransactionQuery(userID, f)
	var out []domain.Transaction
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
			return scanTransaction(row)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		t, err = scanTransaction(tx.QueryRow(ctx, transactionSelect+` WHERE t.id = $1 AND t.user_id = $2`, id, userID))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return &t, nil
}

// insertTransaction inserts t and applies its balance effects inside tx.
func insertTransaction(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, account_id, to_account_id, category_id, family_member_id,
			type, amount, currency, description, merchant, occurred_on, notes, tags, ai_categorized, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.AccountID, t.ToAccountID, t.CategoryID, t.FamilyMemberID,
		t.Type, t.Amount, t.Currency, t.Description, t.Merchant, t.OccurredOn, t.Notes,
		t.Tags, t.AICategorized, t.Source).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return applyDeltas(ctx, tx, t.UserID, t.BalanceEffects())
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	err := s.withUser(ctx, t.UserID, func(tx pgx.Tx) error {
		return insertTransaction(ctx, tx, t)
	})
	if err != nil {
		return fmt.Errorf("CreateTransaction: %w", err)
	}
	return nil
}

// CreateTransactions inserts a batch owned by a single user in one
// transaction and returns how many rows were stored.
func (s *Store) CreateTransactions(ctx context.Context, ts []domain.Transaction) (int, error) {
	if len(ts) == 0 {
		return 0, nil
	}
	userID := ts[0].UserID
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		for i := range ts {
			if ts[i].UserID != userID {
				return fmt.Errorf("row %d: mixed owners: %w", i, store.ErrForbidden)
			}
			if err := insertTransaction(ctx, tx, &ts[i]); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("CreateTransactions: %w", err)
	}
	return len(ts), nil
}

// UpdateTransaction replaces the stored row, reversing the old balance
// effects and applying the new ones.
func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	err := s.withUser(ctx, t.UserID, func(tx pgx.Tx) error {
		old, err := scanTransaction(tx.QueryRow(ctx,
			transactionSelect+` WHERE t.id = $1 AND t.user_id = $2 FOR UPDATE OF t`, t.ID, t.UserID))
		if err != nil {
			return notFound(err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE transactions SET account_id = $3, to_account_id = $4, category_id = $5, family_member_id = $6,
				type = $7, amount = $8, currency = $9, description = $10, merchant = $11, occurred_on = $12,
				notes = $13, tags = $14, ai_categorized = $15, updated_at = now()
			WHERE id = $1 AND user_id = $2
			RETURNING created_at, updated_at, source`,
			t.ID, t.UserID, t.AccountID, t.ToAccountID, t.CategoryID, t.FamilyMemberID,
			t.Type, t.Amount, t.Currency, t.Description, t.Merchant, t.OccurredOn,
			t.Notes, t.Tags, t.AICategorized).Scan(&t.CreatedAt, &t.UpdatedAt, &t.Source)
		if err != nil {
			return fmt.Errorf("updating: %w", err)
		}

		deltas := domain.MergeDeltas(domain.Reverse(old.BalanceEffects()), t.BalanceEffects())
		return applyDeltas(ctx, tx, t.UserID, deltas)
	})
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes the row, reverses its balance effects and
// returns the deleted transaction.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	var old domain.Transaction
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		old, err = scanTransaction(tx.QueryRow(ctx,
			transactionSelect+` WHERE t.id = $1 AND t.user_id = $2 FOR UPDATE OF t`, id, userID))
		if err != nil {
			return notFound(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("deleting: %w", err)
		}
		return applyDeltas(ctx, tx, userID, domain.Reverse(old.BalanceEffects()))
	})
	if err != nil {
		return nil, fmt.Errorf("DeleteTransaction: %w", err)
	}
	return &old, nil
}
