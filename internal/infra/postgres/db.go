// Package postgres implements the store contracts on PostgreSQL through a
// pgx connection pool. Every user-scoped statement runs in a transaction
// that binds app.current_user_id for the row-level security policies.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("New: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("New: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withUser runs fn in a transaction scoped to userID.
func (s *Store) withUser(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT set_config('app.current_user_id', $1, true)", userID); err != nil {
			return fmt.Errorf("set_config: %w", err)
		}
		return fn(tx)
	})
}

// notFound maps pgx.ErrNoRows to store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// applyDeltas adjusts account balances owned by userID.
func applyDeltas(ctx context.Context, tx pgx.Tx, userID string, deltas []domain.BalanceDelta) error {
	for _, d := range deltas {
		tag, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
			d.Amount, d.AccountID, userID)
		if err != nil {
			return fmt.Errorf("adjusting account %s: %w", d.AccountID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("account %s: %w", d.AccountID, store.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) Accounts() store.Owned[domain.Account]           { return s.accounts() }
func (s *Store) Categories() store.Owned[domain.Category]        { return &categoryRepo{s: s} }
func (s *Store) Budgets() store.Owned[domain.Budget]             { return s.budgets() }
func (s *Store) FamilyMembers() store.Owned[domain.FamilyMember] { return s.familyMembers() }
func (s *Store) Bills() store.Bills                              { return &billRepo{ownedTable: s.bills()} }
func (s *Store) Holdings() store.Holdings                        { return &holdingsRepo{s: s} }
