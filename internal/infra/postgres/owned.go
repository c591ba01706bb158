package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// ownedTable implements store.Owned for a table whose rows are
// (id, user_id, <columns>..., created_at, updated_at).
type ownedTable[T any] struct {
	s       *Store
	name    string
	orderBy string
	columns []string
	// values returns the column values of v in columns order.
	values func(v *T) []any
	// fields returns pointers for scanning columns into v.
	fields func(v *T) []any
	// meta returns pointers to the id, user_id and timestamp fields of v.
	meta func(v *T) (id, userID *string, created, updated *time.Time)
}

func (t *ownedTable[T]) selectList() string {
	return "id, user_id, " + strings.Join(t.columns, ", ") + ", created_at, updated_at"
}

func (t *ownedTable[T]) scan(row pgx.Row) (*T, error) {
	var v T
	id, userID, created, updated := t.meta(&v)
	dest := append([]any{id, userID}, t.fields(&v)...)
	dest = append(dest, created, updated)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *ownedTable[T]) List(ctx context.Context, userID string) ([]T, error) {
	var out []T
	err := t.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY %s", t.selectList(), t.name, t.orderBy),
			userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
			v, err := t.scan(row)
			if err != nil {
				var zero T
				return zero, err
			}
			return *v, nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("List %s: %w", t.name, err)
	}
	return out, nil
}

func (t *ownedTable[T]) Get(ctx context.Context, userID, id string) (*T, error) {
	var out *T
	err := t.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		out, err = t.scan(tx.QueryRow(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 AND user_id = $2", t.selectList(), t.name),
			id, userID))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("Get %s: %w", t.name, err)
	}
	return out, nil
}

func (t *ownedTable[T]) Create(ctx context.Context, v *T) error {
	id, userID, created, updated := t.meta(v)
	if *id == "" {
		*id = uuid.New().String()
	}

	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, user_id, %s) VALUES ($1, $2, %s) RETURNING created_at, updated_at",
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))
	args := append([]any{*id, *userID}, t.values(v)...)

	err := t.s.withUser(ctx, *userID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, args...).Scan(created, updated)
	})
	if err != nil {
		return fmt.Errorf("Create %s: %w", t.name, err)
	}
	return nil
}

func (t *ownedTable[T]) Update(ctx context.Context, v *T) error {
	id, userID, created, updated := t.meta(v)

	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
	}
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $1 AND user_id = $2 RETURNING created_at, updated_at",
		t.name, strings.Join(sets, ", "))
	args := append([]any{*id, *userID}, t.values(v)...)

	err := t.s.withUser(ctx, *userID, func(tx pgx.Tx) error {
		return notFound(tx.QueryRow(ctx, query, args...).Scan(created, updated))
	})
	if err != nil {
		return fmt.Errorf("Update %s: %w", t.name, err)
	}
	return nil
}

func (t *ownedTable[T]) Delete(ctx context.Context, userID, id string) error {
	err := t.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND user_id = $2", t.name), id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Delete %s: %w", t.name, err)
	}
	return nil
}
