package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// categoryRepo lists the caller's categories together with the system
// defaults (user_id IS NULL). Defaults are read-only.
type categoryRepo struct {
	s *Store
}

const categoryColumns = `id, COALESCE(user_id::text, ''), name, type, icon, color, is_default, created_at`

func scanCategory(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault, &c.CreatedAt)
	return c, err
}

func (r *categoryRepo) List(ctx context.Context, userID string) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+categoryColumns+` FROM categories
			 WHERE user_id IS NULL OR user_id = $1
			 ORDER BY type, is_default DESC, name`, userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
			return scanCategory(row)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("List categories: %w", err)
	}
	return out, nil
}

func (r *categoryRepo) Get(ctx context.Context, userID, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		c, err = scanCategory(tx.QueryRow(ctx,
			`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND (user_id IS NULL OR user_id = $2)`,
			id, userID))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("Get category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.IsDefault = false
	err := r.s.withUser(ctx, c.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO categories (id, user_id, name, type, icon, color, is_default)
			 VALUES ($1, $2, $3, $4, $5, $6, FALSE) RETURNING created_at`,
			c.ID, c.UserID, c.Name, c.Type, c.Icon, c.Color).Scan(&c.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("Create category: %w", err)
	}
	return nil
}

// ownership reports store.ErrForbidden for system defaults and
// store.ErrNotFound for rows the caller cannot see.
func (r *categoryRepo) ownership(ctx context.Context, tx pgx.Tx, userID, id string) error {
	var owner string
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(user_id::text, '') FROM categories WHERE id = $1 AND (user_id IS NULL OR user_id = $2)`,
		id, userID).Scan(&owner)
	if err != nil {
		return notFound(err)
	}
	if owner == "" {
		return store.ErrForbidden
	}
	return nil
}

func (r *categoryRepo) Update(ctx context.Context, c *domain.Category) error {
	err := r.s.withUser(ctx, c.UserID, func(tx pgx.Tx) error {
		if err := r.ownership(ctx, tx, c.UserID, c.ID); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`UPDATE categories SET name = $3, type = $4, icon = $5, color = $6
			 WHERE id = $1 AND user_id = $2 RETURNING created_at`,
			c.ID, c.UserID, c.Name, c.Type, c.Icon, c.Color).Scan(&c.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("Update category: %w", err)
	}
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, userID, id string) error {
	err := r.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		if err := r.ownership(ctx, tx, userID, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("Delete category: %w", err)
	}
	return nil
}
