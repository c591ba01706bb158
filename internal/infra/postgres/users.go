package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

const userSelect = `SELECT id, email, full_name, avatar_url, currency, theme, telegram_chat_id, created_at, updated_at FROM users`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.Currency, &u.Theme,
		&u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u *domain.User
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, userSelect+` WHERE id = $1`, userID))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

// EnsureUser returns the profile for userID, creating a default one on first use.
func (s *Store) EnsureUser(ctx context.Context, userID, email string) (*domain.User, error) {
	var u *domain.User
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, currency) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			userID, email, domain.DefaultCurrency); err != nil {
			return err
		}
		var err error
		u, err = scanUser(tx.QueryRow(ctx, userSelect+` WHERE id = $1`, userID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("EnsureUser: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	err := s.withUser(ctx, u.ID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users SET full_name = $2, currency = $3, theme = $4, telegram_chat_id = $5, updated_at = now()
			WHERE id = $1
			RETURNING email, avatar_url, created_at, updated_at`,
			u.ID, u.FullName, u.Currency, u.Theme, u.TelegramChatID).
			Scan(&u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
		return notFound(err)
	})
	if err != nil {
		return fmt.Errorf("UpdateUser: %w", err)
	}
	return nil
}

func (s *Store) SetAvatarURL(ctx context.Context, userID, url string) error {
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1`, userID, url)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("SetAvatarURL: %w", err)
	}
	return nil
}
