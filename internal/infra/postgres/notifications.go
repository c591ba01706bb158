package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Kind == "" {
		n.Kind = domain.NotificationSystem
	}
	err := s.withUser(ctx, n.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO notifications (id, user_id, title, message, kind, link) VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING created_at`,
			n.ID, n.UserID, n.Title, n.Message, n.Kind, n.Link).Scan(&n.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("CreateNotification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, user_id, title, message, kind, is_read, link, created_at
			FROM notifications
			WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
			ORDER BY created_at DESC
			LIMIT $3`, userID, unreadOnly, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
			var n domain.Notification
			err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind, &n.IsRead, &n.Link, &n.CreatedAt)
			return n, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ListNotifications: %w", err)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("MarkNotificationRead: %w", err)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
		n = tag.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("MarkAllNotificationsRead: %w", err)
	}
	return n, nil
}
