package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

func (s *Store) AppendChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	err := s.withUser(ctx, m.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO chat_messages (id, user_id, role, content) VALUES ($1, $2, $3, $4) RETURNING created_at`,
			m.ID, m.UserID, m.Role, m.Content).Scan(&m.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("AppendChatMessage: %w", err)
	}
	return nil
}

// ChatHistory returns the latest limit messages, oldest first.
func (s *Store) ChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, user_id, role, content, created_at FROM (
				SELECT id, user_id, role, content, created_at
				FROM chat_messages
				WHERE user_id = $1
				ORDER BY created_at DESC
				LIMIT $2
			) recent
			ORDER BY created_at ASC`, userID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ChatMessage, error) {
			var m domain.ChatMessage
			err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
			return m, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ChatHistory: %w", err)
	}
	return out, nil
}

func (s *Store) ClearChat(ctx context.Context, userID string) error {
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("ClearChat: %w", err)
	}
	return nil
}
