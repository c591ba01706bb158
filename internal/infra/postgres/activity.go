package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

func (s *Store) LogActivity(ctx context.Context, a *domain.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	var metadata any
	if len(a.Metadata) > 0 {
		metadata = string(a.Metadata)
	}
	err := s.withUser(ctx, a.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO activity_logs (id, user_id, action, entity_type, entity_id, metadata, ip, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
			RETURNING created_at`,
			a.ID, a.UserID, a.Action, a.EntityType, a.EntityID, metadata, a.IP, a.UserAgent).Scan(&a.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("LogActivity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	var out []domain.Activity
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, user_id, action, entity_type, entity_id, COALESCE(metadata::text, ''), ip, user_agent, created_at
			FROM activity_logs
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, userID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
			var (
				a        domain.Activity
				metadata string
			)
			err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &metadata, &a.IP, &a.UserAgent, &a.CreatedAt)
			if metadata != "" {
				a.Metadata = []byte(metadata)
			}
			return a, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ListActivity: %w", err)
	}
	return out, nil
}
