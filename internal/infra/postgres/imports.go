package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

const importSelect = `SELECT id, user_id, object_uri, original_filename, mime_type, status, job_id,
	transactions_created, error, created_at, updated_at FROM imports`

func scanImport(row pgx.Row) (domain.Import, error) {
	var i domain.Import
	err := row.Scan(&i.ID, &i.UserID, &i.ObjectURI, &i.OriginalFilename, &i.MimeType, &i.Status, &i.JobID,
		&i.TransactionsCreated, &i.Error, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (s *Store) CreateImport(ctx context.Context, imp *domain.Import) error {
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	if imp.Status == "" {
		imp.Status = domain.ImportPending
	}
	err := s.withUser(ctx, imp.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO imports (id, user_id, object_uri, original_filename, mime_type, status, job_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			imp.ID, imp.UserID, imp.ObjectURI, imp.OriginalFilename, imp.MimeType, imp.Status, imp.JobID).
			Scan(&imp.CreatedAt, &imp.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("CreateImport: %w", err)
	}
	return nil
}

func (s *Store) GetImport(ctx context.Context, userID, id string) (*domain.Import, error) {
	var imp domain.Import
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		imp, err = scanImport(tx.QueryRow(ctx, importSelect+` WHERE id = $1 AND user_id = $2`, id, userID))
		return notFound(err)
	})
	if err != nil {
		return nil, fmt.Errorf("GetImport: %w", err)
	}
	return &imp, nil
}

func (s *Store) ListImports(ctx context.Context, userID string, limit int) ([]domain.Import, error) {
	var out []domain.Import
	err := s.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, importSelect+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Import, error) {
			return scanImport(row)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ListImports: %w", err)
	}
	return out, nil
}

// UpdateImportStatus is called by the worker, which acts outside any user session.
func (s *Store) UpdateImportStatus(ctx context.Context, id string, status domain.ImportStatus, created int, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE imports SET status = $2, transactions_created = $3, error = $4, updated_at = now()
		WHERE id = $1`, id, status, created, errMsg)
	if err != nil {
		return fmt.Errorf("UpdateImportStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateImportStatus: %w", store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetImportJob(ctx context.Context, id, jobID string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE imports SET job_id = $2, updated_at = now() WHERE id = $1`, id, jobID); err != nil {
		return fmt.Errorf("SetImportJob: %w", err)
	}
	return nil
}
