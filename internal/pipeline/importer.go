package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
)

// MaxErrorLength bounds the error text stored on an import.
const MaxErrorLength = 500

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateRunes(s, n-len("...")) + "..."
}

// Importer runs the import pipeline for queued jobs.
type Importer struct {
	pipeline *Pipeline
	repo     Repository
	notifier Notifier
}

// NewImporter creates an importer using the standard pipeline.
func NewImporter(repo Repository, fetcher ObjectFetcher, parser StatementParser, notifier Notifier) *Importer {
	return &Importer{
		pipeline: NewStatementImportPipeline(repo, fetcher, parser, notifier),
		repo:     repo,
		notifier: notifier,
	}
}

// Handle implements jobs.JobHandler. A failure on the job's last attempt
// marks the import failed and notifies the user; earlier failures put it
// back to pending.
func (im *Importer) Handle(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.ImportStatementJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected job type %s", job.GetType()))
	}
	log := logger.FromContext(ctx).With().Str("user_id", j.UserID).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{
		ImportID:  j.ImportID,
		UserID:    j.UserID,
		ObjectURI: j.ObjectURI,
		MimeType:  j.MimeType,
	}
	err := im.pipeline.Execute(ctx, state)
	switch {
	case err == nil:
		log.Info().Int("created", state.Created).Int("skipped", len(state.Skipped)).Msg("Statement imported")
		return nil
	case errors.Is(err, ErrAlreadyProcessed):
		log.Info().Msg("Import already completed, skipping")
		return nil
	}

	msg := Truncate(err.Error(), MaxErrorLength)
	final := errors.Is(err, jobs.ErrPermanent) || j.RetryCount >= j.MaxRetries
	status := domain.ImportPending
	if final {
		status = domain.ImportFailed
	}
	if uerr := im.repo.UpdateImportStatus(ctx, j.ImportID, status, 0, msg); uerr != nil {
		log.Error().Err(uerr).Msg("Failed to record import failure")
	}
	if final && im.notifier != nil {
		nerr := im.notifier.Notify(ctx, &domain.Notification{
			UserID:  j.UserID,
			Title:   "Statement import failed",
			Message: msg,
			Kind:    domain.NotificationImport,
			Link:    "/imports/" + j.ImportID,
		})
		if nerr != nil {
			log.Error().Err(nerr).Msg("Failed to send import failure notification")
		}
	}
	return err
}
