package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
)

// MarkRunningStep loads the import and its owner and marks it running.
type MarkRunningStep struct {
	repo Repository
}

func (s *MarkRunningStep) Name() string { return "mark_running" }

func (s *MarkRunningStep) Execute(ctx context.Context, state *PipelineState) error {
	imp, err := s.repo.GetImport(ctx, state.UserID, state.ImportID)
	if err != nil {
		return jobs.Permanent(err)
	}
	if imp.Status == domain.ImportCompleted {
		return ErrAlreadyProcessed
	}
	user, err := s.repo.GetUser(ctx, state.UserID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateImportStatus(ctx, imp.ID, domain.ImportRunning, 0, ""); err != nil {
		return err
	}
	imp.Status = domain.ImportRunning
	state.Import = imp
	state.User = user
	if state.ObjectURI == "" {
		state.ObjectURI = imp.ObjectURI
	}
	if state.MimeType == "" {
		state.MimeType = imp.MimeType
	}
	return nil
}

// FetchStatementStep downloads the uploaded file.
type FetchStatementStep struct {
	fetcher ObjectFetcher
}

func (s *FetchStatementStep) Name() string { return "fetch" }

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.fetcher.Fetch(ctx, state.ObjectURI)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return jobs.Permanent(fmt.Errorf("statement %s is empty", state.ObjectURI))
	}
	state.Data = data
	return nil
}

// ParseStatementStep asks the model for the statement rows.
type ParseStatementStep struct {
	repo   Repository
	parser StatementParser
}

func (s *ParseStatementStep) Name() string { return "parse" }

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	cats, err := s.repo.Categories().List(ctx, state.UserID)
	if err != nil {
		return err
	}
	state.Categories = cats

	rows, err := s.parser.ParseStatement(ctx, state.Data, state.MimeType, cats)
	if err != nil {
		return err
	}
	state.Rows = rows
	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(rows)).Msg("Statement parsed")
	return nil
}

// TransformTransactionsStep validates rows into transactions.
type TransformTransactionsStep struct{}

func (s *TransformTransactionsStep) Name() string { return "transform" }

func (s *TransformTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	currency := domain.DefaultCurrency
	if state.User != nil {
		currency = state.User.Currency
	}
	state.Transactions, state.Skipped = TransformRows(state.Rows, state.UserID, currency, NewCategoryMatcher(state.Categories))
	log := logger.FromContext(ctx)
	for _, sk := range state.Skipped {
		log.Warn().Int("row", sk.Row).Str("reason", sk.Reason).Msg("Skipping statement row")
	}
	if len(state.Transactions) == 0 {
		return jobs.Permanent(ErrNoTransactions)
	}
	return nil
}

// InsertTransactionsStep stores the transactions in one batch.
type InsertTransactionsStep struct {
	repo Repository
}

func (s *InsertTransactionsStep) Name() string { return "insert" }

func (s *InsertTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	n, err := s.repo.CreateTransactions(ctx, state.Transactions)
	if err != nil {
		return err
	}
	state.Created = n
	return nil
}

// MarkCompletedStep records the number of transactions created. Skipped rows
// are summarized in the import's error field.
type MarkCompletedStep struct {
	repo Repository
}

func (s *MarkCompletedStep) Name() string { return "mark_completed" }

func (s *MarkCompletedStep) Execute(ctx context.Context, state *PipelineState) error {
	note := ""
	if len(state.Skipped) > 0 {
		parts := make([]string, len(state.Skipped))
		for i, sk := range state.Skipped {
			parts[i] = sk.Error()
		}
		note = Truncate(fmt.Sprintf("%d rows skipped: %s", len(state.Skipped), strings.Join(parts, "; ")), MaxErrorLength)
	}
	if err := s.repo.UpdateImportStatus(ctx, state.ImportID, domain.ImportCompleted, state.Created, note); err != nil {
		// the rows are already stored, a retry would duplicate them
		return jobs.Permanent(err)
	}
	return nil
}

// NotifyStep tells the user the import finished. Delivery failures are logged only.
type NotifyStep struct {
	notifier Notifier
}

func (s *NotifyStep) Name() string { return "notify" }

func (s *NotifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.notifier == nil {
		return nil
	}
	name := path.Base(state.ObjectURI)
	if state.Import != nil && state.Import.OriginalFilename != "" {
		name = state.Import.OriginalFilename
	}
	msg := fmt.Sprintf("%d transactions imported from %s.", state.Created, name)
	if len(state.Skipped) > 0 {
		msg += fmt.Sprintf(" %d rows could not be read.", len(state.Skipped))
	}
	err := s.notifier.Notify(ctx, &domain.Notification{
		UserID:  state.UserID,
		Title:   "Statement imported",
		Message: msg,
		Kind:    domain.NotificationImport,
		Link:    "/imports/" + state.ImportID,
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to send import notification")
	}
	return nil
}
