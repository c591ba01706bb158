// Package pipeline turns an uploaded bank statement into transactions. The
// work is a fixed sequence of steps sharing a PipelineState; an Importer runs
// the sequence for each import job and records the outcome on the import.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// ErrAlreadyProcessed stops the pipeline for an import that already completed.
var ErrAlreadyProcessed = errors.New("import already processed")

// ErrNoTransactions is returned when a statement yields no valid rows.
var ErrNoTransactions = errors.New("no valid transactions found in statement")

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	ImportID  string
	UserID    string
	ObjectURI string
	MimeType  string

	Import       *domain.Import
	User         *domain.User
	Data         []byte
	Categories   []domain.Category
	Rows         []ai.StatementRow
	Transactions []domain.Transaction
	Skipped      []RowError
	Created      int
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// NewStatementImportPipeline creates the standard import pipeline.
func NewStatementImportPipeline(repo Repository, fetcher ObjectFetcher, parser StatementParser, notifier Notifier) *Pipeline {
	return NewPipeline(
		&MarkRunningStep{repo: repo},
		&FetchStatementStep{fetcher: fetcher},
		&ParseStatementStep{repo: repo, parser: parser},
		&TransformTransactionsStep{},
		&InsertTransactionsStep{repo: repo},
		&MarkCompletedStep{repo: repo},
		&NotifyStep{notifier: notifier},
	)
}
