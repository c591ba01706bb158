package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/bigquery"
	"github.com/ns-gamming/ns-tracker-sub000/internal/notionsync"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/spf13/cobra"
)

type exportFlags struct {
	userID string
	from   string
	to     string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&f.from, "from", "", "first date, YYYY-MM-DD (default start of this month)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, YYYY-MM-DD (default today)")
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's transactions to an external system",
	}
	cmd.AddCommand(newExportBigQueryCommand(a), newExportNotionCommand(a))
	return cmd
}

// loadTransactions reads every transaction of userID in [start, end).
func (a *app) loadTransactions(ctx context.Context, userID string, start, end time.Time) ([]domain.Transaction, error) {
	repo, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	txs, err := repo.ListTransactions(ctx, userID, store.TransactionFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Str("user_id", userID).
		Time("start", start).
		Time("end", end).
		Int("count", len(txs)).
		Msg("Loaded transactions")
	return txs, nil
}

func newExportBigQueryCommand(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "bigquery",
		Short: "Stream transactions into the BigQuery warehouse table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(f.from, f.to, time.Now())
			if err != nil {
				return err
			}
			if a.cfg.Warehouse.Project == "" {
				return fmt.Errorf("BIGQUERY_PROJECT is required")
			}

			ctx, cancel := a.context(10 * time.Minute)
			defer cancel()

			txs, err := a.loadTransactions(ctx, f.userID, start, end)
			if err != nil {
				return err
			}

			wh, err := bigquery.NewWarehouse(ctx, a.cfg.Warehouse.Project, a.cfg.Warehouse.Dataset)
			if err != nil {
				return err
			}
			defer wh.Close()

			if err := wh.EnsureTable(ctx); err != nil {
				return err
			}
			n, err := wh.ExportTransactions(ctx, txs, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transaction(s).\n", n)

			// Streamed rows are visible to queries immediately.
			totals, err := wh.SummarizeTransactions(ctx, f.userID, start, end.AddDate(0, 0, -1))
			if err != nil {
				a.log.Warn().Err(err).Msg("Failed to summarize exported transactions")
				return nil
			}
			for _, t := range totals {
				amount := "0"
				if t.Amount != nil {
					amount = t.Amount.FloatString(2)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %5d  %s\n", t.Type, t.Count, amount)
			}
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newExportNotionCommand(a *app) *cobra.Command {
	var f exportFlags
	var token string
	var databaseID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Mirror transactions into a Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(f.from, f.to, time.Now())
			if err != nil {
				return err
			}

			ctx, cancel := a.context(10 * time.Minute)
			defer cancel()

			txs, err := a.loadTransactions(ctx, f.userID, start, end)
			if err != nil {
				return err
			}

			client := notionsync.NewNotionClient(token)
			res, err := notionsync.SyncTransactions(ctx, client, databaseID, f.userID, start, end.AddDate(0, 0, -1), txs, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d, updated %d, archived %d, failed %d.\n",
				res.Created, res.Updated, res.Deleted, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d page(s) failed to sync", res.Failed)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&token, "notion-token", "", "Notion integration token (required)")
	_ = cmd.MarkFlagRequired("notion-token")
	cmd.Flags().StringVar(&databaseID, "db", "", "Notion database id (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without writing to Notion")
	return cmd
}
