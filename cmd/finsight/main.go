// Command finsight is the operator CLI: migrations, tokens, reminder sweeps,
// AI advice in the terminal and exports to BigQuery and Notion.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/config"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// app carries what every command needs after configuration is loaded.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "Operate the FinSight finance tracker backend",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := os.Setenv("FINSIGHT_CONFIG", configPath); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides FINSIGHT_CONFIG)")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newTokenCommand(a),
		newRemindCommand(a),
		newAdviseCommand(a),
		newExportCommand(a),
	)
	return rootCmd
}

// store opens the Postgres store named by DATABASE_URL.
func (a *app) store(ctx context.Context) (*postgres.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return postgres.New(ctx, a.cfg.DatabaseURL)
}

func (a *app) context(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return logger.WithContext(ctx, a.log), cancel
}

// parseRange resolves --from/--to into a [start, end) range. from defaults to
// the first day of the current month and to defaults to today; both are
// inclusive dates.
func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q, expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if last, err = time.Parse(dateLayout, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q, expected YYYY-MM-DD", to)
		}
	}
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return start, last.AddDate(0, 0, 1), nil
}
