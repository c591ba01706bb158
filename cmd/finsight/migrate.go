package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	var dir string
	var appliedBy string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(5 * time.Minute)
			defer cancel()

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			fsys := postgres.MigrationFiles()
			if dir != "" {
				fsys = os.DirFS(dir)
			}
			n, err := store.Migrate(ctx, fsys, appliedBy, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "migrations", "", "migrations directory (defaults to the embedded set)")
	cmd.Flags().StringVar(&appliedBy, "applied-by", "finsight-cli", "recorded in schema_migrations.applied_by")
	return cmd
}
