package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/config"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
)

var (
	databaseURL   = flag.String("database-url", "", "Postgres connection string (or set DATABASE_URL)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Path to a migrations directory (defaults to the embedded set)")
	status        = flag.Bool("status", false, "Print applied and pending migrations without applying anything")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	url := *databaseURL
	if url == "" {
		url = cfg.DatabaseURL
	}
	if url == "" {
		log.Fatal().Msg("-database-url flag or DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := postgres.New(ctx, url)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	fsys := migrationSource(*migrationsDir)

	if *status {
		if err := printStatus(ctx, store, fsys); err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration status")
		}
		return
	}

	n, err := store.Migrate(logger.WithContext(ctx, log), fsys, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Int("applied", n).Msg("Migration failed")
	}
	if n == 0 {
		log.Info().Msg("No pending migrations. Database is up to date.")
		return
	}
	log.Info().Int("applied", n).Msg("Migrations applied")
}

// migrationSource returns dir as a filesystem, or the embedded migrations
// when dir is empty.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return postgres.MigrationFiles()
	}
	return os.DirFS(dir)
}

func printStatus(ctx context.Context, store *postgres.Store, fsys fs.FS) error {
	all, err := postgres.ReadMigrations(fsys)
	if err != nil {
		return err
	}
	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		// schema_migrations does not exist before the first run
		applied = nil
	}
	for _, a := range applied {
		fmt.Printf("applied  %04d_%s  %s  %s\n", a.Version, a.Name, a.AppliedAt.Format(time.RFC3339), a.AppliedBy)
	}
	for _, m := range postgres.PendingMigrations(all, applied) {
		fmt.Printf("pending  %s\n", m.Filename)
	}
	return nil
}
