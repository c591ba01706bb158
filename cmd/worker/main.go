package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/config"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
	"github.com/ns-gamming/ns-tracker-sub000/internal/notify"
	"github.com/rs/zerolog"
)

func main() {
	once := flag.Bool("once", false, "Run a single reminder sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	var telegram notify.Sender
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			telegram = tg
		}
	}
	// The API process owns the realtime hub; reminders reach clients on their next fetch.
	notifier := notify.NewService(repo, nil, telegram, log)

	sweep := func() {
		runReminders(logger.WithContext(ctx, log), notifier, repo, log)
	}

	if *once {
		sweep()
		return
	}

	interval := cfg.ReminderInterval
	if interval <= 0 {
		interval = time.Hour
	}
	log.Info().Dur("interval", interval).Msg("Starting reminder worker")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-quit:
			log.Info().Msg("Reminder worker exited")
			return
		}
	}
}

func runReminders(ctx context.Context, notifier *notify.Service, repo *postgres.Store, log zerolog.Logger) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	sent, err := notifier.SendBillReminders(ctx, repo.Bills(), today)
	if err != nil {
		log.Error().Err(err).Int("sent", sent).Msg("Reminder sweep finished with errors")
		return
	}
	log.Info().Int("sent", sent).Msg("Reminder sweep finished")
}
