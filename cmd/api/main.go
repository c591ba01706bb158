package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/api/handlers"
	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/auth"
	"github.com/ns-gamming/ns-tracker-sub000/internal/config"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/gcs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs"
	"github.com/ns-gamming/ns-tracker-sub000/internal/jobs/inmemory"
	"github.com/ns-gamming/ns-tracker-sub000/internal/logger"
	"github.com/ns-gamming/ns-tracker-sub000/internal/market"
	"github.com/ns-gamming/ns-tracker-sub000/internal/news"
	"github.com/ns-gamming/ns-tracker-sub000/internal/notify"
	"github.com/ns-gamming/ns-tracker-sub000/internal/pipeline"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
)

func main() {
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	repo, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	hub := realtime.NewHub(log)

	var telegram notify.Sender
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			telegram = tg
		}
	}
	notifier := notify.NewService(repo, hub, telegram, log)

	prices := market.NewClient(market.Config{
		CoinGeckoBaseURL: cfg.Market.CoinGeckoBaseURL,
		MetalsURL:        cfg.Market.MetalsURL,
		MetalsPaths:      cfg.Market.MetalsPaths,
		CacheTTL:         cfg.Market.CacheTTL,
	}, nil)
	headlines := news.NewClient(cfg.News.BaseURL, cfg.News.APIKey, nil)

	var advisor *ai.Advisor
	var categorizer finance.Categorizer
	if cfg.AI.APIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		advisor = ai.NewAdvisor(gemini)
		categorizer = advisor
	} else {
		log.Warn().Msg("No GEMINI_API_KEY configured - AI features will be disabled")
	}

	svc := finance.NewService(repo, categorizer, notifier, hub, prices, log)

	var assistant *finance.Assistant
	if advisor != nil {
		assistant = finance.NewAssistant(svc, advisor)
	}

	var storage handlers.ObjectStorage
	var bucket *gcs.Client
	if cfg.Storage.Bucket != "" {
		bucket, err = gcs.NewClient(ctx, cfg.Storage.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer bucket.Close()
		storage = bucket
	} else {
		log.Warn().Msg("No GCS bucket configured - statement imports and avatars will be disabled")
	}

	// Statement imports need both the bucket and the model.
	jobStore := inmemory.NewStore()
	var publisher jobs.Publisher
	var queue *inmemory.Queue
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if bucket != nil && advisor != nil {
		queue = inmemory.NewQueue(100, 2, jobStore, log)
		importer := pipeline.NewImporter(repo, bucket, advisor, notifier)
		if err := queue.Start(logger.WithContext(workerCtx, log), importer.Handle); err != nil {
			log.Fatal().Err(err).Msg("Failed to start import worker")
		}
		publisher = queue
		log.Info().Msg("Import worker started")
	}

	mux := http.NewServeMux()
	handlers.Register(mux, &handlers.Handlers{
		Transactions:  handlers.NewTransactionsHandler(svc, log),
		Dashboard:     handlers.NewDashboardHandler(svc),
		AI:            handlers.NewAIHandler(assistant, log),
		Market:        handlers.NewMarketHandler(svc, prices, headlines),
		Activity:      handlers.NewActivityHandler(svc),
		Resources:     handlers.NewResources(svc),
		Bills:         handlers.NewBillsHandler(svc),
		Profile:       handlers.NewProfileHandler(svc, storage, log),
		Notifications: handlers.NewNotificationsHandler(svc),
		Imports:       handlers.NewImportsHandler(svc, storage, publisher, jobStore, log),
		Realtime:      hub,
	})

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(verifier, "/health")(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if queue != nil {
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		cancelWorker()
		if err := queue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
	}

	log.Info().Msg("Server exited")
}
