package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/telebot.v3"

	"virtual_persona_bot/internal/app"
	"virtual_persona_bot/internal/domain/interaction"
	"virtual_persona_bot/internal/domain/notify"
	"virtual_persona_bot/internal/infra/config"
	idb "virtual_persona_bot/internal/infra/database"
	"virtual_persona_bot/internal/infra/generation"
	"virtual_persona_bot/internal/infra/httpapi"
	"virtual_persona_bot/internal/infra/logger"
	"virtual_persona_bot/internal/infra/scheduler"
	"virtual_persona_bot/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLog := logger.ForService("main")
	mainLog.WithField("environment", cfg.Environment).Info("Virtual persona fleet starting")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLog.Info("Database connection established")

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := idb.CreateTables(ctx, db); err != nil {
			cancel()
			mainLog.WithError(err).Fatal("Could not ensure database schema")
		}
		cancel()
	}

	// Repositories
	personaRepo := idb.NewPostgresPersonaRepository(db)
	queueRepo := idb.NewPostgresQueueRepository(db)
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	interactionRepo := idb.NewPostgresInteractionRepository(db)
	communityRepo := idb.NewPostgresCommunityRepository(db)

	// Generation collaborators
	imageClient := generation.NewImageClient(cfg.ImageAPIURL, cfg.ImageAPIKey)
	commentClient := generation.NewCommentClient(cfg.TextAPIURL, cfg.TextAPIKey)

	// Optional operator notification channel
	var notifier notify.Client
	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token: cfg.TelegramToken,
			OnError: func(err error, _ telebot.Context) {
				mainLog.WithError(err).Error("Telegram bot error")
			},
		})
		if err != nil {
			mainLog.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = telegram.NewTelebotAdapter(bot)
		mainLog.Info("Telegram notifier initialized")
	}

	// Application services
	tokenService := app.NewTokenService(personaRepo, logger.ForService("tokens"))
	arbiterService := app.NewArbiterService(interactionRepo, personaRepo, interaction.DefaultLimits, logger.ForService("arbiter"))
	postingService := app.NewPostingService(
		tokenService, queueRepo, scheduleRepo, communityRepo, imageClient,
		logger.ForService("posting"), cfg.PublishBatchSize,
	)
	interactionService := app.NewInteractionService(
		personaRepo, communityRepo, arbiterService, commentClient,
		logger.ForService("interactions"), cfg.InteractionBatchSize, cfg.InteractionMultiplier,
	)
	resetService := app.NewResetService(
		tokenService, interactionRepo, queueRepo, notifier, cfg.AdminTelegramID,
		logger.ForService("reset"),
	)

	// In-process scheduler
	if cfg.RunScheduler {
		fleetScheduler := scheduler.NewFleetScheduler(
			resetService, postingService, interactionService,
			logger.ForService("scheduler"),
			cfg.CronSpecTokenReset, cfg.CronSpecPublish, cfg.CronSpecInteractions,
		)
		if err := fleetScheduler.Start(); err != nil {
			mainLog.WithError(err).Fatal("Could not start fleet scheduler")
		}
		defer fleetScheduler.Stop()
	} else {
		mainLog.Info("In-process scheduler disabled, relying on HTTP triggers")
	}

	// HTTP trigger and statistics surface
	server := httpapi.NewServer(
		db, resetService, postingService, interactionService, tokenService,
		queueRepo, cfg.CronSecret, logger.ForService("http"),
	)
	go func() {
		mainLog.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
		if err := server.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	mainLog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		mainLog.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLog.Info("Virtual persona fleet stopped")
}
