package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	gbudget "bilancio/internal/budget/google"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting bilancio-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it the worker runs on the timer alone.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing on timer only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - detection will also run on sync messages")
		}
	} else {
		logger.Info("AMQP disabled - detection runs on timer only")
	}

	// Choose the budget backend (default: sqlite categories table).
	var budgets services.BudgetReader = repo
	if cfg.BudgetBackend == "sheets" {
		client, err := gbudget.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets budget client", "error", err)
			os.Exit(1)
		}
		budgets = client
	}

	detector := services.NewDetector(repo, repo, cfg.Tolerances())
	reconciler := services.NewAlertReconciler(repo, repo).WithLeadTime(cfg.AlertLeadTimeDays)
	reports := services.NewReportBuilder(repo, budgets, repo)

	var publisher worker.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	detectWorker := worker.NewDetectionWorker(detector, reconciler, reports, publisher)

	logger.Info("Detection worker configured",
		"interval", cfg.DetectInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return detectWorker.RunPeriodic(ctx, cfg.DetectInterval)
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeTransactionsSynced(ctx, detectWorker.HandleTransactionsSynced(ctx))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Bilancio-worker shutdown complete")
}
