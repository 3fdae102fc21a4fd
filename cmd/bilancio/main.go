package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	gbudget "bilancio/internal/budget/google"
	"bilancio/internal/config"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting bilancio")

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

	// Choose the budget backend (default: sqlite categories table).
	var budgets services.BudgetReader = repo
	if cfg.BudgetBackend == "sheets" {
		client, err := gbudget.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets budget client", "error", err)
			os.Exit(1)
		}
		budgets = client
		logger.Info("Initialized Google Sheets budget backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleBudgetSheetName)
	} else {
		logger.Info("Initialized SQLite budget backend")
	}

	reports := services.NewReportBuilder(repo, budgets, repo)
	reconciler := services.NewAlertReconciler(repo, repo).WithLeadTime(cfg.AlertLeadTimeDays)
	detector := services.NewDetector(repo, repo, cfg.Tolerances())

	srv := apphttp.NewServer(":"+cfg.Port, reports, repo, reconciler, detector)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting bilancio server", "port", cfg.Port, "budget_backend", cfg.BudgetBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
