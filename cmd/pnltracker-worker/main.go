package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/amqp"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/config"
	applog "github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/log"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/services"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets"
	gsheet "github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets/google"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets/memory"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/storage"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentWorker, applog.Config{})
	applog.SetDefault(logger)

	logger.Info("Starting pnltracker-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// The worker only reads, so it never publishes sync messages itself.
	ledger := services.NewLedgerService(repo, nil, cfg.SignedWithdrawal)
	defer ledger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var writer sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.DailySheetName, cfg.MonthlySheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"daily_sheet", cfg.DailySheetName,
			"monthly_sheet", cfg.MonthlySheetName)
	} else {
		writer = memory.NewWriter()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory mirror")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(ledger, writer)

	// Recover from messages missed while the worker was down.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", applog.FieldError, err)
		// Don't exit - the periodic sync retries.
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerSync(gctx, syncWorker.HandleSyncMessage)
	})
	g.Go(func() error {
		return syncWorker.RunPeriodicSync(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
