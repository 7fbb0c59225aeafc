package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/amqp"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/services"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/tabular"
)

// SyncWorker mirrors the derived report to an external destination.
// Every trigger rebuilds the full report from storage, so a lost or
// duplicated message never corrupts the mirror.
type SyncWorker struct {
	ledger *services.LedgerService
	writer sheets.ReportWriter
}

func NewSyncWorker(ledger *services.LedgerService, writer sheets.ReportWriter) *SyncWorker {
	return &SyncWorker{ledger: ledger, writer: writer}
}

// HandleSyncMessage processes a single ledger change message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"reason", msg.Reason,
		"entry_id", msg.EntryID)

	return w.SyncReport(ctx)
}

// SyncReport recomputes the report and pushes both tables to the writer.
func (w *SyncWorker) SyncReport(ctx context.Context) error {
	report, err := w.ledger.Report(ctx)
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}

	daily := tabular.DailyTable(report.Daily)
	monthly := tabular.MonthlyTable(report.Monthly)

	if err := w.writer.WriteDaily(ctx, daily); err != nil {
		return fmt.Errorf("write daily table: %w", err)
	}
	if err := w.writer.WriteMonthly(ctx, monthly); err != nil {
		return fmt.Errorf("write monthly table: %w", err)
	}

	slog.InfoContext(ctx, "Report synced",
		"daily_rows", len(daily.Rows),
		"monthly_rows", len(monthly.Rows))

	return nil
}

// StartupSyncCheck pushes a fresh snapshot at worker startup to recover
// from messages missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup sync")
	if err := w.SyncReport(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

// RunPeriodicSync re-pushes the report on every tick until the context is
// cancelled. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) RunPeriodicSync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.SyncReport(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
