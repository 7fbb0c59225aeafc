package worker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/amqp"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/services"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets/memory"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/storage"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHandleSyncMessageWritesBothTables(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewLedgerService(storage.NewMemoryStore(), nil, false)
	writer := memory.NewWriter()
	w := NewSyncWorker(ledger, writer)

	if _, err := ledger.CreateEntry(ctx, core.Entry{Date: core.NewDate(2024, 1, 10), Gain: dec("100")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ledger.CreateEntry(ctx, core.Entry{Date: core.NewDate(2024, 2, 1), Loss: dec("30")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := w.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage(amqp.ReasonEntryCreated, 2)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	daily := writer.Daily()
	if daily == nil || len(daily.Rows) != 2 {
		t.Fatalf("daily table = %+v", daily)
	}
	monthly := writer.Monthly()
	if monthly == nil || len(monthly.Rows) != 2 {
		t.Fatalf("monthly table = %+v", monthly)
	}
	if daily.Header[0] != "Sl" || monthly.Header[1] != "Month" {
		t.Fatalf("unexpected headers: %v / %v", daily.Header, monthly.Header)
	}
}

func TestStartupSyncWithEmptyLedger(t *testing.T) {
	ledger := services.NewLedgerService(storage.NewMemoryStore(), nil, false)
	writer := memory.NewWriter()
	w := NewSyncWorker(ledger, writer)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	if writer.Daily() == nil || len(writer.Daily().Rows) != 0 {
		t.Fatalf("expected empty daily table, got %+v", writer.Daily())
	}
}
