package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
)

func TestMemoryStoreEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	idB, err := store.CreateEntry(ctx, core.Entry{Date: core.NewDate(2024, 2, 1), Gain: dec("2")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateEntry(ctx, core.Entry{Date: core.NewDate(2024, 1, 1), Gain: dec("1")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := store.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Entry.Date.String() != "2024-01-01" {
		t.Fatalf("expected sorted entries, got %+v", entries)
	}

	if err := store.DeleteEntry(ctx, idB); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteEntry(ctx, idB); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReplaceAndSettings(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.CreateEntry(ctx, core.Entry{Date: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := store.ReplaceEntries(ctx, []core.Entry{{Date: core.NewDate(2024, 3, 1), Gain: dec("9")}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	rate := dec("75")
	if err := store.UpdateSettings(ctx, Settings{StartingBalance: dec("10"), ExchangeRate: &rate}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	s, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !s.StartingBalance.Equal(dec("10")) || s.ExchangeRate == nil || !s.ExchangeRate.Equal(rate) {
		t.Fatalf("settings round trip failed: %+v", s)
	}
}
