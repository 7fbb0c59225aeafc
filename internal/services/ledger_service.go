package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/amqp"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/storage"
)

// EntryStore is the persistence surface the service needs. Both the
// SQLite repository and the in-memory store satisfy it.
type EntryStore interface {
	CreateEntry(ctx context.Context, e core.Entry) (int64, error)
	ListEntries(ctx context.Context) ([]storage.LedgerEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
	ReplaceEntries(ctx context.Context, entries []core.Entry) (int, error)
	GetSettings(ctx context.Context) (storage.Settings, error)
	UpdateSettings(ctx context.Context, s storage.Settings) error
	Close() error
}

// SyncPublisher notifies downstream consumers that the ledger changed.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, msg *amqp.LedgerSyncMessage) error
}

// Report is the full derived view of the ledger.
type Report struct {
	Daily   []core.DailyRecord
	Monthly []core.MonthlyRecord
}

// LedgerService orchestrates ledger operations across storage and AMQP.
// Writes go to storage first; the sync message is best effort and never
// fails the request.
type LedgerService struct {
	store            EntryStore
	publisher        SyncPublisher
	signedWithdrawal bool
}

func NewLedgerService(store EntryStore, publisher SyncPublisher, signedWithdrawal bool) *LedgerService {
	return &LedgerService{
		store:            store,
		publisher:        publisher,
		signedWithdrawal: signedWithdrawal,
	}
}

func (s *LedgerService) CreateEntry(ctx context.Context, e core.Entry) (int64, error) {
	id, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save entry: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerSyncMessage(amqp.ReasonEntryCreated, id))
	return id, nil
}

func (s *LedgerService) ListEntries(ctx context.Context) ([]storage.LedgerEntry, error) {
	return s.store.ListEntries(ctx)
}

func (s *LedgerService) DeleteEntry(ctx context.Context, id int64) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerSyncMessage(amqp.ReasonEntryDeleted, id))
	return nil
}

// ImportEntries replaces the whole ledger with the given entries.
func (s *LedgerService) ImportEntries(ctx context.Context, entries []core.Entry) (int, error) {
	n, err := s.store.ReplaceEntries(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("replace entries: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerSyncMessage(amqp.ReasonImport, 0))
	return n, nil
}

func (s *LedgerService) Settings(ctx context.Context) (storage.Settings, error) {
	return s.store.GetSettings(ctx)
}

func (s *LedgerService) UpdateSettings(ctx context.Context, settings storage.Settings) error {
	opts := core.Options{
		StartingBalance:  settings.StartingBalance,
		ExchangeRate:     settings.ExchangeRate,
		SignedWithdrawal: s.signedWithdrawal,
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerSyncMessage(amqp.ReasonSettingsUpdated, 0))
	return nil
}

// Report derives the daily and monthly views from current storage state.
func (s *LedgerService) Report(ctx context.Context) (Report, error) {
	ledger, err := s.store.ListEntries(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list entries: %w", err)
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load settings: %w", err)
	}

	entries := make([]core.Entry, len(ledger))
	for i, le := range ledger {
		entries[i] = le.Entry
	}

	opts := core.Options{
		StartingBalance:  settings.StartingBalance,
		ExchangeRate:     settings.ExchangeRate,
		SignedWithdrawal: s.signedWithdrawal,
	}

	daily, err := core.ComputeDaily(entries, opts)
	if err != nil {
		return Report{}, fmt.Errorf("compute daily: %w", err)
	}
	monthly, err := core.ComputeMonthly(daily, opts)
	if err != nil {
		return Report{}, fmt.Errorf("compute monthly: %w", err)
	}

	return Report{Daily: daily, Monthly: monthly}, nil
}

// Options reports the calculation options currently in effect.
func (s *LedgerService) Options(ctx context.Context) (core.Options, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return core.Options{}, fmt.Errorf("load settings: %w", err)
	}
	return core.Options{
		StartingBalance:  settings.StartingBalance,
		ExchangeRate:     settings.ExchangeRate,
		SignedWithdrawal: s.signedWithdrawal,
	}, nil
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerSyncMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping sync message",
			"reason", msg.Reason)
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, msg); err != nil {
		// The local write already succeeded; the worker catches up on
		// its periodic tick.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"reason", msg.Reason,
			"entry_id", msg.EntryID,
			"error", err)
	}
}

func (s *LedgerService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
