package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
)

var ErrNotFound = errors.New("entry not found")

// LedgerEntry is a stored entry together with its database identity.
type LedgerEntry struct {
	ID        int64
	Entry     core.Entry
	CreatedAt time.Time
}

// Settings holds the persisted calculation settings. ExchangeRate is nil
// when currency conversion is disabled.
type Settings struct {
	StartingBalance decimal.Decimal
	ExchangeRate    *decimal.Decimal
	UpdatedAt       time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateEntry inserts one ledger entry and returns its assigned ID.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (entry_date, gain, loss, withdrawal, deposit) VALUES (?, ?, ?, ?, ?)`,
		e.Date.String(), e.Gain.String(), e.Loss.String(), e.Withdrawal.String(), e.Deposit.String())
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite", "entry_id", id, "entry_date", e.Date.String())
	return id, nil
}

// ListEntries returns every stored entry in ascending date order, with
// the insertion order preserved for equal dates.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entry_date, gain, loss, withdrawal, deposit, created_at
		 FROM entries ORDER BY entry_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// DeleteEntry removes an entry by ID. Returns ErrNotFound when no row
// matches.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Entry deleted from SQLite", "entry_id", id)
	return nil
}

// ReplaceEntries swaps the whole entry set in one transaction, as done
// by a file import. Either every row lands or none does.
func (r *SQLiteRepository) ReplaceEntries(ctx context.Context, entries []core.Entry) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (entry_date, gain, loss, withdrawal, deposit) VALUES (?, ?, ?, ?, ?)`,
			e.Date.String(), e.Gain.String(), e.Loss.String(), e.Withdrawal.String(), e.Deposit.String()); err != nil {
			return 0, fmt.Errorf("insert entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry set replaced", "count", len(entries))
	return len(entries), nil
}

// GetSettings returns the single settings row, seeded by the initial
// migration.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (Settings, error) {
	var (
		s        Settings
		starting string
		rate     sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT starting_balance, exchange_rate, updated_at FROM settings WHERE id = 1`).
		Scan(&starting, &rate, &s.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	if s.StartingBalance, err = decimal.NewFromString(starting); err != nil {
		return Settings{}, fmt.Errorf("parse starting balance %q: %w", starting, err)
	}
	if rate.Valid {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return Settings{}, fmt.Errorf("parse exchange rate %q: %w", rate.String, err)
		}
		s.ExchangeRate = &d
	}
	return s, nil
}

// UpdateSettings overwrites the settings row.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, s Settings) error {
	var rate any
	if s.ExchangeRate != nil {
		rate = s.ExchangeRate.String()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE settings SET starting_balance = ?, exchange_rate = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		s.StartingBalance.String(), rate)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	slog.InfoContext(ctx, "Settings updated", "starting_balance", s.StartingBalance.String())
	return nil
}

func scanEntry(rows *sql.Rows) (LedgerEntry, error) {
	var (
		le                  LedgerEntry
		date                string
		gain, loss, wd, dep string
	)
	if err := rows.Scan(&le.ID, &date, &gain, &loss, &wd, &dep, &le.CreatedAt); err != nil {
		return LedgerEntry{}, fmt.Errorf("scan entry: %w", err)
	}

	var err error
	if le.Entry.Date, err = core.ParseDate(date); err != nil {
		return LedgerEntry{}, fmt.Errorf("entry %d: %w", le.ID, err)
	}
	if le.Entry.Gain, err = decimal.NewFromString(gain); err != nil {
		return LedgerEntry{}, fmt.Errorf("entry %d gain: %w", le.ID, err)
	}
	if le.Entry.Loss, err = decimal.NewFromString(loss); err != nil {
		return LedgerEntry{}, fmt.Errorf("entry %d loss: %w", le.ID, err)
	}
	if le.Entry.Withdrawal, err = decimal.NewFromString(wd); err != nil {
		return LedgerEntry{}, fmt.Errorf("entry %d withdrawal: %w", le.ID, err)
	}
	if le.Entry.Deposit, err = decimal.NewFromString(dep); err != nil {
		return LedgerEntry{}, fmt.Errorf("entry %d deposit: %w", le.ID, err)
	}
	return le, nil
}
