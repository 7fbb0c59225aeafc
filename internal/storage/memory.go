package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
)

// MemoryStore is an in-memory entry store with the same surface as the
// SQLite repository. Used by the memory backend and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	entries  []LedgerEntry
	settings Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		settings: Settings{StartingBalance: decimal.Zero, UpdatedAt: time.Now()},
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateEntry(_ context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.entries = append(m.entries, LedgerEntry{ID: id, Entry: e, CreatedAt: time.Now()})
	return id, nil
}

func (m *MemoryStore) ListEntries(_ context.Context) ([]LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LedgerEntry, len(m.entries))
	copy(out, m.entries)
	// Date order with insertion order for ties, matching the SQL query.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Entry.Date.Equal(out[j].Entry.Date.Time) {
			return out[i].Entry.Date.Time.Before(out[j].Entry.Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) DeleteEntry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, le := range m.entries {
		if le.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ReplaceEntries(_ context.Context, entries []core.Entry) (int, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
	for _, e := range entries {
		m.entries = append(m.entries, LedgerEntry{ID: m.nextID, Entry: e, CreatedAt: time.Now()})
		m.nextID++
	}
	return len(entries), nil
}

func (m *MemoryStore) GetSettings(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	if s.ExchangeRate != nil {
		rate := *s.ExchangeRate
		s.ExchangeRate = &rate
	}
	return s, nil
}

func (m *MemoryStore) UpdateSettings(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now()
	m.settings = s
	return nil
}
