package memory

import (
	"context"
	"sync"

	ports "github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/sheets"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/tabular"
)

// Writer is an in-memory ReportWriter used for tests and for running the
// worker without a Google spreadsheet configured.
type Writer struct {
	mu      sync.Mutex
	daily   *tabular.Table
	monthly *tabular.Table
	writes  int
}

var _ ports.ReportWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteDaily(ctx context.Context, t tabular.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := cloneTable(t)
	w.daily = &cp
	w.writes++
	return nil
}

func (w *Writer) WriteMonthly(ctx context.Context, t tabular.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := cloneTable(t)
	w.monthly = &cp
	w.writes++
	return nil
}

// Daily returns the last daily table written, or nil.
func (w *Writer) Daily() *tabular.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.daily
}

// Monthly returns the last monthly table written, or nil.
func (w *Writer) Monthly() *tabular.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.monthly
}

// Writes reports how many tables were written in total.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func cloneTable(t tabular.Table) tabular.Table {
	cp := tabular.Table{Header: append([]string(nil), t.Header...)}
	cp.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cp.Rows[i] = append([]string(nil), row...)
	}
	return cp
}
