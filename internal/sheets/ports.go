package sheets

import (
	"context"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/tabular"
)

// ReportWriter is the port for outbound report mirrors. Implementations
// replace the destination's contents with the given tables; a report is
// always a full snapshot, never an incremental update.
type ReportWriter interface {
	WriteDaily(ctx context.Context, t tabular.Table) error
	WriteMonthly(ctx context.Context, t tabular.Table) error
}
