package shared

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Sequence names used for human-readable order and payment references
const (
	SequenceOrders       = "orders"
	SequenceTransactions = "transactions"
)

// SequenceSource hands out per-day sequence numbers. Implementations must
// guarantee two concurrent callers never draw the same number for the same
// name and day.
type SequenceSource interface {
	// WithTx returns a source bound to the given transaction so a drawn
	// number is released if the enclosing write rolls back
	WithTx(tx pgx.Tx) SequenceSource
	Next(ctx context.Context, name string, day time.Time) (int, error)
}
