package order

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines storage operations for orders.
//
// Status writes go through the conditional Mark* methods so that concurrent
// payment signals cannot double-apply a transition: the bool result reports
// whether this caller won the transition.
type Repository interface {
	// WithTx returns a repository bound to the given transaction
	WithTx(tx pgx.Tx) Repository

	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error)

	// MarkConfirmed transitions PENDING/PROCESSING -> CONFIRMED.
	// Returns false when the order was already confirmed, cancelled or delivered.
	MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkCancelled transitions any pre-delivery state -> CANCELLED.
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// SetReceiptPayload persists the assembled POS payload before it is sent,
	// so the attempt is auditable even if the call fails or times out.
	SetReceiptPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	SetReceiptResult(ctx context.Context, id uuid.UUID, receiptID string, raw json.RawMessage) error
	RecordResyncFailure(ctx context.Context, id uuid.UUID, reason string) error

	// ListConfirmedWithoutReceipt returns the repair backlog for the receipt
	// retry sweep, oldest first, bounded by limit.
	ListConfirmedWithoutReceipt(ctx context.Context, limit int) ([]*Order, error)
}
