package transaction

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines storage operations for transactions.
//
// UpdateStatusIfPending is the only way status leaves PENDING; the bool
// result tells racing callers (webhook vs poll) which of them applied the
// transition. The schema allows multiple transactions per order, but the
// engine enforces a single active transaction: GetActiveByOrderID resolves
// "the" transaction as the most recently created one.
type Repository interface {
	// WithTx returns a repository bound to the given transaction
	WithTx(tx pgx.Tx) Repository

	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*Transaction, error)
	GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*Transaction, error)
	GetSuccessfulByOrderID(ctx context.Context, orderID uuid.UUID) (*Transaction, error)

	// SetProviderRef records the provider correlation id and the raw debit
	// response after a successful payment initiation.
	SetProviderRef(ctx context.Context, id uuid.UUID, providerRef, paymentStatus string, raw json.RawMessage) error

	// UpdateStatusIfPending applies a terminal status only when the stored
	// status is still PENDING, refreshing the audit payload either way.
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status Status, payload json.RawMessage) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// RecordPayload refreshes metadata/timestamps for a signal that caused
	// no transition (duplicate or still-pending provider codes).
	RecordPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error

	// ListPendingWithProviderRef returns transactions the poll worker should
	// query the provider about. Transactions without a provider ref were
	// never submitted and are excluded.
	ListPendingWithProviderRef(ctx context.Context) ([]*Transaction, error)
}
