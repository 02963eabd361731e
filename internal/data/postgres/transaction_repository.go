package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/platform/persistence"
)

const transactionColumns = `
	id, order_id, reference, amount, type, status, provider_ref, metadata,
	created_at, updated_at
`

// TransactionRepository implements the transaction.Repository interface for
// PostgreSQL. Conditional status updates make this the serialization point
// for the webhook and poll paths.
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new payment transaction
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (id, order_id, reference, amount, type, status, provider_ref, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`

	_, err = r.querier.Exec(ctx, query,
		t.ID,
		t.OrderID,
		t.Reference,
		t.Amount,
		t.Type,
		t.Status,
		t.ProviderRef,
		meta,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "reference", t.Reference, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound{Ref: id.String()}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// GetByProviderRef retrieves a transaction by the provider's correlation id.
// This is the webhook path lookup.
func (r *TransactionRepository) GetByProviderRef(ctx context.Context, providerRef string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE provider_ref = $1`

	t, err := r.scanTransaction(r.querier.QueryRow(ctx, query, providerRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound{Ref: providerRef}
		}
		r.logger.Error("Failed to get transaction by provider ref", "provider_ref", providerRef, "error", err)
		return nil, fmt.Errorf("failed to get transaction by provider ref: %w", err)
	}

	return t, nil
}

// GetActiveByOrderID resolves "the" transaction for an order as the most
// recently created one.
func (r *TransactionRepository) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := r.scanTransaction(r.querier.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound{Ref: orderID.String()}
		}
		r.logger.Error("Failed to get active transaction", "order_id", orderID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active transaction: %w", err)
	}

	return t, nil
}

// GetSuccessfulByOrderID retrieves a SUCCESS transaction for an order.
// The receipt retry sweep uses this to verify payment before re-sending.
func (r *TransactionRepository) GetSuccessfulByOrderID(ctx context.Context, orderID uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE order_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := r.scanTransaction(r.querier.QueryRow(ctx, query, orderID, transaction.StatusSuccess))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound{Ref: orderID.String()}
		}
		r.logger.Error("Failed to get successful transaction", "order_id", orderID.String(), "error", err)
		return nil, fmt.Errorf("failed to get successful transaction: %w", err)
	}

	return t, nil
}

// SetProviderRef stores the provider correlation id and debit response after
// a successful payment initiation.
func (r *TransactionRepository) SetProviderRef(ctx context.Context, id uuid.UUID, providerRef, paymentStatus string, raw json.RawMessage) error {
	query := `
		UPDATE transactions
		SET provider_ref = $1,
			metadata = metadata || jsonb_build_object('payment_status', $2::text, 'last_payload', $3::jsonb),
			updated_at = NOW()
		WHERE id = $4
	`

	tag, err := r.querier.Exec(ctx, query, providerRef, paymentStatus, raw, id)
	if err != nil {
		r.logger.Error("Failed to set provider ref", "id", id.String(), "provider_ref", providerRef, "error", err)
		return fmt.Errorf("failed to set provider ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrNotFound{Ref: id.String()}
	}

	return nil
}

// UpdateStatusIfPending applies a terminal status only if the row is still
// PENDING. A false result means another writer got there first; the payload
// is still recorded for audit in that case.
func (r *TransactionRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status transaction.Status, payload json.RawMessage) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1,
			metadata = metadata || jsonb_build_object('last_payload', $2::jsonb, 'last_processed_at', to_jsonb(NOW())),
			updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	tag, err := r.querier.Exec(ctx, query, status, normalizePayload(payload), id, transaction.StatusPending)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "id", id.String(), "status", string(status), "error", err)
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if err := r.RecordPayload(ctx, id, payload); err != nil {
			r.logger.Warn("Failed to record payload for already-settled transaction", "id", id.String(), "error", err)
		}
		return false, nil
	}

	return true, nil
}

// MarkFailed forces the FAILED status. Used by the placement compensation
// path when the debit initiation itself fails.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.querier.Exec(ctx, query, transaction.StatusFailed, id)
	if err != nil {
		r.logger.Error("Failed to mark transaction failed", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrNotFound{Ref: id.String()}
	}

	return nil
}

// RecordPayload refreshes the audit payload and processing timestamp without
// touching the status.
func (r *TransactionRepository) RecordPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	query := `
		UPDATE transactions
		SET metadata = metadata || jsonb_build_object('last_payload', $1::jsonb, 'last_processed_at', to_jsonb(NOW())),
			updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.querier.Exec(ctx, query, normalizePayload(payload), id)
	if err != nil {
		r.logger.Error("Failed to record transaction payload", "id", id.String(), "error", err)
		return fmt.Errorf("failed to record transaction payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrNotFound{Ref: id.String()}
	}

	return nil
}

// ListPendingWithProviderRef returns PENDING transactions that have been
// submitted to the provider, oldest first.
func (r *TransactionRepository) ListPendingWithProviderRef(ctx context.Context) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = $1 AND provider_ref IS NOT NULL
		ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, transaction.StatusPending)
	if err != nil {
		r.logger.Error("Failed to list pending transactions", "error", err)
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return transactions, nil
}

func (r *TransactionRepository) scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		t           transaction.Transaction
		providerRef *string
		meta        []byte
	)

	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.Reference,
		&t.Amount,
		&t.Type,
		&t.Status,
		&providerRef,
		&meta,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if providerRef != nil {
		t.ProviderRef = *providerRef
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &t, nil
}

// normalizePayload substitutes an explicit JSON null for empty payloads so
// the jsonb concatenation never sees invalid input.
func normalizePayload(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("null")
	}
	return payload
}
