// Package postgres provides PostgreSQL implementations of the domain repositories.
// Orders and transactions live here because the reconciliation state machine
// needs conditional single-writer status updates and atomic daily sequences.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/platform/persistence"
)

const orderColumns = `
	id, order_number, customer_id, items, total_amount,
	delivery_address_id, payment_number_id, status,
	receipt_id, receipt_payload, receipt_data,
	resync_attempts, last_resync_error, last_resync_at,
	created_at, updated_at
`

// OrderRepository implements the order.Repository interface for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction so order and
// transaction rows can be written atomically during placement.
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new order. Line items are stored as a JSONB snapshot; the
// unique order_number constraint backstops the daily sequence.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, order_number, customer_id, items, total_amount,
			delivery_address_id, payment_number_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.querier.Exec(ctx, query,
		o.ID,
		o.OrderNumber,
		o.CustomerID,
		items,
		o.TotalAmount,
		o.DeliveryAddressID,
		o.PaymentNumberID,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", "order_number", o.OrderNumber, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := r.scanOrder(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound{OrderID: id}
		}
		r.logger.Error("Failed to get order", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// GetByCustomer retrieves an order only if it belongs to the customer
func (r *OrderRepository) GetByCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND customer_id = $2`

	o, err := r.scanOrder(r.querier.QueryRow(ctx, query, orderID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound{OrderID: orderID}
		}
		r.logger.Error("Failed to get order for customer",
			"id", orderID.String(), "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// ListByCustomer retrieves a customer's orders, newest first
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.querier.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error("Failed to list orders", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

// MarkConfirmed applies the CONFIRMED transition only from a pre-terminal
// state. A false result means another caller already moved the order on.
func (r *OrderRepository) MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
	`

	tag, err := r.querier.Exec(ctx, query, order.StatusConfirmed, id, order.StatusPending, order.StatusProcessing)
	if err != nil {
		r.logger.Error("Failed to confirm order", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to confirm order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkCancelled applies the CANCELLED transition from any pre-delivery state
func (r *OrderRepository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4, $5)
	`

	tag, err := r.querier.Exec(ctx, query, order.StatusCancelled, id,
		order.StatusPending, order.StatusProcessing, order.StatusConfirmed)
	if err != nil {
		r.logger.Error("Failed to cancel order", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateStatus sets a status unconditionally (operator-driven delivery stages)
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update order status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound{OrderID: id}
	}

	return nil
}

// SetReceiptPayload persists the assembled POS payload ahead of the send
func (r *OrderRepository) SetReceiptPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	query := `UPDATE orders SET receipt_payload = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.querier.Exec(ctx, query, payload, id)
	if err != nil {
		r.logger.Error("Failed to store receipt payload", "id", id.String(), "error", err)
		return fmt.Errorf("failed to store receipt payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound{OrderID: id}
	}

	return nil
}

// SetReceiptResult records the POS receipt id and raw response, and clears
// the resync error from any earlier failed attempt.
func (r *OrderRepository) SetReceiptResult(ctx context.Context, id uuid.UUID, receiptID string, raw json.RawMessage) error {
	query := `
		UPDATE orders
		SET receipt_id = $1, receipt_data = $2, last_resync_error = '', updated_at = NOW()
		WHERE id = $3
	`

	tag, err := r.querier.Exec(ctx, query, receiptID, raw, id)
	if err != nil {
		r.logger.Error("Failed to store receipt result", "id", id.String(), "receipt_id", receiptID, "error", err)
		return fmt.Errorf("failed to store receipt result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound{OrderID: id}
	}

	return nil
}

// RecordResyncFailure increments the attempt counter and stores the error
// without touching the order status.
func (r *OrderRepository) RecordResyncFailure(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE orders
		SET resync_attempts = resync_attempts + 1,
			last_resync_error = $1,
			last_resync_at = NOW(),
			updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.querier.Exec(ctx, query, reason, id)
	if err != nil {
		r.logger.Error("Failed to record resync failure", "id", id.String(), "error", err)
		return fmt.Errorf("failed to record resync failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound{OrderID: id}
	}

	return nil
}

// ListConfirmedWithoutReceipt returns the receipt repair backlog, oldest first
func (r *OrderRepository) ListConfirmedWithoutReceipt(ctx context.Context, limit int) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND (receipt_id IS NULL OR receipt_id = '')
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, order.StatusConfirmed, limit)
	if err != nil {
		r.logger.Error("Failed to list orders without receipts", "error", err)
		return nil, fmt.Errorf("failed to list orders without receipts: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

func (r *OrderRepository) collectOrders(rows pgx.Rows) ([]*order.Order, error) {
	var orders []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o               order.Order
		items           []byte
		receiptID       *string
		receiptPayload  []byte
		receiptData     []byte
		lastResyncError *string
		lastResyncAt    *time.Time
	)

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&items,
		&o.TotalAmount,
		&o.DeliveryAddressID,
		&o.PaymentNumberID,
		&o.Status,
		&receiptID,
		&receiptPayload,
		&receiptData,
		&o.ResyncAttempts,
		&lastResyncError,
		&lastResyncAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	if receiptID != nil {
		o.ReceiptID = *receiptID
	}
	o.ReceiptPayload = receiptPayload
	o.ReceiptData = receiptData
	if lastResyncError != nil {
		o.LastResyncError = *lastResyncError
	}
	o.LastResyncAt = lastResyncAt

	return &o, nil
}
