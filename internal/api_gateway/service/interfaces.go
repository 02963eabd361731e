package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/reconciliation"
)

// OrderService defines the interface for customer-facing order operations
type OrderService interface {
	// PlaceOrder validates, persists and initiates payment for a new order.
	// Returns reconciliation.ValidationError for rejected requests.
	PlaceOrder(ctx context.Context, customerID uuid.UUID, req reconciliation.PlaceOrderRequest) (*reconciliation.PlacementResult, error)

	// GetOrder retrieves one of the customer's orders with its most recent
	// payment attempt. Returns nil order if not found or owned by another
	// customer; the transaction may be nil when none exists.
	GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*order.Order, *transaction.Transaction, error)

	// ListOrders retrieves the customer's orders, newest first
	ListOrders(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error)
}

// CallbackService defines the interface for provider payment callbacks
type CallbackService interface {
	// AcceptCallback records the raw callback payload against the matching
	// transaction and publishes a payment status event for the reconciler.
	// Returns transaction.ErrNotFound when no transaction carries the ref.
	AcceptCallback(ctx context.Context, providerRef, code string, raw json.RawMessage, correlationID string) (*transaction.Transaction, error)
}
