package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/reconciliation"
)

// OrderPlacer is the slice of the reconciliation engine the gateway calls
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, req reconciliation.PlaceOrderRequest) (*reconciliation.PlacementResult, error)
}

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	placer       OrderPlacer
	orders       order.Repository
	transactions transaction.Repository
	logger       *slog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(logger *slog.Logger, placer OrderPlacer, orders order.Repository, transactions transaction.Repository) OrderService {
	return &OrderServiceImpl{
		placer:       placer,
		orders:       orders,
		transactions: transactions,
		logger:       logger,
	}
}

// PlaceOrder delegates to the reconciliation engine
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, customerID uuid.UUID, req reconciliation.PlaceOrderRequest) (*reconciliation.PlacementResult, error) {
	return s.placer.PlaceOrder(ctx, customerID, req)
}

// GetOrder retrieves one of the customer's orders with its latest payment
// attempt. Returns nil order if not found.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*order.Order, *transaction.Transaction, error) {
	o, err := s.orders.GetByCustomer(ctx, orderID, customerID)
	if err != nil {
		var notFound order.ErrNotFound
		if errors.As(err, &notFound) {
			s.logger.Info("Order not found", "order_id", orderID.String())
			return nil, nil, nil
		}
		s.logger.Error("Failed to get order", "order_id", orderID.String(), "error", err)
		return nil, nil, err
	}

	txn, err := s.transactions.GetActiveByOrderID(ctx, o.ID)
	if err != nil {
		var txnNotFound transaction.ErrNotFound
		if errors.As(err, &txnNotFound) {
			// An order can briefly exist without a transaction
			return o, nil, nil
		}
		s.logger.Error("Failed to get order transaction", "order_id", orderID.String(), "error", err)
		return nil, nil, err
	}

	return o, txn, nil
}

// ListOrders retrieves the customer's orders, newest first
func (s *OrderServiceImpl) ListOrders(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error("Failed to list orders", "customer_id", customerID.String(), "error", err)
		return nil, err
	}
	return orders, nil
}
