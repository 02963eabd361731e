// Package receiptsweep repairs confirmed orders whose POS receipt is still
// missing, typically because receipt creation failed or timed out during
// payment confirmation.
package receiptsweep

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

// ReceiptCreator is the slice of the reconciliation engine the sweep drives
type ReceiptCreator interface {
	CreatePOSReceipt(ctx context.Context, o *order.Order) error
}

// Sweep is the periodic receipt repair job. Overlapping runs are skipped
// outright: if a tick fires while the previous run is still working, the new
// tick logs and returns.
type Sweep struct {
	orders       order.Repository
	transactions transaction.Repository
	engine       ReceiptCreator
	interval     time.Duration
	batchSize    int
	orderDelay   time.Duration
	running      atomic.Bool
	logger       *slog.Logger
}

// NewSweep creates the receipt retry sweep
func NewSweep(
	logger *slog.Logger,
	cfg *config.ReceiptSweepConfig,
	orders order.Repository,
	transactions transaction.Repository,
	engine ReceiptCreator,
) *Sweep {
	return &Sweep{
		orders:       orders,
		transactions: transactions,
		engine:       engine,
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
		orderDelay:   cfg.OrderDelay,
		logger:       logger,
	}
}

// Start runs the periodic sweep loop until the context is cancelled
func (s *Sweep) Start(ctx context.Context) {
	s.logger.Info("Starting receipt retry sweep", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping receipt retry sweep")
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}

// Run executes one sweep pass. Safe to call directly; concurrent calls
// beyond the first are skipped.
func (s *Sweep) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("Previous sweep still running, skipping this tick")
		return
	}
	defer s.running.Store(false)

	backlog, err := s.orders.ListConfirmedWithoutReceipt(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to list receipt backlog", "error", err)
		return
	}
	if len(backlog) == 0 {
		return
	}

	s.logger.Info("Sweeping orders without receipts", "count", len(backlog))

	for i, o := range backlog {
		if ctx.Err() != nil {
			return
		}
		// Space out attempts so the batch never bursts the POS API
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.orderDelay):
			}
		}

		s.resyncOrder(ctx, o)
	}
}

// resyncOrder re-attempts receipt creation for one order after verifying a
// successful payment actually exists for it.
func (s *Sweep) resyncOrder(ctx context.Context, o *order.Order) {
	if _, err := s.transactions.GetSuccessfulByOrderID(ctx, o.ID); err != nil {
		// A CONFIRMED order without a SUCCESS transaction is a data
		// inconsistency, not a retriable receipt gap.
		s.logger.Warn("Confirmed order has no successful transaction, skipping",
			"order_number", o.OrderNumber, "error", err)
		return
	}

	if err := s.engine.CreatePOSReceipt(ctx, o); err != nil {
		s.logger.Error("Receipt resync failed",
			"order_number", o.OrderNumber,
			"attempts", o.ResyncAttempts+1,
			"error", err)
		if recErr := s.orders.RecordResyncFailure(ctx, o.ID, err.Error()); recErr != nil {
			s.logger.Error("Failed to record resync failure",
				"order_number", o.OrderNumber, "error", recErr)
		}
		return
	}

	s.logger.Info("Receipt resynced", "order_number", o.OrderNumber)
}
