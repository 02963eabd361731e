// Package pollworker polls the payment provider for the status of pending
// debits. It is the fallback path for missed or delayed provider callbacks.
package pollworker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/reconciliation"
)

// StatusApplier is the slice of the reconciliation engine the worker drives
type StatusApplier interface {
	ApplyPaymentStatusByID(ctx context.Context, id uuid.UUID, code string, raw json.RawMessage) (reconciliation.Outcome, error)
}

// Worker periodically scans PENDING transactions and applies the provider's
// current status for each. The pool is capped at one worker so status
// applications for any transaction never run concurrently and the provider
// is never hammered.
type Worker struct {
	transactions transaction.Repository
	provider     reconciliation.PaymentProvider
	engine       StatusApplier
	pool         *ants.Pool
	interval     time.Duration
	maxAttempts  int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewWorker creates the status poll worker
func NewWorker(
	logger *slog.Logger,
	cfg *config.PollWorkerConfig,
	transactions transaction.Repository,
	provider reconciliation.PaymentProvider,
	engine StatusApplier,
) (*Worker, error) {
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	return &Worker{
		transactions: transactions,
		provider:     provider,
		engine:       engine,
		pool:         pool,
		interval:     cfg.Interval,
		maxAttempts:  cfg.MaxAttempts,
		retryDelay:   cfg.RetryDelay,
		logger:       logger,
	}, nil
}

// Start runs the periodic scan loop until the context is cancelled
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting status poll worker", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping status poll worker")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// Shutdown releases the worker pool
func (w *Worker) Shutdown() {
	w.pool.Release()
}

// scan enqueues one poll job per PENDING transaction. Submission blocks when
// the single worker is busy, which is the intended backpressure.
func (w *Worker) scan(ctx context.Context) {
	pending, err := w.transactions.ListPendingWithProviderRef(ctx)
	if err != nil {
		w.logger.Error("Failed to scan pending transactions", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	w.logger.Debug("Enqueueing poll jobs", "count", len(pending))

	for _, txn := range pending {
		txn := txn
		if err := w.pool.Submit(func() {
			w.pollOne(ctx, txn)
		}); err != nil {
			w.logger.Error("Failed to submit poll job",
				"reference", txn.Reference, "error", err)
		}
	}
}

// pollOne queries the provider and feeds the result into the engine,
// retrying transient failures a bounded number of times. A dropped job is
// recovered by the next scan since the transaction stays PENDING.
func (w *Worker) pollOne(ctx context.Context, txn *transaction.Transaction) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay * time.Duration(1<<(attempt-2))):
			}
		}

		lastErr = w.pollOnce(ctx, txn)
		if lastErr == nil {
			return
		}

		w.logger.Warn("Poll attempt failed",
			"reference", txn.Reference,
			"attempt", attempt,
			"error", lastErr)
	}

	w.logger.Error("Dropping poll job after retries, will retry on next scan",
		"reference", txn.Reference,
		"attempts", w.maxAttempts,
		"error", lastErr)
}

func (w *Worker) pollOnce(ctx context.Context, txn *transaction.Transaction) error {
	token, err := w.provider.GetToken(ctx, doronpay.OperationDebit)
	if err != nil {
		return err
	}

	status, err := w.provider.GetStatus(ctx, token, txn.ProviderRef)
	if err != nil {
		return err
	}

	outcome, err := w.engine.ApplyPaymentStatusByID(ctx, txn.ID, status.Code, status.Raw)
	if err != nil {
		return err
	}

	if outcome != reconciliation.OutcomeNoChange {
		w.logger.Info("Polled status applied",
			"reference", txn.Reference,
			"code", status.Code,
			"outcome", string(outcome))
	}

	return nil
}
