package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/platform/messaging/producers"
)

// CallbackServiceImpl implements the CallbackService interface
type CallbackServiceImpl struct {
	transactions transaction.Repository
	producer     producers.MessagePublisher
	logger       *slog.Logger
}

// NewCallbackService creates a new callback service
func NewCallbackService(logger *slog.Logger, transactions transaction.Repository, producer producers.MessagePublisher) CallbackService {
	return &CallbackServiceImpl{
		transactions: transactions,
		producer:     producer,
		logger:       logger,
	}
}

// AcceptCallback records the raw payload against the matching transaction and
// publishes the status event for the reconciler. The payload is persisted
// before publishing so the signal is auditable even if the event is lost.
func (s *CallbackServiceImpl) AcceptCallback(ctx context.Context, providerRef, code string, raw json.RawMessage, correlationID string) (*transaction.Transaction, error) {
	txn, err := s.transactions.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}

	if err := s.transactions.RecordPayload(ctx, txn.ID, raw); err != nil {
		// Non-fatal: the reconciler records the payload again when it
		// applies the event.
		s.logger.Error("Failed to record callback payload",
			"reference", txn.Reference,
			"error", err,
		)
	}

	event := shared.PaymentStatusEvent{
		ProviderRef:   providerRef,
		Code:          code,
		Source:        shared.PaymentEventSourceCallback,
		RawPayload:    raw,
		CorrelationID: correlationID,
		ReceivedAt:    time.Now().UTC(),
	}

	if err := s.producer.Publish(ctx, providerRef, event); err != nil {
		s.logger.Error("Failed to publish payment status event",
			"provider_ref", providerRef,
			"code", code,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Payment callback accepted",
		"provider_ref", providerRef,
		"reference", txn.Reference,
		"code", code,
	)
	return txn, nil
}
