// Package events consumes payment status events from the stream and feeds
// them into the reconciliation engine.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/platform/messaging/producers"
	"github.com/bobaapp-backend/internal/reconciliation"
)

// StatusApplier is the slice of the reconciliation engine the handler drives
type StatusApplier interface {
	ApplyPaymentStatusByProviderRef(ctx context.Context, event shared.PaymentStatusEvent) (reconciliation.Outcome, error)
}

// PaymentEventHandler handles incoming payment status messages from Kafka
type PaymentEventHandler struct {
	engine   StatusApplier
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewPaymentEventHandler creates a new handler
func NewPaymentEventHandler(
	logger *slog.Logger,
	engine StatusApplier,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		engine:   engine,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one payment status event. Poison messages (bad
// JSON, unknown provider ref) go to the DLQ and commit; transient failures
// return an error so the offset is not committed and the message retries.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.PaymentStatusEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal payment status event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())) {
			return nil
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received payment status event",
		"provider_ref", event.ProviderRef,
		"code", event.Code,
		"source", string(event.Source),
	)

	outcome, err := h.engine.ApplyPaymentStatusByProviderRef(ctx, event)
	if err != nil {
		var notFound transaction.ErrNotFound
		if errors.As(err, &notFound) {
			// Retrying will never help: no transaction carries this
			// provider ref. Park the event for manual inspection.
			logger.Warn("Payment status event matches no transaction",
				"provider_ref", event.ProviderRef,
				"error", err,
			)
			if h.deadLetter(ctx, key, value, fmt.Sprintf("no transaction for provider ref %s", event.ProviderRef)) {
				return nil
			}
			return err
		}

		logger.Error("Failed to apply payment status event",
			"provider_ref", event.ProviderRef,
			"error", err,
		)
		return fmt.Errorf("applying payment status for %s failed: %w", event.ProviderRef, err)
	}

	logger.Info("Payment status event applied",
		"provider_ref", event.ProviderRef,
		"outcome", string(outcome),
	)
	return nil // Success, commit offset
}

// deadLetter publishes to the DLQ and reports whether the message was parked
func (h *PaymentEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string) bool {
	if h.producer == nil {
		return false
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return false
	}
	return true
}
