package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

// ApplyPaymentStatusByProviderRef applies a status signal looked up by the
// provider's correlation id. This is the webhook path.
func (e *Engine) ApplyPaymentStatusByProviderRef(ctx context.Context, event shared.PaymentStatusEvent) (Outcome, error) {
	txn, err := e.transactions.GetByProviderRef(ctx, event.ProviderRef)
	if err != nil {
		return "", err
	}
	return e.applyStatus(ctx, txn, event.Code, event.RawPayload, event.Source)
}

// ApplyPaymentStatusByID applies a status signal looked up by the local
// transaction id. This is the poll worker path.
func (e *Engine) ApplyPaymentStatusByID(ctx context.Context, id uuid.UUID, code string, raw json.RawMessage) (Outcome, error) {
	txn, err := e.transactions.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return e.applyStatus(ctx, txn, code, raw, shared.PaymentEventSourcePoll)
}

// applyStatus is the single funnel both signal paths go through. The keyed
// mutex serializes signals per transaction; the conditional status update and
// the conditional order confirm are the second and third idempotency layers,
// protecting receipt creation and notification from double-firing even if a
// racing writer slips past the first.
func (e *Engine) applyStatus(ctx context.Context, txn *transaction.Transaction, code string, raw json.RawMessage, source shared.PaymentEventSource) (Outcome, error) {
	e.locks.lock(txn.ID)
	defer e.locks.unlock(txn.ID)

	next := transaction.StatusForProviderCode(code)
	if next == transaction.StatusPending {
		// Still pending on the provider side; keep the payload for audit.
		if err := e.transactions.RecordPayload(ctx, txn.ID, raw); err != nil {
			return "", err
		}
		return OutcomeNoChange, nil
	}

	applied, err := e.transactions.UpdateStatusIfPending(ctx, txn.ID, next, raw)
	if err != nil {
		return "", err
	}
	if !applied {
		e.logger.Info("Duplicate payment signal ignored",
			"reference", txn.Reference, "code", code, "source", string(source))
		return OutcomeAlreadyProcessed, nil
	}

	if next == transaction.StatusFailed {
		if _, err := e.orders.MarkCancelled(ctx, txn.OrderID); err != nil {
			return "", fmt.Errorf("failed to cancel order for failed payment: %w", err)
		}
		e.logger.Info("Payment failed, order cancelled",
			"reference", txn.Reference, "source", string(source))
		return OutcomeCancelled, nil
	}

	confirmed, err := e.orders.MarkConfirmed(ctx, txn.OrderID)
	if err != nil {
		return "", fmt.Errorf("failed to confirm order for successful payment: %w", err)
	}
	if !confirmed {
		// The order already left PENDING/PROCESSING, so the receipt and
		// notification have been handled by whoever moved it.
		e.logger.Info("Order already processed",
			"reference", txn.Reference, "source", string(source))
		return OutcomeAlreadyProcessed, nil
	}

	e.logger.Info("Payment confirmed",
		"reference", txn.Reference, "provider_ref", txn.ProviderRef, "source", string(source))

	o, err := e.orders.GetByID(ctx, txn.OrderID)
	if err != nil {
		// Money was received and the order is CONFIRMED; the sweep repairs
		// the missing receipt later.
		e.logger.Error("Failed to reload confirmed order",
			"order_id", txn.OrderID.String(), "error", err)
		return OutcomeConfirmed, nil
	}

	if err := e.CreatePOSReceipt(ctx, o); err != nil {
		e.logger.Error("Receipt creation failed, will be retried by sweep",
			"order_number", o.OrderNumber, "error", err)
	}

	e.notifyConfirmed(ctx, o, txn)

	return OutcomeConfirmed, nil
}

// notifyConfirmed sends the confirmation SMS. Fire-and-forget: a notification
// failure never affects order state.
func (e *Engine) notifyConfirmed(ctx context.Context, o *order.Order, txn *transaction.Transaction) {
	phone := txn.Metadata.CustomerPhone
	if phone == "" {
		e.logger.Warn("No customer phone for confirmation SMS", "order_number", o.OrderNumber)
		return
	}

	message := fmt.Sprintf("Your order %s has been confirmed and is being prepared. Thank you for choosing BobaApp!", o.OrderNumber)
	if err := e.notifier.Send(ctx, message, phone); err != nil {
		e.logger.Warn("Failed to send confirmation SMS",
			"order_number", o.OrderNumber, "error", err)
	}
}
