// Package reconciliation implements the order-payment-receipt state machine:
// order placement with payment initiation, application of provider status
// signals from both the webhook and the poll worker, and mirroring of
// confirmed orders into the POS ledger.
package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/clients/loyverse"
)

// PaymentProvider is the slice of the mobile-money client the engine uses
type PaymentProvider interface {
	GetToken(ctx context.Context, operation string) (string, error)
	InitiatePayment(ctx context.Context, token string, req doronpay.DebitRequest) (*doronpay.DebitResponse, error)
	GetStatus(ctx context.Context, token, providerRef string) (*doronpay.StatusResponse, error)
}

// POSClient is the slice of the POS client the engine uses
type POSClient interface {
	CreateReceipt(ctx context.Context, receipt *loyverse.Receipt) (*loyverse.ReceiptResult, error)
}

// Notifier sends customer notifications. Failures are logged and swallowed;
// a missed SMS never affects order state.
type Notifier interface {
	Send(ctx context.Context, message string, destinations ...string) error
}

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ErrSettingsUnavailable means the store-settings snapshot is empty or
// incomplete, so a receipt cannot be assembled until the sync job runs.
var ErrSettingsUnavailable = errors.New("store settings unavailable")

// ValidationError reports a bad reference at order placement: a missing
// record or one owned by a different customer. The order is not created.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Outcome reports what a payment status signal did. Duplicate signals are a
// normal part of the webhook-plus-poll design, so "already processed" is a
// result, not an error.
type Outcome string

const (
	// OutcomeConfirmed means this signal won the SUCCESS transition
	OutcomeConfirmed Outcome = "CONFIRMED"
	// OutcomeCancelled means this signal won the FAILED transition
	OutcomeCancelled Outcome = "CANCELLED"
	// OutcomeNoChange means the provider still reports the debit pending
	OutcomeNoChange Outcome = "NO_CHANGE"
	// OutcomeAlreadyProcessed means another signal settled the transaction first
	OutcomeAlreadyProcessed Outcome = "ALREADY_PROCESSED"
)
