package shared

import (
	"encoding/json"
	"time"
)

// PaymentEventSource identifies which path produced a payment status signal
type PaymentEventSource string

const (
	PaymentEventSourceCallback PaymentEventSource = "CALLBACK"
	PaymentEventSourcePoll     PaymentEventSource = "POLL"
)

// Payment provider result codes as delivered by the debit/status endpoints.
// Any other code means the debit is still pending on the provider side.
const (
	ProviderCodeSuccess   = "00"
	ProviderCodeInitiated = "01"
	ProviderCodeFailed    = "02"
)

// PaymentStatusEvent carries one payment status signal from the webhook
// endpoint (or the poll worker) to the reconciliation engine. The raw provider
// payload is preserved for audit.
type PaymentStatusEvent struct {
	ProviderRef   string             `json:"provider_ref"`
	Code          string             `json:"code"`
	Source        PaymentEventSource `json:"source"`
	RawPayload    json.RawMessage    `json:"raw_payload,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
	ReceivedAt    time.Time          `json:"received_at"`
}
