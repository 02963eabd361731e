package transaction

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrNotFound indicates no transaction matched the lookup
type ErrNotFound struct {
	Ref string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.Ref)
}

// Status defines payment attempt states. PENDING is the only non-terminal
// state; SUCCESS and FAILED are never left once entered.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// IsTerminal reports whether the status admits no further transition
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransitionTo enforces monotonic PENDING->SUCCESS / PENDING->FAILED
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// StatusForProviderCode maps a provider result code onto a transaction
// status. Unknown codes leave the transaction PENDING.
func StatusForProviderCode(code string) Status {
	switch code {
	case shared.ProviderCodeSuccess:
		return StatusSuccess
	case shared.ProviderCodeFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

// Type is the payment channel
type Type string

const (
	TypeMobileMoney Type = "MOBILE_MONEY"
)

// Metadata is the audit bag attached to a transaction. The payment number
// and provider are snapshotted at creation; the provider payload fields are
// refreshed on every callback or poll result, including duplicates.
type Metadata struct {
	PaymentNumber   string          `json:"payment_number,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	PaymentStatus   string          `json:"payment_status,omitempty"` // INITIATED or FAILED, from the debit response
	LastPayload     json.RawMessage `json:"last_payload,omitempty"`
	LastProcessedAt *time.Time      `json:"last_processed_at,omitempty"`
}

// Transaction is one payment attempt against an order via the mobile-money
// provider. ProviderRef is the provider's correlation id for the debit,
// distinct from the locally generated Reference; a transaction without a
// ProviderRef has never been submitted to the provider.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Reference   string    `json:"reference"`
	Amount      int64     `json:"amount"` // Copy of the order total, minor units
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	Metadata    Metadata  `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New creates a PENDING mobile-money transaction for an order
func New(orderID uuid.UUID, amount int64, meta Metadata) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:        uuid.New(),
		OrderID:   orderID,
		Amount:    amount,
		Type:      TypeMobileMoney,
		Status:    StatusPending,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FormatReference builds the transaction reference
// TXN<YY><MM><DD><seq4><rand3>. The random suffix keeps references unique
// even if two processes race the same daily sequence value.
func FormatReference(t time.Time, seq int64) string {
	return fmt.Sprintf("TXN%s%04d%03d", t.Format("060102"), seq, rand.Intn(1000))
}
