package customer

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines read access for order placement and receipt creation,
// plus the idempotent customer upsert used by the POS customer sync.
// The OwnedBy lookups return nil (no error) when the record exists but does
// not belong to the customer, which placement treats as a validation failure.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	AddressByID(ctx context.Context, id uuid.UUID) (*Address, error)
	AddressOwnedBy(ctx context.Context, addressID, customerID uuid.UUID) (*Address, error)
	PaymentNumberOwnedBy(ctx context.Context, paymentNumberID, customerID uuid.UUID) (*PaymentNumber, error)

	UpsertByPartnerID(ctx context.Context, c *Customer) error
}
