// Package customer holds customers and their owned references (delivery
// addresses and payment numbers) validated at order placement.
package customer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the referenced customer does not exist
type ErrNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("customer not found: %s", e.CustomerID)
}

// Customer carries the POS partner id needed on receipts and the phone
// number used for payment confirmations.
type Customer struct {
	ID                uuid.UUID `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Phone             string    `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	PartnerCustomerID string    `bson:"partner_customer_id,omitempty" json:"partner_customer_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Address is a customer-owned delivery address
type Address struct {
	ID            uuid.UUID `bson:"_id" json:"id"`
	CustomerID    uuid.UUID `bson:"customer_id" json:"customer_id"`
	StreetAddress string    `bson:"street_address" json:"street_address"`
	City          string    `bson:"city" json:"city"`
	Region        string    `bson:"region,omitempty" json:"region,omitempty"`
	Landmark      string    `bson:"landmark,omitempty" json:"landmark,omitempty"`
}

// PaymentNumber is a customer-owned mobile-money account. Provider is the
// issuer name ("mtn", "vodafone", ...) passed through to the payment
// provider on debit initiation.
type PaymentNumber struct {
	ID         uuid.UUID `bson:"_id" json:"id"`
	CustomerID uuid.UUID `bson:"customer_id" json:"customer_id"`
	Number     string    `bson:"number" json:"number"`
	Provider   string    `bson:"provider" json:"provider"`
}
