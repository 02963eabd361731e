package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNoItems         = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
)

// ErrNotFound indicates the referenced order does not exist
type ErrNotFound struct {
	OrderID uuid.UUID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}

// Status defines the order lifecycle states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusDelivering Status = "DELIVERING"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
// CANCELLED is reachable from any pre-delivery state; delivery-stage
// transitions are operator-driven and strictly forward.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusConfirmed || next == StatusCancelled
	case StatusProcessing:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusDelivering || next == StatusCancelled
	case StatusDelivering:
		return next == StatusDelivered || next == StatusCancelled
	default:
		return false
	}
}

// ToppingLine is a price-snapshotted topping reference on a line item
type ToppingLine struct {
	ToppingID uuid.UUID `json:"topping_id"`
	Name      string    `json:"name,omitempty"`
	Price     int64     `json:"price"` // Minor units, snapshotted at order time
}

// LineItem is one ordered catalog item with prices snapshotted at order time.
// Subtotal is computed once at creation and never recomputed from the live
// catalog.
type LineItem struct {
	ItemID   uuid.UUID     `json:"item_id"`
	Name     string        `json:"name,omitempty"`
	Quantity int           `json:"quantity"`
	Price    int64         `json:"price"` // Unit price in minor units
	Subtotal int64         `json:"subtotal"`
	Toppings []ToppingLine `json:"toppings,omitempty"`
}

// NewLineItem snapshots an item and its toppings into an order line.
// The subtotal is price*qty plus the topping total applied per unit.
func NewLineItem(itemID uuid.UUID, name string, unitPrice int64, quantity int, toppings []ToppingLine) (LineItem, error) {
	if quantity < 1 {
		return LineItem{}, ErrInvalidQuantity
	}

	var toppingsTotal int64
	for _, t := range toppings {
		toppingsTotal += t.Price
	}

	return LineItem{
		ItemID:   itemID,
		Name:     name,
		Quantity: quantity,
		Price:    unitPrice,
		Subtotal: unitPrice*int64(quantity) + toppingsTotal*int64(quantity),
		Toppings: toppings,
	}, nil
}

// Order is a customer's purchase request with snapshotted pricing.
// Amounts are stored in minor units.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	Items             []LineItem      `json:"items"`
	TotalAmount       int64           `json:"total_amount"`
	DeliveryAddressID uuid.UUID       `json:"delivery_address_id"`
	PaymentNumberID   uuid.UUID       `json:"payment_number_id"`
	Status            Status          `json:"status"`
	ReceiptID         string          `json:"receipt_id,omitempty"`      // POS receipt number, set once sync succeeds
	ReceiptPayload    json.RawMessage `json:"receipt_payload,omitempty"` // Payload persisted before the POS call for audit
	ReceiptData       json.RawMessage `json:"receipt_data,omitempty"`    // Raw POS response
	ResyncAttempts    int             `json:"resync_attempts,omitempty"`
	LastResyncError   string          `json:"last_resync_error,omitempty"`
	LastResyncAt      *time.Time      `json:"last_resync_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// New creates a PENDING order from snapshotted line items
func New(customerID, deliveryAddressID, paymentNumberID uuid.UUID, items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	var total int64
	for _, item := range items {
		total += item.Subtotal
	}

	now := time.Now()
	return &Order{
		ID:                uuid.New(),
		CustomerID:        customerID,
		Items:             items,
		TotalAmount:       total,
		DeliveryAddressID: deliveryAddressID,
		PaymentNumberID:   paymentNumberID,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// FormatOrderNumber builds the human-readable order number
// ORD<YY><MM><DD><seq4>, where seq comes from the per-day atomic counter.
func FormatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD%s%04d", t.Format("060102"), seq)
}

// HasReceipt reports whether the order has been mirrored into the POS ledger
func (o *Order) HasReceipt() bool {
	return o.ReceiptID != ""
}
