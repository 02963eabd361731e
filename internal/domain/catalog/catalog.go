// Package catalog holds the local mirror of the POS ledger's catalog.
// Records are written only by the catalog sync job; the reconciliation core
// reads them for price snapshots and partner id resolution.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrItemNotFound indicates the referenced catalog item is absent
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return fmt.Sprintf("catalog item not found: %s", e.ItemID)
}

// ErrToppingNotFound indicates the referenced topping is absent
type ErrToppingNotFound struct {
	ToppingID uuid.UUID
}

func (e ErrToppingNotFound) Error() string {
	return fmt.Sprintf("topping not found: %s", e.ToppingID)
}

// Item is a sellable catalog item. Partner ids link it back to the POS
// ledger; PartnerVariantID is what receipt line items are keyed by.
type Item struct {
	ID               uuid.UUID `bson:"_id" json:"id"`
	Name             string    `bson:"name" json:"name"`
	Description      string    `bson:"description,omitempty" json:"description,omitempty"`
	Color            string    `bson:"color,omitempty" json:"color,omitempty"`
	Price            int64     `bson:"price" json:"price"` // Minor units
	CategoryID       uuid.UUID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	PartnerItemID    string    `bson:"partner_item_id" json:"partner_item_id"`
	PartnerVariantID string    `bson:"partner_variant_id,omitempty" json:"partner_variant_id,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// Topping is an add-on with its POS modifier option id
type Topping struct {
	ID                uuid.UUID `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Price             int64     `bson:"price" json:"price"` // Minor units
	PartnerModifierID string    `bson:"partner_modifier_id,omitempty" json:"partner_modifier_id,omitempty"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Category groups items, mirrored from the POS ledger
type Category struct {
	ID                uuid.UUID `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Color             string    `bson:"color,omitempty" json:"color,omitempty"`
	PartnerCategoryID string    `bson:"partner_category_id" json:"partner_category_id"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}
