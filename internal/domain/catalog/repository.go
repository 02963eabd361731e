package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines read access for the reconciliation core and idempotent
// upserts for the catalog sync job. Upserts are keyed by partner id so a
// repeated sync run converges instead of duplicating records.
type Repository interface {
	ItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	ToppingByID(ctx context.Context, id uuid.UUID) (*Topping, error)
	CategoryByPartnerID(ctx context.Context, partnerID string) (*Category, error)

	UpsertItem(ctx context.Context, item *Item) error
	UpsertTopping(ctx context.Context, topping *Topping) error
	UpsertCategory(ctx context.Context, category *Category) error
}
