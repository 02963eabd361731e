// Package mongo provides MongoDB implementations of the catalog, customer,
// and settings repositories. These collections mirror POS-side data and are
// written by the sync job, so document-shaped storage with replace-style
// upserts fits them better than relational tables.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bobaapp-backend/internal/domain/catalog"
)

// Collection names for the mirrored catalog
const (
	ItemsCollectionName      = "items"
	ToppingsCollectionName   = "toppings"
	CategoriesCollectionName = "categories"
)

// CatalogRepository implements the catalog.Repository interface for MongoDB
type CatalogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewCatalogRepository creates a new MongoDB catalog repository
func NewCatalogRepository(logger *slog.Logger, db *mongo.Database) catalog.Repository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// ItemByID retrieves a catalog item for a price snapshot.
// Returns ErrItemNotFound if the item is absent.
func (r *CatalogRepository) ItemByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	collection := r.db.Collection(ItemsCollectionName)

	var item catalog.Item
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get catalog item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	return &item, nil
}

// ToppingByID retrieves a topping.
// Returns ErrToppingNotFound if the topping is absent.
func (r *CatalogRepository) ToppingByID(ctx context.Context, id uuid.UUID) (*catalog.Topping, error) {
	collection := r.db.Collection(ToppingsCollectionName)

	var topping catalog.Topping
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&topping)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrToppingNotFound{ToppingID: id}
		}
		r.logger.Error("Failed to get topping", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get topping: %w", err)
	}

	return &topping, nil
}

// CategoryByPartnerID retrieves a category by its POS-side id.
// Returns nil if no local category is linked to it yet.
func (r *CatalogRepository) CategoryByPartnerID(ctx context.Context, partnerID string) (*catalog.Category, error) {
	collection := r.db.Collection(CategoriesCollectionName)

	var category catalog.Category
	err := collection.FindOne(ctx, bson.M{"partner_category_id": partnerID}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get category by partner id", "partner_id", partnerID, "error", err)
		return nil, fmt.Errorf("failed to get category by partner id: %w", err)
	}

	return &category, nil
}

// UpsertItem replaces the item linked to its partner item id, or inserts it.
// Repeated sync runs converge on the latest POS state.
func (r *CatalogRepository) UpsertItem(ctx context.Context, item *catalog.Item) error {
	collection := r.db.Collection(ItemsCollectionName)

	item.UpdatedAt = time.Now()
	filter := bson.M{"partner_item_id": item.PartnerItemID}
	update := bson.M{
		"$set": bson.M{
			"name":               item.Name,
			"description":        item.Description,
			"color":              item.Color,
			"price":              item.Price,
			"category_id":        item.CategoryID,
			"partner_variant_id": item.PartnerVariantID,
			"updated_at":         item.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        item.ID,
			"created_at": item.UpdatedAt,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert catalog item", "partner_item_id", item.PartnerItemID, "error", err)
		return fmt.Errorf("failed to upsert catalog item: %w", err)
	}

	return nil
}

// UpsertTopping replaces the topping linked to its POS modifier option id
func (r *CatalogRepository) UpsertTopping(ctx context.Context, topping *catalog.Topping) error {
	collection := r.db.Collection(ToppingsCollectionName)

	topping.UpdatedAt = time.Now()
	filter := bson.M{"partner_modifier_id": topping.PartnerModifierID}
	update := bson.M{
		"$set": bson.M{
			"name":       topping.Name,
			"price":      topping.Price,
			"updated_at": topping.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id": topping.ID,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert topping", "partner_modifier_id", topping.PartnerModifierID, "error", err)
		return fmt.Errorf("failed to upsert topping: %w", err)
	}

	return nil
}

// UpsertCategory replaces the category linked to its POS category id
func (r *CatalogRepository) UpsertCategory(ctx context.Context, category *catalog.Category) error {
	collection := r.db.Collection(CategoriesCollectionName)

	category.UpdatedAt = time.Now()
	filter := bson.M{"partner_category_id": category.PartnerCategoryID}
	update := bson.M{
		"$set": bson.M{
			"name":       category.Name,
			"color":      category.Color,
			"updated_at": category.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id": category.ID,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert category", "partner_category_id", category.PartnerCategoryID, "error", err)
		return fmt.Errorf("failed to upsert category: %w", err)
	}

	return nil
}
