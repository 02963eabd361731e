package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bobaapp-backend/internal/domain/settings"
)

// SettingsCollectionName is the name of the store settings collection
const SettingsCollectionName = "store_settings"

// The snapshot is a singleton document; a fixed id keeps Replace idempotent.
const settingsDocumentID = "store_settings"

// SettingsRepository implements the settings.Repository interface for MongoDB
type SettingsRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSettingsRepository creates a new MongoDB settings repository
func NewSettingsRepository(logger *slog.Logger, db *mongo.Database) settings.Repository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the store settings snapshot.
// Returns ErrUnavailable when the sync job has not stored one yet.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.StoreSettings, error) {
	collection := r.db.Collection(SettingsCollectionName)

	var s settings.StoreSettings
	err := collection.FindOne(ctx, bson.M{"_id": settingsDocumentID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, settings.ErrUnavailable
		}
		r.logger.Error("Failed to get store settings", "error", err)
		return nil, fmt.Errorf("failed to get store settings: %w", err)
	}

	return &s, nil
}

// Replace overwrites the snapshot with a fresh copy from the POS ledger
func (r *SettingsRepository) Replace(ctx context.Context, s *settings.StoreSettings) error {
	collection := r.db.Collection(SettingsCollectionName)

	s.UpdatedAt = time.Now()
	doc := bson.M{
		"_id":             settingsDocumentID,
		"stores":          s.Stores,
		"payment_methods": s.PaymentMethods,
		"updated_at":      s.UpdatedAt,
	}

	_, err := collection.ReplaceOne(ctx, bson.M{"_id": settingsDocumentID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to replace store settings", "error", err)
		return fmt.Errorf("failed to replace store settings: %w", err)
	}

	return nil
}
