// Package catalogsync mirrors the POS ledger's catalog (categories, items,
// customers) and store settings into local storage. Everything it writes is
// an idempotent upsert keyed by the POS-side id, so repeated runs converge.
package catalogsync

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/domain/catalog"
	"github.com/bobaapp-backend/internal/domain/customer"
	"github.com/bobaapp-backend/internal/domain/settings"
)

// POS item descriptions arrive as HTML fragments
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// CatalogSource is the slice of the POS client the sync job uses
type CatalogSource interface {
	GetStoreSettings(ctx context.Context) (*loyverse.StoreSettings, error)
	GetItems(ctx context.Context) ([]loyverse.Item, error)
	GetCategories(ctx context.Context) ([]loyverse.Category, error)
	GetCustomers(ctx context.Context) ([]loyverse.Customer, error)
}

// Job pulls POS catalog data into the local mirror on a fixed interval
type Job struct {
	pos       CatalogSource
	catalog   catalog.Repository
	customers customer.Repository
	settings  settings.Repository
	interval  time.Duration
	logger    *slog.Logger
}

// NewJob creates the catalog sync job
func NewJob(
	logger *slog.Logger,
	cfg *config.CatalogSyncConfig,
	pos CatalogSource,
	catalogRepo catalog.Repository,
	customers customer.Repository,
	settingsRepo settings.Repository,
) *Job {
	return &Job{
		pos:       pos,
		catalog:   catalogRepo,
		customers: customers,
		settings:  settingsRepo,
		interval:  cfg.Interval,
		logger:    logger,
	}
}

// Start runs the periodic sync loop until the context is cancelled. One pass
// runs immediately so a fresh deployment does not wait a full interval for
// its first catalog.
func (j *Job) Start(ctx context.Context) {
	j.logger.Info("Starting catalog sync job", "interval", j.interval.String())

	j.Run(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Stopping catalog sync job")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

// Run executes one full sync pass. Categories come first so items can link
// to them; a failed stage is logged and the remaining stages still run.
func (j *Job) Run(ctx context.Context) {
	if err := j.syncCategories(ctx); err != nil {
		j.logger.Error("Category sync failed", "error", err)
	}
	if err := j.syncItems(ctx); err != nil {
		j.logger.Error("Item sync failed", "error", err)
	}
	if err := j.syncCustomers(ctx); err != nil {
		j.logger.Error("Customer sync failed", "error", err)
	}
	if err := j.syncStoreSettings(ctx); err != nil {
		j.logger.Error("Store settings sync failed", "error", err)
	}
}

func (j *Job) syncCategories(ctx context.Context) error {
	categories, err := j.pos.GetCategories(ctx)
	if err != nil {
		return err
	}

	for _, c := range categories {
		if err := j.catalog.UpsertCategory(ctx, &catalog.Category{
			ID:                uuid.New(),
			Name:              c.Name,
			Color:             c.Color,
			PartnerCategoryID: c.ID,
		}); err != nil {
			j.logger.Error("Failed to upsert category",
				"partner_category_id", c.ID, "error", err)
		}
	}

	j.logger.Debug("Categories synced", "count", len(categories))
	return nil
}

func (j *Job) syncItems(ctx context.Context) error {
	items, err := j.pos.GetItems(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		if len(item.Variants) == 0 {
			j.logger.Warn("POS item has no variants, skipping", "partner_item_id", item.ID)
			continue
		}

		var categoryID uuid.UUID
		if item.CategoryID != "" {
			category, err := j.catalog.CategoryByPartnerID(ctx, item.CategoryID)
			if err != nil {
				j.logger.Warn("Failed to resolve category for item",
					"partner_item_id", item.ID, "error", err)
			} else if category != nil {
				categoryID = category.ID
			}
		}

		// The POS models one sellable item as item+variant; the first
		// variant carries the price and the id receipts are keyed by.
		variant := item.Variants[0]
		if err := j.catalog.UpsertItem(ctx, &catalog.Item{
			ID:               uuid.New(),
			Name:             item.ItemName,
			Description:      htmlTagPattern.ReplaceAllString(item.Description, ""),
			Color:            item.Color,
			Price:            toMinorUnits(variant.Cost),
			CategoryID:       categoryID,
			PartnerItemID:    item.ID,
			PartnerVariantID: variant.VariantID,
		}); err != nil {
			j.logger.Error("Failed to upsert item", "partner_item_id", item.ID, "error", err)
		}
	}

	j.logger.Debug("Items synced", "count", len(items))
	return nil
}

func (j *Job) syncCustomers(ctx context.Context) error {
	customers, err := j.pos.GetCustomers(ctx)
	if err != nil {
		return err
	}

	for _, c := range customers {
		if err := j.customers.UpsertByPartnerID(ctx, &customer.Customer{
			ID:                uuid.New(),
			Name:              c.Name,
			Phone:             c.PhoneNumber,
			PartnerCustomerID: c.ID,
		}); err != nil {
			j.logger.Error("Failed to upsert customer",
				"partner_customer_id", c.ID, "error", err)
		}
	}

	j.logger.Debug("Customers synced", "count", len(customers))
	return nil
}

func (j *Job) syncStoreSettings(ctx context.Context) error {
	remote, err := j.pos.GetStoreSettings(ctx)
	if err != nil {
		return err
	}

	snapshot := &settings.StoreSettings{
		Stores:         make([]settings.Store, 0, len(remote.Stores)),
		PaymentMethods: make([]settings.PaymentMethod, 0, len(remote.PaymentTypes)),
	}
	for _, s := range remote.Stores {
		snapshot.Stores = append(snapshot.Stores, settings.Store{ID: s.ID, Name: s.Name})
	}
	for _, p := range remote.PaymentTypes {
		snapshot.PaymentMethods = append(snapshot.PaymentMethods, settings.PaymentMethod{ID: p.ID, Name: p.Name})
	}

	return j.settings.Replace(ctx, snapshot)
}

// toMinorUnits converts the POS's major-unit float price to minor units
func toMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}
