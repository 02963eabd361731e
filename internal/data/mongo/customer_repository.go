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

	"github.com/bobaapp-backend/internal/domain/customer"
)

// Collection names for customers and their owned references
const (
	CustomersCollectionName      = "customers"
	AddressesCollectionName      = "addresses"
	PaymentNumbersCollectionName = "payment_numbers"
)

// CustomerRepository implements the customer.Repository interface for MongoDB
type CustomerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewCustomerRepository creates a new MongoDB customer repository
func NewCustomerRepository(logger *slog.Logger, db *mongo.Database) customer.Repository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a customer.
// Returns ErrNotFound if the customer does not exist.
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	collection := r.db.Collection(CustomersCollectionName)

	var c customer.Customer
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, customer.ErrNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

// AddressByID retrieves a delivery address regardless of owner
func (r *CustomerRepository) AddressByID(ctx context.Context, id uuid.UUID) (*customer.Address, error) {
	collection := r.db.Collection(AddressesCollectionName)

	var a customer.Address
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get address", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return &a, nil
}

// AddressOwnedBy retrieves a delivery address only if it belongs to the
// customer. Returns nil when the address is absent or owned by someone else;
// placement treats both as a validation failure.
func (r *CustomerRepository) AddressOwnedBy(ctx context.Context, addressID, customerID uuid.UUID) (*customer.Address, error) {
	collection := r.db.Collection(AddressesCollectionName)

	filter := bson.M{"_id": addressID, "customer_id": customerID}
	var a customer.Address
	err := collection.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get address for customer",
			"address_id", addressID.String(),
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get address for customer: %w", err)
	}

	return &a, nil
}

// PaymentNumberOwnedBy retrieves a mobile-money account only if it belongs to
// the customer. Returns nil when absent or owned by someone else.
func (r *CustomerRepository) PaymentNumberOwnedBy(ctx context.Context, paymentNumberID, customerID uuid.UUID) (*customer.PaymentNumber, error) {
	collection := r.db.Collection(PaymentNumbersCollectionName)

	filter := bson.M{"_id": paymentNumberID, "customer_id": customerID}
	var p customer.PaymentNumber
	err := collection.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment number for customer",
			"payment_number_id", paymentNumberID.String(),
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get payment number for customer: %w", err)
	}

	return &p, nil
}

// UpsertByPartnerID links a local customer to its POS-side record, or creates
// the local record if the POS side has a customer we have never seen.
func (r *CustomerRepository) UpsertByPartnerID(ctx context.Context, c *customer.Customer) error {
	if c.PartnerCustomerID == "" {
		return errors.New("partner customer id cannot be empty")
	}

	collection := r.db.Collection(CustomersCollectionName)

	c.UpdatedAt = time.Now()
	filter := bson.M{"partner_customer_id": c.PartnerCustomerID}
	update := bson.M{
		"$set": bson.M{
			"name":         c.Name,
			"phone_number": c.Phone,
			"updated_at":   c.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        c.ID,
			"created_at": c.UpdatedAt,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert customer", "partner_customer_id", c.PartnerCustomerID, "error", err)
		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	return nil
}
