// Package settings holds the locally cached POS store-settings snapshot.
// The snapshot is refreshed by the catalog sync job; receipt creation reads
// it and must never call the network for these lookups.
package settings

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Errors returned by snapshot lookups. An empty or missing snapshot means
// the sync job has not run yet; receipt creation fails fast on it.
var (
	ErrUnavailable      = errors.New("store settings snapshot is empty")
	ErrNoStores         = errors.New("no stores in settings snapshot")
	ErrChannelNotMapped = errors.New("payment channel not mapped in settings snapshot")
)

// Store is one POS store as reported by the ledger
type Store struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// PaymentMethod is one POS payment type; Name is matched case-insensitively
// against the local channel ("momo", "cash", "card").
type PaymentMethod struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// StoreSettings is the single snapshot document
type StoreSettings struct {
	Stores         []Store         `bson:"stores" json:"stores"`
	PaymentMethods []PaymentMethod `bson:"payment_methods" json:"payment_methods"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

// StoreID returns the first store's id
func (s *StoreSettings) StoreID() (string, error) {
	if len(s.Stores) == 0 || s.Stores[0].ID == "" {
		return "", ErrNoStores
	}
	return s.Stores[0].ID, nil
}

// PaymentMethodID resolves the POS payment type id for a channel name
func (s *StoreSettings) PaymentMethodID(channel string) (string, error) {
	for _, m := range s.PaymentMethods {
		if strings.EqualFold(m.Name, channel) {
			return m.ID, nil
		}
	}
	return "", ErrChannelNotMapped
}

// Repository defines snapshot access. Get returns ErrUnavailable when no
// snapshot has been stored yet.
type Repository interface {
	Get(ctx context.Context) (*StoreSettings, error)
	Replace(ctx context.Context, s *StoreSettings) error
}
