package catalogsync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/domain/catalog"
	"github.com/bobaapp-backend/internal/domain/customer"
	"github.com/bobaapp-backend/internal/domain/settings"
)

type mockCatalogSource struct {
	mock.Mock
}

func (m *mockCatalogSource) GetStoreSettings(ctx context.Context) (*loyverse.StoreSettings, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*loyverse.StoreSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogSource) GetItems(ctx context.Context) ([]loyverse.Item, error) {
	args := m.Called(ctx)
	if i := args.Get(0); i != nil {
		return i.([]loyverse.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogSource) GetCategories(ctx context.Context) ([]loyverse.Category, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]loyverse.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogSource) GetCustomers(ctx context.Context) ([]loyverse.Customer, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]loyverse.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCatalogRepo struct {
	mock.Mock
	catalog.Repository
}

func (m *mockCatalogRepo) CategoryByPartnerID(ctx context.Context, partnerID string) (*catalog.Category, error) {
	args := m.Called(ctx, partnerID)
	if c := args.Get(0); c != nil {
		return c.(*catalog.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogRepo) UpsertItem(ctx context.Context, item *catalog.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogRepo) UpsertCategory(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

type mockCustomerRepo struct {
	mock.Mock
	customer.Repository
}

func (m *mockCustomerRepo) UpsertByPartnerID(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*settings.StoreSettings, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*settings.StoreSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettingsRepo) Replace(ctx context.Context, s *settings.StoreSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type syncFixture struct {
	pos       *mockCatalogSource
	catalog   *mockCatalogRepo
	customers *mockCustomerRepo
	settings  *mockSettingsRepo
	job       *Job
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		pos:       new(mockCatalogSource),
		catalog:   new(mockCatalogRepo),
		customers: new(mockCustomerRepo),
		settings:  new(mockSettingsRepo),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.job = NewJob(logger, &config.CatalogSyncConfig{Interval: time.Minute},
		f.pos, f.catalog, f.customers, f.settings)
	return f
}

// expectEmptyPass stubs every POS listing empty so a test can focus on one
// stage. Call it after the stage-specific expectations: testify matches
// expectations in registration order.
func (f *syncFixture) expectEmptyPass() {
	f.pos.On("GetCategories", mock.Anything).Return([]loyverse.Category{}, nil).Maybe()
	f.pos.On("GetItems", mock.Anything).Return([]loyverse.Item{}, nil).Maybe()
	f.pos.On("GetCustomers", mock.Anything).Return([]loyverse.Customer{}, nil).Maybe()
	f.pos.On("GetStoreSettings", mock.Anything).
		Return(&loyverse.StoreSettings{}, nil).Maybe()
	f.settings.On("Replace", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func TestJob_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts categories keyed by partner id", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetCategories", mock.Anything).Return([]loyverse.Category{
			{ID: "cat-1", Name: "Milk Teas", Color: "GREEN"},
			{ID: "cat-2", Name: "Fruit Teas", Color: "RED"},
		}, nil)
		f.catalog.On("UpsertCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
			return c.PartnerCategoryID == "cat-1" && c.Name == "Milk Teas" && c.Color == "GREEN"
		})).Return(nil)
		f.catalog.On("UpsertCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
			return c.PartnerCategoryID == "cat-2"
		})).Return(nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.catalog.AssertNumberOfCalls(t, "UpsertCategory", 2)
	})

	t.Run("upserts items with stripped description and minor-unit price", func(t *testing.T) {
		f := newSyncFixture()
		categoryID := uuid.New()

		f.pos.On("GetItems", mock.Anything).Return([]loyverse.Item{{
			ID:          "item-1",
			ItemName:    "Taro Milk Tea",
			Description: "<p>Creamy <b>taro</b> blend</p>",
			Color:       "PURPLE",
			CategoryID:  "cat-1",
			Variants:    []loyverse.ItemVariant{{VariantID: "variant-1", Cost: 27.5}},
		}}, nil)
		f.catalog.On("CategoryByPartnerID", mock.Anything, "cat-1").
			Return(&catalog.Category{ID: categoryID, PartnerCategoryID: "cat-1"}, nil)
		f.catalog.On("UpsertItem", mock.Anything, mock.MatchedBy(func(i *catalog.Item) bool {
			return i.PartnerItemID == "item-1" &&
				i.PartnerVariantID == "variant-1" &&
				i.Description == "Creamy taro blend" &&
				i.Price == 2750 &&
				i.CategoryID == categoryID
		})).Return(nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.catalog.AssertNumberOfCalls(t, "UpsertItem", 1)
	})

	t.Run("item without variants is skipped", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetItems", mock.Anything).Return([]loyverse.Item{
			{ID: "item-broken", ItemName: "Ghost Item"},
		}, nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.catalog.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything)
	})

	t.Run("unresolved category leaves the item uncategorized", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetItems", mock.Anything).Return([]loyverse.Item{{
			ID:         "item-1",
			ItemName:   "Taro Milk Tea",
			CategoryID: "cat-unknown",
			Variants:   []loyverse.ItemVariant{{VariantID: "variant-1", Cost: 10}},
		}}, nil)
		f.catalog.On("CategoryByPartnerID", mock.Anything, "cat-unknown").Return(nil, nil)
		f.catalog.On("UpsertItem", mock.Anything, mock.MatchedBy(func(i *catalog.Item) bool {
			return i.CategoryID == uuid.Nil
		})).Return(nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.catalog.AssertNumberOfCalls(t, "UpsertItem", 1)
	})

	t.Run("upserts customers keyed by partner id", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetCustomers", mock.Anything).Return([]loyverse.Customer{
			{ID: "pos-cust-1", Name: "Ama Mensah", PhoneNumber: "+233241234567"},
		}, nil)
		f.customers.On("UpsertByPartnerID", mock.Anything, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.PartnerCustomerID == "pos-cust-1" &&
				c.Name == "Ama Mensah" &&
				c.Phone == "+233241234567"
		})).Return(nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.customers.AssertNumberOfCalls(t, "UpsertByPartnerID", 1)
	})

	t.Run("replaces the store settings snapshot", func(t *testing.T) {
		f := newSyncFixture()
		f.pos.On("GetCategories", mock.Anything).Return([]loyverse.Category{}, nil)
		f.pos.On("GetItems", mock.Anything).Return([]loyverse.Item{}, nil)
		f.pos.On("GetCustomers", mock.Anything).Return([]loyverse.Customer{}, nil)
		f.pos.On("GetStoreSettings", mock.Anything).Return(&loyverse.StoreSettings{
			Stores:       []loyverse.Store{{ID: "store-1", Name: "BobaApp Osu"}},
			PaymentTypes: []loyverse.PaymentType{{ID: "pt-momo", Name: "MoMo"}},
		}, nil)
		f.settings.On("Replace", mock.Anything, mock.MatchedBy(func(s *settings.StoreSettings) bool {
			return len(s.Stores) == 1 && s.Stores[0].ID == "store-1" &&
				len(s.PaymentMethods) == 1 && s.PaymentMethods[0].ID == "pt-momo"
		})).Return(nil)

		f.job.Run(ctx)

		f.settings.AssertNumberOfCalls(t, "Replace", 1)
	})

	t.Run("failed stage does not block the remaining stages", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetCategories", mock.Anything).Return(nil, errors.New("pos down"))
		f.pos.On("GetItems", mock.Anything).Return(nil, errors.New("pos down"))
		f.pos.On("GetCustomers", mock.Anything).Return([]loyverse.Customer{
			{ID: "pos-cust-1", Name: "Ama Mensah"},
		}, nil)
		f.customers.On("UpsertByPartnerID", mock.Anything, mock.Anything).Return(nil)
		f.pos.On("GetStoreSettings", mock.Anything).Return(&loyverse.StoreSettings{}, nil)
		f.settings.On("Replace", mock.Anything, mock.Anything).Return(nil)

		f.job.Run(ctx)

		f.customers.AssertNumberOfCalls(t, "UpsertByPartnerID", 1)
		f.settings.AssertNumberOfCalls(t, "Replace", 1)
	})

	t.Run("one bad record does not abort the stage", func(t *testing.T) {
		f := newSyncFixture()

		f.pos.On("GetCategories", mock.Anything).Return([]loyverse.Category{
			{ID: "cat-1", Name: "Milk Teas"},
			{ID: "cat-2", Name: "Fruit Teas"},
		}, nil)
		f.catalog.On("UpsertCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
			return c.PartnerCategoryID == "cat-1"
		})).Return(errors.New("write conflict"))
		f.catalog.On("UpsertCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
			return c.PartnerCategoryID == "cat-2"
		})).Return(nil)
		f.expectEmptyPass()

		f.job.Run(ctx)

		f.catalog.AssertNumberOfCalls(t, "UpsertCategory", 2)
	})
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2750), toMinorUnits(27.5))
	assert.Equal(t, int64(1000), toMinorUnits(10))
	assert.Equal(t, int64(1), toMinorUnits(0.01))
	assert.Equal(t, int64(0), toMinorUnits(0))
}
