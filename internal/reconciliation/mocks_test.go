package reconciliation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/domain/catalog"
	"github.com/bobaapp-backend/internal/domain/customer"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/settings"
	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) WithTx(tx pgx.Tx) order.Repository {
	return m
}

func (m *mockOrderRepo) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if o := args.Get(0); o != nil {
		return o.(*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) GetByCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, orderID, customerID)
	if o := args.Get(0); o != nil {
		return o.(*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, customerID)
	if o := args.Get(0); o != nil {
		return o.([]*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepo) SetReceiptPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	args := m.Called(ctx, id, payload)
	return args.Error(0)
}

func (m *mockOrderRepo) SetReceiptResult(ctx context.Context, id uuid.UUID, receiptID string, raw json.RawMessage) error {
	args := m.Called(ctx, id, receiptID, raw)
	return args.Error(0)
}

func (m *mockOrderRepo) RecordResyncFailure(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockOrderRepo) ListConfirmedWithoutReceipt(ctx context.Context, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, limit)
	if o := args.Get(0); o != nil {
		return o.([]*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

func (m *mockTransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*transaction.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) GetByProviderRef(ctx context.Context, providerRef string) (*transaction.Transaction, error) {
	args := m.Called(ctx, providerRef)
	if t := args.Get(0); t != nil {
		return t.(*transaction.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, orderID)
	if t := args.Get(0); t != nil {
		return t.(*transaction.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) GetSuccessfulByOrderID(ctx context.Context, orderID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, orderID)
	if t := args.Get(0); t != nil {
		return t.(*transaction.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) SetProviderRef(ctx context.Context, id uuid.UUID, providerRef, paymentStatus string, raw json.RawMessage) error {
	args := m.Called(ctx, id, providerRef, paymentStatus, raw)
	return args.Error(0)
}

func (m *mockTransactionRepo) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status transaction.Status, payload json.RawMessage) (bool, error) {
	args := m.Called(ctx, id, status, payload)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTransactionRepo) RecordPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	args := m.Called(ctx, id, payload)
	return args.Error(0)
}

func (m *mockTransactionRepo) ListPendingWithProviderRef(ctx context.Context) ([]*transaction.Transaction, error) {
	args := m.Called(ctx)
	if t := args.Get(0); t != nil {
		return t.([]*transaction.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCatalogRepo struct {
	mock.Mock
}

func (m *mockCatalogRepo) ItemByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	args := m.Called(ctx, id)
	if i := args.Get(0); i != nil {
		return i.(*catalog.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogRepo) ToppingByID(ctx context.Context, id uuid.UUID) (*catalog.Topping, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*catalog.Topping), args.Error(1)
	}
	return nil, args.Error(1)
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

func (m *mockCatalogRepo) UpsertTopping(ctx context.Context, topping *catalog.Topping) error {
	args := m.Called(ctx, topping)
	return args.Error(0)
}

func (m *mockCatalogRepo) UpsertCategory(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*customer.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerRepo) AddressByID(ctx context.Context, id uuid.UUID) (*customer.Address, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*customer.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerRepo) AddressOwnedBy(ctx context.Context, addressID, customerID uuid.UUID) (*customer.Address, error) {
	args := m.Called(ctx, addressID, customerID)
	if a := args.Get(0); a != nil {
		return a.(*customer.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerRepo) PaymentNumberOwnedBy(ctx context.Context, paymentNumberID, customerID uuid.UUID) (*customer.PaymentNumber, error) {
	args := m.Called(ctx, paymentNumberID, customerID)
	if p := args.Get(0); p != nil {
		return p.(*customer.PaymentNumber), args.Error(1)
	}
	return nil, args.Error(1)
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

type mockSequences struct {
	mock.Mock
}

func (m *mockSequences) WithTx(tx pgx.Tx) shared.SequenceSource {
	return m
}

func (m *mockSequences) Next(ctx context.Context, name string, day time.Time) (int, error) {
	args := m.Called(ctx, name, day)
	return args.Int(0), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetToken(ctx context.Context, operation string) (string, error) {
	args := m.Called(ctx, operation)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) InitiatePayment(ctx context.Context, token string, req doronpay.DebitRequest) (*doronpay.DebitResponse, error) {
	args := m.Called(ctx, token, req)
	if r := args.Get(0); r != nil {
		return r.(*doronpay.DebitResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetStatus(ctx context.Context, token, providerRef string) (*doronpay.StatusResponse, error) {
	args := m.Called(ctx, token, providerRef)
	if r := args.Get(0); r != nil {
		return r.(*doronpay.StatusResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPOS struct {
	mock.Mock
}

func (m *mockPOS) CreateReceipt(ctx context.Context, receipt *loyverse.Receipt) (*loyverse.ReceiptResult, error) {
	args := m.Called(ctx, receipt)
	if r := args.Get(0); r != nil {
		return r.(*loyverse.ReceiptResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, message string, destinations ...string) error {
	args := m.Called(ctx, message, destinations)
	return args.Error(0)
}

// fakeTxRunner executes the callback without a real database transaction
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}
