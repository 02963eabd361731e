package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

type MockMessagingProducer struct {
	mock.Mock
}

func (m *MockMessagingProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagingProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestCallbackService_AcceptCallback(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()
	raw := json.RawMessage(`{"transactionId":"dp-12345","code":"00","success":true}`)

	t.Run("RecordsPayloadAndPublishesEvent", func(t *testing.T) {
		transactions := new(MockTransactionRepository)
		producer := new(MockMessagingProducer)
		svc := NewCallbackService(logger, transactions, producer)

		txn := transaction.New(uuid.New(), 2700, transaction.Metadata{})
		txn.ProviderRef = "dp-12345"

		transactions.On("GetByProviderRef", ctx, "dp-12345").Return(txn, nil)
		transactions.On("RecordPayload", ctx, txn.ID, raw).Return(nil)
		producer.On("Publish", ctx, "dp-12345", mock.MatchedBy(func(v interface{}) bool {
			event, ok := v.(shared.PaymentStatusEvent)
			return ok &&
				event.ProviderRef == "dp-12345" &&
				event.Code == "00" &&
				event.Source == shared.PaymentEventSourceCallback &&
				string(event.RawPayload) == string(raw)
		})).Return(nil)

		got, err := svc.AcceptCallback(ctx, "dp-12345", "00", raw, "corr1")
		assert.NoError(t, err)
		assert.Equal(t, txn, got)
		producer.AssertExpectations(t)
	})

	t.Run("UnknownProviderRefPropagatesNotFound", func(t *testing.T) {
		transactions := new(MockTransactionRepository)
		producer := new(MockMessagingProducer)
		svc := NewCallbackService(logger, transactions, producer)

		transactions.On("GetByProviderRef", ctx, "dp-unknown").
			Return(nil, transaction.ErrNotFound{Ref: "dp-unknown"})

		_, err := svc.AcceptCallback(ctx, "dp-unknown", "00", raw, "")
		var notFound transaction.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RecordPayloadFailureDoesNotBlockPublish", func(t *testing.T) {
		transactions := new(MockTransactionRepository)
		producer := new(MockMessagingProducer)
		svc := NewCallbackService(logger, transactions, producer)

		txn := transaction.New(uuid.New(), 2700, transaction.Metadata{})
		txn.ProviderRef = "dp-12345"

		transactions.On("GetByProviderRef", ctx, "dp-12345").Return(txn, nil)
		transactions.On("RecordPayload", ctx, txn.ID, raw).Return(errors.New("db down"))
		producer.On("Publish", ctx, "dp-12345", mock.Anything).Return(nil)

		_, err := svc.AcceptCallback(ctx, "dp-12345", "00", raw, "")
		assert.NoError(t, err)
		producer.AssertExpectations(t)
	})

	t.Run("PublishFailurePropagates", func(t *testing.T) {
		transactions := new(MockTransactionRepository)
		producer := new(MockMessagingProducer)
		svc := NewCallbackService(logger, transactions, producer)

		txn := transaction.New(uuid.New(), 2700, transaction.Metadata{})
		txn.ProviderRef = "dp-12345"

		transactions.On("GetByProviderRef", ctx, "dp-12345").Return(txn, nil)
		transactions.On("RecordPayload", ctx, txn.ID, raw).Return(nil)
		producer.On("Publish", ctx, "dp-12345", mock.Anything).Return(errors.New("kafka down"))

		_, err := svc.AcceptCallback(ctx, "dp-12345", "00", raw, "")
		assert.Error(t, err)
	})
}
