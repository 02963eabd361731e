package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/reconciliation"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, customerID uuid.UUID, req reconciliation.PlaceOrderRequest) (*reconciliation.PlacementResult, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.PlacementResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*order.Order, *transaction.Transaction, error) {
	args := m.Called(ctx, orderID, customerID)
	var o *order.Order
	if args.Get(0) != nil {
		o = args.Get(0).(*order.Order)
	}
	var txn *transaction.Transaction
	if args.Get(1) != nil {
		txn = args.Get(1).(*transaction.Transaction)
	}
	return o, txn, args.Error(2)
}

func (m *MockOrderService) ListOrders(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func testOrder(t *testing.T, customerID uuid.UUID) *order.Order {
	t.Helper()
	line, err := order.NewLineItem(uuid.New(), "Taro Milk Tea", 2700, 1, nil)
	require.NoError(t, err)
	o, err := order.New(customerID, uuid.New(), uuid.New(), []order.LineItem{line})
	require.NoError(t, err)
	o.OrderNumber = "ORD2503070001"
	return o
}

func newOrderRouter(handler *OrderHandler) *gin.Engine {
	router := gin.Default()
	router.POST("/orders", handler.Create)
	router.GET("/orders", handler.List)
	router.GET("/orders/:id", handler.GetByID)
	return router
}

func placeOrderBody(itemID uuid.UUID) []byte {
	body, _ := json.Marshal(PlaceOrderRequest{
		Items: []PlaceOrderItemRequest{
			{ItemID: itemID.String(), Quantity: 2},
		},
		DeliveryAddressID: uuid.New().String(),
		PaymentNumberID:   uuid.New().String(),
	})
	return body
}

func TestOrderHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		itemID := uuid.New()
		placed := testOrder(t, customerID)
		mockService.On("PlaceOrder", mock.Anything, customerID, mock.MatchedBy(func(req reconciliation.PlaceOrderRequest) bool {
			return len(req.Items) == 1 && req.Items[0].ItemID == itemID && req.Items[0].Quantity == 2
		})).Return(&reconciliation.PlacementResult{
			Order:                placed,
			TransactionReference: "TXN2503070001123",
			TransactionStatus:    transaction.StatusPending,
			PaymentInstruction:   "Dial *170#...",
		}, nil)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(placeOrderBody(itemID)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var topLevelResponse map[string]interface{}
		err := json.Unmarshal(rr.Body.Bytes(), &topLevelResponse)
		assert.NoError(t, err)

		data, ok := topLevelResponse["data"].(map[string]interface{})
		require.True(t, ok, "'data' field should be a map")
		assert.Equal(t, "TXN2503070001123", data["transaction_reference"])
		assert.Equal(t, "PENDING", data["transaction_status"])
		assert.NotEmpty(t, data["payment_instruction"])

		orderData, ok := data["order"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ORD2503070001", orderData["order_number"])

		mockService.AssertExpectations(t)
	})

	t.Run("MissingCustomerHeader", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(placeOrderBody(uuid.New())))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockService.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CustomerIDHeader, uuid.New().String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("EmptyItemsRejected", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		body, _ := json.Marshal(PlaceOrderRequest{
			Items:             []PlaceOrderItemRequest{},
			DeliveryAddressID: uuid.New().String(),
			PaymentNumberID:   uuid.New().String(),
		})
		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CustomerIDHeader, uuid.New().String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidationErrorReturns422", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		mockService.On("PlaceOrder", mock.Anything, customerID, mock.Anything).
			Return(nil, reconciliation.ValidationError{
				Field:   "delivery_address_id",
				Message: "address does not exist or does not belong to this customer",
			})

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(placeOrderBody(uuid.New())))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("EngineErrorReturns500", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		mockService.On("PlaceOrder", mock.Anything, customerID, mock.Anything).
			Return(nil, errors.New("payment initiation failed"))

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(placeOrderBody(uuid.New())))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		o := testOrder(t, customerID)
		txn := transaction.New(o.ID, o.TotalAmount, transaction.Metadata{})
		txn.Reference = "TXN2503070001123"

		mockService.On("GetOrder", mock.Anything, o.ID, customerID).Return(o, txn, nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders/"+o.ID.String(), nil)
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse map[string]interface{}
		err := json.Unmarshal(rr.Body.Bytes(), &topLevelResponse)
		assert.NoError(t, err)
		data, ok := topLevelResponse["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ORD2503070001", data["order_number"])
		assert.Equal(t, "TXN2503070001123", data["transaction_reference"])
		assert.Equal(t, "PENDING", data["transaction_status"])
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		orderID := uuid.New()
		mockService.On("GetOrder", mock.Anything, orderID, customerID).Return(nil, nil, nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		req, _ := http.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
		req.Header.Set(CustomerIDHeader, uuid.New().String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestOrderHandler_List(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		mockService.On("ListOrders", mock.Anything, customerID).
			Return([]*order.Order{testOrder(t, customerID), testOrder(t, customerID)}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse map[string]interface{}
		err := json.Unmarshal(rr.Body.Bytes(), &topLevelResponse)
		assert.NoError(t, err)
		data, ok := topLevelResponse["data"].(map[string]interface{})
		require.True(t, ok)
		orders, ok := data["orders"].([]interface{})
		require.True(t, ok)
		assert.Len(t, orders, 2)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(logger, mockService)
		router := newOrderRouter(handler)

		customerID := uuid.New()
		mockService.On("ListOrders", mock.Anything, customerID).Return(nil, errors.New("db down"))

		req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(CustomerIDHeader, customerID.String())
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
