package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/bobaapp-backend/internal/api_gateway/service"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/transaction"
	"github.com/bobaapp-backend/internal/reconciliation"
)

// CustomerIDHeader carries the authenticated customer id set by the edge proxy
const CustomerIDHeader = "X-Customer-ID"

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(logger *slog.Logger, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Create places a new order and initiates the mobile-money debit
func (h *OrderHandler) Create(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	placeReq, err := mapPlaceOrderRequest(req)
	if err != nil {
		h.logger.Error("Invalid order request", "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.orderService.PlaceOrder(c.Request.Context(), customerID, placeReq)
	if err != nil {
		var validationErr reconciliation.ValidationError
		if errors.As(err, &validationErr) {
			h.logger.Info("Order placement rejected",
				"customer_id", customerID.String(),
				"field", validationErr.Field,
				"reason", validationErr.Message,
			)
			RespondUnprocessable(c, validationErr.Error())
			return
		}
		h.logger.Error("Failed to place order", "customer_id", customerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, PlacementResponse{
		Order:                mapOrderToResponse(result.Order, nil),
		TransactionReference: result.TransactionReference,
		TransactionStatus:    string(result.TransactionStatus),
		PaymentInstruction:   result.PaymentInstruction,
	})
}

// GetByID retrieves one of the customer's orders with its payment state
func (h *OrderHandler) GetByID(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}

	idParam := c.Param("id")
	orderID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid order ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid order ID")
		return
	}

	o, txn, err := h.orderService.GetOrder(c.Request.Context(), orderID, customerID)
	if err != nil {
		h.logger.Error("Failed to get order", "order_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if o == nil {
		RespondNotFound(c, "Order not found")
		return
	}

	RespondOK(c, mapOrderToResponse(o, txn))
}

// List retrieves the customer's orders, newest first
func (h *OrderHandler) List(c *gin.Context) {
	customerID, ok := h.customerID(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), customerID)
	if err != nil {
		h.logger.Error("Failed to list orders", "customer_id", customerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, mapOrderToResponse(o, nil))
	}

	RespondOK(c, gin.H{"orders": responses})
}

// customerID extracts and validates the customer id header, responding 401
// when it is missing or malformed.
func (h *OrderHandler) customerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(CustomerIDHeader)
	if raw == "" {
		RespondUnauthorized(c, "Missing customer identity")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Error("Invalid customer ID header", "value", raw, "error", err)
		RespondUnauthorized(c, "Invalid customer identity")
		return uuid.Nil, false
	}

	return id, true
}

// mapPlaceOrderRequest converts the wire DTO into the engine's input
func mapPlaceOrderRequest(req PlaceOrderRequest) (reconciliation.PlaceOrderRequest, error) {
	addressID, err := uuid.Parse(req.DeliveryAddressID)
	if err != nil {
		return reconciliation.PlaceOrderRequest{}, errors.New("invalid delivery address ID")
	}
	paymentNumberID, err := uuid.Parse(req.PaymentNumberID)
	if err != nil {
		return reconciliation.PlaceOrderRequest{}, errors.New("invalid payment number ID")
	}

	items := make([]reconciliation.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		itemID, err := uuid.Parse(item.ItemID)
		if err != nil {
			return reconciliation.PlaceOrderRequest{}, errors.New("invalid item ID")
		}

		toppingIDs := make([]uuid.UUID, 0, len(item.ToppingIDs))
		for _, raw := range item.ToppingIDs {
			toppingID, err := uuid.Parse(raw)
			if err != nil {
				return reconciliation.PlaceOrderRequest{}, errors.New("invalid topping ID")
			}
			toppingIDs = append(toppingIDs, toppingID)
		}

		items = append(items, reconciliation.PlaceOrderItem{
			ItemID:     itemID,
			Quantity:   item.Quantity,
			ToppingIDs: toppingIDs,
		})
	}

	return reconciliation.PlaceOrderRequest{
		Items:             items,
		DeliveryAddressID: addressID,
		PaymentNumberID:   paymentNumberID,
	}, nil
}

// mapOrderToResponse maps an order (and optionally its latest payment
// attempt) to the response DTO
func mapOrderToResponse(o *order.Order, txn *transaction.Transaction) OrderResponse {
	items := make([]LineItemResponse, 0, len(o.Items))
	for _, line := range o.Items {
		toppings := make([]ToppingResponse, 0, len(line.Toppings))
		for _, t := range line.Toppings {
			toppings = append(toppings, ToppingResponse{
				ToppingID: t.ToppingID.String(),
				Name:      t.Name,
				Price:     t.Price,
			})
		}
		items = append(items, LineItemResponse{
			ItemID:   line.ItemID.String(),
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
			Subtotal: line.Subtotal,
			Toppings: toppings,
		})
	}

	response := OrderResponse{
		ID:                o.ID.String(),
		OrderNumber:       o.OrderNumber,
		Status:            string(o.Status),
		TotalAmount:       o.TotalAmount,
		Items:             items,
		DeliveryAddressID: o.DeliveryAddressID.String(),
		ReceiptNumber:     o.ReceiptID,
		CreatedAt:         o.CreatedAt.Format(time.RFC3339),
	}

	if txn != nil {
		response.TransactionReference = txn.Reference
		response.TransactionStatus = string(txn.Status)
	}

	return response
}
