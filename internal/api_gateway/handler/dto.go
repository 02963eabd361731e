package handler

// PlaceOrderItemRequest represents one requested order line
type PlaceOrderItemRequest struct {
	ItemID     string   `json:"item_id" binding:"required,uuid"`
	Quantity   int      `json:"quantity" binding:"required,min=1"`
	ToppingIDs []string `json:"topping_ids" binding:"omitempty,dive,uuid"`
}

// PlaceOrderRequest represents a request to place a new order
type PlaceOrderRequest struct {
	Items             []PlaceOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddressID string                  `json:"delivery_address_id" binding:"required,uuid"`
	PaymentNumberID   string                  `json:"payment_number_id" binding:"required,uuid"`
}

// ToppingResponse represents a snapshotted topping on an order line
type ToppingResponse struct {
	ToppingID string `json:"topping_id"`
	Name      string `json:"name,omitempty"`
	Price     int64  `json:"price"`
}

// LineItemResponse represents one order line in API responses
type LineItemResponse struct {
	ItemID   string            `json:"item_id"`
	Name     string            `json:"name,omitempty"`
	Quantity int               `json:"quantity"`
	Price    int64             `json:"price"`
	Subtotal int64             `json:"subtotal"`
	Toppings []ToppingResponse `json:"toppings,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   string             `json:"id"`
	OrderNumber          string             `json:"order_number"`
	Status               string             `json:"status"`
	TotalAmount          int64              `json:"total_amount"`
	Items                []LineItemResponse `json:"items"`
	DeliveryAddressID    string             `json:"delivery_address_id"`
	ReceiptNumber        string             `json:"receipt_number,omitempty"`
	TransactionReference string             `json:"transaction_reference,omitempty"`
	TransactionStatus    string             `json:"transaction_status,omitempty"`
	CreatedAt            string             `json:"created_at"`
}

// PlacementResponse represents a successful order placement
type PlacementResponse struct {
	Order                OrderResponse `json:"order"`
	TransactionReference string        `json:"transaction_reference"`
	TransactionStatus    string        `json:"transaction_status"`
	PaymentInstruction   string        `json:"payment_instruction"`
}

// PaymentCallbackRequest represents the payment provider's callback payload.
// The provider posts more fields; only these two drive reconciliation.
type PaymentCallbackRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Code          string `json:"code" binding:"required"`
}

// PaymentCallbackResponse is always returned with HTTP 200 for understood
// callbacks so the provider does not keep retrying.
type PaymentCallbackResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
