// Package loyverse is the client for the Loyverse POS API. The POS ledger is
// the source of truth for catalog data and the destination for sales
// receipts mirrored from confirmed orders.
package loyverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bobaapp-backend/internal/config"
)

// ValidationError indicates the POS rejected the payload (HTTP 400 or 422).
// Retrying the same payload cannot succeed.
type ValidationError struct {
	StatusCode int
	Body       string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("loyverse rejected payload (status %d): %s", e.StatusCode, e.Body)
}

// RateLimitError indicates the POS throttled the request (HTTP 429)
type RateLimitError struct{}

func (e RateLimitError) Error() string {
	return "loyverse rate limit exceeded"
}

// TimeoutError indicates the request timed out. The POS may or may not have
// applied the write, so callers must treat the outcome as unknown.
type TimeoutError struct {
	Err error
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("loyverse request timed out: %v", e.Err)
}

func (e TimeoutError) Unwrap() error {
	return e.Err
}

// RequestError covers remaining non-2xx responses
type RequestError struct {
	StatusCode int
	Body       string
}

func (e RequestError) Error() string {
	return fmt.Sprintf("loyverse request failed (status %d): %s", e.StatusCode, e.Body)
}

// LineModifier is one applied modifier option on a receipt line
type LineModifier struct {
	ModifierOptionID string `json:"modifier_option_id"`
	Price            string `json:"price,omitempty"`
}

// ReceiptLineItem is one line on a sales receipt, keyed by the POS variant id
type ReceiptLineItem struct {
	VariantID     string         `json:"variant_id"`
	Quantity      int            `json:"quantity"`
	Price         string         `json:"price"`
	LineModifiers []LineModifier `json:"line_modifiers,omitempty"`
}

// ReceiptPayment records how the receipt was settled
type ReceiptPayment struct {
	PaymentTypeID string `json:"payment_type_id"`
	PaidAt        string `json:"paid_at,omitempty"`
}

// Receipt is the sales receipt payload sent to the POS
type Receipt struct {
	StoreID     string            `json:"store_id"`
	Order       string            `json:"order"`
	CustomerID  string            `json:"customer_id,omitempty"`
	Source      string            `json:"source"`
	ReceiptDate string            `json:"receipt_date"`
	Note        string            `json:"note,omitempty"`
	LineItems   []ReceiptLineItem `json:"line_items"`
	Payments    []ReceiptPayment  `json:"payments"`
}

// ReceiptResult is the POS acknowledgement of a created receipt
type ReceiptResult struct {
	ReceiptNumber string          `json:"receipt_number"`
	Raw           json.RawMessage `json:"-"`
}

// Store is one POS store
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PaymentType is one POS payment type
type PaymentType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoreSettings bundles the store and payment type listings
type StoreSettings struct {
	Stores       []Store
	PaymentTypes []PaymentType
}

// ItemVariant carries the POS variant id and cost for one sellable variant
type ItemVariant struct {
	VariantID string  `json:"variant_id"`
	Cost      float64 `json:"cost"`
}

// Item is one POS catalog item with its variants
type Item struct {
	ID          string        `json:"id"`
	ItemName    string        `json:"item_name"`
	Description string        `json:"description"`
	Color       string        `json:"color"`
	CategoryID  string        `json:"category_id"`
	Variants    []ItemVariant `json:"variants"`
}

// Category is one POS category
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// Customer is one POS customer record
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Client talks to the Loyverse POS API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Loyverse client
func NewClient(logger *slog.Logger, cfg *config.LoyverseConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// CreateReceipt submits a sales receipt to the POS
func (c *Client) CreateReceipt(ctx context.Context, receipt *Receipt) (*ReceiptResult, error) {
	encoded, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/receipts", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}

	var result ReceiptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode receipt response: %w", err)
	}
	result.Raw = raw

	c.logger.Info("Receipt created", "order", receipt.Order, "receipt_number", result.ReceiptNumber)

	return &result, nil
}

// GetReceiptStatus fetches a receipt by its POS receipt number
func (c *Client) GetReceiptStatus(ctx context.Context, receiptNumber string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/receipts/"+receiptNumber, nil)
}

// GetStoreSettings fetches the store and payment type listings
func (c *Client) GetStoreSettings(ctx context.Context) (*StoreSettings, error) {
	var stores struct {
		Stores []Store `json:"stores"`
	}
	if err := c.getJSON(ctx, "/stores", &stores); err != nil {
		return nil, err
	}

	var payments struct {
		PaymentTypes []PaymentType `json:"payment_types"`
	}
	if err := c.getJSON(ctx, "/payment_types", &payments); err != nil {
		return nil, err
	}

	return &StoreSettings{
		Stores:       stores.Stores,
		PaymentTypes: payments.PaymentTypes,
	}, nil
}

// GetItems fetches the POS catalog items
func (c *Client) GetItems(ctx context.Context) ([]Item, error) {
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := c.getJSON(ctx, "/items", &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetCategories fetches the POS categories
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.getJSON(ctx, "/categories", &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// GetCustomers fetches the POS customer records
func (c *Client) GetCustomers(ctx context.Context) ([]Customer, error) {
	var resp struct {
		Customers []Customer `json:"customers"`
	}
	if err := c.getJSON(ctx, "/customers", &resp); err != nil {
		return nil, err
	}
	return resp.Customers, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, TimeoutError{Err: err}
		}
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ValidationError{StatusCode: resp.StatusCode, Body: string(raw)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, RateLimitError{}
	default:
		return nil, RequestError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
