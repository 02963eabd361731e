// Package doronpay is the client for the DoronPay mobile-money hub.
// Debits are asynchronous: InitiatePayment returns a provider transaction id
// and the final result arrives later via callback or status polling.
package doronpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bobaapp-backend/internal/config"
)

// OperationDebit is the token scope used for debit initiation and polling
const OperationDebit = "DEBIT"

// AuthError indicates the hub rejected the merchant credentials
type AuthError struct {
	Message string
}

func (e AuthError) Error() string {
	return fmt.Sprintf("doronpay authentication failed: %s", e.Message)
}

// RequestError indicates the hub rejected or failed a request. Code carries
// the provider status code when one was returned.
type RequestError struct {
	Operation string
	Code      string
	Message   string
}

func (e RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("doronpay %s failed (code %s): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("doronpay %s failed: %s", e.Operation, e.Message)
}

// DebitRequest is one debit initiation. Amount is in minor units; the hub
// wants a two-decimal string, which the client formats.
type DebitRequest struct {
	Amount                int64
	AccountNumber         string
	AccountName           string
	AccountIssuer         string
	Description           string
	ExternalTransactionID string
}

// DebitResponse is the hub's acknowledgement of an initiated debit
type DebitResponse struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transactionId"`
	Code          string          `json:"code"`
	Message       string          `json:"message"`
	Raw           json.RawMessage `json:"-"`
}

// StatusResponse is the hub's view of a previously initiated debit
type StatusResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Raw     json.RawMessage `json:"-"`
}

// Client talks to the DoronPay hub
type Client struct {
	baseURL     string
	merchantID  string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new DoronPay client
func NewClient(logger *slog.Logger, cfg *config.DoronpayConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		merchantID:  cfg.MerchantID,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// GetToken obtains a short-lived bearer token for the given operation
func (c *Client) GetToken(ctx context.Context, operation string) (string, error) {
	body := map[string]string{
		"merchantId": c.merchantID,
		"apikey":     c.apiKey,
		"operation":  operation,
	}

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    string `json:"data"`
	}
	if _, err := c.post(ctx, "/hub/token", "", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", AuthError{Message: resp.Message}
	}

	return resp.Data, nil
}

// InitiatePayment submits an asynchronous debit. The issuer is lowercased
// and the amount rendered as a two-decimal string, which is what the hub
// expects on the wire.
func (c *Client) InitiatePayment(ctx context.Context, token string, req DebitRequest) (*DebitResponse, error) {
	body := map[string]string{
		"amount":                formatAmount(req.Amount),
		"account_number":        req.AccountNumber,
		"account_name":          req.AccountName,
		"account_issuer":        strings.ToLower(req.AccountIssuer),
		"description":           req.Description,
		"externalTransactionId": req.ExternalTransactionID,
		"callbackUrl":           c.callbackURL,
	}

	var resp DebitResponse
	raw, err := c.post(ctx, "/hub/debit", token, body, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = raw

	if !resp.Success {
		return nil, RequestError{Operation: "debit", Code: resp.Code, Message: resp.Message}
	}

	c.logger.Info("Debit initiated",
		"external_transaction_id", req.ExternalTransactionID,
		"provider_ref", resp.TransactionID,
		"code", resp.Code)

	return &resp, nil
}

// GetStatus fetches the current state of an initiated debit
func (c *Client) GetStatus(ctx context.Context, token, providerRef string) (*StatusResponse, error) {
	url := fmt.Sprintf("%s/hub/status/%s", c.baseURL, providerRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment status: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, RequestError{Operation: "status", Message: httpResp.Status}
	}

	var resp StatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	resp.Raw = raw

	if !resp.Success {
		return nil, RequestError{Operation: "status", Code: resp.Code, Message: resp.Message}
	}

	return &resp, nil
}

func (c *Client) post(ctx context.Context, path, token string, body any, out any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return raw, nil
}

// formatAmount renders minor units as the hub's two-decimal major-unit string
func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
