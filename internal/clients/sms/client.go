// Package sms sends customer notifications through the SMS relay.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/bobaapp-backend/internal/config"
)

// SendError indicates the relay accepted the request but reported a failure
type SendError struct {
	Message string
}

func (e SendError) Error() string {
	return fmt.Sprintf("sms send failed: %s", e.Message)
}

// Client talks to the SMS relay
type Client struct {
	url        string
	service    string
	senderID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new SMS client
func NewClient(logger *slog.Logger, cfg *config.SMSConfig) *Client {
	return &Client{
		url:        cfg.URL,
		service:    cfg.Service,
		senderID:   cfg.SenderID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Send delivers one message to the given phone numbers. Numbers are
// normalized to the 233 country-code form the relay expects.
func (c *Client) Send(ctx context.Context, message string, destinations ...string) error {
	normalized := make([]string, 0, len(destinations))
	for _, d := range destinations {
		normalized = append(normalized, NormalizePhone(d))
	}

	body := map[string]any{
		"service":     c.service,
		"message":     message,
		"senderID":    c.senderID,
		"destination": normalized,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sms response: %w", err)
	}

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}
	if result.Status == "error" {
		return SendError{Message: result.Message}
	}

	c.logger.Info("SMS sent", "destinations", len(normalized))

	return nil
}

// NormalizePhone strips non-digits and rewrites local Ghanaian numbers
// (leading 0) to the 233 country-code form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if strings.HasPrefix(cleaned, "0") {
		cleaned = "233" + cleaned[1:]
	}
	if !strings.HasPrefix(cleaned, "233") {
		cleaned = "233" + cleaned
	}

	return cleaned
}
