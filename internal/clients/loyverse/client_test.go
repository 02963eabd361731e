package loyverse

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobaapp-backend/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(testLogger(), &config.LoyverseConfig{
		BaseURL: server.URL,
		APIKey:  "pos-key",
		Timeout: 2 * time.Second,
	})
}

func TestClient_CreateReceipt(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/receipts", r.URL.Path)
			assert.Equal(t, "Bearer pos-key", r.Header.Get("Authorization"))

			var receipt Receipt
			require.NoError(t, json.NewDecoder(r.Body).Decode(&receipt))
			assert.Equal(t, "ORD2503070001", receipt.Order)
			assert.Equal(t, "BobaApp", receipt.Source)
			require.Len(t, receipt.LineItems, 1)
			assert.Equal(t, "variant-1", receipt.LineItems[0].VariantID)

			json.NewEncoder(w).Encode(map[string]any{"receipt_number": "2-1042"})
		}))

		result, err := client.CreateReceipt(context.Background(), &Receipt{
			StoreID:     "store-1",
			Order:       "ORD2503070001",
			Source:      "BobaApp",
			ReceiptDate: "2025-03-07T14:30:00Z",
			LineItems:   []ReceiptLineItem{{VariantID: "variant-1", Quantity: 2, Price: "10.00"}},
			Payments:    []ReceiptPayment{{PaymentTypeID: "pt-momo"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "2-1042", result.ReceiptNumber)
		assert.NotEmpty(t, result.Raw)
	})

	t.Run("validation rejection is typed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"errors":[{"code":"INVALID_VALUE"}]}`, http.StatusUnprocessableEntity)
		}))

		_, err := client.CreateReceipt(context.Background(), &Receipt{})
		var valErr ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, http.StatusUnprocessableEntity, valErr.StatusCode)
	})

	t.Run("rate limit is typed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := client.CreateReceipt(context.Background(), &Receipt{})
		var rateErr RateLimitError
		assert.ErrorAs(t, err, &rateErr)
	})

	t.Run("timeout is typed", func(t *testing.T) {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		server := httptest.NewServer(slow)
		t.Cleanup(server.Close)

		client := NewClient(testLogger(), &config.LoyverseConfig{
			BaseURL: server.URL,
			APIKey:  "pos-key",
			Timeout: 20 * time.Millisecond,
		})

		_, err := client.CreateReceipt(context.Background(), &Receipt{})
		var timeoutErr TimeoutError
		assert.ErrorAs(t, err, &timeoutErr)
	})
}

func TestClient_GetStoreSettings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stores":
			json.NewEncoder(w).Encode(map[string]any{
				"stores": []map[string]string{{"id": "store-1", "name": "Main"}},
			})
		case "/payment_types":
			json.NewEncoder(w).Encode(map[string]any{
				"payment_types": []map[string]string{{"id": "pt-1", "name": "MoMo"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	settings, err := client.GetStoreSettings(context.Background())
	require.NoError(t, err)
	require.Len(t, settings.Stores, 1)
	require.Len(t, settings.PaymentTypes, 1)
	assert.Equal(t, "store-1", settings.Stores[0].ID)
	assert.Equal(t, "MoMo", settings.PaymentTypes[0].Name)
}

func TestClient_GetItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{
				"id":          "item-1",
				"item_name":   "Taro Tea",
				"category_id": "cat-1",
				"variants":    []map[string]any{{"variant_id": "variant-1", "cost": 10.0}},
			}},
		})
	}))

	items, err := client.GetItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Taro Tea", items[0].ItemName)
	require.Len(t, items[0].Variants, 1)
	assert.Equal(t, "variant-1", items[0].Variants[0].VariantID)
}
