package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/bobaapp-backend/internal/api_gateway/middleware"
	"github.com/bobaapp-backend/internal/api_gateway/service"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

// CallbackHandler handles payment provider callbacks
type CallbackHandler struct {
	callbackService service.CallbackService
	logger          *slog.Logger
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(logger *slog.Logger, callbackService service.CallbackService) *CallbackHandler {
	return &CallbackHandler{
		callbackService: callbackService,
		logger:          logger,
	}
}

// HandlePaymentCallback accepts the provider's payment status callback.
// Every understood callback is answered 200 so the provider stops retrying:
// an unknown transaction id gets success=false in the body, not a 404.
// Non-2xx is reserved for malformed payloads and publish failures.
func (h *CallbackHandler) HandlePaymentCallback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.Error("Failed to read callback body", "error", err)
		RespondBadRequest(c, "Unreadable request body")
		return
	}

	var req PaymentCallbackRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.TransactionID == "" || req.Code == "" {
		h.logger.Error("Malformed payment callback", "error", err, "body_size", len(raw))
		RespondBadRequest(c, "Malformed callback payload")
		return
	}

	h.logger.Info("Payment callback received",
		"provider_ref", req.TransactionID,
		"code", req.Code,
	)

	txn, err := h.callbackService.AcceptCallback(
		c.Request.Context(),
		req.TransactionID,
		req.Code,
		raw,
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		var notFound transaction.ErrNotFound
		if errors.As(err, &notFound) {
			h.logger.Warn("Callback for unknown transaction", "provider_ref", req.TransactionID)
			c.JSON(http.StatusOK, PaymentCallbackResponse{
				Success: false,
				Error:   "no transaction matches this reference",
			})
			return
		}
		h.logger.Error("Failed to accept payment callback",
			"provider_ref", req.TransactionID,
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	h.logger.Info("Payment callback queued for reconciliation",
		"provider_ref", req.TransactionID,
		"reference", txn.Reference,
	)

	c.JSON(http.StatusOK, PaymentCallbackResponse{
		Success: true,
		Status:  string(transaction.StatusForProviderCode(req.Code)),
	})
}
