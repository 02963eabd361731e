package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/domain/order"
)

// receiptSource tags receipts mirrored by this system in the POS ledger
const receiptSource = "BobaApp"

// paymentChannelMomo is the local channel name matched against the POS
// payment type listing.
const paymentChannelMomo = "momo"

// CreatePOSReceipt mirrors a confirmed order into the POS ledger. Store and
// payment-type ids come from the locally cached settings snapshot; this path
// never calls the POS for lookups, only for the receipt itself.
//
// Line items with no POS variant mapping are submitted anyway so the POS can
// reject them explicitly instead of the receipt silently losing a line. The
// assembled payload is persisted before the send so a failed or timed-out
// call still leaves an auditable record.
func (e *Engine) CreatePOSReceipt(ctx context.Context, o *order.Order) error {
	snapshot, err := e.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	storeID, err := snapshot.StoreID()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	paymentTypeID, err := snapshot.PaymentMethodID(paymentChannelMomo)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}

	cust, err := e.customers.GetByID(ctx, o.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to resolve customer for receipt: %w", err)
	}

	lineItems := make([]loyverse.ReceiptLineItem, 0, len(o.Items))
	for _, line := range o.Items {
		lineItems = append(lineItems, e.receiptLine(ctx, o.OrderNumber, line))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	receipt := &loyverse.Receipt{
		StoreID:     storeID,
		Order:       o.OrderNumber,
		CustomerID:  cust.PartnerCustomerID,
		Source:      receiptSource,
		ReceiptDate: now,
		Note:        e.deliveryNote(ctx, o),
		LineItems:   lineItems,
		Payments: []loyverse.ReceiptPayment{{
			PaymentTypeID: paymentTypeID,
			PaidAt:        now,
		}},
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt payload: %w", err)
	}
	if err := e.orders.SetReceiptPayload(ctx, o.ID, payload); err != nil {
		return fmt.Errorf("failed to persist receipt payload: %w", err)
	}

	result, err := e.pos.CreateReceipt(ctx, receipt)
	if err != nil {
		return err
	}

	if err := e.orders.SetReceiptResult(ctx, o.ID, result.ReceiptNumber, result.Raw); err != nil {
		return fmt.Errorf("failed to persist receipt result: %w", err)
	}

	return nil
}

// receiptLine maps one order line onto the POS wire shape. Missing partner
// mappings are warned about but never abort the receipt.
func (e *Engine) receiptLine(ctx context.Context, orderNumber string, line order.LineItem) loyverse.ReceiptLineItem {
	var variantID string
	item, err := e.catalog.ItemByID(ctx, line.ItemID)
	if err != nil {
		e.logger.Warn("No POS variant mapping for ordered item",
			"order_number", orderNumber, "item_id", line.ItemID.String(), "error", err)
	} else {
		variantID = item.PartnerVariantID
	}

	modifiers := make([]loyverse.LineModifier, 0, len(line.Toppings))
	for _, topping := range line.Toppings {
		var modifierID string
		t, err := e.catalog.ToppingByID(ctx, topping.ToppingID)
		if err != nil || t.PartnerModifierID == "" {
			e.logger.Warn("No POS modifier mapping for topping",
				"order_number", orderNumber, "topping_id", topping.ToppingID.String())
		} else {
			modifierID = t.PartnerModifierID
		}
		modifiers = append(modifiers, loyverse.LineModifier{
			ModifierOptionID: modifierID,
			Price:            formatMinorUnits(topping.Price),
		})
	}

	return loyverse.ReceiptLineItem{
		VariantID:     variantID,
		Quantity:      line.Quantity,
		Price:         formatMinorUnits(line.Price),
		LineModifiers: modifiers,
	}
}

// deliveryNote embeds the delivery address in the receipt's free-text note
func (e *Engine) deliveryNote(ctx context.Context, o *order.Order) string {
	address, err := e.customers.AddressByID(ctx, o.DeliveryAddressID)
	if err != nil || address == nil {
		e.logger.Warn("Failed to resolve delivery address for receipt note",
			"order_number", o.OrderNumber)
		return ""
	}

	parts := []string{address.StreetAddress, address.City}
	if address.Region != "" {
		parts = append(parts, address.Region)
	}
	if address.Landmark != "" {
		parts = append(parts, fmt.Sprintf("near %s", address.Landmark))
	}

	return "Delivery Address: " + strings.Join(parts, ", ")
}
