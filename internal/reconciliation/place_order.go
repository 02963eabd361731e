package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

// Payment instruction templates shown to the customer after placement.
// MTN debits require an explicit USSD approval; other issuers push a prompt.
const (
	mtnInstructionTemplate     = "Dial *170#, select My Wallet (6), then My Approvals (3) to approve payment of GHS %s for order %s."
	genericInstructionTemplate = "A payment prompt for GHS %s has been sent to your phone for order %s. Enter your PIN to approve it."
)

// PlaceOrderItem is one requested line: a catalog item, a quantity, and
// optional toppings. Prices are never taken from the request.
type PlaceOrderItem struct {
	ItemID     uuid.UUID
	Quantity   int
	ToppingIDs []uuid.UUID
}

// PlaceOrderRequest is the input to order placement
type PlaceOrderRequest struct {
	Items             []PlaceOrderItem
	DeliveryAddressID uuid.UUID
	PaymentNumberID   uuid.UUID
}

// PlacementResult combines the created order with the payment handoff
type PlacementResult struct {
	Order                *order.Order
	TransactionReference string
	TransactionStatus    transaction.Status
	PaymentInstruction   string
}

// PlaceOrder validates the request against customer-owned references,
// snapshots catalog prices, persists the order and its transaction
// atomically, and initiates the mobile-money debit.
//
// Failures before persistence leave no trace. A failed debit initiation
// cancels the order and fails the transaction rather than deleting them;
// the records remain as an audit trail.
func (e *Engine) PlaceOrder(ctx context.Context, customerID uuid.UUID, req PlaceOrderRequest) (*PlacementResult, error) {
	if len(req.Items) == 0 {
		return nil, ValidationError{Field: "items", Message: "order must contain at least one item"}
	}

	address, err := e.customers.AddressOwnedBy(ctx, req.DeliveryAddressID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve delivery address: %w", err)
	}
	if address == nil {
		return nil, ValidationError{Field: "delivery_address_id", Message: "address does not exist or does not belong to this customer"}
	}

	paymentNumber, err := e.customers.PaymentNumberOwnedBy(ctx, req.PaymentNumberID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payment number: %w", err)
	}
	if paymentNumber == nil {
		return nil, ValidationError{Field: "payment_number_id", Message: "payment number does not exist or does not belong to this customer"}
	}

	cust, err := e.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	items, err := e.snapshotItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	o, err := order.New(customerID, req.DeliveryAddressID, req.PaymentNumberID, items)
	if err != nil {
		return nil, err
	}

	txn := transaction.New(o.ID, o.TotalAmount, transaction.Metadata{
		PaymentNumber: paymentNumber.Number,
		Provider:      paymentNumber.Provider,
		CustomerName:  cust.Name,
		CustomerPhone: cust.Phone,
	})

	// Order and transaction are written together; the per-day sequence draw
	// participates in the same transaction so a rollback releases nothing
	// visible.
	now := time.Now()
	err = e.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		seqs := e.sequences.WithTx(tx)

		orderSeq, err := seqs.Next(ctx, shared.SequenceOrders, now)
		if err != nil {
			return err
		}
		o.OrderNumber = order.FormatOrderNumber(now, int64(orderSeq))

		txnSeq, err := seqs.Next(ctx, shared.SequenceTransactions, now)
		if err != nil {
			return err
		}
		txn.Reference = transaction.FormatReference(now, int64(txnSeq))

		if err := e.orders.WithTx(tx).Create(ctx, o); err != nil {
			return err
		}
		return e.transactions.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	if err := e.initiateDebit(ctx, o, txn, cust.Name, paymentNumber.Number, paymentNumber.Provider); err != nil {
		e.cancelFailedPlacement(ctx, o, txn)
		return nil, fmt.Errorf("payment initiation failed for order %s: %w", o.OrderNumber, err)
	}

	return &PlacementResult{
		Order:                o,
		TransactionReference: txn.Reference,
		TransactionStatus:    txn.Status,
		PaymentInstruction:   paymentInstruction(paymentNumber.Provider, o.TotalAmount, o.OrderNumber),
	}, nil
}

// snapshotItems resolves every requested item and topping against the local
// catalog and freezes their prices into order lines.
func (e *Engine) snapshotItems(ctx context.Context, requested []PlaceOrderItem) ([]order.LineItem, error) {
	items := make([]order.LineItem, 0, len(requested))
	for _, req := range requested {
		item, err := e.catalog.ItemByID(ctx, req.ItemID)
		if err != nil {
			return nil, ValidationError{Field: "items", Message: err.Error()}
		}

		toppings := make([]order.ToppingLine, 0, len(req.ToppingIDs))
		for _, toppingID := range req.ToppingIDs {
			topping, err := e.catalog.ToppingByID(ctx, toppingID)
			if err != nil {
				return nil, ValidationError{Field: "items", Message: err.Error()}
			}
			toppings = append(toppings, order.ToppingLine{
				ToppingID: topping.ID,
				Name:      topping.Name,
				Price:     topping.Price,
			})
		}

		line, err := order.NewLineItem(item.ID, item.Name, item.Price, req.Quantity, toppings)
		if err != nil {
			return nil, ValidationError{Field: "items", Message: err.Error()}
		}
		items = append(items, line)
	}

	return items, nil
}

// initiateDebit acquires a token and submits the debit, recording the
// provider's correlation id on success.
func (e *Engine) initiateDebit(ctx context.Context, o *order.Order, txn *transaction.Transaction, accountName, accountNumber, issuer string) error {
	token, err := e.provider.GetToken(ctx, doronpay.OperationDebit)
	if err != nil {
		return err
	}

	resp, err := e.provider.InitiatePayment(ctx, token, doronpay.DebitRequest{
		Amount:                o.TotalAmount,
		AccountNumber:         accountNumber,
		AccountName:           accountName,
		AccountIssuer:         issuer,
		Description:           fmt.Sprintf("Payment for order %s", o.OrderNumber),
		ExternalTransactionID: txn.Reference,
	})
	if err != nil {
		return err
	}

	paymentStatus := "INITIATED"
	if err := e.transactions.SetProviderRef(ctx, txn.ID, resp.TransactionID, paymentStatus, resp.Raw); err != nil {
		// The debit is in flight; losing the correlation id would orphan it.
		return fmt.Errorf("failed to record provider ref %s: %w", resp.TransactionID, err)
	}
	txn.ProviderRef = resp.TransactionID
	txn.Metadata.PaymentStatus = paymentStatus

	return nil
}

// cancelFailedPlacement is the compensation path for a debit that never got
// off the ground. Best effort: the poll worker cannot rescue a transaction
// with no provider ref, so a failed write here only leaves a stale PENDING
// pair for operators.
func (e *Engine) cancelFailedPlacement(ctx context.Context, o *order.Order, txn *transaction.Transaction) {
	if _, err := e.orders.MarkCancelled(ctx, o.ID); err != nil {
		e.logger.Error("Failed to cancel order after payment initiation failure",
			"order_number", o.OrderNumber, "error", err)
	}
	if err := e.transactions.MarkFailed(ctx, txn.ID); err != nil {
		e.logger.Error("Failed to fail transaction after payment initiation failure",
			"reference", txn.Reference, "error", err)
	}
}

func paymentInstruction(provider string, amount int64, orderNumber string) string {
	rendered := formatMinorUnits(amount)
	if strings.EqualFold(provider, "mtn") {
		return fmt.Sprintf(mtnInstructionTemplate, rendered, orderNumber)
	}
	return fmt.Sprintf(genericInstructionTemplate, rendered, orderNumber)
}

// formatMinorUnits renders a minor-unit amount as a two-decimal string
func formatMinorUnits(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
