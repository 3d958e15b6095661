/*
invoices.go - Invoice construction and the pending → paid transition

PURPOSE:
  Invoices are the owing side of a customer's balance. An invoice is
  built from its line items — sub-total, tax and total are computed here,
  never accepted from the caller — persisted pending, and later marked
  paid exactly once. Paying an invoice creates exactly one PaymentRecord,
  atomically with the status flip.

NO REVERSALS:
  Paid is terminal. A wrongly-paid invoice is corrected by new reversing
  records in the external workflow, never by moving status backwards, so
  the ledger's history stays append-only.

SEE ALSO:
  - service.go: the customer-facing ledger over these invoices
  - ledger/types.go: the Invoice and PaymentRecord shapes
*/
package receivables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brickworks/ledger-engine/ledger"
)

// InvoiceItemInput is one line as the caller submits it.
type InvoiceItemInput struct {
	Description string
	Quantity    float64
	UnitPrice   ledger.Amount
}

// InvoiceInput is a new invoice before totals are computed.
type InvoiceInput struct {
	CustomerPhone string // raw spelling; normalized here
	CustomerName  string
	Items         []InvoiceItemInput
	TaxRate       decimal.Decimal // fraction, e.g. 0.18
	Date          ledger.Date
}

// BuildInvoice validates the input and computes every derived figure:
// line totals, sub-total, tax, total. The result is pending and ready to
// persist. Pure; no store access.
func BuildInvoice(in InvoiceInput) (*ledger.Invoice, error) {
	const op = "receivables.build_invoice"

	key := NormalizePhone(in.CustomerPhone)
	if !ValidPhoneKey(key) {
		return nil, ledger.NewValidationError(op, fmt.Sprintf("phone %q does not normalize to a full local number", in.CustomerPhone))
	}
	if len(in.Items) == 0 {
		return nil, ledger.NewValidationError(op, "invoice needs at least one item")
	}
	if in.Date.IsZero() {
		return nil, ledger.NewValidationError(op, "date is required")
	}
	if in.TaxRate.IsNegative() {
		return nil, ledger.NewValidationError(op, "tax rate cannot be negative")
	}

	items := make([]ledger.InvoiceItem, 0, len(in.Items))
	subTotal := ledger.ZeroAmount()
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ledger.NewValidationError(op, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if it.UnitPrice.IsNegative() {
			return nil, ledger.NewValidationError(op, fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}
		lineTotal := it.UnitPrice.MulFloat(it.Quantity)
		items = append(items, ledger.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   lineTotal,
		})
		subTotal = subTotal.Add(lineTotal)
	}

	taxAmount := ledger.AmountFromDecimal(subTotal.Value.Mul(in.TaxRate))
	now := time.Now().UTC()

	inv := &ledger.Invoice{
		ID:           ledger.NewID(),
		CustomerKey:  key,
		CustomerName: in.CustomerName,
		Items:        items,
		SubTotal:     subTotal,
		TaxRate:      in.TaxRate,
		TaxAmount:    taxAmount,
		TotalAmount:  subTotal.Add(taxAmount),
		Status:       ledger.InvoicePending,
		Date:         in.Date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// markInvoicePaid flips one invoice pending → paid and writes its single
// PaymentRecord, against the given store view. Run inside WithTx so the
// flip and the payment record commit together.
func markInvoicePaid(ctx context.Context, store ledger.RecordStore, invoiceID string, method ledger.PaymentMethod, date ledger.Date) (*ledger.Invoice, *ledger.PaymentRecord, error) {
	const op = "receivables.mark_paid"

	inv, err := store.MarkInvoicePaid(ctx, invoiceID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrRecordNotFound):
			return nil, nil, ledger.NewNotFoundError(op, fmt.Sprintf("invoice %s", invoiceID), err)
		case errors.Is(err, ledger.ErrInvoiceAlreadyPaid):
			return nil, nil, ledger.NewConflictError(op, fmt.Sprintf("invoice %s already paid", invoiceID), err)
		default:
			return nil, nil, ledger.NewPersistenceError(op, err)
		}
	}

	payment := ledger.PaymentRecord{
		ID:          ledger.NewID(),
		InvoiceID:   inv.ID,
		CustomerKey: inv.CustomerKey,
		Amount:      inv.TotalAmount,
		Method:      method,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := payment.Validate(); err != nil {
		return nil, nil, err
	}
	if err := store.CreatePaymentRecord(ctx, payment); err != nil {
		if errors.Is(err, ledger.ErrInvoiceAlreadyPaid) {
			return nil, nil, ledger.NewConflictError(op, fmt.Sprintf("payment already recorded for invoice %s", invoiceID), err)
		}
		return nil, nil, ledger.NewPersistenceError(op, err)
	}
	return inv, &payment, nil
}
