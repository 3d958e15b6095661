/*
service.go - The receivables ledger

PURPOSE:
  The customer side of the engine. Structurally the same reconciliation
  problem as payroll — raw records reduced into a derived figure — but
  keyed by invoice totals instead of work output:

      balance(customer) = Σ(all advance payments) − Σ(pending invoices)

  Positive means the customer holds credit; negative means they owe.
  Every entry point normalizes the phone key first, so "+91 98765-43210"
  and "9876543210" land in the same bucket no matter who typed them.

SEE ALSO:
  - invoices.go: invoice construction and the paid transition
  - ledger/balance.go: the shared balance derivation
  - ledger/advances.go: prepayments ride the advance ledger (kind=customer)
*/
package receivables

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brickworks/ledger-engine/ledger"
)

// Service is the receivables read/write path over a record store.
type Service struct {
	store    ledger.TxRecordStore
	advances *ledger.AdvanceLedger
	balances *ledger.BalanceCalculator
}

func NewService(store ledger.TxRecordStore) *Service {
	return &Service{
		store:    store,
		advances: ledger.NewAdvanceLedger(store),
		balances: ledger.NewBalanceCalculator(store),
	}
}

// =============================================================================
// CUSTOMER REGISTRY
// =============================================================================

// CustomerInput is a new or updated customer as the caller submits it.
type CustomerInput struct {
	Name    string
	Phone   string // raw spelling; the normalized form becomes the key
	Email   string
	Address string
}

// SaveCustomer upserts a customer under their normalized phone key.
func (s *Service) SaveCustomer(ctx context.Context, in CustomerInput) (*ledger.Customer, error) {
	const op = "receivables.save_customer"

	key := NormalizePhone(in.Phone)
	if !ValidPhoneKey(key) {
		return nil, ledger.NewValidationError(op, fmt.Sprintf("phone %q does not normalize to a full local number", in.Phone))
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ledger.NewValidationError(op, "name is required")
	}
	if in.Email != "" && !validEmail(in.Email) {
		return nil, ledger.NewValidationError(op, fmt.Sprintf("email %q is not valid", in.Email))
	}

	now := time.Now().UTC()
	c := ledger.Customer{
		ID:        key,
		Name:      in.Name,
		PhoneRaw:  in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.store.GetCustomer(ctx, key); err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	} else if existing != nil {
		c.CreatedAt = existing.CreatedAt
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveCustomer(ctx, c); err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	return &c, nil
}

// GetCustomer looks a customer up by any spelling of their phone number.
func (s *Service) GetCustomer(ctx context.Context, phone string) (*ledger.Customer, error) {
	const op = "receivables.get_customer"

	key := NormalizePhone(phone)
	c, err := s.store.GetCustomer(ctx, key)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if c == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("customer %s", key), ledger.ErrEntityNotFound)
	}
	return c, nil
}

// ListCustomers returns the registry, key order.
func (s *Service) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, ledger.NewPersistenceError("receivables.list_customers", err)
	}
	return customers, nil
}

// =============================================================================
// INVOICES
// =============================================================================

// CreateInvoice builds and persists a pending invoice.
func (s *Service) CreateInvoice(ctx context.Context, in InvoiceInput) (*ledger.Invoice, error) {
	const op = "receivables.create_invoice"

	inv, err := BuildInvoice(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateInvoice(ctx, *inv); err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	return inv, nil
}

// GetInvoice returns one invoice or not_found.
func (s *Service) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	const op = "receivables.get_invoice"

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if inv == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("invoice %s", id), ledger.ErrRecordNotFound)
	}
	return inv, nil
}

// ListInvoices returns a customer's full invoice history, oldest first.
func (s *Service) ListInvoices(ctx context.Context, phone string) ([]ledger.Invoice, error) {
	invoices, err := s.store.ListInvoicesByCustomer(ctx, NormalizePhone(phone))
	if err != nil {
		return nil, ledger.NewPersistenceError("receivables.list_invoices", err)
	}
	return invoices, nil
}

// MarkPaid flips an invoice pending → paid exactly once, creating its
// single PaymentRecord in the same transaction. A second call conflicts.
func (s *Service) MarkPaid(ctx context.Context, invoiceID string, method ledger.PaymentMethod, date ledger.Date) (*ledger.Invoice, *ledger.PaymentRecord, error) {
	const op = "receivables.mark_paid"

	if !ledger.KnownPaymentMethod(method) {
		return nil, nil, ledger.NewValidationError(op, "unknown payment method "+string(method))
	}
	if date.IsZero() {
		return nil, nil, ledger.NewValidationError(op, "payment date is required")
	}

	var (
		inv     *ledger.Invoice
		payment *ledger.PaymentRecord
	)
	err := s.store.WithTx(ctx, func(tx ledger.RecordStore) error {
		var err error
		inv, payment, err = markInvoicePaid(ctx, tx, invoiceID, method, date)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, payment, nil
}

// =============================================================================
// ADVANCE PAYMENTS AND BALANCES
// =============================================================================

// RecordAdvancePayment records a customer prepayment. It rides the shared
// advance ledger with kind=customer, so it enters the balance derivation
// the same way employee advances do.
func (s *Service) RecordAdvancePayment(ctx context.Context, phone string, amount ledger.Amount, date ledger.Date, notes string) (*ledger.AdvanceTransaction, error) {
	const op = "receivables.record_advance"

	key := NormalizePhone(phone)
	if !ValidPhoneKey(key) {
		return nil, ledger.NewValidationError(op, fmt.Sprintf("phone %q does not normalize to a full local number", phone))
	}
	return s.advances.Grant(ctx, key, ledger.KindCustomer, amount, date, notes)
}

// PendingTotal sums a customer's unpaid invoice totals.
func (s *Service) PendingTotal(ctx context.Context, phone string) (ledger.Amount, error) {
	invoices, err := s.store.ListPendingInvoices(ctx, NormalizePhone(phone))
	if err != nil {
		return ledger.ZeroAmount(), ledger.NewPersistenceError("receivables.pending_total", err)
	}
	total := ledger.ZeroAmount()
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount)
	}
	return total, nil
}

// Balance is the signed figure: Σ(advances) − Σ(pending invoices).
func (s *Service) Balance(ctx context.Context, phone string) (ledger.Amount, error) {
	return s.balances.Balance(ctx, NormalizePhone(phone))
}

// =============================================================================
// STATEMENT - Derived view for the presentation layer
// =============================================================================

// Statement is everything a customer's account page shows, derived in one
// pass from raw records.
type Statement struct {
	Customer *ledger.Customer
	Invoices []ledger.Invoice
	Payments []ledger.PaymentRecord
	Advances []ledger.AdvanceTransaction

	PendingInvoices ledger.Amount
	TotalAdvanced   ledger.Amount
	Balance         ledger.Amount
}

// Statement assembles the derived account view. Unknown customer is
// not_found; a customer with no history gets an empty statement.
func (s *Service) Statement(ctx context.Context, phone string) (*Statement, error) {
	const op = "receivables.statement"

	key := NormalizePhone(phone)
	customer, err := s.store.GetCustomer(ctx, key)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if customer == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("customer %s", key), ledger.ErrEntityNotFound)
	}

	invoices, err := s.store.ListInvoicesByCustomer(ctx, key)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	payments, err := s.store.ListPaymentsByCustomer(ctx, key)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	advances, err := s.advances.History(ctx, key)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.balances.Breakdown(ctx, key)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Customer:        customer,
		Invoices:        invoices,
		Payments:        payments,
		Advances:        advances,
		PendingInvoices: breakdown.PendingInvoices,
		TotalAdvanced:   breakdown.TotalAdvanced,
		Balance:         breakdown.Balance,
	}, nil
}
