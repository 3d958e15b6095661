/*
store.go - Persistence ports for the ledger engine

PURPOSE:
  The engine never talks to a database directly; it talks to these ports.
  One port per record family, composed into RecordStore, with WithTx for
  the few operations that must write several records atomically (payroll
  commit, invoice payment).

CONVENTIONS:
  - Get* returns (nil, nil) when the record does not exist; services
    translate that into a not_found error with context.
  - Conditional transitions (advance settle/sweep, invoice mark-paid,
    batch run claim) are guarded IN the store: the implementation checks
    the current status in the same statement that changes it, and returns
    ErrAdvanceNotPending / ErrInvoiceAlreadyPaid / a false claim when the
    record already moved. That is what makes the monotonic lifecycles
    race-safe without a global lock.
  - Implementations translate their low-level uniqueness failures into
    the ledger sentinels (ErrDuplicateSalaryPayment, ...), so callers
    never match on driver error strings.

IMPLEMENTATIONS:
  - store/sqlite: embedded SQLite, WAL, unique indexes on
    (employee_id, date) attendance and (employee_id, period) payments.
  - ledger/store: in-memory maps with snapshot-rollback WithTx, used by
    tests and the dev server.

SEE ALSO:
  - advances.go, balance.go: engine logic over these ports
  - payroll/service.go: the WithTx commit path
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// PORTS PER RECORD FAMILY
// =============================================================================

// AttendanceStore persists employee-day records.
type AttendanceStore interface {
	// UpsertAttendance inserts, or updates in place when a record for the
	// same (employee, date) exists. The surviving record keeps its
	// original ID and CreatedAt; the returned record is the stored state.
	UpsertAttendance(ctx context.Context, rec AttendanceRecord) (*AttendanceRecord, error)

	GetAttendance(ctx context.Context, employeeID EntityID, date Date) (*AttendanceRecord, error)
	ListAttendanceRange(ctx context.Context, employeeID EntityID, period Period) ([]AttendanceRecord, error)
	ListAttendanceByDate(ctx context.Context, date Date) ([]AttendanceRecord, error)

	// DeleteAttendance removes one record (explicit user action; no
	// cascade — already-committed payroll is not retroactively altered).
	DeleteAttendance(ctx context.Context, id string) error
}

// AdvanceStore persists advance transactions and guards their lifecycle.
type AdvanceStore interface {
	CreateAdvance(ctx context.Context, tx AdvanceTransaction) error
	GetAdvance(ctx context.Context, id string) (*AdvanceTransaction, error)
	ListAdvancesByEntity(ctx context.Context, entityID EntityID) ([]AdvanceTransaction, error)
	ListPendingAdvances(ctx context.Context, entityID EntityID) ([]AdvanceTransaction, error)

	// TransitionAdvance moves one advance out of pending. The check and
	// the write are one guarded statement; a record that already left
	// pending yields ErrAdvanceNotPending. payrollRunID is stamped for
	// deductions and ignored for settles.
	TransitionAdvance(ctx context.Context, id string, to AdvanceStatus, payrollRunID string) (*AdvanceTransaction, error)
}

// SalaryStore persists the append-only salary ledger and run summaries.
type SalaryStore interface {
	AppendSalaryTransaction(ctx context.Context, tx SalaryTransaction) error
	ListSalaryTransactions(ctx context.Context, employeeID EntityID, period Period) ([]SalaryTransaction, error)

	// CreateSalaryPayment enforces the one-payment-per-(employee, period)
	// uniqueness; a duplicate yields ErrDuplicateSalaryPayment.
	CreateSalaryPayment(ctx context.Context, p SalaryPayment) error
	GetSalaryPaymentForPeriod(ctx context.Context, employeeID EntityID, period Period) (*SalaryPayment, error)
	ListSalaryPayments(ctx context.Context, employeeID EntityID) ([]SalaryPayment, error)
	SetPayslipGenerated(ctx context.Context, paymentID string) error
}

// InvoiceStore persists invoices and their payment records.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoicesByCustomer(ctx context.Context, customerKey EntityID) ([]Invoice, error)
	ListPendingInvoices(ctx context.Context, customerKey EntityID) ([]Invoice, error)

	// MarkInvoicePaid is the guarded pending → paid transition; a second
	// call yields ErrInvoiceAlreadyPaid.
	MarkInvoicePaid(ctx context.Context, id string, at time.Time) (*Invoice, error)

	// CreatePaymentRecord enforces one payment per invoice.
	CreatePaymentRecord(ctx context.Context, p PaymentRecord) error
	ListPaymentsByCustomer(ctx context.Context, customerKey EntityID) ([]PaymentRecord, error)
}

// EmployeeStore is the worker registry.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id EntityID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// CustomerStore is the receivables registry, keyed by normalized phone.
type CustomerStore interface {
	SaveCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, key EntityID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
}

// BatchRunStore persists queued bulk work for the scheduler.
type BatchRunStore interface {
	CreateBatchRun(ctx context.Context, run BatchRun) error
	GetBatchRun(ctx context.Context, id string) (*BatchRun, error)
	ListBatchRuns(ctx context.Context, limit int) ([]BatchRun, error)
	ListDueBatchRuns(ctx context.Context, now time.Time) ([]BatchRun, error)

	// ClaimBatchRun is the guarded scheduled → running transition; false
	// means another worker already claimed it.
	ClaimBatchRun(ctx context.Context, id string, at time.Time) (bool, error)
	CompleteBatchRun(ctx context.Context, id string, status BatchRunStatus, detail string, at time.Time) error
}

// =============================================================================
// COMPOSED STORE
// =============================================================================

// RecordStore is everything the engine persists, behind one handle.
type RecordStore interface {
	AttendanceStore
	AdvanceStore
	SalaryStore
	InvoiceStore
	EmployeeStore
	CustomerStore
	BatchRunStore
}

// TxRecordStore adds atomic multi-record writes. fn runs against a store
// view whose writes commit together or not at all; returning an error
// rolls everything back.
type TxRecordStore interface {
	RecordStore
	WithTx(ctx context.Context, fn func(RecordStore) error) error
}
