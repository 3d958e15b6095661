/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these with additional context; the API layer maps
  kinds to HTTP status codes; batch runs classify per-item failures by
  kind without string matching.

ERROR KINDS:
  validation   malformed input, missing field, non-positive amount
  not_found    unknown employee / customer / invoice / advance id
  permission   capability check failed before any computation
  conflict     a concurrent or repeated mutation was detected
  persistence  the underlying store failed; original cause attached
  cancelled    batch item abandoned because the context was cancelled

USAGE:
  Sentinels work with errors.Is:

    if errors.Is(err, ledger.ErrAdvanceNotPending) { ... }

  Kind classification works through wrapping:

    switch ledger.KindOf(err) {
    case ledger.KindConflict: // retry after refresh
    }

SEE ALSO:
  - advances.go: conflict semantics for settle/sweep
  - store.go: persistence wrapping rules
  - batch/processor.go: per-item kind recording
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind buckets every engine error into one reportable category.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindPermission  Kind = "permission"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence"
	KindCancelled   Kind = "cancelled"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced employee or customer
	// does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrRecordNotFound is returned when a referenced record (advance,
	// invoice, attendance, payment) does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrAdvanceNotPending is returned when a settle or sweep touches an
	// advance that already left the pending state. The lifecycle is
	// monotonic, so the record changed underneath the caller.
	ErrAdvanceNotPending = errors.New("advance is not pending")

	// ErrInvoiceAlreadyPaid is returned on a second mark-paid. Paid is
	// terminal; corrections are new reversing records, never a status
	// moving backwards.
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")

	// ErrDuplicateSalaryPayment is returned when a payroll commit finds a
	// payment already persisted for the same employee and period.
	ErrDuplicateSalaryPayment = errors.New("salary payment already exists for period")

	// ErrSweepMismatch is returned when the advance sweep total no longer
	// matches the calculated deduction: an advance was granted or settled
	// between calculate and commit.
	ErrSweepMismatch = errors.New("advance sweep does not match calculated deduction")

	// ErrPermissionDenied is returned before any computation when the
	// capability check fails.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrCancelled marks batch items abandoned after context cancellation.
	ErrCancelled = errors.New("operation cancelled")
)

// =============================================================================
// STRUCTURED ERROR - Carries kind, operation and cause
// =============================================================================

// Error is the engine's structured error. Op identifies the failing
// operation ("payroll.commit"), Msg is human-readable detail for display,
// Err is the wrapped cause (always set for persistence errors).
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func NewNotFoundError(op, msg string, cause error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg, Err: cause}
}

func NewPermissionError(op, msg string) *Error {
	return &Error{Kind: KindPermission, Op: op, Msg: msg, Err: ErrPermissionDenied}
}

func NewConflictError(op, msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg, Err: cause}
}

// NewPersistenceError always carries the original store failure so the
// cause is surfaced as-is, never replaced by a generic message.
func NewPersistenceError(op string, cause error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: cause}
}

func NewCancelledError(op string) *Error {
	return &Error{Kind: KindCancelled, Op: op, Err: ErrCancelled}
}

// =============================================================================
// STRUCTURED DETAILS
// =============================================================================

// SweepMismatchError reports the optimistic-check failure during a payroll
// commit: what the calculation counted versus what the sweep found.
type SweepMismatchError struct {
	EntityID   EntityID
	Calculated Amount
	Swept      Amount
}

func (e *SweepMismatchError) Error() string {
	return fmt.Sprintf("sweep mismatch for %s: calculated %s, swept %s",
		e.EntityID, e.Calculated, e.Swept)
}

func (e *SweepMismatchError) Unwrap() error {
	return ErrSweepMismatch
}

// DuplicatePaymentError reports the existing payment blocking a re-commit.
type DuplicatePaymentError struct {
	EmployeeID  EntityID
	PeriodStart Date
	PeriodEnd   Date
	ExistingID  string
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("salary payment already committed for %s %s..%s (payment: %s)",
		e.EmployeeID, e.PeriodStart, e.PeriodEnd, e.ExistingID)
}

func (e *DuplicatePaymentError) Unwrap() error {
	return ErrDuplicateSalaryPayment
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf classifies any error into a Kind. Unclassified failures count as
// persistence-level: something below the engine broke.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrEntityNotFound), errors.Is(err, ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermission
	case errors.Is(err, ErrAdvanceNotPending),
		errors.Is(err, ErrInvoiceAlreadyPaid),
		errors.Is(err, ErrDuplicateSalaryPayment),
		errors.Is(err, ErrSweepMismatch):
		return KindConflict
	case errors.Is(err, ErrInvalidPeriod):
		return KindValidation
	default:
		return KindPersistence
	}
}

// IsRetryable returns true if the error might succeed on retry after the
// caller refreshes its view.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}

// IsValidation returns true for invalid client input.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound returns true if the error indicates a missing record or entity.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict returns true for concurrent or repeated mutation detection.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsCancelled returns true for work abandoned on context cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}
