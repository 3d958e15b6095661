/*
service.go - Payroll commit

PURPOSE:
  The only operation in the payroll domain with side effects. Commit
  re-runs the calculation, persists the SalaryPayment and its append-only
  SalaryTransaction, and sweeps the counted advances to deducted — all in
  one store transaction.

COMMIT GUARDS (why double-pay cannot happen):
  1. Per-employee mutex: commits for one employee are serialized within
     the process, so two in-flight commits never interleave.
  2. Pre-check: an existing payment for the exact (employee, period)
     turns the call into a no-op that returns the existing record.
  3. Store uniqueness: a racer that slips past the pre-check (another
     process) hits the unique (employee, period) index and gets a
     conflict instead of a second payment.
  4. Sweep verification: the swept total must equal the calculated
     deduction. An advance granted or settled between calculate and
     commit makes the arithmetic stale; the transaction rolls back with
     a conflict and the caller recalculates.

SEE ALSO:
  - calculator.go: the pure half
  - ledger/advances.go: SweepPendingAdvances, run inside the transaction
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brickworks/ledger-engine/ledger"
)

// CommitInput names the disbursement being made.
type CommitInput struct {
	EmployeeID    ledger.EntityID
	Period        ledger.Period
	PaymentMethod ledger.PaymentMethod
	PaymentDate   ledger.Date
}

// CommitResult is the committed payment plus how it came to be.
type CommitResult struct {
	Payment     *ledger.SalaryPayment
	Computation *Computation

	// AlreadyCommitted means a payment for this exact period existed and
	// the call changed nothing.
	AlreadyCommitted bool

	SweptAdvances int
}

// Service owns payroll side effects.
type Service struct {
	store ledger.TxRecordStore
	calc  *Calculator

	locks entityLocks
}

func NewService(store ledger.TxRecordStore, policy PayPolicy) *Service {
	return &Service{
		store: store,
		calc:  NewCalculator(store, policy),
	}
}

// Preview is the pure calculation, exposed for display surfaces.
func (s *Service) Preview(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) (*Computation, error) {
	return s.calc.Calculate(ctx, employeeID, period)
}

// Commit disburses one employee's period. At most one payment per
// (employee, period) ever exists; see the guard ladder in the file header.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	const op = "payroll.commit"

	if err := in.Period.Validate(); err != nil {
		return nil, err
	}
	if !ledger.KnownPaymentMethod(in.PaymentMethod) {
		return nil, ledger.NewValidationError(op, "unknown payment method "+string(in.PaymentMethod))
	}
	if in.PaymentDate.IsZero() {
		return nil, ledger.NewValidationError(op, "payment date is required")
	}

	unlock := s.locks.lock(in.EmployeeID)
	defer unlock()

	// No-op path: this exact disbursement already happened.
	existing, err := s.store.GetSalaryPaymentForPeriod(ctx, in.EmployeeID, in.Period)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if existing != nil {
		return &CommitResult{Payment: existing, AlreadyCommitted: true}, nil
	}

	comp, err := s.calc.Calculate(ctx, in.EmployeeID, in.Period)
	if err != nil {
		return nil, err
	}

	runID := ledger.NewID()
	now := time.Now().UTC()
	week, month, year := ledger.Markers(in.PaymentDate)

	payment := ledger.SalaryPayment{
		ID:                ledger.NewID(),
		EmployeeID:        in.EmployeeID,
		PeriodStart:       in.Period.Start,
		PeriodEnd:         in.Period.End,
		PayrollRunID:      runID,
		BasicSalary:       comp.BasicSalary,
		OvertimeAmount:    comp.OvertimeAmount,
		AdvanceDeductions: comp.AdvanceDeductions,
		NetSalary:         comp.NetSalary,
		WorkDays:          comp.WorkDays,
		TotalWorkHours:    comp.TotalWorkHours,
		OvertimeHours:     comp.OvertimeHours,
		PaymentMethod:     in.PaymentMethod,
		PaymentDate:       in.PaymentDate,
		Status:            ledger.SalaryPaymentPaid,
		CreatedAt:         now,
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	salaryTx := ledger.SalaryTransaction{
		ID:           ledger.NewID(),
		EmployeeID:   in.EmployeeID,
		Amount:       comp.NetSalary,
		Date:         in.PaymentDate,
		Week:         week,
		Month:        month,
		Year:         year,
		Notes:        fmt.Sprintf("payroll %s", in.Period),
		PayrollRunID: runID,
		CreatedAt:    now,
	}
	if err := salaryTx.Validate(); err != nil {
		return nil, err
	}

	var sweptCount int
	err = s.store.WithTx(ctx, func(tx ledger.RecordStore) error {
		swept, count, err := ledger.SweepPendingAdvances(ctx, tx, in.EmployeeID, in.Period, runID)
		if err != nil {
			return err
		}
		if !swept.Equal(comp.AdvanceDeductions) {
			return &ledger.SweepMismatchError{
				EntityID:   in.EmployeeID,
				Calculated: comp.AdvanceDeductions,
				Swept:      swept,
			}
		}
		sweptCount = count

		if err := tx.CreateSalaryPayment(ctx, payment); err != nil {
			return err
		}
		return tx.AppendSalaryTransaction(ctx, salaryTx)
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateSalaryPayment):
			return nil, ledger.NewConflictError(op, "payment already committed for this period", err)
		case errors.Is(err, ledger.ErrSweepMismatch):
			return nil, ledger.NewConflictError(op, "advances changed since calculation; recalculate and retry", err)
		case ledger.KindOf(err) != ledger.KindPersistence:
			return nil, err
		default:
			return nil, ledger.NewPersistenceError(op, err)
		}
	}

	return &CommitResult{
		Payment:       &payment,
		Computation:   comp,
		SweptAdvances: sweptCount,
	}, nil
}

// RecordManualSalary appends an incremental salary entry outside a
// payroll run (festival bonus, arrears). Append-only like every other
// salary line.
func (s *Service) RecordManualSalary(ctx context.Context, employeeID ledger.EntityID, amount ledger.Amount, date ledger.Date, notes string) (*ledger.SalaryTransaction, error) {
	const op = "payroll.manual_salary"

	if !amount.IsPositive() {
		return nil, ledger.NewValidationError(op, "amount must be positive")
	}
	if date.IsZero() {
		return nil, ledger.NewValidationError(op, "date is required")
	}
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if emp == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("employee %s", employeeID), ledger.ErrEntityNotFound)
	}

	week, month, year := ledger.Markers(date)
	tx := ledger.SalaryTransaction{
		ID:         ledger.NewID(),
		EmployeeID: employeeID,
		Amount:     amount,
		Date:       date,
		Week:       week,
		Month:      month,
		Year:       year,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.AppendSalaryTransaction(ctx, tx); err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	return &tx, nil
}

// Payments lists an employee's committed payroll runs, oldest first.
func (s *Service) Payments(ctx context.Context, employeeID ledger.EntityID) ([]ledger.SalaryPayment, error) {
	payments, err := s.store.ListSalaryPayments(ctx, employeeID)
	if err != nil {
		return nil, ledger.NewPersistenceError("payroll.payments", err)
	}
	return payments, nil
}

// MarkPayslipGenerated records that the presentation layer rendered a
// payslip for a payment.
func (s *Service) MarkPayslipGenerated(ctx context.Context, paymentID string) error {
	const op = "payroll.mark_payslip"

	if err := s.store.SetPayslipGenerated(ctx, paymentID); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return ledger.NewNotFoundError(op, fmt.Sprintf("payment %s", paymentID), err)
		}
		return ledger.NewPersistenceError(op, err)
	}
	return nil
}

// =============================================================================
// PER-EMPLOYEE LOCKS
// =============================================================================

// entityLocks hands out one mutex per employee. Entries are never
// reclaimed; the population is bounded by the crew size.
type entityLocks struct {
	mu    sync.Mutex
	locks map[ledger.EntityID]*sync.Mutex
}

func (l *entityLocks) lock(id ledger.EntityID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[ledger.EntityID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
