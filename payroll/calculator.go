/*
calculator.go - Salary calculation

PURPOSE:
  Turns one employee's attendance and pending advances over one pay
  period into money:

      basic     = daily rate × work days
      overtime  = overtime hours × (daily rate / standard day) × multiplier
      deduction = Σ pending advances dated inside the period
      net       = basic + overtime − deduction

  Calculate is pure with respect to its inputs: it only reads, so the UI
  can preview a payroll any number of times before committing, and a
  committed SalaryPayment can always be audited by recomputing.

NEGATIVE NET:
  When the deduction exceeds earnings the net goes negative and stays
  negative. The figure is surfaced for the caller to act on — debt is
  carried, not silently clamped away.

SEE ALSO:
  - service.go: the commit path that makes a calculation real
  - attendance/aggregate.go: the day/hour reduction feeding step 1 and 2
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/brickworks/ledger-engine/attendance"
	"github.com/brickworks/ledger-engine/ledger"
)

// Computation is one priced pay period for one employee. It carries its
// inputs (days, hours, rate, the counted advances) so the result can show
// its work and the commit path can verify the sweep against it.
type Computation struct {
	EmployeeID   ledger.EntityID
	EmployeeName string
	Period       ledger.Period

	DailyRate     ledger.Amount
	RateDefaulted bool

	WorkDays       int
	HalfDays       int
	TotalWorkHours float64
	OvertimeHours  float64

	BasicSalary       ledger.Amount
	OvertimeAmount    ledger.Amount
	AdvanceDeductions ledger.Amount
	NetSalary         ledger.Amount

	// The pending advances the deduction counted, in date order. The
	// commit sweep must settle exactly this set.
	CountedAdvanceIDs []string
}

// Calculator prices pay periods. Read-only; commits live in Service.
type Calculator struct {
	store    ledger.RecordStore
	advances *ledger.AdvanceLedger
	policy   PayPolicy
}

func NewCalculator(store ledger.RecordStore, policy PayPolicy) *Calculator {
	return &Calculator{
		store:    store,
		advances: ledger.NewAdvanceLedger(store),
		policy:   policy,
	}
}

// Calculate prices one employee's period. Unknown employees are
// not_found; a malformed period is validation. No state changes.
func (c *Calculator) Calculate(ctx context.Context, employeeID ledger.EntityID, period ledger.Period) (*Computation, error) {
	const op = "payroll.calculate"

	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := c.policy.Validate(); err != nil {
		return nil, err
	}

	emp, err := c.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	if emp == nil {
		return nil, ledger.NewNotFoundError(op, fmt.Sprintf("employee %s", employeeID), ledger.ErrEntityNotFound)
	}

	records, err := c.store.ListAttendanceRange(ctx, employeeID, period)
	if err != nil {
		return nil, ledger.NewPersistenceError(op, err)
	}
	summary := attendance.Aggregate(records)

	counted, err := c.advances.PendingInPeriod(ctx, employeeID, period)
	if err != nil {
		return nil, err
	}

	rate, defaulted := c.policy.ResolveDailyRate(emp)

	basic := rate.MulFloat(float64(summary.WorkDays))
	overtime := c.policy.OvertimePay(rate, summary.TotalOvertimeHours)

	deductions := ledger.ZeroAmount()
	advanceIDs := make([]string, 0, len(counted))
	for _, adv := range counted {
		deductions = deductions.Add(adv.Amount)
		advanceIDs = append(advanceIDs, adv.ID)
	}

	return &Computation{
		EmployeeID:        employeeID,
		EmployeeName:      emp.Name,
		Period:            period,
		DailyRate:         rate,
		RateDefaulted:     defaulted,
		WorkDays:          summary.WorkDays,
		HalfDays:          summary.HalfDays,
		TotalWorkHours:    summary.TotalWorkHours,
		OvertimeHours:     summary.TotalOvertimeHours,
		BasicSalary:       basic,
		OvertimeAmount:    overtime,
		AdvanceDeductions: deductions,
		NetSalary:         basic.Add(overtime).Sub(deductions),
		CountedAdvanceIDs: advanceIDs,
	}, nil
}
