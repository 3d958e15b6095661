// policy.go - Pay policy.
//
// The few knobs wage arithmetic turns on. A policy is loaded once (JSON
// via the factory package, or the built-in default) and passed to the
// calculator; per-employee daily rates override the policy default.
package payroll

import (
	"github.com/brickworks/ledger-engine/ledger"
)

// PayPolicy carries the wage rules for a crew.
type PayPolicy struct {
	// DefaultDailyRate applies when an employee has no rate of their own.
	// Runs priced on the default are flagged in the result detail.
	DefaultDailyRate ledger.Amount

	// StandardDayHours divides a daily rate into an hourly rate.
	StandardDayHours int64

	// OvertimeMultiplier scales the hourly rate for overtime hours.
	OvertimeMultiplier float64
}

// DefaultPayPolicy is the shipped policy: 500/day, 8-hour day,
// time-and-a-half overtime.
func DefaultPayPolicy() PayPolicy {
	return PayPolicy{
		DefaultDailyRate:   ledger.NewAmount(500),
		StandardDayHours:   8,
		OvertimeMultiplier: 1.5,
	}
}

func (p PayPolicy) Validate() error {
	if !p.DefaultDailyRate.IsPositive() {
		return ledger.NewValidationError("paypolicy.validate", "default daily rate must be positive")
	}
	if p.StandardDayHours <= 0 {
		return ledger.NewValidationError("paypolicy.validate", "standard day hours must be positive")
	}
	if p.OvertimeMultiplier <= 0 {
		return ledger.NewValidationError("paypolicy.validate", "overtime multiplier must be positive")
	}
	return nil
}

// ResolveDailyRate picks the employee's own rate, falling back to the
// policy default. The second return reports whether the default applied.
func (p PayPolicy) ResolveDailyRate(e *ledger.Employee) (ledger.Amount, bool) {
	if e != nil && e.DailyRate != nil && e.DailyRate.IsPositive() {
		return *e.DailyRate, false
	}
	return p.DefaultDailyRate, true
}

// HourlyRate is the daily rate spread over the standard day.
func (p PayPolicy) HourlyRate(dailyRate ledger.Amount) ledger.Amount {
	return dailyRate.DivInt(p.StandardDayHours)
}

// OvertimePay prices overtime hours: hourly rate × multiplier × hours.
func (p PayPolicy) OvertimePay(dailyRate ledger.Amount, hours float64) ledger.Amount {
	if hours <= 0 {
		return ledger.ZeroAmount()
	}
	return p.HourlyRate(dailyRate).MulFloat(p.OvertimeMultiplier).MulFloat(hours)
}
