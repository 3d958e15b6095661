/*
period.go - Pay periods and calendar bucketing

PURPOSE:
  Two jobs live here:
  1. Period: the inclusive [Start, End] date range a payroll run or a
     report aggregates over.
  2. The period classifier: calendar markers (ISO week, month, year)
     stamped onto salary transactions so reporting can group them without
     re-deriving calendars.

WEEK NUMBERING:
  Weeks are ISO-8601 (Monday start, Thursday-anchored): 2024-01-01 is
  week 1, 2023-12-31 is week 52. Around new year the ISO week year can
  differ from the calendar year; the month/year markers stay calendar
  because monthly reports follow the wall calendar.

SEE ALSO:
  - date.go: the civil Date the markers derive from
  - payroll/calculator.go: aggregates over one Period
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive date range. Both bounds count: a record dated
// exactly on Start or End belongs to the period.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates that the range runs forward.
func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return NewValidationError("period.validate", "period bounds are required")
	}
	if p.End.Before(p.Start) {
		return &Error{Kind: KindValidation, Op: "period.validate", Msg: p.String(), Err: ErrInvalidPeriod}
	}
	return nil
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d Date) bool {
	return p.Start.BeforeOrEqual(d) && d.BeforeOrEqual(p.End)
}

// Days is the inclusive day count (a one-day period has Days() == 1).
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start, p.End)
}

// MonthPeriod covers one calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := NewDate(year, month, 1)
	return Period{Start: start, End: start.AddMonths(1).AddDays(-1)}
}

// WeekPeriod covers the ISO week (Monday..Sunday) containing d.
func WeekPeriod(d Date) Period {
	// Shift back to Monday; Go's Sunday is 0.
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	start := d.AddDays(-offset)
	return Period{Start: start, End: start.AddDays(6)}
}

// YearPeriod covers one calendar year.
func YearPeriod(year int) Period {
	return Period{Start: NewDate(year, time.January, 1), End: NewDate(year, time.December, 31)}
}

// =============================================================================
// PERIOD CLASSIFIER - Calendar markers for a date
// =============================================================================

// WeekNumber is the ISO-8601 week number of d.
func WeekNumber(d Date) int {
	_, week := d.ISOWeek()
	return week
}

// MonthNumber is the calendar month of d, 1..12.
func MonthNumber(d Date) int {
	return int(d.Month())
}

// Year is the calendar year of d.
func Year(d Date) int {
	return d.Year()
}

// Markers returns the three period markers a salary transaction carries.
func Markers(d Date) (week, month, year int) {
	return WeekNumber(d), MonthNumber(d), Year(d)
}
