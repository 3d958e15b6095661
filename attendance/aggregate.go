/*
aggregate.go - Attendance reduction over a pay period

PURPOSE:
  Reduces one employee's attendance records for a period into the counts
  payroll consumes: work days, hours, overtime. Pure over its input — the
  same records always reduce to the same summary.

DAY COUNTING:
  Only status=present counts toward WorkDays. Half days are a distinct,
  non-additive bucket: they appear in HalfDays (and their hours in the
  totals) but add nothing to WorkDays, so a half day is worth zero basic
  pay until the business decides otherwise. Absent records contribute
  zero hours no matter what clock strings they still carry.

SEE ALSO:
  - payroll/calculator.go: turns a Summary into money
*/
package attendance

import (
	"github.com/brickworks/ledger-engine/ledger"
)

// Summary is the reduction of a period's attendance for one employee.
type Summary struct {
	WorkDays           int
	HalfDays           int
	AbsentDays         int
	TotalWorkHours     float64
	TotalOvertimeHours float64
}

// Aggregate reduces records into a Summary. Records are taken as given —
// the caller filters to one employee and one period.
func Aggregate(records []ledger.AttendanceRecord) Summary {
	var s Summary
	for _, rec := range records {
		switch rec.Status {
		case ledger.AttendancePresent:
			s.WorkDays++
		case ledger.AttendanceHalfDay:
			s.HalfDays++
		case ledger.AttendanceAbsent:
			s.AbsentDays++
			// Absent days contribute no hours even when stale clock
			// strings remain on the record.
			continue
		}
		s.TotalWorkHours += rec.WorkHours
		s.TotalOvertimeHours += rec.OvertimeHours
	}
	return s
}
