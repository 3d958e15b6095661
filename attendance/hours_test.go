package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brickworks/ledger-engine/ledger"
)

func TestWorkHoursSameDay(t *testing.T) {
	// GIVEN a normal working day
	// WHEN check-out is after check-in
	// THEN hours are the exact difference
	assert.Equal(t, 9.0, WorkHours("09:00", "18:00"))
	assert.Equal(t, 8.5, WorkHours("09:30", "18:00"))
	assert.Equal(t, 0.25, WorkHours("09:00", "09:15"))
}

func TestWorkHoursOvernight(t *testing.T) {
	// GIVEN a night shift crossing midnight
	// WHEN check-out is lexically before check-in
	// THEN the shift wraps: 24 − in + out
	assert.Equal(t, 8.0, WorkHours("22:00", "06:00"))
	assert.Equal(t, 10.5, WorkHours("21:30", "08:00"))
}

func TestWorkHoursBounds(t *testing.T) {
	// Equal clocks are a zero-length day, not a 24-hour wrap.
	assert.Equal(t, 0.0, WorkHours("09:00", "09:00"))
	// One minute short of a full wrap stays inside [0, 24].
	assert.InDelta(t, 23.983, WorkHours("09:00", "08:59"), 0.001)
}

func TestWorkHoursMalformed(t *testing.T) {
	// Malformed or missing clocks contribute zero hours. The record still
	// counts as a work day; only the hour figure degrades.
	assert.Equal(t, 0.0, WorkHours("", ""))
	assert.Equal(t, 0.0, WorkHours("09:00", ""))
	assert.Equal(t, 0.0, WorkHours("", "18:00"))
	assert.Equal(t, 0.0, WorkHours("9am", "6pm"))
	assert.Equal(t, 0.0, WorkHours("25:00", "18:00"))
	assert.Equal(t, 0.0, WorkHours("09:61", "18:00"))
}

func TestAggregateBuckets(t *testing.T) {
	day := ledger.MustDate("2026-08-17")

	records := []ledger.AttendanceRecord{
		{Status: ledger.AttendancePresent, Date: day, WorkHours: 9, OvertimeHours: 1},
		{Status: ledger.AttendancePresent, Date: day.AddDays(1), WorkHours: 8},
		{Status: ledger.AttendanceHalfDay, Date: day.AddDays(2), WorkHours: 4},
		{Status: ledger.AttendanceAbsent, Date: day.AddDays(3)},
	}

	sum := Aggregate(records)

	// Half days are their own bucket, never folded into work days.
	assert.Equal(t, 2, sum.WorkDays)
	assert.Equal(t, 1, sum.HalfDays)
	assert.Equal(t, 1, sum.AbsentDays)
	assert.Equal(t, 21.0, sum.TotalWorkHours)
	assert.Equal(t, 1.0, sum.TotalOvertimeHours)
}

func TestAggregateEmpty(t *testing.T) {
	sum := Aggregate(nil)
	assert.Zero(t, sum.WorkDays)
	assert.Zero(t, sum.TotalWorkHours)
}
