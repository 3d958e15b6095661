/*
hours.go - Clock-time arithmetic

PURPOSE:
  Converts a day's check-in/check-out clock times into worked hours.
  Inputs are local wall-clock strings ("09:30") with no date attached,
  which is exactly how attendance is keyed in: a date plus two clocks.

OVERNIGHT SHIFTS:
  A check-out earlier than the check-in means the shift crossed midnight:

      in 22:00, out 06:00  →  24 − 22 + 6 = 8 hours

DATA-QUALITY POLICY:
  Absent or malformed clock strings yield 0 hours. This is the one place
  in the engine where bad input is normalized instead of rejected: a
  half-typed clock in a year-old attendance row must not wedge payroll.
  Everything downstream treats 0 as "no usable clocks", and the record's
  status still tells the truth about the day.

SEE ALSO:
  - aggregate.go: sums these hours over a pay period
  - service.go: recomputes hours on every mark, never trusts stored input
*/
package attendance

import (
	"strconv"
	"strings"
)

// HoursPerDay is the clock span of one civil day.
const HoursPerDay = 24.0

// WorkHours converts a check-in/check-out pair into worked hours.
// Same-day pairs yield the exact difference; a check-out before the
// check-in wraps overnight. The result is clamped to [0, 24]. Missing or
// malformed input yields 0.
func WorkHours(checkIn, checkOut string) float64 {
	in, ok := parseClock(checkIn)
	if !ok {
		return 0
	}
	out, ok := parseClock(checkOut)
	if !ok {
		return 0
	}

	hours := out - in
	if out < in {
		hours = HoursPerDay - in + out
	}

	if hours < 0 {
		return 0
	}
	if hours > HoursPerDay {
		return HoursPerDay
	}
	return hours
}

// parseClock reads "HH:MM" (seconds tolerated and ignored) into fractional
// hours. Returns false for anything that is not a valid wall-clock time.
func parseClock(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}

	return float64(hour) + float64(minute)/60, true
}
