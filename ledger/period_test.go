package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOWeekNumbers(t *testing.T) {
	// 2024-01-01 is a Monday, so it opens ISO week 1 of 2024.
	assert.Equal(t, 1, WeekNumber(MustDate("2024-01-01")))

	// 2023-12-31 is a Sunday and still belongs to 2023's last week.
	assert.Equal(t, 52, WeekNumber(MustDate("2023-12-31")))
}

func TestMarkers(t *testing.T) {
	week, month, year := Markers(MustDate("2024-01-01"))
	assert.Equal(t, 1, week)
	assert.Equal(t, 1, month)
	assert.Equal(t, 2024, year)

	week, month, year = Markers(MustDate("2023-12-31"))
	assert.Equal(t, 52, week)
	assert.Equal(t, 12, month)
	assert.Equal(t, 2023, year)
}

func TestPeriodValidate(t *testing.T) {
	_, err := NewPeriod(MustDate("2026-08-22"), MustDate("2026-08-17"))
	assert.True(t, IsValidation(err))

	p, err := NewPeriod(MustDate("2026-08-17"), MustDate("2026-08-17"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Days())
}

func TestPeriodContains(t *testing.T) {
	p, err := NewPeriod(MustDate("2026-08-17"), MustDate("2026-08-22"))
	require.NoError(t, err)

	// Both ends are inclusive.
	assert.True(t, p.Contains(MustDate("2026-08-17")))
	assert.True(t, p.Contains(MustDate("2026-08-22")))
	assert.True(t, p.Contains(MustDate("2026-08-19")))
	assert.False(t, p.Contains(MustDate("2026-08-16")))
	assert.False(t, p.Contains(MustDate("2026-08-23")))
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(2026, time.February)
	assert.Equal(t, MustDate("2026-02-01"), p.Start)
	assert.Equal(t, MustDate("2026-02-28"), p.End)
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := MustDate("2026-08-17")
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2026-08-17"`, string(data))

	var back Date
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, d.Equal(back))
}
