package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
	memstore "github.com/brickworks/ledger-engine/ledger/store"
)

func newTestService(t *testing.T) (*Service, *memstore.TxMemory) {
	t.Helper()
	store := memstore.NewTxMemory()

	now := time.Now().UTC()
	err := store.SaveEmployee(context.Background(), ledger.Employee{
		ID:        "ravi",
		Name:      "Ravi Kumar",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	return NewService(store), store
}

func TestMarkComputesHours(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Mark(ctx, MarkInput{
		EmployeeID: "ravi",
		Date:       ledger.MustDate("2026-08-17"),
		Status:     ledger.AttendancePresent,
		CheckIn:    "09:00",
		CheckOut:   "18:00",
	})
	require.NoError(t, err)

	assert.Equal(t, 9.0, rec.WorkHours)
}

func TestMarkSameDayTwiceUpdatesInPlace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := ledger.MustDate("2026-08-17")
	period, _ := ledger.NewPeriod(day, day)

	// GIVEN a day already marked present
	first, err := svc.Mark(ctx, MarkInput{
		EmployeeID: "ravi", Date: day,
		Status:  ledger.AttendancePresent,
		CheckIn: "09:00", CheckOut: "18:00",
	})
	require.NoError(t, err)

	// WHEN the same day is marked again with corrected clocks
	second, err := svc.Mark(ctx, MarkInput{
		EmployeeID: "ravi", Date: day,
		Status:  ledger.AttendancePresent,
		CheckIn: "09:00", CheckOut: "14:00",
	})
	require.NoError(t, err)

	// THEN the original record was updated, not duplicated
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5.0, second.WorkHours)

	records, err := svc.Range(ctx, "ravi", period)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// AND aggregation counts exactly one work day
	sum := Aggregate(records)
	assert.Equal(t, 1, sum.WorkDays)
}

func TestMarkAbsentZeroesHours(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.Mark(context.Background(), MarkInput{
		EmployeeID:    "ravi",
		Date:          ledger.MustDate("2026-08-17"),
		Status:        ledger.AttendanceAbsent,
		CheckIn:       "09:00",
		CheckOut:      "18:00",
		OvertimeHours: 2,
	})
	require.NoError(t, err)

	assert.Zero(t, rec.WorkHours)
	assert.Zero(t, rec.OvertimeHours)
}

func TestMarkUnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Mark(context.Background(), MarkInput{
		EmployeeID: "nobody",
		Date:       ledger.MustDate("2026-08-17"),
		Status:     ledger.AttendancePresent,
	})
	assert.True(t, ledger.IsNotFound(err))
}

func TestPresentOn(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	day := ledger.MustDate("2026-08-17")

	now := time.Now().UTC()
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "sita", Name: "Sita Devi", Active: true, CreatedAt: now, UpdatedAt: now,
	}))

	_, err := svc.Mark(ctx, MarkInput{EmployeeID: "ravi", Date: day, Status: ledger.AttendancePresent, CheckIn: "09:00", CheckOut: "18:00"})
	require.NoError(t, err)
	_, err = svc.Mark(ctx, MarkInput{EmployeeID: "sita", Date: day, Status: ledger.AttendanceAbsent})
	require.NoError(t, err)

	present, err := svc.PresentOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []ledger.EntityID{"ravi"}, present)
}

func TestUnmarkedOn(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	day := ledger.MustDate("2026-08-17")

	now := time.Now().UTC()
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "sita", Name: "Sita Devi", Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "gone", Name: "Left Last Year", Active: false, CreatedAt: now, UpdatedAt: now,
	}))

	_, err := svc.Mark(ctx, MarkInput{EmployeeID: "ravi", Date: day, Status: ledger.AttendancePresent, CheckIn: "09:00", CheckOut: "18:00"})
	require.NoError(t, err)

	// Only active, unmarked employees are candidates for auto-absent.
	unmarked, err := svc.UnmarkedOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []ledger.EntityID{"sita"}, unmarked)
}
