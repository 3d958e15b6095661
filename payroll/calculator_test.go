package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/attendance"
	"github.com/brickworks/ledger-engine/ledger"
	memstore "github.com/brickworks/ledger-engine/ledger/store"
)

// seedWeek loads the canonical fixture: rate 500/day, five present days
// Mon–Fri with one carrying 2 overtime hours, Saturday absent, and a
// pending 300 advance inside the period.
//
//	basic    = 500 × 5           = 2500
//	overtime = 2 × (500/8) × 1.5 = 187.5
//	net      = 2500 + 187.5 − 300 = 2387.5
func seedWeek(t *testing.T, store *memstore.TxMemory) ledger.Period {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	rate := ledger.NewAmount(500)
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "ravi", Name: "Ravi Kumar", DailyRate: &rate, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}))

	att := attendance.NewService(store)
	start := ledger.MustDate("2026-08-17")
	for i := 0; i < 5; i++ {
		in := attendance.MarkInput{
			EmployeeID: "ravi",
			Date:       start.AddDays(i),
			Status:     ledger.AttendancePresent,
			CheckIn:    "09:00",
			CheckOut:   "18:00",
		}
		if i == 3 {
			in.CheckOut = "20:00"
			in.OvertimeHours = 2
		}
		_, err := att.Mark(ctx, in)
		require.NoError(t, err)
	}
	_, err := att.Mark(ctx, attendance.MarkInput{
		EmployeeID: "ravi", Date: start.AddDays(5), Status: ledger.AttendanceAbsent,
	})
	require.NoError(t, err)

	advances := ledger.NewAdvanceLedger(store)
	_, err = advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(300), start.AddDays(1), "medical")
	require.NoError(t, err)

	period, err := ledger.NewPeriod(start, start.AddDays(5))
	require.NoError(t, err)
	return period
}

func TestCalculateWeek(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	calc := NewCalculator(store, DefaultPayPolicy())

	comp, err := calc.Calculate(context.Background(), "ravi", period)
	require.NoError(t, err)

	assert.Equal(t, 5, comp.WorkDays)
	assert.Equal(t, 2.0, comp.OvertimeHours)
	assert.Equal(t, "2500", comp.BasicSalary.String())
	assert.Equal(t, "187.5", comp.OvertimeAmount.String())
	assert.Equal(t, "300", comp.AdvanceDeductions.String())
	assert.Equal(t, "2387.5", comp.NetSalary.String())
	assert.False(t, comp.RateDefaulted)
	assert.Len(t, comp.CountedAdvanceIDs, 1)
}

func TestCalculateIsPure(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	calc := NewCalculator(store, DefaultPayPolicy())
	ctx := context.Background()

	first, err := calc.Calculate(ctx, "ravi", period)
	require.NoError(t, err)
	second, err := calc.Calculate(ctx, "ravi", period)
	require.NoError(t, err)

	// Previewing changes nothing: same figures, advance still pending.
	assert.Equal(t, first.NetSalary.String(), second.NetSalary.String())
	assert.Equal(t, first.CountedAdvanceIDs, second.CountedAdvanceIDs)

	pending, err := ledger.NewAdvanceLedger(store).PendingTotal(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "300", pending.String())
}

func TestCalculateDefaultedRate(t *testing.T) {
	store := memstore.NewTxMemory()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "karim", Name: "Karim Sheikh", Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	att := attendance.NewService(store)
	day := ledger.MustDate("2026-08-17")
	_, err := att.Mark(ctx, attendance.MarkInput{
		EmployeeID: "karim", Date: day, Status: ledger.AttendancePresent,
		CheckIn: "09:00", CheckOut: "18:00",
	})
	require.NoError(t, err)

	period, _ := ledger.NewPeriod(day, day)
	comp, err := NewCalculator(store, DefaultPayPolicy()).Calculate(ctx, "karim", period)
	require.NoError(t, err)

	assert.True(t, comp.RateDefaulted)
	assert.Equal(t, "500", comp.BasicSalary.String())
}

func TestCalculateNegativeNetCarried(t *testing.T) {
	store := memstore.NewTxMemory()
	ctx := context.Background()

	now := time.Now().UTC()
	rate := ledger.NewAmount(500)
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "mohan", Name: "Mohan Lal", DailyRate: &rate, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}))

	day := ledger.MustDate("2026-08-17")
	att := attendance.NewService(store)
	_, err := att.Mark(ctx, attendance.MarkInput{
		EmployeeID: "mohan", Date: day, Status: ledger.AttendancePresent,
		CheckIn: "09:00", CheckOut: "18:00",
	})
	require.NoError(t, err)

	advances := ledger.NewAdvanceLedger(store)
	_, err = advances.Grant(ctx, "mohan", ledger.KindEmployee, ledger.NewAmount(800), day, "")
	require.NoError(t, err)

	period, _ := ledger.NewPeriod(day, day)
	comp, err := NewCalculator(store, DefaultPayPolicy()).Calculate(ctx, "mohan", period)
	require.NoError(t, err)

	// 500 earned, 800 deducted: the debt is surfaced, never clamped.
	assert.Equal(t, "-300", comp.NetSalary.String())
}

func TestCalculateUnknownEmployee(t *testing.T) {
	store := memstore.NewTxMemory()
	period, _ := ledger.NewPeriod(ledger.MustDate("2026-08-17"), ledger.MustDate("2026-08-22"))

	_, err := NewCalculator(store, DefaultPayPolicy()).Calculate(context.Background(), "nobody", period)
	assert.True(t, ledger.IsNotFound(err))
}

func TestOvertimePay(t *testing.T) {
	policy := DefaultPayPolicy()
	rate := ledger.NewAmount(600)

	// 600/8 = 75/hour, × 1.5 × 2h = 225
	assert.Equal(t, "225", policy.OvertimePay(rate, 2).String())
	assert.True(t, policy.OvertimePay(rate, 0).IsZero())
	assert.True(t, policy.OvertimePay(rate, -1).IsZero())
}
