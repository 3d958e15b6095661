package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAttendance(id string, date ledger.Date) ledger.AttendanceRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return ledger.AttendanceRecord{
		ID:         id,
		EmployeeID: "ravi",
		Date:       date,
		Status:     ledger.AttendancePresent,
		CheckIn:    "09:00",
		CheckOut:   "18:00",
		WorkHours:  9,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testAdvance(id string, date ledger.Date) ledger.AdvanceTransaction {
	now := time.Now().UTC().Truncate(time.Second)
	return ledger.AdvanceTransaction{
		ID:         id,
		EntityID:   "ravi",
		EntityKind: ledger.KindEmployee,
		Amount:     ledger.NewAmount(300),
		Date:       date,
		Status:     ledger.AdvancePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestAttendanceUpsertKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := ledger.MustDate("2026-08-17")

	// GIVEN a stored attendance row
	first, err := store.UpsertAttendance(ctx, testAttendance("att-1", day))
	require.NoError(t, err)

	// WHEN the same employee-day is written again under a fresh id
	corrected := testAttendance("att-2", day)
	corrected.CheckOut = "14:00"
	corrected.WorkHours = 5
	second, err := store.UpsertAttendance(ctx, corrected)
	require.NoError(t, err)

	// THEN the unique (employee, date) row absorbed the update in place
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 5.0, second.WorkHours)

	period, _ := ledger.NewPeriod(day, day)
	records, err := store.ListAttendanceRange(ctx, "ravi", period)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteAttendance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.UpsertAttendance(ctx, testAttendance("att-1", ledger.MustDate("2026-08-17")))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAttendance(ctx, rec.ID))
	assert.ErrorIs(t, store.DeleteAttendance(ctx, rec.ID), ledger.ErrRecordNotFound)
}

func TestTransitionAdvanceGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAdvance(ctx, testAdvance("adv-1", ledger.MustDate("2026-08-18"))))

	// First transition wins and stamps the run.
	updated, err := store.TransitionAdvance(ctx, "adv-1", ledger.AdvanceDeducted, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.AdvanceDeducted, updated.Status)
	assert.Equal(t, "run-1", updated.PayrollRunID)

	// A row that already left pending never moves again.
	_, err = store.TransitionAdvance(ctx, "adv-1", ledger.AdvancePaid, "")
	assert.ErrorIs(t, err, ledger.ErrAdvanceNotPending)

	// A missing row is not_found, not not-pending.
	_, err = store.TransitionAdvance(ctx, "adv-404", ledger.AdvancePaid, "")
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestAmountRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	adv := testAdvance("adv-1", ledger.MustDate("2026-08-18"))
	adv.Amount = ledger.NewAmount(2387.5)
	require.NoError(t, store.CreateAdvance(ctx, adv))

	got, err := store.GetAdvance(ctx, "adv-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Money travels as decimal text: no float drift across the store.
	assert.Equal(t, "2387.5", got.Amount.String())
	assert.True(t, got.Date.Equal(adv.Date))
}

func TestDuplicateSalaryPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payment := ledger.SalaryPayment{
		ID:                "pay-1",
		EmployeeID:        "ravi",
		PeriodStart:       ledger.MustDate("2026-08-17"),
		PeriodEnd:         ledger.MustDate("2026-08-22"),
		PayrollRunID:      "run-1",
		BasicSalary:       ledger.NewAmount(2500),
		OvertimeAmount:    ledger.NewAmount(187.5),
		AdvanceDeductions: ledger.NewAmount(300),
		NetSalary:         ledger.NewAmount(2387.5),
		WorkDays:          5,
		PaymentMethod:     ledger.PayCash,
		PaymentDate:       ledger.MustDate("2026-08-22"),
		Status:            ledger.SalaryPaymentPaid,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, store.CreateSalaryPayment(ctx, payment))

	// Same employee and period under a new id hits the unique index.
	dup := payment
	dup.ID = "pay-2"
	dup.PayrollRunID = "run-2"
	err := store.CreateSalaryPayment(ctx, dup)
	assert.ErrorIs(t, err, ledger.ErrDuplicateSalaryPayment)

	period, _ := ledger.NewPeriod(payment.PeriodStart, payment.PeriodEnd)
	got, err := store.GetSalaryPaymentForPeriod(ctx, "ravi", period)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pay-1", got.ID)
	assert.Equal(t, "2387.5", got.NetSalary.String())
}

func testInvoice(id string) ledger.Invoice {
	now := time.Now().UTC()
	unit := ledger.NewAmount(200)
	line := unit.MulFloat(6)
	return ledger.Invoice{
		ID:           id,
		CustomerKey:  "9876543210",
		CustomerName: "Sharma Traders",
		Items: []ledger.InvoiceItem{
			{Description: "cement bags", Quantity: 6, UnitPrice: unit, LineTotal: line},
		},
		SubTotal:    line,
		TaxAmount:   ledger.ZeroAmount(),
		TotalAmount: line,
		Status:      ledger.InvoicePending,
		Date:        ledger.MustDate("2026-08-17"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMarkInvoicePaidOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInvoice(ctx, testInvoice("inv-1")))

	paid, err := store.MarkInvoicePaid(ctx, "inv-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, ledger.InvoicePaid, paid.Status)
	require.Len(t, paid.Items, 1)
	assert.Equal(t, "1200", paid.Items[0].LineTotal.String())

	_, err = store.MarkInvoicePaid(ctx, "inv-1", time.Now().UTC())
	assert.ErrorIs(t, err, ledger.ErrInvoiceAlreadyPaid)

	_, err = store.MarkInvoicePaid(ctx, "inv-404", time.Now().UTC())
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestPaymentRecordUniquePerInvoice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := ledger.PaymentRecord{
		ID:          "rec-1",
		InvoiceID:   "inv-1",
		CustomerKey: "9876543210",
		Amount:      ledger.NewAmount(1200),
		Method:      ledger.PayUPI,
		Date:        ledger.MustDate("2026-08-20"),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreatePaymentRecord(ctx, record))

	dup := record
	dup.ID = "rec-2"
	assert.ErrorIs(t, store.CreatePaymentRecord(ctx, dup), ledger.ErrInvoiceAlreadyPaid)

	payments, err := store.ListPaymentsByCustomer(ctx, "9876543210")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestEmployeeNullableRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rate := ledger.NewAmount(600)
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "ravi", Name: "Ravi Kumar", DailyRate: &rate, Active: true,
		JoinedDate: ledger.MustDate("2024-03-01"), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.SaveEmployee(ctx, ledger.Employee{
		ID: "karim", Name: "Karim Sheikh", Active: true,
		CreatedAt: now, UpdatedAt: now,
	}))

	ravi, err := store.GetEmployee(ctx, "ravi")
	require.NoError(t, err)
	require.NotNil(t, ravi.DailyRate)
	assert.Equal(t, "600", ravi.DailyRate.String())

	// No rate stays NULL; the pay policy default applies downstream.
	karim, err := store.GetEmployee(ctx, "karim")
	require.NoError(t, err)
	assert.Nil(t, karim.DailyRate)
}

func TestClaimBatchRunOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateBatchRun(ctx, ledger.BatchRun{
		ID: "run-1", Kind: ledger.RunBulkAttendance, Params: `{"date":"2026-08-17"}`,
		Status: ledger.RunScheduled, ScheduledAt: now.Add(-time.Minute), CreatedAt: now,
	}))

	due, err := store.ListDueBatchRuns(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)

	// Only one poller claims a scheduled run.
	claimed, err := store.ClaimBatchRun(ctx, "run-1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimBatchRun(ctx, "run-1", now)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, store.CompleteBatchRun(ctx, "run-1", ledger.RunCompleted, "3 succeeded, 0 failed", now))
	run, err := store.GetBatchRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.RunCompleted, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)
}

func TestWithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx ledger.RecordStore) error {
		if err := tx.CreateAdvance(ctx, testAdvance("adv-1", ledger.MustDate("2026-08-18"))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The write inside the failed transaction never landed.
	got, err := store.GetAdvance(ctx, "adv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAdvance(ctx, testAdvance("adv-1", ledger.MustDate("2026-08-18"))))
	require.NoError(t, store.Reset(ctx))

	got, err := store.GetAdvance(ctx, "adv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
