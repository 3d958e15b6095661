package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
)

func enqueueRun(t *testing.T, h *Handler, kind ledger.BatchRunKind, params string) string {
	t.Helper()
	run := ledger.BatchRun{
		ID:          ledger.NewID(),
		Kind:        kind,
		Params:      params,
		Status:      ledger.RunScheduled,
		ScheduledAt: time.Now().UTC().Add(-time.Second),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, h.Store.CreateBatchRun(context.Background(), run))
	return run.ID
}

func TestSchedulerExecutesAutoAbsent(t *testing.T) {
	h, _ := newTestAPI(t, ledger.RoleAdmin)
	ctx := context.Background()
	require.NoError(t, h.LoadScenarioByName(ctx, "brickworks-week"))

	// GIVEN a due auto-absent run for a day nobody has marked
	day := ledger.Today()
	runID := enqueueRun(t, h, ledger.RunBulkAttendance, `{"date":"`+day.String()+`"}`)

	scheduler := NewBatchScheduler(h.Store, h, time.Minute)

	// WHEN the poller picks it up
	scheduler.RunNow()

	// THEN the run completed and every crew member got an absent record
	run, err := h.Store.GetBatchRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunCompleted, run.Status)
	assert.Equal(t, "4 succeeded, 0 failed", run.Detail)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)

	records, err := h.Attendance.ByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.Equal(t, ledger.AttendanceAbsent, rec.Status)
		assert.Equal(t, "auto-marked", rec.Notes)
	}

	// A second pass finds nothing scheduled; the run stays completed.
	scheduler.RunNow()
	run, err = h.Store.GetBatchRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunCompleted, run.Status)
}

func TestSchedulerExecutesBulkPayroll(t *testing.T) {
	h, _ := newTestAPI(t, ledger.RoleAdmin)
	ctx := context.Background()
	require.NoError(t, h.LoadScenarioByName(ctx, "brickworks-week"))

	weekEnd := ledger.Today().AddDays(-1)
	weekStart := weekEnd.AddDays(-5)
	params := `{"period_start":"` + weekStart.String() + `","period_end":"` + weekEnd.String() +
		`","payment_method":"cash","payment_date":"` + weekEnd.String() + `"}`
	runID := enqueueRun(t, h, ledger.RunBulkPayroll, params)

	NewBatchScheduler(h.Store, h, time.Minute).RunNow()

	run, err := h.Store.GetBatchRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunCompleted, run.Status)

	// Everyone present on the last day got exactly one payment.
	for _, id := range []ledger.EntityID{"ravi", "sita", "karim", "mohan"} {
		payments, err := h.Payroll.Payments(ctx, id)
		require.NoError(t, err)
		assert.Len(t, payments, 1, "employee %s", id)
	}

	// The counted advances were swept by the runs.
	pending, err := h.Advances.PendingTotal(ctx, "ravi")
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

func TestSchedulerRecordsFailure(t *testing.T) {
	h, _ := newTestAPI(t, ledger.RoleAdmin)
	ctx := context.Background()

	// Malformed params cannot execute; the run fails with the reason.
	runID := enqueueRun(t, h, ledger.RunBulkPayroll, `{"period_start":"not-a-date"}`)

	NewBatchScheduler(h.Store, h, time.Minute).RunNow()

	run, err := h.Store.GetBatchRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunFailed, run.Status)
	assert.NotEmpty(t, run.Detail)
}

func TestAttendanceCronSpec(t *testing.T) {
	h, _ := newTestAPI(t, ledger.RoleAdmin)
	scheduler := NewBatchScheduler(h.Store, h, time.Minute)

	assert.NoError(t, scheduler.ScheduleAttendanceCron("0 22 * * *", time.UTC))
	assert.Error(t, scheduler.ScheduleAttendanceCron("not a cron", time.UTC))
	assert.NoError(t, scheduler.ScheduleAttendanceCron("", nil)) // disabled
}
