package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
	memstore "github.com/brickworks/ledger-engine/ledger/store"
)

func newAdvanceFixture(t *testing.T) (*ledger.AdvanceLedger, *memstore.TxMemory) {
	t.Helper()
	store := memstore.NewTxMemory()

	now := time.Now().UTC()
	require.NoError(t, store.SaveEmployee(context.Background(), ledger.Employee{
		ID: "ravi", Name: "Ravi Kumar", Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	return ledger.NewAdvanceLedger(store), store
}

func TestGrantAndSettle(t *testing.T) {
	advances, _ := newAdvanceFixture(t)
	ctx := context.Background()

	// GIVEN a granted advance
	tx, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(300), ledger.MustDate("2026-08-18"), "medical")
	require.NoError(t, err)
	assert.Equal(t, ledger.AdvancePending, tx.Status)

	// WHEN it is settled in cash
	settled, err := advances.Settle(ctx, tx.ID)
	require.NoError(t, err)

	// THEN it leaves pending but stays in the total-advanced figure
	assert.Equal(t, ledger.AdvancePaid, settled.Status)

	pending, err := advances.PendingTotal(ctx, "ravi")
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	total, err := advances.TotalAdvanced(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "300", total.String())
}

func TestSettleTwiceConflicts(t *testing.T) {
	advances, _ := newAdvanceFixture(t)
	ctx := context.Background()

	tx, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(100), ledger.MustDate("2026-08-18"), "")
	require.NoError(t, err)

	_, err = advances.Settle(ctx, tx.ID)
	require.NoError(t, err)

	// The lifecycle is monotonic: paid never moves again.
	_, err = advances.Settle(ctx, tx.ID)
	assert.True(t, ledger.IsConflict(err))
}

func TestGrantRejectsNonPositiveAmount(t *testing.T) {
	advances, _ := newAdvanceFixture(t)

	_, err := advances.Grant(context.Background(), "ravi", ledger.KindEmployee, ledger.ZeroAmount(), ledger.MustDate("2026-08-18"), "")
	assert.True(t, ledger.IsValidation(err))
}

func TestSweepScopeAndRunStamp(t *testing.T) {
	advances, store := newAdvanceFixture(t)
	ctx := context.Background()
	period := ledger.Period{Start: ledger.MustDate("2026-08-17"), End: ledger.MustDate("2026-08-22")}

	// GIVEN one advance inside the period, one before it, one settled
	inPeriod, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(300), ledger.MustDate("2026-08-18"), "")
	require.NoError(t, err)
	before, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(150), ledger.MustDate("2026-08-10"), "")
	require.NoError(t, err)
	settled, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(80), ledger.MustDate("2026-08-19"), "")
	require.NoError(t, err)
	_, err = advances.Settle(ctx, settled.ID)
	require.NoError(t, err)

	// WHEN the period is swept for a payroll run
	swept, count, err := ledger.SweepPendingAdvances(ctx, store, "ravi", period, "run-1")
	require.NoError(t, err)

	// THEN only the pending in-period advance was deducted and stamped
	assert.Equal(t, "300", swept.String())
	assert.Equal(t, 1, count)

	got, err := store.GetAdvance(ctx, inPeriod.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.AdvanceDeducted, got.Status)
	assert.Equal(t, "run-1", got.PayrollRunID)

	// AND the out-of-period advance survives to the next run
	got, err = store.GetAdvance(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.AdvancePending, got.Status)
	assert.Empty(t, got.PayrollRunID)
}

func TestBalanceInvariant(t *testing.T) {
	advances, store := newAdvanceFixture(t)
	ctx := context.Background()
	calc := ledger.NewBalanceCalculator(store)

	// The balance derives from raw records after any grant/settle/deduct
	// sequence: Σ(all advances, any status) − Σ(pending invoices).
	a1, err := advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(300), ledger.MustDate("2026-08-18"), "")
	require.NoError(t, err)
	_, err = advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(200), ledger.MustDate("2026-08-19"), "")
	require.NoError(t, err)

	balance, err := calc.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "500", balance.String())

	// Settling changes status, not the derived total.
	_, err = advances.Settle(ctx, a1.ID)
	require.NoError(t, err)

	balance, err = calc.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "500", balance.String())

	// Sweeping to deducted does not change it either.
	period := ledger.Period{Start: ledger.MustDate("2026-08-17"), End: ledger.MustDate("2026-08-22")}
	_, _, err = ledger.SweepPendingAdvances(ctx, store, "ravi", period, "run-1")
	require.NoError(t, err)

	balance, err = calc.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "500", balance.String())
}

func TestBalanceCacheInvalidation(t *testing.T) {
	advances, store := newAdvanceFixture(t)
	ctx := context.Background()
	cache := ledger.NewBalanceCache(ledger.NewBalanceCalculator(store))

	balance, err := cache.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = advances.Grant(ctx, "ravi", ledger.KindEmployee, ledger.NewAmount(100), ledger.MustDate("2026-08-18"), "")
	require.NoError(t, err)

	// Stale until invalidated: the cache serves derived reads, writers
	// must invalidate.
	balance, err = cache.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	cache.Invalidate("ravi")
	balance, err = cache.Balance(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "100", balance.String())
}
