package payroll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/ledger-engine/ledger"
	memstore "github.com/brickworks/ledger-engine/ledger/store"
)

func TestCommitWeek(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	svc := NewService(store, DefaultPayPolicy())
	ctx := context.Background()

	// GIVEN a priced week WHEN it is committed
	res, err := svc.Commit(ctx, CommitInput{
		EmployeeID:    "ravi",
		Period:        period,
		PaymentMethod: ledger.PayCash,
		PaymentDate:   period.End,
	})
	require.NoError(t, err)

	// THEN the payment carries the calculation's figures
	assert.False(t, res.AlreadyCommitted)
	assert.Equal(t, "2387.5", res.Payment.NetSalary.String())
	assert.Equal(t, "300", res.Payment.AdvanceDeductions.String())
	assert.Equal(t, 1, res.SweptAdvances)

	// AND the counted advance was swept, stamped with the run
	advances, err := store.ListAdvancesByEntity(ctx, "ravi")
	require.NoError(t, err)
	require.Len(t, advances, 1)
	assert.Equal(t, ledger.AdvanceDeducted, advances[0].Status)
	assert.Equal(t, res.Payment.PayrollRunID, advances[0].PayrollRunID)

	// AND an append-only salary line exists for the net figure
	txs, err := store.ListSalaryTransactions(ctx, "ravi", period)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "2387.5", txs[0].Amount.String())
	assert.Equal(t, res.Payment.PayrollRunID, txs[0].PayrollRunID)
}

func TestCommitTwiceIsNoOp(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	svc := NewService(store, DefaultPayPolicy())
	ctx := context.Background()

	in := CommitInput{
		EmployeeID:    "ravi",
		Period:        period,
		PaymentMethod: ledger.PayCash,
		PaymentDate:   period.End,
	}

	first, err := svc.Commit(ctx, in)
	require.NoError(t, err)

	// The second commit returns the existing payment and sweeps nothing.
	second, err := svc.Commit(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCommitted)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Zero(t, second.SweptAdvances)

	payments, err := store.ListSalaryPayments(ctx, "ravi")
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	txs, err := store.ListSalaryTransactions(ctx, "ravi", in.Period)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestCommitDistinctPeriods(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	svc := NewService(store, DefaultPayPolicy())
	ctx := context.Background()

	_, err := svc.Commit(ctx, CommitInput{
		EmployeeID: "ravi", Period: period,
		PaymentMethod: ledger.PayCash, PaymentDate: period.End,
	})
	require.NoError(t, err)

	// A different period is a different disbursement.
	next, err := ledger.NewPeriod(period.End.AddDays(1), period.End.AddDays(6))
	require.NoError(t, err)
	res, err := svc.Commit(ctx, CommitInput{
		EmployeeID: "ravi", Period: next,
		PaymentMethod: ledger.PayCash, PaymentDate: next.End,
	})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCommitted)

	// No attendance in the second week, advance already deducted: zero net.
	assert.True(t, res.Payment.NetSalary.IsZero())

	payments, err := store.ListSalaryPayments(ctx, "ravi")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestCommitValidation(t *testing.T) {
	store := memstore.NewTxMemory()
	period := seedWeek(t, store)
	svc := NewService(store, DefaultPayPolicy())
	ctx := context.Background()

	_, err := svc.Commit(ctx, CommitInput{
		EmployeeID: "ravi", Period: period,
		PaymentMethod: "crypto", PaymentDate: period.End,
	})
	assert.True(t, ledger.IsValidation(err))

	_, err = svc.Commit(ctx, CommitInput{
		EmployeeID: "ravi", Period: period,
		PaymentMethod: ledger.PayCash,
	})
	assert.True(t, ledger.IsValidation(err))
}

func TestRecordManualSalary(t *testing.T) {
	store := memstore.NewTxMemory()
	seedWeek(t, store)
	svc := NewService(store, DefaultPayPolicy())
	ctx := context.Background()

	tx, err := svc.RecordManualSalary(ctx, "ravi", ledger.NewAmount(1000), ledger.MustDate("2026-08-20"), "festival bonus")
	require.NoError(t, err)
	assert.Equal(t, "1000", tx.Amount.String())
	assert.Equal(t, 2026, tx.Year)

	_, err = svc.RecordManualSalary(ctx, "ravi", ledger.ZeroAmount(), ledger.MustDate("2026-08-20"), "")
	assert.True(t, ledger.IsValidation(err))

	_, err = svc.RecordManualSalary(ctx, "nobody", ledger.NewAmount(10), ledger.MustDate("2026-08-20"), "")
	assert.True(t, ledger.IsNotFound(err))
}
