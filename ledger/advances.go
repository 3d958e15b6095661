/*
advances.go - The advance ledger

PURPOSE:
  Tracks cash advanced ahead of earnings, per entity. Employees take wage
  advances that payroll later sweeps; customers make prepayments that
  offset their invoices. One lifecycle serves both:

      grant ──▶ pending ──▶ paid      (settled directly)
                      └───▶ deducted  (swept by a payroll run)

  Transitions are monotonic — an advance never returns to pending and a
  deducted advance keeps its payroll run id forever, so any past payroll
  figure can be re-derived from history.

SWEEP SEMANTICS:
  A payroll run deducts exactly the advances its calculation counted:
  pending AND dated inside the pay period, each for its full amount.
  There is no partial deduction; if the pending total exceeds earnings,
  net salary goes negative and stays negative. An advance granted after
  the period end keeps waiting for the next run.

SEE ALSO:
  - balance.go: balance derivation (all advances minus pending invoices)
  - payroll/service.go: runs the sweep inside the commit transaction
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AdvanceLedger is the advance lifecycle engine over a record store.
type AdvanceLedger struct {
	store RecordStore
}

func NewAdvanceLedger(store RecordStore) *AdvanceLedger {
	return &AdvanceLedger{store: store}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Grant creates a pending advance. Amount must be positive; everything
// else about the record is validated before it reaches the store.
func (l *AdvanceLedger) Grant(ctx context.Context, entityID EntityID, kind EntityKind, amount Amount, date Date, notes string) (*AdvanceTransaction, error) {
	const op = "advances.grant"

	now := time.Now().UTC()
	tx := AdvanceTransaction{
		ID:         NewID(),
		EntityID:   entityID,
		EntityKind: kind,
		Amount:     amount,
		Date:       date,
		Status:     AdvancePending,
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := l.store.CreateAdvance(ctx, tx); err != nil {
		return nil, NewPersistenceError(op, err)
	}
	return &tx, nil
}

// Settle moves one pending advance to paid. A missing id is not_found; an
// advance that already left pending is a conflict — the caller's view is
// stale.
func (l *AdvanceLedger) Settle(ctx context.Context, id string) (*AdvanceTransaction, error) {
	const op = "advances.settle"

	existing, err := l.store.GetAdvance(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(op, err)
	}
	if existing == nil {
		return nil, NewNotFoundError(op, fmt.Sprintf("advance %s", id), ErrRecordNotFound)
	}

	updated, err := l.store.TransitionAdvance(ctx, id, AdvancePaid, "")
	if err != nil {
		if errors.Is(err, ErrAdvanceNotPending) {
			return nil, NewConflictError(op, fmt.Sprintf("advance %s is %s", id, existing.Status), err)
		}
		return nil, NewPersistenceError(op, err)
	}
	return updated, nil
}

// DeductForPayroll sweeps this ledger's own store. The payroll commit path
// does NOT call this — it calls SweepPendingAdvances against its
// transaction view so the sweep commits or rolls back with the payment.
func (l *AdvanceLedger) DeductForPayroll(ctx context.Context, entityID EntityID, period Period, payrollRunID string) (Amount, int, error) {
	return SweepPendingAdvances(ctx, l.store, entityID, period, payrollRunID)
}

// SweepPendingAdvances transitions every pending advance dated within the
// period to deducted, stamped with the payroll run id. All-or-nothing:
// the first failed transition aborts with the error, which rolls the
// surrounding store transaction back. Returns the swept total and count.
func SweepPendingAdvances(ctx context.Context, store AdvanceStore, entityID EntityID, period Period, payrollRunID string) (Amount, int, error) {
	const op = "advances.sweep"

	if err := period.Validate(); err != nil {
		return ZeroAmount(), 0, err
	}

	pending, err := store.ListPendingAdvances(ctx, entityID)
	if err != nil {
		return ZeroAmount(), 0, NewPersistenceError(op, err)
	}

	total := ZeroAmount()
	count := 0
	for _, adv := range pending {
		if !period.Contains(adv.Date) {
			continue
		}
		updated, err := store.TransitionAdvance(ctx, adv.ID, AdvanceDeducted, payrollRunID)
		if err != nil {
			if errors.Is(err, ErrAdvanceNotPending) {
				// Someone settled or swept it between our list and our
				// write. The run's arithmetic is stale.
				return ZeroAmount(), 0, NewConflictError(op,
					fmt.Sprintf("advance %s changed during sweep", adv.ID), err)
			}
			return ZeroAmount(), 0, NewPersistenceError(op, err)
		}
		total = total.Add(updated.Amount)
		count++
	}
	return total, count, nil
}

// =============================================================================
// AGGREGATIONS - Always derived from raw records
// =============================================================================

// PendingTotal sums all pending advances for an entity.
func (l *AdvanceLedger) PendingTotal(ctx context.Context, entityID EntityID) (Amount, error) {
	pending, err := l.store.ListPendingAdvances(ctx, entityID)
	if err != nil {
		return ZeroAmount(), NewPersistenceError("advances.pending_total", err)
	}
	total := ZeroAmount()
	for _, adv := range pending {
		total = total.Add(adv.Amount)
	}
	return total, nil
}

// PendingInPeriod returns the pending advances a pay-period calculation
// counts: pending status, dated inside the period.
func (l *AdvanceLedger) PendingInPeriod(ctx context.Context, entityID EntityID, period Period) ([]AdvanceTransaction, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	pending, err := l.store.ListPendingAdvances(ctx, entityID)
	if err != nil {
		return nil, NewPersistenceError("advances.pending_in_period", err)
	}
	var in []AdvanceTransaction
	for _, adv := range pending {
		if period.Contains(adv.Date) {
			in = append(in, adv)
		}
	}
	return in, nil
}

// PendingTotalInPeriod sums PendingInPeriod.
func (l *AdvanceLedger) PendingTotalInPeriod(ctx context.Context, entityID EntityID, period Period) (Amount, error) {
	in, err := l.PendingInPeriod(ctx, entityID, period)
	if err != nil {
		return ZeroAmount(), err
	}
	total := ZeroAmount()
	for _, adv := range in {
		total = total.Add(adv.Amount)
	}
	return total, nil
}

// TotalAdvanced sums every advance ever granted, regardless of status.
// This is the advance side of the balance derivation: history counts,
// because deducted advances were already netted against salary.
func (l *AdvanceLedger) TotalAdvanced(ctx context.Context, entityID EntityID) (Amount, error) {
	all, err := l.store.ListAdvancesByEntity(ctx, entityID)
	if err != nil {
		return ZeroAmount(), NewPersistenceError("advances.total_advanced", err)
	}
	total := ZeroAmount()
	for _, adv := range all {
		total = total.Add(adv.Amount)
	}
	return total, nil
}

// History lists the full advance trail for an entity, newest last.
func (l *AdvanceLedger) History(ctx context.Context, entityID EntityID) ([]AdvanceTransaction, error) {
	all, err := l.store.ListAdvancesByEntity(ctx, entityID)
	if err != nil {
		return nil, NewPersistenceError("advances.history", err)
	}
	return all, nil
}
