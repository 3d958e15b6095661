/*
balance.go - Balance derivation

PURPOSE:
  The one formula both domains share:

      Balance(entity) = Σ(all advance amounts) − Σ(pending invoice totals)

  Positive means the entity holds credit with the business; negative
  means the entity owes. The figure is derived on every read from raw
  records — never stored, never incremented — so it cannot drift from
  its sources no matter what sequence of grants, settles, sweeps and
  payments happened.

  Employees have no invoices, so their balance degenerates to the gross
  advance history; the payroll-relevant number for them is the pending
  total, which advances.go serves.

CACHING:
  BalanceCache is a read-through cache for display surfaces that render
  many balances per page. It is owned by the calling context (the API
  handler constructs its own), invalidated explicitly on every mutating
  operation, and never shared as ambient global state.

SEE ALSO:
  - advances.go: the advance side of the formula
  - receivables/service.go: the invoice side and customer statements
*/
package ledger

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// BALANCE CALCULATOR - Pure derivation
// =============================================================================

// BalanceBreakdown is the derived balance with the figures it came from,
// so callers can show their work.
type BalanceBreakdown struct {
	EntityID        EntityID
	TotalAdvanced   Amount // every advance ever granted, any status
	PendingAdvances Amount // subset still pending (informational)
	PendingInvoices Amount // unpaid invoice totals
	Balance         Amount // TotalAdvanced − PendingInvoices
	AsOf            time.Time
}

// BalanceCalculator derives balances from raw records.
type BalanceCalculator struct {
	store RecordStore
}

func NewBalanceCalculator(store RecordStore) *BalanceCalculator {
	return &BalanceCalculator{store: store}
}

// Balance computes the signed balance for an entity.
func (c *BalanceCalculator) Balance(ctx context.Context, entityID EntityID) (Amount, error) {
	b, err := c.Breakdown(ctx, entityID)
	if err != nil {
		return ZeroAmount(), err
	}
	return b.Balance, nil
}

// Breakdown computes the balance and its components in one pass.
func (c *BalanceCalculator) Breakdown(ctx context.Context, entityID EntityID) (*BalanceBreakdown, error) {
	const op = "balance.breakdown"

	advances, err := c.store.ListAdvancesByEntity(ctx, entityID)
	if err != nil {
		return nil, NewPersistenceError(op, err)
	}

	totalAdvanced := ZeroAmount()
	pendingAdvances := ZeroAmount()
	for _, adv := range advances {
		totalAdvanced = totalAdvanced.Add(adv.Amount)
		if adv.Status == AdvancePending {
			pendingAdvances = pendingAdvances.Add(adv.Amount)
		}
	}

	invoices, err := c.store.ListPendingInvoices(ctx, entityID)
	if err != nil {
		return nil, NewPersistenceError(op, err)
	}
	pendingInvoices := ZeroAmount()
	for _, inv := range invoices {
		pendingInvoices = pendingInvoices.Add(inv.TotalAmount)
	}

	return &BalanceBreakdown{
		EntityID:        entityID,
		TotalAdvanced:   totalAdvanced,
		PendingAdvances: pendingAdvances,
		PendingInvoices: pendingInvoices,
		Balance:         totalAdvanced.Sub(pendingInvoices),
		AsOf:            time.Now().UTC(),
	}, nil
}

// =============================================================================
// BALANCE CACHE - Read-through, explicitly invalidated
// =============================================================================

// BalanceCache memoizes breakdowns per entity until invalidated. Safe for
// concurrent readers; every mutating operation on advances or invoices
// must invalidate the touched entity (or everything, when in doubt).
type BalanceCache struct {
	calc *BalanceCalculator

	mu      sync.RWMutex
	entries map[EntityID]*BalanceBreakdown
}

func NewBalanceCache(calc *BalanceCalculator) *BalanceCache {
	return &BalanceCache{
		calc:    calc,
		entries: make(map[EntityID]*BalanceBreakdown),
	}
}

// Breakdown serves from cache, deriving on miss.
func (c *BalanceCache) Breakdown(ctx context.Context, entityID EntityID) (*BalanceBreakdown, error) {
	c.mu.RLock()
	cached, ok := c.entries[entityID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	fresh, err := c.calc.Breakdown(ctx, entityID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[entityID] = fresh
	c.mu.Unlock()
	return fresh, nil
}

// Balance is the cached signed figure.
func (c *BalanceCache) Balance(ctx context.Context, entityID EntityID) (Amount, error) {
	b, err := c.Breakdown(ctx, entityID)
	if err != nil {
		return ZeroAmount(), err
	}
	return b.Balance, nil
}

// Invalidate drops one entity's cached breakdown.
func (c *BalanceCache) Invalidate(entityID EntityID) {
	c.mu.Lock()
	delete(c.entries, entityID)
	c.mu.Unlock()
}

// InvalidateAll drops everything (bulk operations touch many entities).
func (c *BalanceCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[EntityID]*BalanceBreakdown)
	c.mu.Unlock()
}
