/*
processor.go - Bulk operation driver

PURPOSE:
  Drives "do this for every candidate" operations — mark all present,
  pay all present employees today, bulk attendance save — with the three
  guarantees bulk work needs:

  1. Failure isolation: one bad item records its error kind and detail
     against its id; the rest of the batch keeps going.
  2. Per-entity serialization: items are hash-sharded onto workers by id,
     so two items for the same entity never run concurrently and cannot
     race over a shared advance set. Different entities still fan out.
  3. Cancellation: a cancelled context stops dispatch; items already
     completed stay committed (no global rollback), every undispatched
     item is recorded failed with kind "cancelled".

SEE ALSO:
  - ledger/errors.go: the kinds per-item failures classify into
  - api/scheduler.go: runs queued batches through this processor
*/
package batch

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brickworks/ledger-engine/ledger"
)

// DefaultWorkers bounds the pool when the caller does not.
const DefaultWorkers = 4

// Operation is the per-item work. detail is free-form text for the
// caller's report ("defaulted rate 500"); it is kept on success too.
type Operation func(ctx context.Context, id ledger.EntityID) (detail string, err error)

// ItemResult is one succeeded item.
type ItemResult struct {
	ID     ledger.EntityID
	Detail string
}

// ItemFailure is one failed item with its classified kind.
type ItemFailure struct {
	ID     ledger.EntityID
	Kind   ledger.Kind
	Detail string
}

// Result is the structured outcome the caller reports from.
type Result struct {
	Succeeded []ItemResult
	Failed    []ItemFailure
}

// AllSucceeded reports whether no item failed.
func (r *Result) AllSucceeded() bool { return len(r.Failed) == 0 }

// Processor runs bulk operations over a bounded worker pool.
type Processor struct {
	workers int
	log     zerolog.Logger
}

func NewProcessor(workers int, log zerolog.Logger) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Processor{workers: workers, log: log}
}

// RunBulk applies op to every id. Items sharing an id land on the same
// worker (serialized); distinct ids spread across the pool. Results come
// back in input order.
func (p *Processor) RunBulk(ctx context.Context, ids []ledger.EntityID, op Operation) *Result {
	if len(ids) == 0 {
		return &Result{}
	}

	workers := p.workers
	if workers > len(ids) {
		workers = len(ids)
	}

	type outcome struct {
		detail string
		err    error
	}
	outcomes := make([]outcome, len(ids))

	// Shard items by entity hash so same-entity items are ordered within
	// one worker's queue.
	queues := make([][]int, workers)
	for i, id := range ids {
		w := shard(id, workers)
		queues[w] = append(queues[w], i)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		queue := queues[w]
		if len(queue) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, i := range queue {
				if ctx.Err() != nil {
					outcomes[i] = outcome{err: ledger.NewCancelledError("batch.run_bulk")}
					continue
				}
				detail, err := op(ctx, ids[i])
				outcomes[i] = outcome{detail: detail, err: err}
			}
		}()
	}
	wg.Wait()

	result := &Result{}
	for i, id := range ids {
		out := outcomes[i]
		if out.err != nil {
			kind := ledger.KindOf(out.err)
			p.log.Warn().
				Str("entity", string(id)).
				Str("kind", string(kind)).
				Err(out.err).
				Msg("batch item failed")
			result.Failed = append(result.Failed, ItemFailure{
				ID:     id,
				Kind:   kind,
				Detail: out.err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, ItemResult{ID: id, Detail: out.detail})
	}

	p.log.Info().
		Int("total", len(ids)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("batch completed")
	return result
}

func shard(id ledger.EntityID, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(workers))
}
