/*
scheduler.go - Batch-run scheduler

PURPOSE:
  The outer driver for background work. The engine never self-schedules;
  this component polls BatchRun records on an interval and executes the
  due ones:

    scheduled --claim--> running --execute--> completed | failed

  The claim is a conditional store update, so two scheduler instances
  over one database cannot both take a run.

CRON:
  A cron spec (configurable location) enqueues the nightly auto-absent
  attendance run: every active employee without a record for the day
  gets marked absent. The cron only ENQUEUES — execution always flows
  through the same claim/execute path as manual runs.

USAGE:
  scheduler := NewBatchScheduler(store, handler, 30*time.Second)
  scheduler.ScheduleAttendanceCron("0 22 * * *", loc)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: EnqueueBatchRun and the execute helpers
  - batch/processor.go: the worker pool runs execute through
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/brickworks/ledger-engine/batch"
	"github.com/brickworks/ledger-engine/ledger"
	"github.com/brickworks/ledger-engine/logger"
)

// BatchScheduler executes enqueued batch runs.
type BatchScheduler struct {
	Store        ledger.TxRecordStore
	Handler      *Handler
	PollInterval time.Duration

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	cron *cron.Cron
	log  zerolog.Logger
}

// NewBatchScheduler creates a scheduler polling at interval.
func NewBatchScheduler(store ledger.TxRecordStore, handler *Handler, interval time.Duration) *BatchScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BatchScheduler{
		Store:        store,
		Handler:      handler,
		PollInterval: interval,
		stop:         make(chan bool),
		log:          logger.WithComponent("scheduler"),
	}
}

// ScheduleAttendanceCron enqueues the nightly auto-absent run on the
// given cron spec, anchored to loc. Call before Start; an empty spec
// disables the cron.
func (bs *BatchScheduler) ScheduleAttendanceCron(spec string, loc *time.Location) error {
	if spec == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	bs.cron = cron.New(cron.WithLocation(loc))
	_, err := bs.cron.AddFunc(spec, func() {
		if err := bs.enqueueAutoAbsent(context.Background()); err != nil {
			bs.log.Error().Err(err).Msg("failed to enqueue auto-absent run")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid attendance cron spec %q: %w", spec, err)
	}
	return nil
}

// Start begins the poller (and the cron, if configured).
func (bs *BatchScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.ticker = time.NewTicker(bs.PollInterval)
	bs.wg.Add(1)
	go bs.run()

	if bs.cron != nil {
		bs.cron.Start()
	}
	bs.log.Info().Dur("poll_interval", bs.PollInterval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for in-flight work.
func (bs *BatchScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker == nil {
		return
	}
	bs.ticker.Stop()
	close(bs.stop)
	bs.wg.Wait()
	if bs.cron != nil {
		bs.cron.Stop()
	}
	bs.log.Info().Msg("scheduler stopped")
}

func (bs *BatchScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.checkAndProcess()

	for {
		select {
		case <-bs.ticker.C:
			bs.checkAndProcess()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BatchScheduler) checkAndProcess() {
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := bs.Store.ListDueBatchRuns(ctx, now)
	if err != nil {
		bs.log.Error().Err(err).Msg("failed to list due batch runs")
		return
	}

	for _, run := range due {
		claimed, err := bs.Store.ClaimBatchRun(ctx, run.ID, time.Now().UTC())
		if err != nil {
			bs.log.Error().Err(err).Str("run", run.ID).Msg("failed to claim batch run")
			continue
		}
		if !claimed {
			continue // another instance took it
		}
		bs.execute(ctx, run)
	}
}

// RunNow triggers an immediate check (tests and the payroll CLI).
func (bs *BatchScheduler) RunNow() {
	bs.checkAndProcess()
}

func (bs *BatchScheduler) execute(ctx context.Context, run ledger.BatchRun) {
	bs.log.Info().Str("run", run.ID).Str("kind", string(run.Kind)).Msg("executing batch run")

	var (
		result *batch.Result
		err    error
	)
	switch run.Kind {
	case ledger.RunBulkPayroll:
		var params bulkPayrollParams
		if err = json.Unmarshal([]byte(run.Params), &params); err == nil {
			result, err = bs.Handler.executeBulkPayroll(ctx, params)
		}
	case ledger.RunBulkAttendance:
		var params bulkAttendanceParams
		if run.Params != "" {
			err = json.Unmarshal([]byte(run.Params), &params)
		}
		if err == nil {
			result, err = bs.Handler.executeBulkAttendance(ctx, params)
		}
	default:
		err = fmt.Errorf("unknown batch run kind %q", run.Kind)
	}

	now := time.Now().UTC()
	if err != nil {
		detail := err.Error()
		if cerr := bs.Store.CompleteBatchRun(ctx, run.ID, ledger.RunFailed, detail, now); cerr != nil {
			bs.log.Error().Err(cerr).Str("run", run.ID).Msg("failed to record batch run failure")
		}
		bs.log.Error().Err(err).Str("run", run.ID).Msg("batch run failed")
		return
	}

	status := ledger.RunCompleted
	if !result.AllSucceeded() {
		status = ledger.RunFailed
	}
	detail := fmt.Sprintf("%d succeeded, %d failed", len(result.Succeeded), len(result.Failed))
	if cerr := bs.Store.CompleteBatchRun(ctx, run.ID, status, detail, now); cerr != nil {
		bs.log.Error().Err(cerr).Str("run", run.ID).Msg("failed to record batch run result")
	}
	bs.log.Info().
		Str("run", run.ID).
		Str("status", string(status)).
		Str("detail", detail).
		Msg("batch run finished")
}

// enqueueAutoAbsent schedules the end-of-day attendance sweep for today.
func (bs *BatchScheduler) enqueueAutoAbsent(ctx context.Context) error {
	params, _ := json.Marshal(bulkAttendanceParams{Date: ledger.Today().String()})

	run := ledger.BatchRun{
		ID:          ledger.NewID(),
		Kind:        ledger.RunBulkAttendance,
		Params:      string(params),
		Status:      ledger.RunScheduled,
		ScheduledAt: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := bs.Store.CreateBatchRun(ctx, run); err != nil {
		return err
	}
	bs.log.Info().Str("run", run.ID).Msg("auto-absent run enqueued")
	return nil
}
