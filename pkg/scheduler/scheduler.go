// Package scheduler owns the dispatch loop: a priority queue of pending
// batches drained one entry at a time under a global rate limit. Dispatch
// throughput is governed purely by the rate limit; how long the background
// work takes never blocks the loop.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ingestd/pkg/logger"
	"ingestd/pkg/models"
	"ingestd/pkg/store"
	"ingestd/pkg/telemetry"
)

// ProcessFunc is the unit of work for a single id. It is invoked once per id
// in a batch, concurrently, after the batch is dispatched.
type ProcessFunc func(ctx context.Context, id int64) error

// Scheduler runs a single dispatch loop per process. The loop is Idle while
// the queue is empty; the first enqueue starts it and it returns to Idle
// when the queue drains. There is exactly one rate-limit clock, shared by
// every dispatch, so a single loop is the natural shape here.
type Scheduler struct {
	store   *store.Store
	process ProcessFunc
	limiter *rate.Limiter

	mu      sync.Mutex
	queue   entryHeap
	running bool
	seq     uint64

	ctx    context.Context
	cancel context.CancelFunc
	loopWg sync.WaitGroup
	// tasks tracks spawned batch tasks so shutdown can await them instead
	// of leaving them untracked.
	tasks sync.WaitGroup

	lastDispatch time.Time

	// test seam; never set outside package tests.
	onDispatch func(e *Entry)
}

// New builds a Scheduler dispatching at most one batch per interval.
func New(st *store.Store, interval time.Duration, process ProcessFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:   st,
		process: process,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue places one queue entry per batch of the ingestion and wakes the
// dispatch loop if it is idle. All entries share the ingestion's single
// creation timestamp; ties among them break by original batch order.
func (s *Scheduler) Enqueue(ing *models.Ingestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rank := ing.Priority.Rank()
	for _, b := range ing.Batches {
		s.seq++
		heap.Push(&s.queue, &Entry{
			IngestionID: ing.ID,
			BatchID:     b.ID,
			rank:        rank,
			enqueuedTS:  ing.CreatedTS,
			seq:         s.seq,
		})
		telemetry.BatchesEnqueued.Inc()
	}
	telemetry.QueueDepth.Set(float64(s.queue.Len()))
	if !s.running && s.ctx.Err() == nil {
		s.running = true
		s.loopWg.Add(1)
		go s.run()
	}
}

// Pending returns the number of entries waiting for dispatch.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Stop cancels the dispatch loop and waits for in-flight batch tasks to
// join, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	s.loopWg.Wait()
	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the dispatch loop. Per iteration: wait for a rate-limit slot, then
// dequeue the head of the freshly-ordered queue and fire its batch task in
// the background. The rate wait sits before the dequeue so that work
// arriving during the wait still competes for the next slot, and the wait is
// measured dispatch-to-dispatch, never completion-to-dispatch.
func (s *Scheduler) run() {
	defer s.loopWg.Done()
	for {
		if s.idleIfDrained() {
			return
		}
		if err := s.limiter.Wait(s.ctx); err != nil {
			s.park()
			return
		}
		e, ok := s.next()
		if !ok {
			return
		}
		s.dispatch(e)
	}
}

// idleIfDrained flips the loop back to Idle when the queue is empty.
func (s *Scheduler) idleIfDrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		s.running = false
		return true
	}
	return false
}

// park marks the loop stopped after cancellation so no new loop is spawned
// on a dead scheduler.
func (s *Scheduler) park() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// next pops the head entry, discarding stale entries whose batch vanished or
// already left pending. Stale discards consume no extra rate-limit wait:
// they happen under the lock inside a single dequeue. Should not occur under
// normal operation.
func (s *Scheduler) next() (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queue.Len() > 0 {
		e := heap.Pop(&s.queue).(*Entry)
		telemetry.QueueDepth.Set(float64(s.queue.Len()))
		st, err := s.store.BatchStatus(e.IngestionID, e.BatchID)
		if err != nil || st != models.BatchPending {
			logger.Warn("dispatch_skip_stale_entry",
				"ingestion", e.IngestionID, "batch", e.BatchID, "status", string(st), "error", err)
			continue
		}
		return e, true
	}
	s.running = false
	return nil, false
}

// dispatch flips the batch to dispatched and launches its unit-of-work task
// without waiting for it.
func (s *Scheduler) dispatch(e *Entry) {
	if err := s.store.SetBatchStatus(e.IngestionID, e.BatchID, models.BatchDispatched); err != nil {
		logger.Error("dispatch_flip_failed", "ingestion", e.IngestionID, "batch", e.BatchID, "error", err)
		return
	}
	now := time.Now()
	if !s.lastDispatch.IsZero() {
		telemetry.DispatchGap.Observe(now.Sub(s.lastDispatch).Seconds())
	}
	s.lastDispatch = now
	telemetry.BatchesDispatched.Inc()
	logger.Info("batch_dispatched", "ingestion", e.IngestionID, "batch", e.BatchID)
	if s.onDispatch != nil {
		s.onDispatch(e)
	}
	s.tasks.Add(1)
	go s.processBatch(e)
}

// processBatch fans out one goroutine per id and joins them. On a clean join
// the batch flips to completed and the ingestion's derived status moves with
// it. A fault (error or panic) is caught here, at the task boundary: it is
// logged, the loop is untouched, and the batch stays dispatched. No
// automatic remediation is defined for such a batch; internal/monitor
// surfaces it.
func (s *Scheduler) processBatch(e *Entry) {
	defer s.tasks.Done()
	defer func() {
		if r := recover(); r != nil {
			telemetry.UnitOfWorkFaults.Inc()
			logger.Error("unit_of_work_panic", "ingestion", e.IngestionID, "batch", e.BatchID, "panic", r)
		}
	}()

	ing, err := s.store.GetIngestion(e.IngestionID)
	if err != nil {
		logger.Error("unit_of_work_lookup_failed", "ingestion", e.IngestionID, "error", err)
		return
	}
	var ids []int64
	for _, b := range ing.Batches {
		if b.ID == e.BatchID {
			ids = b.IDs
			break
		}
	}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var faults int
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errMu.Lock()
					faults++
					errMu.Unlock()
					logger.Error("unit_of_work_panic", "batch", e.BatchID, "id", id, "panic", r)
				}
			}()
			if err := s.process(s.ctx, id); err != nil {
				errMu.Lock()
				faults++
				errMu.Unlock()
				logger.Error("unit_of_work_failed", "batch", e.BatchID, "id", id, "error", err)
			}
		}(id)
	}
	wg.Wait()

	if faults > 0 {
		telemetry.UnitOfWorkFaults.Add(float64(faults))
		logger.Error("batch_stuck_dispatched", "ingestion", e.IngestionID, "batch", e.BatchID, "faults", faults)
		return
	}
	if err := s.store.SetBatchStatus(e.IngestionID, e.BatchID, models.BatchCompleted); err != nil {
		logger.Error("completion_flip_failed", "ingestion", e.IngestionID, "batch", e.BatchID, "error", err)
		return
	}
	telemetry.BatchesCompleted.Inc()
	logger.Info("batch_completed", "ingestion", e.IngestionID, "batch", e.BatchID)
}
