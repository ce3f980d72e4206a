// Package schedule implements the work-queue scheduler spec.md §4.9
// describes for parallel texture processing: N workers draining a FIFO
// of jobs, schedule/wait_for_all_complete/stop semantics, and
// first-exception-wins error propagation. N=0 runs every job
// synchronously on the caller's goroutine.
//
// Grounded on `engine/scene/scene.go`'s per-frame compute-pool usage:
// it submits `worker.Task{ID, Do}` to a `worker.DynamicWorkerPool` and
// layers its own `sync.WaitGroup` on top for frame-barrier completion
// rather than relying on the pool's own idle-wait, because that blocks
// until ALL workers go idle rather than until a specific batch of
// submitted jobs finishes — exactly the distinction spec.md's
// `wait_for_all_complete` needs (wait for enqueued jobs, not forever).
// This package follows that same pattern: the completion and
// first-error tracking live in a WaitGroup and a mutex-guarded error
// slot here, not in unconfirmed pool-internal wait/stop calls, matching
// the original's C++ condvar pair (`job_added_or_stopping`, `job_done`)
// reimagined as a Go WaitGroup plus channel-free mutex, idiomatic for Go
// where channels/sync primitives replace manual condvar signaling.
package schedule

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Scheduler runs jobs across a fixed worker pool, or synchronously when
// constructed with zero workers.
type Scheduler struct {
	pool *worker.DynamicWorkerPool

	mu       sync.Mutex
	firstErr error
	stopped  bool

	pending sync.WaitGroup
	nextID  int
}

// New constructs a Scheduler with the given worker count. queueSize and
// timeout are passed straight through to the underlying pool (spec.md's
// "fixed worker threads" sizing knobs); workers<=0 selects the
// synchronous fallback spec.md §4.9 calls for.
func New(workers, queueSize int, timeout time.Duration) *Scheduler {
	s := &Scheduler{}
	if workers > 0 {
		s.pool = worker.NewDynamicWorkerPool(workers, queueSize, timeout)
	}
	return s
}

// Schedule enqueues job. If the scheduler was built with zero workers,
// job runs immediately on the calling goroutine. A job's error is
// captured (first error wins) but does not stop other jobs from
// running, mirroring "each worker catches all exceptions from its job...
// and continues" (spec.md §5).
func (s *Scheduler) Schedule(job func() error) {
	s.mu.Lock()
	stopped := s.stopped
	id := s.nextID
	s.nextID++
	s.mu.Unlock()
	if stopped {
		return
	}

	if s.pool == nil {
		if err := job(); err != nil {
			s.recordError(err)
		}
		return
	}

	s.pending.Add(1)
	s.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer s.pending.Done()
			err := job()
			if err != nil {
				s.recordError(err)
			}
			return nil, err
		},
	})
}

func (s *Scheduler) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstErr == nil {
		s.firstErr = err
	}
}

// WaitForAllComplete blocks until every job scheduled so far has run,
// then returns the first error any of them produced, or nil.
func (s *Scheduler) WaitForAllComplete() error {
	s.pending.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// Stop prevents further jobs from being scheduled, waits for already-
// submitted jobs to finish (cooperative, per spec.md §5 "workers finish
// their current job before exiting"), and re-throws the first captured
// error.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return s.WaitForAllComplete()
}
