// File: runner/runner.go
// Package runner executes async jobs off the port tasks, on a fixed pool
// of worker goroutines, with exactly-once completion handoff.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package runner

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/momentics/portdrv/api"
)

// submission pairs a job with the task that must hear its completion.
type submission struct {
	job   api.AsyncJob
	owner api.AsyncOwner
}

// Pool is the job runner: a buffered intake channel drained by worker
// goroutines. Jobs from one port may complete in any order; the only
// guarantees are off-thread execution and exactly one AsyncDone per job.
type Pool struct {
	jobs chan submission
	quit chan struct{}
	wg   sync.WaitGroup
	log  *slog.Logger

	closeOnce sync.Once
}

var _ api.JobRunner = (*Pool)(nil)

// New starts a pool with the given number of workers; numWorkers <= 0
// defaults to runtime.NumCPU().
func New(numWorkers int, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		jobs: make(chan submission, numWorkers*4),
		quit: make(chan struct{}),
		log:  logger.With("component", "async-runner"),
	}
	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(i)
	}
	return p
}

// Submit hands job to a worker, blocking while the intake is full. After
// Close it fails with ErrRunnerClosed. A submitted job's completion is
// delivered exactly once, never from within this call.
func (p *Pool) Submit(job api.AsyncJob, owner api.AsyncOwner) error {
	select {
	case <-p.quit:
		return fmt.Errorf("submit: %w", api.ErrRunnerClosed)
	default:
	}

	select {
	case p.jobs <- submission{job: job, owner: owner}:
		return nil
	case <-p.quit:
		return fmt.Errorf("submit: %w", api.ErrRunnerClosed)
	}
}

// Close stops intake and waits for workers to finish. Every job accepted
// by Submit still runs and delivers its completion; the exactly-once
// guarantee does not stop at close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
	// A submission racing the close can land after the workers left.
	p.drain(-1)
}

// worker drains the intake until Close.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case sub := <-p.jobs:
			p.runJob(id, sub)
		case <-p.quit:
			p.drain(id)
			return
		}
	}
}

// drain completes jobs already accepted into the intake.
func (p *Pool) drain(id int) {
	for {
		select {
		case sub := <-p.jobs:
			p.runJob(id, sub)
		default:
			return
		}
	}
}

// runJob executes one job and posts completion. The completion handoff is
// unconditional: a panicking job still produces its single AsyncDone, and
// the owning task decides what the driver makes of it.
func (p *Pool) runJob(id int, sub submission) {
	defer sub.owner.AsyncDone(sub.job)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("async job panicked", "worker", id, "panic", r)
		}
	}()
	sub.job.Run()
}
