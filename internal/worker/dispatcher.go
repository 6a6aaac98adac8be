// Package worker runs submitted render jobs in the background.
package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"animrender/internal/jobs"
	"animrender/internal/pkg/errors"
	"animrender/internal/pkg/logger"
	"animrender/internal/worker/processor"
)

// MsgShuttingDown is recorded on jobs that never started because the service stopped.
const MsgShuttingDown = "Service shutting down before the job started"

// Executor runs one job to a terminal state.
type Executor interface {
	Process(ctx context.Context, req processor.Request) error
}

type Deps struct {
	Executor Executor
	Registry *jobs.Registry
	// MaxConcurrent bounds running jobs; zero means one goroutine per job with no cap.
	MaxConcurrent int
	Log           *logger.Logger
}

// Dispatcher starts a goroutine per submitted job and joins them on shutdown.
type Dispatcher struct {
	exec     Executor
	registry *jobs.Registry
	sem      *semaphore.Weighted
	log      *logger.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(d Deps) *Dispatcher {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	base, cancel := context.WithCancel(context.Background())

	disp := &Dispatcher{
		exec:     d.Executor,
		registry: d.Registry,
		log:      log.WithComponent("dispatcher"),
		base:     base,
		cancel:   cancel,
	}
	if d.MaxConcurrent > 0 {
		disp.sem = semaphore.NewWeighted(int64(d.MaxConcurrent))
	}
	return disp
}

// Submit schedules req without waiting for it. It fails once shutdown began.
func (d *Dispatcher) Submit(req processor.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New(errors.CodeUnavailable, "service is shutting down")
	}

	d.wg.Add(1)
	go d.run(req)
	return nil
}

func (d *Dispatcher) run(req processor.Request) {
	defer d.wg.Done()
	ctx := logger.ContextWithJobID(d.base, req.JobID)
	log := d.log.FromContext(ctx)

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			log.Warn("job dropped before start", "error", err.Error())
			if ferr := d.registry.Fail(context.WithoutCancel(ctx), req.JobID, err.Error(), MsgShuttingDown); ferr != nil {
				log.Error("failed to record dropped job", "error", ferr.Error())
			}
			return
		}
		defer d.sem.Release(1)
	}

	start := time.Now()
	if err := d.exec.Process(ctx, req); err != nil {
		log.Error("job failed",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	log.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
}

// Shutdown stops accepting jobs and waits for running ones. When ctx expires
// first, running subprocesses are killed through the shared context and
// their jobs fail.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.log.Info("all jobs drained")
		return nil
	case <-ctx.Done():
	}

	d.log.Warn("drain deadline reached, cancelling running jobs", "in_flight", d.registry.InFlight())
	d.cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		d.log.Error("jobs still running after cancellation")
	}
	return ctx.Err()
}
