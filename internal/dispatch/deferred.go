package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/paycard/internal/cards"
)

type task struct {
	ctx context.Context
	job cards.Job
}

// Deferred acknowledges immediately and runs the pipeline in the background.
// With workers <= 0 every job gets its own goroutine; otherwise a fixed pool drains
// a bounded queue and a full queue is reported as cards.ErrUnavailable.
type Deferred struct {
	runner Runner
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	tasks  chan task

	running sync.WaitGroup
}

// NewDeferred starts the worker pool, if any.
func NewDeferred(runner Runner, workers, queue int, logger *slog.Logger) *Deferred {
	d := &Deferred{runner: runner, logger: logger}
	if workers > 0 {
		d.tasks = make(chan task, queue)
		for i := 0; i < workers; i++ {
			d.running.Add(1)
			go d.work()
		}
	}
	return d
}

// Dispatch schedules job and returns a queued outcome. The run keeps the request's
// context values but not its cancellation, so it outlives the response.
func (d *Deferred) Dispatch(ctx context.Context, job cards.Job) (cards.Outcome, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return cards.Outcome{}, fmt.Errorf("%w: shutting down", cards.ErrUnavailable)
	}

	t := task{ctx: context.WithoutCancel(ctx), job: job}
	if d.tasks == nil {
		d.running.Add(1)
		go func() {
			defer d.running.Done()
			runDetached(t.ctx, d.runner, t.job, d.logger)
		}()
		return queued(job), nil
	}

	select {
	case d.tasks <- t:
		return queued(job), nil
	default:
		return cards.Outcome{}, fmt.Errorf("%w: deferred queue full", cards.ErrUnavailable)
	}
}

func (d *Deferred) work() {
	defer d.running.Done()
	for t := range d.tasks {
		runDetached(t.ctx, d.runner, t.job, d.logger)
	}
}

// Close stops accepting jobs and waits for queued and running ones to finish,
// or for ctx to expire.
func (d *Deferred) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		if d.tasks != nil {
			close(d.tasks)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
