// Package dispatch schedules card pipeline runs either inside the request or after it.
// All dispatchers share one cards.Service; only the scheduling differs.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/paycard/internal/cards"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, job cards.Job) (cards.Outcome, error)
}

// Inline runs the pipeline in the caller's goroutine and returns its outcome.
type Inline struct {
	runner Runner
}

// NewInline builds the synchronous dispatcher.
func NewInline(runner Runner) *Inline {
	return &Inline{runner: runner}
}

// Dispatch runs job to completion.
func (d *Inline) Dispatch(ctx context.Context, job cards.Job) (cards.Outcome, error) {
	return d.runner.Run(ctx, job)
}

func queued(job cards.Job) cards.Outcome {
	return cards.Outcome{JobID: job.ID, FilePath: job.FilePath, Queued: true}
}

// runDetached runs a job whose caller is no longer waiting. Results only reach the log.
func runDetached(ctx context.Context, runner Runner, job cards.Job, logger *slog.Logger) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("deferred card job panicked",
				slog.String("job_id", job.ID),
				slog.Any("panic", fmt.Sprint(r)),
			)
		}
	}()

	out, err := runner.Run(ctx, job)
	if err != nil {
		logger.Error("deferred card job failed",
			slog.String("job_id", job.ID),
			slog.String("file_path", job.FilePath),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	logger.Info("deferred card job finished",
		slog.String("job_id", job.ID),
		slog.Bool("degraded", out.Degraded),
		slog.Bool("gateway_fault", out.Delivery.IsFault()),
		slog.Duration("duration", time.Since(start)),
	)
}
