package scheduler

import (
	"context"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Worker performs the actual unit of work for one task. It reports
// success or failure and, on success, the measured processing duration.
type Worker interface {
	Process(ctx context.Context, task domain.Task) (time.Duration, error)
}

// FixedWorker simulates processing by sleeping for a fixed duration.
// It stands in until real work is plugged behind the Worker interface.
type FixedWorker struct {
	Duration time.Duration
}

// Process sleeps for the configured duration and reports the elapsed
// time. Cancellation aborts the wait.
func (w FixedWorker) Process(ctx context.Context, task domain.Task) (time.Duration, error) {
	start := time.Now()

	timer := time.NewTimer(w.Duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return time.Since(start), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context, task domain.Task) (time.Duration, error)

// Process calls the wrapped function.
func (f WorkerFunc) Process(ctx context.Context, task domain.Task) (time.Duration, error) {
	return f(ctx, task)
}
