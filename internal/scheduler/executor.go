package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/scoring"
	"github.com/taskpilot/taskpilot/internal/store"
)

// Executor runs a single task through its status lifecycle:
// pending -> in_progress -> completed. Store writes are retried per
// the configured policy; a failure past the retry budget surfaces as
// a per-task error and leaves the task in its last persisted status.
type Executor struct {
	store  store.Store
	worker Worker
	scorer scoring.Scorer // optional, advisory
	retry  RetryPolicy
	log    zerolog.Logger
}

// ExecutorConfig configures an Executor. Store and Worker are
// required; Scorer is optional.
type ExecutorConfig struct {
	Store  store.Store
	Worker Worker
	Scorer scoring.Scorer
	Retry  RetryPolicy
	Logger zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Executor{
		store:  cfg.Store,
		worker: cfg.Worker,
		scorer: cfg.Scorer,
		retry:  cfg.Retry,
		log:    cfg.Logger,
	}
}

// Execute processes one task end to end and returns the task in its
// final state. Any step failing beyond the retry budget returns an
// error; the caller decides what that means for the run.
func (e *Executor) Execute(ctx context.Context, task domain.Task) (domain.Task, error) {
	if p := e.evaluatePriority(ctx, task); p != task.Priority {
		e.log.Info().Int64("task_id", task.ID).
			Int("from", task.Priority).Int("to", p).
			Msg("adjusted task priority")
		task.Priority = p
	}

	task, err := e.beginProcessing(ctx, task)
	if err != nil {
		return task, fmt.Errorf("begin processing task %d: %w", task.ID, err)
	}

	duration, err := e.process(ctx, task)
	if err != nil {
		return task, fmt.Errorf("processing task %d: %w", task.ID, err)
	}

	task, err = e.completeProcessing(ctx, task, duration)
	if err != nil {
		return task, fmt.Errorf("complete processing task %d: %w", task.ID, err)
	}
	return task, nil
}

// evaluatePriority combines the keyword re-scoring with the optional
// scoring-service hint. The hint is advisory: it can only raise the
// priority, and any scorer failure means no hint.
func (e *Executor) evaluatePriority(ctx context.Context, task domain.Task) int {
	priority := EvaluatePriority(task)

	if e.scorer != nil {
		hint, err := e.scorer.Score(ctx, task.Description)
		if err != nil {
			e.log.Debug().Err(err).Int64("task_id", task.ID).
				Msg("no scoring hint available")
			return priority
		}
		if h := domain.ClampPriority(int(hint + 0.5)); h > priority {
			priority = h
		}
	}
	return priority
}

// beginProcessing transitions the task to in_progress, persisting the
// new status (and any priority change) with retries.
func (e *Executor) beginProcessing(ctx context.Context, task domain.Task) (domain.Task, error) {
	status := domain.StatusInProgress
	upd := store.TaskUpdate{Status: &status, Priority: &task.Priority}

	var updated domain.Task
	err := e.retry.Do(ctx, func() error {
		var err error
		updated, err = e.store.UpdateTask(ctx, task.ID, upd)
		return err
	})
	if err != nil {
		return task, err
	}
	return updated, nil
}

// process runs the unit of work, retrying transient failures within
// the same budget as the persistence calls.
func (e *Executor) process(ctx context.Context, task domain.Task) (time.Duration, error) {
	var duration time.Duration
	err := e.retry.Do(ctx, func() error {
		var err error
		duration, err = e.worker.Process(ctx, task)
		return err
	})
	return duration, err
}

// completeProcessing transitions the task to completed, stamping the
// completion time and measured duration.
func (e *Executor) completeProcessing(ctx context.Context, task domain.Task, duration time.Duration) (domain.Task, error) {
	status := domain.StatusCompleted
	now := time.Now().UTC()
	seconds := duration.Seconds()
	upd := store.TaskUpdate{
		Status:            &status,
		CompletedAt:       &now,
		ProcessingSeconds: &seconds,
	}

	var updated domain.Task
	err := e.retry.Do(ctx, func() error {
		var err error
		updated, err = e.store.UpdateTask(ctx, task.ID, upd)
		return err
	})
	if err != nil {
		return task, err
	}
	return updated, nil
}
