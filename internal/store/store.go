package store

import (
	"context"
	"errors"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Sentinel errors returned by Store implementations. Callers classify
// failures with errors.Is and decide per call site whether a failure is
// fatal, retryable or ignorable.
var (
	// ErrNotFound means the referenced task no longer exists.
	ErrNotFound = errors.New("task not found")
	// ErrUnavailable means the store could not be reached; the call may
	// succeed if retried.
	ErrUnavailable = errors.New("store unavailable")
)

// TaskUpdate carries a partial task update. Nil fields are left
// untouched.
type TaskUpdate struct {
	Status            *domain.TaskStatus
	Priority          *int
	CompletedAt       *time.Time
	ProcessingSeconds *float64
}

// Store is the narrow contract the scheduler depends on. The task data
// itself is owned by whatever sits behind the implementation; the
// scheduler only reads pending tasks and dependency edges and writes
// back status, priority and completion fields.
type Store interface {
	// ListPendingTasks returns every task currently in pending status.
	// An ErrUnavailable failure here is fatal for the run.
	ListPendingTasks(ctx context.Context) ([]domain.Task, error)

	// GetDependencies returns the dependency edges for one task.
	GetDependencies(ctx context.Context, taskID int64) ([]domain.Dependency, error)

	// UpdateTask applies a partial update and returns the stored task.
	UpdateTask(ctx context.Context, taskID int64, upd TaskUpdate) (domain.Task, error)

	// RecordRunMetrics persists one run summary. Best effort: the
	// scheduler logs failures and moves on.
	RecordRunMetrics(ctx context.Context, m domain.RunMetrics) error
}
