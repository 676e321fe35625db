package events

import (
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Event is the base interface for all scheduler events.
type Event interface {
	EventType() string
}

// Topic constants
const (
	TopicRun  = "run"
	TopicTask = "task"
)

// Event type constants
const (
	EventTypeRunStarted    = "run.started"
	EventTypeRunFinished   = "run.finished"
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypeTaskSkipped   = "task.skipped"
)

// RunStartedEvent is published when a scheduling run begins.
type RunStartedEvent struct {
	RunID     string
	Pending   int
	Timestamp time.Time
}

func (e RunStartedEvent) EventType() string { return EventTypeRunStarted }

// RunFinishedEvent is published once per run, after metrics are final.
type RunFinishedEvent struct {
	RunID   string
	Metrics domain.RunMetrics
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }

// TaskStartedEvent is published when a task begins processing.
type TaskStartedEvent struct {
	TaskID    int64
	Title     string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }

// TaskCompletedEvent is published when a task completes successfully.
type TaskCompletedEvent struct {
	TaskID   int64
	Title    string
	Duration time.Duration
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }

// TaskFailedEvent is published when a task exhausts its retry budget.
type TaskFailedEvent struct {
	TaskID int64
	Title  string
	Err    error
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }

// TaskSkippedEvent is published when a task is passed over because its
// prerequisites have not completed.
type TaskSkippedEvent struct {
	TaskID int64
	Title  string
}

func (e TaskSkippedEvent) EventType() string { return EventTypeTaskSkipped }
