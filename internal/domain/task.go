package domain

import "time"

// TaskStatus represents the lifecycle state of a task in the store.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Priority bounds. Priorities are small integers, 1 is lowest.
const (
	PriorityMin = 1
	PriorityMax = 5
)

// Task is a unit of work tracked by the store. The scheduler holds a
// transient copy for the duration of one run and writes status, priority
// and completion fields back through the store.
type Task struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            TaskStatus `json:"status"`
	Priority          int        `json:"priority"`
	ProjectID         *int64     `json:"project_id,omitempty"`
	AssignedTo        string     `json:"assigned_to,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ProcessingSeconds float64    `json:"processing_seconds,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ClampPriority forces p into the valid [PriorityMin, PriorityMax] range.
func ClampPriority(p int) int {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}
	return p
}
