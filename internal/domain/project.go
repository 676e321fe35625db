package domain

import "time"

// Project statuses.
const (
	ProjectActive = "active"
)

// Project groups tasks. Deleting a project removes its tasks with it.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectProgress summarizes task completion within one project.
type ProjectProgress struct {
	Progress  float64 `json:"progress"` // percent complete, 0 when empty
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}
