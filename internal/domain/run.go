package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses recorded in metrics.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunMetrics is the single summary record emitted at the end of every
// scheduling run, whether it completed normally or aborted.
type RunMetrics struct {
	FlowName       string    `json:"flow_name"`
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"start_time"`
	EndedAt        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	TasksProcessed int       `json:"tasks_processed"`
	Errors         int       `json:"errors"`
}

// NewRunID derives a unique, time-prefixed run identifier.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}
