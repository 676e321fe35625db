package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/graph"
	"github.com/taskpilot/taskpilot/internal/store"
)

// PrereqFunc returns the prerequisite task ids for one task.
type PrereqFunc func(ctx context.Context, taskID int64) ([]int64, error)

// GraphPrereqs sources prerequisites from a resolved graph. It never
// fails: dependency edges that could not be fetched at build time are
// already absent from the graph, so the task counts as independent.
func GraphPrereqs(g *graph.Graph) PrereqFunc {
	return func(ctx context.Context, taskID int64) ([]int64, error) {
		return g.Predecessors(taskID), nil
	}
}

// StorePrereqs sources prerequisites directly from the store.
func StorePrereqs(st store.Store) PrereqFunc {
	return func(ctx context.Context, taskID int64) ([]int64, error) {
		deps, err := st.GetDependencies(ctx, taskID)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(deps))
		for _, d := range deps {
			ids = append(ids, d.DependsOnID)
		}
		return ids, nil
	}
}

// ReadinessGate decides whether a task may run now, given the set of
// tasks completed so far in this run.
type ReadinessGate struct {
	prereqs PrereqFunc
	log     zerolog.Logger
}

// NewReadinessGate creates a gate over the given prerequisite source.
func NewReadinessGate(prereqs PrereqFunc, log zerolog.Logger) *ReadinessGate {
	return &ReadinessGate{prereqs: prereqs, log: log}
}

// IsReady returns true iff every prerequisite of the task is in the
// completed set. A task with no prerequisites is always ready. If the
// prerequisites cannot be determined the task is not ready: never run
// a task whose prerequisites are unknown.
func (g *ReadinessGate) IsReady(ctx context.Context, taskID int64, completed map[int64]bool) bool {
	ids, err := g.prereqs(ctx, taskID)
	if err != nil {
		g.log.Warn().Err(err).Int64("task_id", taskID).
			Msg("could not determine prerequisites, treating task as not ready")
		return false
	}

	for _, id := range ids {
		if !completed[id] {
			return false
		}
	}
	return true
}
