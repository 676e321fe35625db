// Package scheduler orchestrates one end-to-end scheduling cycle:
// fetch pending tasks, build and repair the dependency graph, plan an
// execution order, run tasks serially honoring readiness, and record
// run metrics.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/events"
	"github.com/taskpilot/taskpilot/internal/graph"
	"github.com/taskpilot/taskpilot/internal/planner"
	"github.com/taskpilot/taskpilot/internal/store"
)

// Coordinator drives scheduling runs. Tasks execute one at a time in
// planned order; one task's failure never stops the run. The only
// fatal failure is being unable to fetch the pending task set.
type Coordinator struct {
	store    store.Store
	builder  *graph.Builder
	executor *Executor
	bus      *events.Bus // optional
	flowName string
	log      zerolog.Logger
}

// CoordinatorConfig configures a Coordinator. Store and Executor are
// required; Bus is optional.
type CoordinatorConfig struct {
	Store    store.Store
	Executor *Executor
	Bus      *events.Bus
	FlowName string
	Logger   zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.FlowName == "" {
		cfg.FlowName = "Task Processing Flow"
	}
	return &Coordinator{
		store:    cfg.Store,
		builder:  graph.NewBuilder(cfg.Store, cfg.Logger),
		executor: cfg.Executor,
		bus:      cfg.Bus,
		flowName: cfg.FlowName,
		log:      cfg.Logger,
	}
}

// RunOnce executes one scheduling cycle. Exactly one metrics record is
// emitted per call, whether the run completes normally or aborts. The
// returned metrics reflect whatever progress was made.
func (c *Coordinator) RunOnce(ctx context.Context) (domain.RunMetrics, error) {
	start := time.Now().UTC()
	metrics := domain.RunMetrics{
		FlowName:  c.flowName,
		RunID:     domain.NewRunID(start),
		StartedAt: start,
		Status:    domain.RunCompleted,
	}

	var runErr error
	defer func() {
		c.finalize(ctx, &metrics, runErr)
	}()

	c.log.Info().Str("run_id", metrics.RunID).Msg("starting scheduling run")

	tasks, err := c.store.ListPendingTasks(ctx)
	if err != nil {
		runErr = fmt.Errorf("fetching pending tasks: %w", err)
		return metrics, runErr
	}

	c.publish(events.TopicRun, events.RunStartedEvent{
		RunID:     metrics.RunID,
		Pending:   len(tasks),
		Timestamp: start,
	})

	if len(tasks) == 0 {
		c.log.Info().Str("run_id", metrics.RunID).Msg("no pending tasks to process")
		return metrics, nil
	}

	g, report := c.builder.Build(ctx, tasks)
	removed := graph.Resolve(g, c.log)
	order := planner.Order(g, c.log)

	c.log.Info().
		Str("run_id", metrics.RunID).
		Int("tasks", g.Len()).
		Int("edges", g.EdgeCount()).
		Int("cycle_edges_removed", len(removed)).
		Int("dep_fetch_failures", len(report.FetchFailures)).
		Int("self_edges_rejected", len(report.SelfEdges)).
		Msg("execution plan ready")

	gate := NewReadinessGate(GraphPrereqs(g), c.log)
	completed := make(map[int64]bool, len(order))

	for _, id := range order {
		// Runs may be aborted between tasks, never mid-task.
		if err := ctx.Err(); err != nil {
			c.log.Warn().Str("run_id", metrics.RunID).Err(err).
				Msg("run aborted between tasks")
			break
		}

		task, ok := g.Task(id)
		if !ok {
			continue
		}

		if !gate.IsReady(ctx, id, completed) {
			c.log.Info().Int64("task_id", id).
				Msg("skipping task, prerequisites not completed")
			c.publish(events.TopicTask, events.TaskSkippedEvent{TaskID: id, Title: task.Title})
			continue
		}

		c.publish(events.TopicTask, events.TaskStartedEvent{
			TaskID:    id,
			Title:     task.Title,
			Timestamp: time.Now().UTC(),
		})

		done, err := c.executor.Execute(ctx, task)
		if err != nil {
			// Operator shutdown surfacing through the worker is not a
			// task failure; end the run without counting an error.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn().Err(err).Int64("task_id", id).
					Msg("run aborted during task")
				break
			}
			metrics.Errors++
			c.log.Error().Err(err).Int64("task_id", id).Msg("task failed")
			c.publish(events.TopicTask, events.TaskFailedEvent{TaskID: id, Title: task.Title, Err: err})
			continue
		}

		completed[id] = true
		metrics.TasksProcessed++
		c.log.Info().Int64("task_id", id).Str("title", done.Title).Msg("task completed")
		c.publish(events.TopicTask, events.TaskCompletedEvent{
			TaskID:   id,
			Title:    done.Title,
			Duration: time.Duration(done.ProcessingSeconds * float64(time.Second)),
		})
	}

	return metrics, nil
}

// finalize stamps and records the run metrics. It runs on every exit
// path, and metrics recording is best effort: losing a metrics record
// must not fail a run that has already happened.
func (c *Coordinator) finalize(ctx context.Context, metrics *domain.RunMetrics, runErr error) {
	metrics.EndedAt = time.Now().UTC()
	if runErr != nil {
		metrics.Status = domain.RunFailed
	}

	// A cancelled run still emits its metrics record.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := c.store.RecordRunMetrics(recordCtx, *metrics); err != nil {
		c.log.Error().Err(err).Str("run_id", metrics.RunID).
			Msg("failed to record run metrics")
	}

	c.publish(events.TopicRun, events.RunFinishedEvent{RunID: metrics.RunID, Metrics: *metrics})

	c.log.Info().
		Str("run_id", metrics.RunID).
		Str("status", metrics.Status).
		Int("processed", metrics.TasksProcessed).
		Int("errors", metrics.Errors).
		Dur("elapsed", metrics.EndedAt.Sub(metrics.StartedAt)).
		Msg("scheduling run finished")
}

func (c *Coordinator) publish(topic string, e events.Event) {
	if c.bus != nil {
		c.bus.Publish(topic, e)
	}
}
