package graph

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/store"
)

// BuildReport records the anomalies encountered while building a graph.
// They are repaired or skipped, never fatal.
type BuildReport struct {
	// SelfEdges were rejected: a task declared itself a prerequisite.
	SelfEdges []Edge
	// FetchFailures lists tasks whose dependency fetch failed; each is
	// treated as having zero known dependencies.
	FetchFailures []int64
	// SkippedEdges reference a prerequisite outside the fetched task
	// set; the scheduler only reasons about tasks it has fetched.
	SkippedEdges []Edge
}

// Builder constructs a dependency graph from flat task and dependency
// records.
type Builder struct {
	store store.Store
	log   zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(st store.Store, log zerolog.Logger) *Builder {
	return &Builder{store: st, log: log}
}

// Build fetches dependency edges for each task and assembles the graph.
// A partial failure fetching one task's dependencies does not abort the
// build: the task keeps zero known dependencies and the failure is
// reported.
func (b *Builder) Build(ctx context.Context, tasks []domain.Task) (*Graph, BuildReport) {
	g := New()
	var report BuildReport

	for _, t := range tasks {
		g.AddNode(t)
	}

	for _, t := range tasks {
		deps, err := b.store.GetDependencies(ctx, t.ID)
		if err != nil {
			b.log.Warn().Err(err).Int64("task_id", t.ID).
				Msg("failed to fetch dependencies, treating task as independent")
			report.FetchFailures = append(report.FetchFailures, t.ID)
			continue
		}

		for _, dep := range deps {
			e := Edge{From: dep.DependsOnID, To: t.ID}
			if dep.DependsOnID == t.ID {
				b.log.Warn().Int64("task_id", t.ID).
					Msg("task depends on itself, edge rejected")
				report.SelfEdges = append(report.SelfEdges, e)
				continue
			}
			if _, ok := g.Task(dep.DependsOnID); !ok {
				// Prerequisite is not in the current pending set.
				report.SkippedEdges = append(report.SkippedEdges, e)
				continue
			}
			if err := g.AddEdge(e.From, e.To); err != nil {
				b.log.Warn().Err(err).Int64("task_id", t.ID).
					Int64("depends_on", dep.DependsOnID).
					Msg("dependency edge rejected")
			}
		}
	}

	return g, report
}
