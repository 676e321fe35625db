// Package planner turns a resolved dependency graph into a concrete
// execution order.
package planner

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/graph"
)

// Order computes a topological execution order over the graph using
// Kahn's algorithm. The ready set is kept in ascending task id order so
// ties break deterministically.
//
// If the sort cannot place every node (a cycle survived resolution,
// which should not happen), the leftover nodes are appended in a
// fallback order of descending priority, then ascending creation time,
// then ascending id. The returned order always contains every node:
// an execution plan that silently drops tasks would stall the run.
func Order(g *graph.Graph, log zerolog.Logger) []int64 {
	inDegree := make(map[int64]int, g.Len())
	for _, id := range g.NodeIDs() {
		inDegree[id] = len(g.Predecessors(id))
	}

	var ready []int64
	for _, id := range g.NodeIDs() {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]int64, 0, g.Len())
	placed := make(map[int64]bool, g.Len())

	for len(ready) > 0 {
		// NodeIDs feeds ready in ascending order and insertions below
		// keep it sorted.
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		placed[id] = true

		for _, next := range g.Successors(id) {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = insertSorted(ready, next)
			}
		}
	}

	if len(order) == g.Len() {
		return order
	}

	// Defensive fallback: some nodes were unreachable by the sort.
	var leftover []int64
	for _, id := range g.NodeIDs() {
		if !placed[id] {
			leftover = append(leftover, id)
		}
	}

	log.Error().Int("unplaced", len(leftover)).
		Msg("topological sort incomplete, falling back to priority order")

	sort.SliceStable(leftover, func(i, j int) bool {
		a, _ := g.Task(leftover[i])
		b, _ := g.Task(leftover[j])
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return append(order, leftover...)
}

func insertSorted(ids []int64, id int64) []int64 {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
