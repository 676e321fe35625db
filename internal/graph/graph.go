// Package graph builds and repairs the dependency graph one scheduling
// run reasons about. Nodes are the tasks fetched for the run; edges
// point from prerequisite to dependent.
package graph

import (
	"fmt"
	"sort"

	"github.com/gammazero/toposort"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Edge is a directed dependency edge: From must complete before To may
// begin.
type Edge struct {
	From int64
	To   int64
}

// Graph holds the node and edge sets for one run. It is scoped to that
// run and never persisted.
type Graph struct {
	tasks map[int64]domain.Task
	succ  map[int64][]int64 // prerequisite -> dependents
	edges map[Edge]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		tasks: make(map[int64]domain.Task),
		succ:  make(map[int64][]int64),
		edges: make(map[Edge]struct{}),
	}
}

// AddNode adds a task node. Re-adding a node overwrites its task data.
func (g *Graph) AddNode(t domain.Task) {
	g.tasks[t.ID] = t
}

// AddEdge inserts a directed edge. Both endpoints must already be
// nodes, and self-edges are invalid input.
func (g *Graph) AddEdge(from, to int64) error {
	if from == to {
		return fmt.Errorf("task %d depends on itself", from)
	}
	if _, ok := g.tasks[from]; !ok {
		return fmt.Errorf("unknown prerequisite task %d", from)
	}
	if _, ok := g.tasks[to]; !ok {
		return fmt.Errorf("unknown dependent task %d", to)
	}

	e := Edge{From: from, To: to}
	if _, ok := g.edges[e]; ok {
		return nil
	}
	g.edges[e] = struct{}{}
	g.succ[from] = append(g.succ[from], to)
	return nil
}

// RemoveEdge deletes an edge if present.
func (g *Graph) RemoveEdge(e Edge) {
	if _, ok := g.edges[e]; !ok {
		return
	}
	delete(g.edges, e)

	next := g.succ[e.From][:0]
	for _, to := range g.succ[e.From] {
		if to != e.To {
			next = append(next, to)
		}
	}
	g.succ[e.From] = next
}

// HasEdge reports whether the edge is present.
func (g *Graph) HasEdge(e Edge) bool {
	_, ok := g.edges[e]
	return ok
}

// Task returns the task stored at a node.
func (g *Graph) Task(id int64) (domain.Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Successors returns the dependents of a node in ascending order.
func (g *Graph) Successors(id int64) []int64 {
	out := append([]int64(nil), g.succ[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edges returns all edges ordered by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Predecessors returns the prerequisites of a node in ascending order.
func (g *Graph) Predecessors(id int64) []int64 {
	var out []int64
	for e := range g.edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sorted runs a topological sort over the graph and returns node ids in
// dependency order. Returns an error if the graph contains a cycle.
func (g *Graph) Sorted() ([]int64, error) {
	var edges []toposort.Edge
	for _, id := range g.NodeIDs() {
		succs := g.Successors(id)
		if len(succs) == 0 && len(g.Predecessors(id)) == 0 {
			// Isolated node: anchor with a nil edge so the sort keeps it.
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, to := range succs {
			edges = append(edges, toposort.Edge{id, to})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("graph contains cycle: %w", err)
	}

	order := make([]int64, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(int64))
		}
	}
	return order, nil
}

// IsAcyclic reports whether the graph is a DAG.
func (g *Graph) IsAcyclic() bool {
	_, err := g.Sorted()
	return err == nil
}
