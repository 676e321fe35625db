package graph

import "github.com/rs/zerolog"

// FindCycle returns the node sequence of one cycle in the graph, in
// edge order: each node has an edge to the next, and the last node has
// an edge back to the first. Returns nil if the graph is acyclic.
// Traversal visits nodes and successors in ascending id order, so the
// reported cycle is deterministic for a given graph.
func (g *Graph) FindCycle() []int64 {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)

	color := make(map[int64]int, len(g.tasks))
	var stack []int64
	var cycle []int64

	var visit func(id int64) bool
	visit = func(id int64) bool {
		color[id] = gray
		stack = append(stack, id)

		for _, next := range g.Successors(id) {
			switch color[next] {
			case gray:
				// Found a back edge; slice the cycle out of the stack.
				start := len(stack) - 1
				for start >= 0 && stack[start] != next {
					start--
				}
				cycle = append([]int64(nil), stack[start:]...)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.NodeIDs() {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// Resolve repairs the graph into a DAG by repeatedly detecting one
// cycle and removing the edge between the last two nodes of its
// reported sequence. Cycles are re-detected after every removal rather
// than computed in batch, so overlapping cycles cannot make the loop
// spin on the same cycle. Every removed edge is a data-integrity
// warning: a declared dependency is dropped so the run can proceed.
func Resolve(g *Graph, log zerolog.Logger) []Edge {
	var removed []Edge

	for {
		cycle := g.FindCycle()
		if cycle == nil {
			return removed
		}

		var e Edge
		if len(cycle) == 1 {
			// Self-loop; the builder rejects these, but repair anyway.
			e = Edge{From: cycle[0], To: cycle[0]}
		} else {
			e = Edge{From: cycle[len(cycle)-2], To: cycle[len(cycle)-1]}
		}

		log.Warn().
			Int64("from", e.From).
			Int64("to", e.To).
			Ints64("cycle", cycle).
			Msg("dependency cycle detected, dropping edge")

		g.RemoveEdge(e)
		removed = append(removed, e)
	}
}
