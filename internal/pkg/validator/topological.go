package validator

import (
	"errors"
	"sort"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
)

// ErrCycleDetected is returned when a topological sort cannot cover every
// node. After cycle validation passes this is unreachable; it is the
// safety net.
var ErrCycleDetected = errors.New("cannot compute execution order: cycle detected")

// TopologicalSort runs Kahn's algorithm over the workflow graph.
//
// The frontier is kept ordered by node declaration position, so whenever
// several nodes are ready the earliest-declared one runs first. Ties break
// by node insertion order only; the order of the edge list never affects
// the result. The result covers every node exactly once, with every edge's
// source before its target. O(V + E log V).
func TopologicalSort(w *models.Workflow) ([]models.NodeID, error) {
	if len(w.Nodes) == 0 {
		return []models.NodeID{}, nil
	}

	adj := Adjacency(w)
	edgeMap := w.EdgeMap()
	inDegrees := InDegrees(w)

	pos := make(map[models.NodeID]int, len(w.Nodes))
	for i, node := range w.Nodes {
		pos[node.ID] = i
	}

	// EntryNodes already follow declaration order, so the frontier starts
	// sorted and insertFrontier keeps it that way.
	frontier := append([]models.NodeID(nil), EntryNodes(w)...)
	order := make([]models.NodeID, 0, len(w.Nodes))

	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		for _, edgeID := range adj[id] {
			edge, ok := edgeMap[edgeID]
			if !ok {
				continue
			}
			inDegrees[edge.Target]--
			if inDegrees[edge.Target] == 0 {
				frontier = insertFrontier(frontier, edge.Target, pos)
			}
		}
	}

	if len(order) != len(w.Nodes) {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// insertFrontier places id into the frontier keeping it sorted by node
// declaration position.
func insertFrontier(frontier []models.NodeID, id models.NodeID, pos map[models.NodeID]int) []models.NodeID {
	i := sort.Search(len(frontier), func(i int) bool {
		return pos[frontier[i]] > pos[id]
	})
	frontier = append(frontier, "")
	copy(frontier[i+1:], frontier[i:])
	frontier[i] = id
	return frontier
}

// ExecutionLevels assigns each node a level: entry nodes are level 0, every
// other node is 1 + the maximum level of its predecessors. Nodes sharing a
// level have no path between them and may run in parallel.
func ExecutionLevels(w *models.Workflow) (map[models.NodeID]int, error) {
	adj := Adjacency(w)
	edgeMap := w.EdgeMap()
	inDegrees := InDegrees(w)

	levels := make(map[models.NodeID]int, len(w.Nodes))
	queue := append([]models.NodeID(nil), EntryNodes(w)...)
	for _, id := range queue {
		levels[id] = 0
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, edgeID := range adj[id] {
			edge, ok := edgeMap[edgeID]
			if !ok {
				continue
			}
			if next := levels[id] + 1; next > levels[edge.Target] {
				levels[edge.Target] = next
			}
			inDegrees[edge.Target]--
			if inDegrees[edge.Target] == 0 {
				queue = append(queue, edge.Target)
			}
		}
	}

	if visited != len(w.Nodes) {
		return nil, ErrCycleDetected
	}
	return levels, nil
}
