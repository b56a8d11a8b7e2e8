package validator

import (
	"fmt"
	"strings"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
)

// Structural rules. Each rule is a pure function over a workflow snapshot
// and collects every failure it can observe, not only the first.

// ValidateEdgeReferences checks that every edge endpoint resolves to a
// node in the workflow. One error per missing endpoint; both ends of one
// edge may fail.
func ValidateEdgeReferences(w *models.Workflow) models.ValidationResult {
	nodeIDs := make(map[models.NodeID]bool, len(w.Nodes))
	for _, node := range w.Nodes {
		nodeIDs[node.ID] = true
	}

	var errs []models.ValidationError
	for _, edge := range w.Edges {
		if !nodeIDs[edge.Source] {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeInvalidEdgeReference,
				Message: fmt.Sprintf("edge references non-existent source node: %s", edge.Source),
				NodeIDs: []models.NodeID{edge.Source},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
		}
		if !nodeIDs[edge.Target] {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeInvalidEdgeReference,
				Message: fmt.Sprintf("edge references non-existent target node: %s", edge.Target),
				NodeIDs: []models.NodeID{edge.Target},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
		}
	}

	if len(errs) > 0 {
		return models.InvalidResult(errs)
	}
	return models.ValidResult(nil)
}

// ValidateNoDuplicateEdges rejects edges sharing the same
// (source, sourcePort, target, targetPort). The error names both edge IDs
// in insertion order.
func ValidateNoDuplicateEdges(w *models.Workflow) models.ValidationResult {
	seen := make(map[string]models.EdgeID, len(w.Edges))
	var errs []models.ValidationError

	for _, edge := range w.Edges {
		key := edge.PortKey()
		if first, ok := seen[key]; ok {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeDuplicateEdge,
				Message: fmt.Sprintf("duplicate edge from %s:%s to %s:%s", edge.Source, edge.SourcePort, edge.Target, edge.TargetPort),
				EdgeIDs: []models.EdgeID{first, edge.ID},
			})
		} else {
			seen[key] = edge.ID
		}
	}

	if len(errs) > 0 {
		return models.InvalidResult(errs)
	}
	return models.ValidResult(nil)
}

// ValidateHasEntryNode requires at least one node with in-degree zero.
// Exactly one error in either failure case.
func ValidateHasEntryNode(w *models.Workflow) models.ValidationResult {
	if len(w.Nodes) == 0 {
		return models.InvalidResult([]models.ValidationError{{
			Code:    models.CodeNoEntryNode,
			Message: "workflow has no nodes",
		}})
	}

	if len(EntryNodes(w)) == 0 {
		return models.InvalidResult([]models.ValidationError{{
			Code:    models.CodeNoEntryNode,
			Message: "workflow has no entry nodes (every node has incoming edges)",
		}})
	}

	return models.ValidResult(nil)
}

const (
	colorUnvisited = iota
	colorVisiting
	colorVisited
)

// ValidateNoCycles detects cycles with a three-color DFS. A back edge
// to a visiting node yields one error carrying the back-edge target and the
// ancestors on the recursion stack up to it. Starting nodes are iterated in
// insertion order so reports are deterministic; independent cycles each
// produce their own error.
func ValidateNoCycles(w *models.Workflow) models.ValidationResult {
	adj := Adjacency(w)
	edgeMap := w.EdgeMap()

	color := make(map[models.NodeID]int, len(w.Nodes))
	var path []models.NodeID
	var errs []models.ValidationError

	var dfs func(id models.NodeID)
	dfs = func(id models.NodeID) {
		color[id] = colorVisiting
		path = append(path, id)

		for _, edgeID := range adj[id] {
			edge, ok := edgeMap[edgeID]
			if !ok {
				continue
			}
			switch color[edge.Target] {
			case colorUnvisited:
				dfs(edge.Target)
			case colorVisiting:
				// Back edge: the cycle is the path segment from the target
				// to the current node.
				start := 0
				for i, ancestor := range path {
					if ancestor == edge.Target {
						start = i
						break
					}
				}
				cycle := append([]models.NodeID(nil), path[start:]...)
				errs = append(errs, models.ValidationError{
					Code:    models.CodeCycleDetected,
					Message: fmt.Sprintf("workflow contains a cycle: %s", joinNodeIDs(cycle)),
					NodeIDs: cycle,
				})
			}
		}

		path = path[:len(path)-1]
		color[id] = colorVisited
	}

	for _, node := range w.Nodes {
		if color[node.ID] == colorUnvisited {
			dfs(node.ID)
		}
	}

	if len(errs) > 0 {
		return models.InvalidResult(errs)
	}
	return models.ValidResult(nil)
}

// ValidateNoOrphans runs BFS forward from entry nodes and backward from
// exit nodes; a node in neither reachable set is an orphan. One error lists
// all orphans. Assumes the graph is acyclic (the orchestrator checks cycles
// first).
//
// An isolated node is simultaneously an entry and an exit, so it would
// trivially reach itself; the BFS therefore only seeds from entries with at
// least one outgoing edge and exits with at least one incoming edge, which
// makes fully disconnected nodes orphans.
func ValidateNoOrphans(w *models.Workflow) models.ValidationResult {
	adj := Adjacency(w)
	rev := ReverseAdjacency(w)
	edgeMap := w.EdgeMap()

	reachableFromEntry := make(map[models.NodeID]bool, len(w.Nodes))
	var queue []models.NodeID
	for _, id := range EntryNodes(w) {
		if len(adj[id]) > 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachableFromEntry[id] {
			continue
		}
		reachableFromEntry[id] = true
		for _, edgeID := range adj[id] {
			if edge, ok := edgeMap[edgeID]; ok {
				queue = append(queue, edge.Target)
			}
		}
	}

	reachesExit := make(map[models.NodeID]bool, len(w.Nodes))
	queue = queue[:0]
	for _, id := range ExitNodes(w) {
		if len(rev[id]) > 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachesExit[id] {
			continue
		}
		reachesExit[id] = true
		for _, edgeID := range rev[id] {
			if edge, ok := edgeMap[edgeID]; ok {
				queue = append(queue, edge.Source)
			}
		}
	}

	var orphans []models.NodeID
	for _, node := range w.Nodes {
		if !reachableFromEntry[node.ID] && !reachesExit[node.ID] {
			orphans = append(orphans, node.ID)
		}
	}

	if len(orphans) > 0 {
		return models.InvalidResult([]models.ValidationError{{
			Code:    models.CodeOrphanNode,
			Message: fmt.Sprintf("found %d orphan node(s) not connected to the workflow", len(orphans)),
			NodeIDs: orphans,
		}})
	}
	return models.ValidResult(nil)
}

func joinNodeIDs(ids []models.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}
