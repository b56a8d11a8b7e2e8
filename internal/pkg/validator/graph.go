// Package validator implements DAG validation for workflow snapshots:
// a graph index, structural rules, semantic rules against an agent
// registry, and a Kahn-based topological planner.
//
// Every function is pure and deterministic over an immutable snapshot;
// callers own the snapshot and may validate concurrently.
package validator

import "github.com/agentforge-ai/agentforge/internal/domain/models"

// Adjacency maps each node to its outgoing edge IDs, in edge insertion
// order. Edges whose endpoints are missing are kept in the edge map but not
// counted here; edge-reference validation surfaces them. O(V+E).
func Adjacency(w *models.Workflow) map[models.NodeID][]models.EdgeID {
	adj := make(map[models.NodeID][]models.EdgeID, len(w.Nodes))
	for _, node := range w.Nodes {
		adj[node.ID] = nil
	}
	for _, edge := range w.Edges {
		if _, ok := adj[edge.Source]; ok {
			adj[edge.Source] = append(adj[edge.Source], edge.ID)
		}
	}
	return adj
}

// ReverseAdjacency maps each node to its incoming edge IDs. O(V+E).
func ReverseAdjacency(w *models.Workflow) map[models.NodeID][]models.EdgeID {
	rev := make(map[models.NodeID][]models.EdgeID, len(w.Nodes))
	for _, node := range w.Nodes {
		rev[node.ID] = nil
	}
	for _, edge := range w.Edges {
		if _, ok := rev[edge.Target]; ok {
			rev[edge.Target] = append(rev[edge.Target], edge.ID)
		}
	}
	return rev
}

// InDegrees maps each node to its incoming edge count. O(V+E).
func InDegrees(w *models.Workflow) map[models.NodeID]int {
	degrees := make(map[models.NodeID]int, len(w.Nodes))
	for _, node := range w.Nodes {
		degrees[node.ID] = 0
	}
	for _, edge := range w.Edges {
		if _, ok := degrees[edge.Target]; ok {
			degrees[edge.Target]++
		}
	}
	return degrees
}

// EntryNodes returns the nodes with in-degree zero, in workflow insertion
// order.
func EntryNodes(w *models.Workflow) []models.NodeID {
	degrees := InDegrees(w)
	var entries []models.NodeID
	for _, node := range w.Nodes {
		if degrees[node.ID] == 0 {
			entries = append(entries, node.ID)
		}
	}
	return entries
}

// ExitNodes returns the nodes with out-degree zero, in workflow insertion
// order.
func ExitNodes(w *models.Workflow) []models.NodeID {
	adj := Adjacency(w)
	var exits []models.NodeID
	for _, node := range w.Nodes {
		if len(adj[node.ID]) == 0 {
			exits = append(exits, node.ID)
		}
	}
	return exits
}
