package validator

import (
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string) models.Node {
	return models.Node{ID: models.NodeID(id), Type: models.NodeTypeTool, Label: id}
}

func edge(id, source, target string) models.Edge {
	return models.Edge{
		ID:         models.EdgeID(id),
		Source:     models.NodeID(source),
		SourcePort: "out",
		Target:     models.NodeID(target),
		TargetPort: "in",
	}
}

func workflow(nodes []models.Node, edges []models.Edge) *models.Workflow {
	return &models.Workflow{Nodes: nodes, Edges: edges}
}

func TestValidateEdgeReferences(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b")},
		)
		assert.True(t, ValidateEdgeReferences(w).Valid)
	})

	t.Run("missing source and target on one edge", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a")},
			[]models.Edge{edge("e1", "ghost", "phantom")},
		)
		result := ValidateEdgeReferences(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 2)
		for _, err := range result.Errors {
			assert.Equal(t, models.CodeInvalidEdgeReference, err.Code)
			assert.Equal(t, []models.EdgeID{"e1"}, err.EdgeIDs)
		}
		assert.Equal(t, []models.NodeID{"ghost"}, result.Errors[0].NodeIDs)
		assert.Equal(t, []models.NodeID{"phantom"}, result.Errors[1].NodeIDs)
	})
}

func TestValidateNoDuplicateEdges(t *testing.T) {
	t.Run("duplicate port key", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "a", "b")},
		)
		result := ValidateNoDuplicateEdges(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeDuplicateEdge, result.Errors[0].Code)
		// Both IDs, insertion order.
		assert.Equal(t, []models.EdgeID{"e1", "e2"}, result.Errors[0].EdgeIDs)
	})

	t.Run("same endpoints different ports are distinct", func(t *testing.T) {
		e2 := edge("e2", "a", "b")
		e2.TargetPort = "other"
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b"), e2},
		)
		assert.True(t, ValidateNoDuplicateEdges(w).Valid)
	})
}

func TestValidateHasEntryNode(t *testing.T) {
	t.Run("empty workflow", func(t *testing.T) {
		result := ValidateHasEntryNode(workflow(nil, nil))
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeNoEntryNode, result.Errors[0].Code)
	})

	t.Run("every node has incoming edges", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
		)
		result := ValidateHasEntryNode(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
	})

	t.Run("has entry", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b")},
		)
		assert.True(t, ValidateHasEntryNode(w).Valid)
	})
}

func TestValidateNoCycles(t *testing.T) {
	t.Run("acyclic diamond", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "a", "c"),
				edge("e3", "b", "d"),
				edge("e4", "c", "d"),
			},
		)
		assert.True(t, ValidateNoCycles(w).Valid)
	})

	t.Run("simple cycle reports its members", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "b", "c"),
				edge("e3", "c", "b"),
			},
		)
		result := ValidateNoCycles(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeCycleDetected, result.Errors[0].Code)
		assert.Equal(t, []models.NodeID{"b", "c"}, result.Errors[0].NodeIDs)
	})

	t.Run("self loop", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a")},
			[]models.Edge{edge("e1", "a", "a")},
		)
		result := ValidateNoCycles(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, []models.NodeID{"a"}, result.Errors[0].NodeIDs)
	})

	t.Run("two independent cycles produce two errors", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "b", "a"),
				edge("e3", "c", "d"),
				edge("e4", "d", "c"),
			},
		)
		result := ValidateNoCycles(w)
		require.False(t, result.Valid)
		assert.Len(t, result.Errors, 2)
	})
}

func TestValidateNoOrphans(t *testing.T) {
	t.Run("connected chain", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "c")},
		)
		assert.True(t, ValidateNoOrphans(w).Valid)
	})

	t.Run("isolated node is an orphan", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("lonely")},
			[]models.Edge{edge("e1", "a", "b")},
		)
		result := ValidateNoOrphans(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeOrphanNode, result.Errors[0].Code)
		assert.Equal(t, []models.NodeID{"lonely"}, result.Errors[0].NodeIDs)
	})

	t.Run("disconnected pair is one error listing both", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("x"), node("y")},
			[]models.Edge{edge("e1", "a", "b")},
		)
		result := ValidateNoOrphans(w)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.ElementsMatch(t, []models.NodeID{"x", "y"}, result.Errors[0].NodeIDs)
	})

	t.Run("single node workflow has no orphans besides itself", func(t *testing.T) {
		// A lone node is both entry and exit but connects to nothing, so it
		// is reported.
		w := workflow([]models.Node{node("a")}, nil)
		result := ValidateNoOrphans(w)
		require.False(t, result.Valid)
		assert.Equal(t, []models.NodeID{"a"}, result.Errors[0].NodeIDs)
	})
}
