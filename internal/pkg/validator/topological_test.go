package validator

import (
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSort(t *testing.T) {
	t.Run("empty workflow", func(t *testing.T) {
		order, err := TopologicalSort(workflow(nil, nil))
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("chain", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "c")},
		)
		order, err := TopologicalSort(w)
		require.NoError(t, err)
		assert.Equal(t, []models.NodeID{"a", "b", "c"}, order)
	})

	t.Run("ties break by insertion order", func(t *testing.T) {
		// b and c both depend only on a; b is inserted first.
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "a", "c"),
				edge("e3", "b", "d"),
				edge("e4", "c", "d"),
			},
		)
		order, err := TopologicalSort(w)
		require.NoError(t, err)
		assert.Equal(t, []models.NodeID{"a", "b", "c", "d"}, order)

		// Reversing node insertion order flips the tie.
		w2 := workflow(
			[]models.Node{node("a"), node("c"), node("b"), node("d")},
			w.Edges,
		)
		order2, err := TopologicalSort(w2)
		require.NoError(t, err)
		assert.Equal(t, []models.NodeID{"a", "c", "b", "d"}, order2)
	})

	t.Run("edge declaration order never affects the result", func(t *testing.T) {
		nodes := []models.Node{node("a"), node("b"), node("c"), node("d")}
		edges := []models.Edge{
			edge("e1", "a", "b"),
			edge("e2", "a", "c"),
			edge("e3", "b", "d"),
			edge("e4", "c", "d"),
		}
		permuted := []models.Edge{edges[1], edges[0], edges[3], edges[2]}

		first, err := TopologicalSort(workflow(nodes, edges))
		require.NoError(t, err)
		second, err := TopologicalSort(workflow(nodes, permuted))
		require.NoError(t, err)

		assert.Equal(t, []models.NodeID{"a", "b", "c", "d"}, first)
		assert.Equal(t, first, second)
	})

	t.Run("earliest declared ready node runs first", func(t *testing.T) {
		// After a completes, b and d are both ready; b is declared earlier
		// even though d's edge was declared first.
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "d"),
				edge("e2", "a", "b"),
				edge("e3", "b", "c"),
			},
		)
		order, err := TopologicalSort(w)
		require.NoError(t, err)
		assert.Equal(t, []models.NodeID{"a", "b", "c", "d"}, order)
	})

	t.Run("every edge source precedes its target", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("e"), node("a"), node("d"), node("b"), node("c")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "b", "c"),
				edge("e3", "a", "d"),
				edge("e4", "d", "e"),
				edge("e5", "b", "e"),
			},
		)
		order, err := TopologicalSort(w)
		require.NoError(t, err)
		require.Len(t, order, 5)

		pos := make(map[models.NodeID]int, len(order))
		for i, id := range order {
			pos[id] = i
		}
		for _, e := range w.Edges {
			assert.Less(t, pos[e.Source], pos[e.Target], "edge %s", e.ID)
		}
	})

	t.Run("cycle returns error", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
		)
		_, err := TopologicalSort(w)
		assert.ErrorIs(t, err, ErrCycleDetected)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "c"),
				edge("e2", "b", "c"),
				edge("e3", "c", "d"),
			},
		)
		first, err := TopologicalSort(w)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := TopologicalSort(w)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestExecutionLevels(t *testing.T) {
	t.Run("diamond", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "a", "c"),
				edge("e3", "b", "d"),
				edge("e4", "c", "d"),
			},
		)
		levels, err := ExecutionLevels(w)
		require.NoError(t, err)
		assert.Equal(t, map[models.NodeID]int{"a": 0, "b": 1, "c": 1, "d": 2}, levels)
	})

	t.Run("level is one past the deepest predecessor", func(t *testing.T) {
		// d has predecessors at levels 0 and 2.
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c"), node("d")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "b", "c"),
				edge("e3", "a", "d"),
				edge("e4", "c", "d"),
			},
		)
		levels, err := ExecutionLevels(w)
		require.NoError(t, err)
		assert.Equal(t, 3, levels["d"])
	})

	t.Run("independent entries share level zero", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c")},
			[]models.Edge{edge("e1", "a", "c"), edge("e2", "b", "c")},
		)
		levels, err := ExecutionLevels(w)
		require.NoError(t, err)
		assert.Equal(t, 0, levels["a"])
		assert.Equal(t, 0, levels["b"])
		assert.Equal(t, 1, levels["c"])
	})

	t.Run("cycle returns error", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
		)
		_, err := ExecutionLevels(w)
		assert.ErrorIs(t, err, ErrCycleDetected)
	})
}
