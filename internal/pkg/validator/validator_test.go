package validator

import (
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("valid graph carries execution order", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("c")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "c")},
		)
		result := Validate(w, Options{})
		require.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Equal(t, []models.NodeID{"a", "b", "c"}, result.ExecutionOrder)
	})

	t.Run("invalid result never carries execution order", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("lonely")},
			[]models.Edge{edge("e1", "a", "b")},
		)
		result := Validate(w, Options{})
		require.False(t, result.Valid)
		assert.Empty(t, result.ExecutionOrder)
	})

	t.Run("broken edge reference stops the run", func(t *testing.T) {
		// The same edge also duplicates e1, but later rules never run.
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{edge("e1", "a", "ghost")},
		)
		result := Validate(w, Options{})
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeInvalidEdgeReference, result.Errors[0].Code)
	})

	t.Run("cycle stops before orphan reporting", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b"), node("lonely")},
			[]models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
		)
		result := Validate(w, Options{})
		require.False(t, result.Valid)
		for _, err := range result.Errors {
			assert.NotEqual(t, models.CodeOrphanNode, err.Code)
		}
	})

	t.Run("errors accumulate across compatible rules", func(t *testing.T) {
		// Duplicate edges and a missing entry node coexist in one report.
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "a", "b"),
				edge("e3", "b", "a"),
			},
		)
		result := Validate(w, Options{})
		require.False(t, result.Valid)

		codes := make(map[models.ValidationCode]int)
		for _, err := range result.Errors {
			codes[err.Code]++
		}
		assert.Equal(t, 1, codes[models.CodeDuplicateEdge])
		assert.Equal(t, 1, codes[models.CodeNoEntryNode])
	})

	t.Run("fail fast returns after the first failing rule", func(t *testing.T) {
		w := workflow(
			[]models.Node{node("a"), node("b")},
			[]models.Edge{
				edge("e1", "a", "b"),
				edge("e2", "a", "b"),
				edge("e3", "b", "a"),
			},
		)
		result := Validate(w, Options{FailFast: true})
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeDuplicateEdge, result.Errors[0].Code)
	})

	t.Run("semantic rules require a registry", func(t *testing.T) {
		// Mismatched types validate structurally without a registry.
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "count", "c", "text")},
		)
		assert.True(t, Validate(w, Options{}).Valid)

		result := Validate(w, Options{Registry: testRegistry()})
		require.False(t, result.Valid)
		assert.Equal(t, models.CodeTypeMismatch, result.Errors[0].Code)
	})

	t.Run("structural and semantic errors accumulate", func(t *testing.T) {
		w := workflow(
			[]models.Node{
				agentNode("p", "producer"),
				agentNode("c", "consumer"),
				node("lonely"),
			},
			[]models.Edge{typedEdge("e1", "p", "count", "c", "text")},
		)
		result := Validate(w, Options{Registry: testRegistry()})
		require.False(t, result.Valid)

		codes := make(map[models.ValidationCode]bool)
		for _, err := range result.Errors {
			codes[err.Code] = true
		}
		assert.True(t, codes[models.CodeOrphanNode])
		assert.True(t, codes[models.CodeTypeMismatch])
	})
}

func TestValidateIsPure(t *testing.T) {
	w := workflow(
		[]models.Node{node("a"), node("b")},
		[]models.Edge{edge("e1", "a", "b")},
	)
	before := len(w.Nodes) + len(w.Edges)

	first := Validate(w, Options{})
	second := Validate(w, Options{})

	assert.Equal(t, first, second)
	assert.Equal(t, before, len(w.Nodes)+len(w.Edges))
}
