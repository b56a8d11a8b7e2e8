package worker

import (
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunToolNode(t *testing.T) {
	t.Run("evaluates expression over inputs", func(t *testing.T) {
		n := &models.Node{
			ID:   "calc",
			Type: models.NodeTypeTool,
			Config: models.NodeConfig{
				Parameters: models.JSON{"expression": "a + b"},
			},
		}
		out, err := runToolNode(n, models.JSON{"a": 2, "b": 3})
		require.NoError(t, err)
		assert.Equal(t, 5, out["result"])
	})

	t.Run("string operations", func(t *testing.T) {
		n := &models.Node{
			ID:   "upper",
			Type: models.NodeTypeTool,
			Config: models.NodeConfig{
				Parameters: models.JSON{"expression": `upper(text)`},
			},
		}
		out, err := runToolNode(n, models.JSON{"text": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "HELLO", out["result"])
	})

	t.Run("no expression passes inputs through", func(t *testing.T) {
		n := &models.Node{ID: "noop", Type: models.NodeTypeTool}
		out, err := runToolNode(n, models.JSON{"x": 1})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"x": 1}, out["result"])
	})

	t.Run("non-string expression is an error", func(t *testing.T) {
		n := &models.Node{
			ID:   "bad",
			Type: models.NodeTypeTool,
			Config: models.NodeConfig{
				Parameters: models.JSON{"expression": 42},
			},
		}
		_, err := runToolNode(n, models.JSON{})
		assert.Error(t, err)
	})

	t.Run("compile error is reported", func(t *testing.T) {
		n := &models.Node{
			ID:   "broken",
			Type: models.NodeTypeTool,
			Config: models.NodeConfig{
				Parameters: models.JSON{"expression": "a +"},
			},
		}
		_, err := runToolNode(n, models.JSON{"a": 1})
		assert.Error(t, err)
	})
}

func TestRunAgentNode(t *testing.T) {
	def := &models.AgentDefinition{
		ID:   "llm.writer",
		Name: "Writer",
		OutputSchema: models.PortSchemaList{
			{Name: "text", Type: models.DataTypeString},
			{Name: "score", Type: models.DataTypeNumber},
			{Name: "ok", Type: models.DataTypeBoolean},
			{Name: "meta", Type: models.DataTypeObject},
			{Name: "chunks", Type: models.DataTypeArray},
		},
	}
	n := &models.Node{ID: "writer", Type: models.NodeTypeAgent, Config: models.NodeConfig{AgentID: def.ID}}

	t.Run("one value per output port", func(t *testing.T) {
		out, err := runAgentNode(n, def, models.JSON{"prompt": "hi"})
		require.NoError(t, err)
		require.Len(t, out, len(def.OutputSchema))
		assert.IsType(t, "", out["text"])
		assert.IsType(t, float64(0), out["score"])
		assert.Equal(t, true, out["ok"])
		assert.IsType(t, map[string]interface{}{}, out["meta"])
		assert.IsType(t, []interface{}{}, out["chunks"])
	})

	t.Run("deterministic over equal inputs", func(t *testing.T) {
		first, err := runAgentNode(n, def, models.JSON{"prompt": "hi", "context": "x"})
		require.NoError(t, err)
		second, err := runAgentNode(n, def, models.JSON{"context": "x", "prompt": "hi"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("different inputs produce different text", func(t *testing.T) {
		first, err := runAgentNode(n, def, models.JSON{"prompt": "hi"})
		require.NoError(t, err)
		second, err := runAgentNode(n, def, models.JSON{"prompt": "bye"})
		require.NoError(t, err)
		assert.NotEqual(t, first["text"], second["text"])
	})

	t.Run("missing definition", func(t *testing.T) {
		_, err := runAgentNode(n, nil, models.JSON{})
		assert.Error(t, err)
	})

	t.Run("forced failure", func(t *testing.T) {
		failing := &models.Node{
			ID:   "writer",
			Type: models.NodeTypeAgent,
			Config: models.NodeConfig{
				AgentID:    def.ID,
				Parameters: models.JSON{"simulateFailure": "rate limited"},
			},
		}
		_, err := runAgentNode(failing, def, models.JSON{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}
