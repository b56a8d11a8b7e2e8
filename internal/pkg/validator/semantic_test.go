package validator

import (
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentNode(id, agentID string) models.Node {
	return models.Node{
		ID:     models.NodeID(id),
		Type:   models.NodeTypeAgent,
		Label:  id,
		Config: models.NodeConfig{AgentID: models.AgentID(agentID)},
	}
}

func testRegistry() RegistryMap {
	return RegistryMap{
		"producer": &models.AgentDefinition{
			ID: "producer",
			OutputSchema: models.PortSchemaList{
				{Name: "text", Type: models.DataTypeString},
				{Name: "count", Type: models.DataTypeNumber},
			},
		},
		"consumer": &models.AgentDefinition{
			ID: "consumer",
			InputSchema: models.PortSchemaList{
				{Name: "text", Type: models.DataTypeString, Required: true},
				{Name: "context", Type: models.DataTypeString, Required: false},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "result", Type: models.DataTypeString},
			},
		},
	}
}

func typedEdge(id, source, sourcePort, target, targetPort string) models.Edge {
	return models.Edge{
		ID:         models.EdgeID(id),
		Source:     models.NodeID(source),
		SourcePort: models.PortID(sourcePort),
		Target:     models.NodeID(target),
		TargetPort: models.PortID(targetPort),
	}
}

func TestValidateTypeCompatibility(t *testing.T) {
	registry := testRegistry()

	t.Run("matching types", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "text", "c", "text")},
		)
		assert.True(t, ValidateTypeCompatibility(w, registry).Valid)
	})

	t.Run("number into string is a mismatch", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "count", "c", "text")},
		)
		result := ValidateTypeCompatibility(w, registry)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeTypeMismatch, result.Errors[0].Code)
		assert.Equal(t, []models.EdgeID{"e1"}, result.Errors[0].EdgeIDs)
	})

	t.Run("unknown agent is a mismatch", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "no-such-agent"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "text", "c", "text")},
		)
		result := ValidateTypeCompatibility(w, registry)
		require.False(t, result.Valid)
		assert.Equal(t, models.CodeTypeMismatch, result.Errors[0].Code)
	})

	t.Run("unknown port is a mismatch", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "no-such-port", "c", "text")},
		)
		result := ValidateTypeCompatibility(w, registry)
		require.False(t, result.Valid)
		assert.Equal(t, models.CodeTypeMismatch, result.Errors[0].Code)
	})

	t.Run("edges touching non-agent nodes are skipped", func(t *testing.T) {
		input := models.Node{ID: "in", Type: models.NodeTypeInput}
		w := workflow(
			[]models.Node{input, agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "in", "value", "c", "text")},
		)
		assert.True(t, ValidateTypeCompatibility(w, registry).Valid)
	})
}

func TestValidateRequiredInputs(t *testing.T) {
	registry := testRegistry()

	t.Run("wired required input", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "text", "c", "text")},
		)
		assert.True(t, ValidateRequiredInputs(w, registry).Valid)
	})

	t.Run("missing required input", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "text", "c", "context")},
		)
		result := ValidateRequiredInputs(w, registry)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, models.CodeMissingRequiredInput, result.Errors[0].Code)
		assert.Equal(t, []models.NodeID{"c"}, result.Errors[0].NodeIDs)
	})

	t.Run("optional inputs may stay unwired", func(t *testing.T) {
		w := workflow(
			[]models.Node{agentNode("p", "producer"), agentNode("c", "consumer")},
			[]models.Edge{typedEdge("e1", "p", "text", "c", "text")},
		)
		assert.True(t, ValidateRequiredInputs(w, registry).Valid)
	})
}
