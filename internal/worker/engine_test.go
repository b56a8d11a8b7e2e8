package worker

import (
	"testing"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestGroupByLevel(t *testing.T) {
	order := []models.NodeID{"a", "b", "c", "d"}
	levels := map[models.NodeID]int{"a": 0, "b": 1, "c": 1, "d": 2}

	buckets := groupByLevel(order, levels)

	assert.Equal(t, [][]models.NodeID{
		{"a"},
		{"b", "c"},
		{"d"},
	}, buckets)
}

func TestBackoffDelay(t *testing.T) {
	policy := models.RetryPolicy{MaxRetries: 3, BackoffMs: 100, BackoffMultiplier: 2.0}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 0))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(policy, 2))

	t.Run("zero policy falls back to sane defaults", func(t *testing.T) {
		delay := backoffDelay(models.RetryPolicy{}, 3)
		assert.Equal(t, 100*time.Millisecond, delay)
	})
}

func TestRetryPolicyFor(t *testing.T) {
	agentPolicy := models.RetryPolicy{MaxRetries: 5, BackoffMs: 500, BackoffMultiplier: 2.0}
	def := &models.AgentDefinition{ID: "x", RetryPolicy: agentPolicy}

	assert.Equal(t, agentPolicy, retryPolicyFor(&models.Node{Type: models.NodeTypeAgent}, def))
	assert.Equal(t, models.DefaultRetryPolicy, retryPolicyFor(&models.Node{Type: models.NodeTypeTool}, nil))
	assert.Equal(t, models.RetryPolicy{}, retryPolicyFor(&models.Node{Type: models.NodeTypeInput}, nil))
	assert.Equal(t, models.RetryPolicy{}, retryPolicyFor(&models.Node{Type: models.NodeTypeOutput}, nil))
}

func TestOutputAsJSON(t *testing.T) {
	assert.Equal(t, models.JSON{"a": 1}, outputAsJSON(models.JSON{"a": 1}))
	assert.Equal(t, models.JSON{"a": 1}, outputAsJSON(map[string]interface{}{"a": 1}))
	assert.Equal(t, models.JSON{"value": "scalar"}, outputAsJSON("scalar"))
}

func TestResolveInputs(t *testing.T) {
	graph := &models.Workflow{
		Nodes: []models.Node{
			{ID: "src1", Type: models.NodeTypeTool},
			{ID: "src2", Type: models.NodeTypeTool},
			{ID: "dst", Type: models.NodeTypeTool},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "src1", SourcePort: "result", Target: "dst", TargetPort: "left"},
			{ID: "e2", Source: "src2", SourcePort: "result", Target: "dst", TargetPort: "right"},
			{ID: "e3", Source: "src2", SourcePort: "missing", Target: "dst", TargetPort: "gone"},
		},
	}

	rs := &runState{
		graph:   graph,
		nodeMap: graph.NodeMap(),
		edges:   graph.EdgeMap(),
		incoming: map[models.NodeID][]models.EdgeID{
			"dst": {"e1", "e2", "e3"},
		},
		outputs: map[models.NodeID]models.JSON{
			"src1": {"result": "left value"},
			"src2": {"result": float64(7)},
		},
	}

	inputs := rs.resolveInputs("dst")

	assert.Equal(t, models.JSON{
		"left":  "left value",
		"right": float64(7),
	}, inputs)
}

func TestUpstreamBlocked(t *testing.T) {
	graph := &models.Workflow{
		Nodes: []models.Node{
			{ID: "a", Type: models.NodeTypeTool},
			{ID: "b", Type: models.NodeTypeTool},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "a", SourcePort: "result", Target: "b", TargetPort: "in"},
		},
	}

	newState := func(status models.NodeExecutionStatus) *runState {
		return &runState{
			graph:    graph,
			nodeMap:  graph.NodeMap(),
			edges:    graph.EdgeMap(),
			incoming: map[models.NodeID][]models.EdgeID{"b": {"e1"}},
			states: map[models.NodeID]*models.NodeExecutionState{
				"a": {NodeID: "a", Status: status},
				"b": {NodeID: "b", Status: models.NodeStatusPending},
			},
		}
	}

	e := &Engine{}

	_, blocked := e.upstreamBlocked(newState(models.NodeStatusCompleted), "b")
	assert.False(t, blocked)

	reason, blocked := e.upstreamBlocked(newState(models.NodeStatusFailed), "b")
	assert.True(t, blocked)
	assert.Contains(t, reason, "a")

	_, blocked = e.upstreamBlocked(newState(models.NodeStatusSkipped), "b")
	assert.True(t, blocked)
}
