package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const execID = "3f1d9a2e-0000-0000-0000-000000000001"

func TestReducerHappyPath(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionStarted(execID))
	r.Apply(NodeQueued(execID, "a"))
	r.Apply(NodeRunning(execID, "a", 0))
	r.Apply(NodeCompleted(execID, "a"))
	r.Apply(NodeQueued(execID, "b"))
	r.Apply(NodeRunning(execID, "b", 0))
	r.Apply(NodeCompleted(execID, "b"))
	r.Apply(ExecutionCompleted(execID))

	view := r.View()
	assert.Equal(t, models.ExecutionStatusCompleted, view.ExecutionStatus)
	require.Len(t, view.NodeStates, 2)
	assert.Equal(t, models.NodeStatusCompleted, view.NodeStates["a"].Status)
	assert.Equal(t, models.NodeStatusCompleted, view.NodeStates["b"].Status)
	assert.NotNil(t, view.NodeStates["a"].StartedAt)
	assert.NotNil(t, view.NodeStates["a"].CompletedAt)
	assert.Empty(t, view.UnknownKinds)
}

func TestReducerFailureAndSkip(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionStarted(execID))
	r.Apply(NodeQueued(execID, "a"))
	r.Apply(NodeRunning(execID, "a", 0))
	r.Apply(NodeFailed(execID, "a", "boom"))
	r.Apply(NodeSkipped(execID, "b", "upstream node a did not complete"))
	r.Apply(ExecutionFailed(execID))

	view := r.View()
	assert.Equal(t, models.ExecutionStatusFailed, view.ExecutionStatus)
	assert.Equal(t, models.NodeStatusFailed, view.NodeStates["a"].Status)
	assert.Equal(t, "boom", view.NodeStates["a"].Error)
	assert.Equal(t, models.NodeStatusSkipped, view.NodeStates["b"].Status)
}

func TestReducerDuplicateTerminalEventsAreIdempotent(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionStarted(execID))
	r.Apply(ExecutionCompleted(execID))
	r.Apply(ExecutionCompleted(execID))
	r.Apply(ExecutionFailed(execID))
	r.Apply(ExecutionCancelled(execID))

	assert.Equal(t, models.ExecutionStatusCompleted, r.View().ExecutionStatus)
}

func TestReducerStartedAfterTerminalIsDropped(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionCancelled(execID))
	r.Apply(ExecutionStarted(execID))

	assert.Equal(t, models.ExecutionStatusCancelled, r.View().ExecutionStatus)
}

func TestReducerCacheHitCompletesFromAnyNonTerminalState(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *Reducer)
	}{
		{"from unseen", func(r *Reducer) {}},
		{"from queued", func(r *Reducer) {
			r.Apply(NodeQueued(execID, "a"))
		}},
		{"from running", func(r *Reducer) {
			r.Apply(NodeQueued(execID, "a"))
			r.Apply(NodeRunning(execID, "a", 0))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReducer(0)
			tc.setup(r)
			r.Apply(NodeCacheHit(execID, "a"))
			assert.Equal(t, models.NodeStatusCompleted, r.View().NodeStates["a"].Status)
		})
	}

	t.Run("not from failed", func(t *testing.T) {
		r := NewReducer(0)
		r.Apply(NodeQueued(execID, "a"))
		r.Apply(NodeRunning(execID, "a", 0))
		r.Apply(NodeFailed(execID, "a", "boom"))
		r.Apply(NodeCacheHit(execID, "a"))
		assert.Equal(t, models.NodeStatusFailed, r.View().NodeStates["a"].Status)
	})
}

func TestReducerOutputReusedCompletesNode(t *testing.T) {
	r := NewReducer(0)
	parentID := "3f1d9a2e-0000-0000-0000-000000000002"

	r.Apply(ExecutionStarted(execID))
	r.Apply(ResumeStart(execID, parentID, "c", 2, 3))
	r.Apply(NodeOutputReused(execID, "a", parentID))
	r.Apply(NodeOutputReused(execID, "b", parentID))

	view := r.View()
	assert.Equal(t, models.NodeStatusCompleted, view.NodeStates["a"].Status)
	assert.Equal(t, models.NodeStatusCompleted, view.NodeStates["b"].Status)
	assert.Equal(t, models.ExecutionStatusRunning, view.ExecutionStatus)
}

func TestReducerResumeCompleteSetsStatus(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionStarted(execID))
	r.Apply(ResumeComplete(execID, models.ExecutionStatusCompleted))

	assert.Equal(t, models.ExecutionStatusCompleted, r.View().ExecutionStatus)
}

func TestReducerForbiddenTransitionsAreDropped(t *testing.T) {
	t.Run("completed without running", func(t *testing.T) {
		r := NewReducer(0)
		r.Apply(NodeQueued(execID, "a"))
		r.Apply(NodeCompleted(execID, "a"))
		assert.Equal(t, models.NodeStatusQueued, r.View().NodeStates["a"].Status)
	})

	t.Run("failed without running", func(t *testing.T) {
		r := NewReducer(0)
		r.Apply(NodeQueued(execID, "a"))
		r.Apply(NodeFailed(execID, "a", "boom"))
		assert.Equal(t, models.NodeStatusQueued, r.View().NodeStates["a"].Status)
	})

	t.Run("running after failed", func(t *testing.T) {
		r := NewReducer(0)
		r.Apply(NodeQueued(execID, "a"))
		r.Apply(NodeRunning(execID, "a", 0))
		r.Apply(NodeFailed(execID, "a", "boom"))
		r.Apply(NodeRunning(execID, "a", 1))
		assert.Equal(t, models.NodeStatusFailed, r.View().NodeStates["a"].Status)
		assert.Equal(t, 0, r.View().NodeStates["a"].RetryCount)
	})

	t.Run("skip after running", func(t *testing.T) {
		r := NewReducer(0)
		r.Apply(NodeQueued(execID, "a"))
		r.Apply(NodeRunning(execID, "a", 0))
		r.Apply(NodeSkipped(execID, "a", "nope"))
		assert.Equal(t, models.NodeStatusRunning, r.View().NodeStates["a"].Status)
	})
}

func TestReducerUnknownKindsAreRecorded(t *testing.T) {
	r := NewReducer(0)

	r.Apply(Event{Kind: "NODE_TELEPORTED", ExecutionID: execID})
	r.Apply(ExecutionStarted(execID))

	view := r.View()
	assert.Equal(t, []EventKind{"NODE_TELEPORTED"}, view.UnknownKinds)
	assert.Equal(t, models.ExecutionStatusRunning, view.ExecutionStatus)
}

func TestReducerLogRingBuffer(t *testing.T) {
	r := NewReducer(3)

	for i := 0; i < 5; i++ {
		r.Apply(LogEmitted(execID, "a", LogLevelInfo, fmt.Sprintf("line %d", i)))
	}

	logs := r.View().Logs
	require.Len(t, logs, 3)
	assert.Equal(t, "line 2", logs[0].Message)
	assert.Equal(t, "line 4", logs[2].Message)
}

func TestReducerRetryUpdatesRunningNode(t *testing.T) {
	r := NewReducer(0)

	r.Apply(ExecutionStarted(execID))
	r.Apply(NodeQueued(execID, "a"))
	r.Apply(NodeRunning(execID, "a", 0))
	firstStart := *r.View().NodeStates["a"].StartedAt

	// Retries re-announce RUNNING with the attempt number.
	r.Apply(NodeRunning(execID, "a", 1))
	r.Apply(NodeRunning(execID, "a", 2))

	state := r.View().NodeStates["a"]
	assert.Equal(t, models.NodeStatusRunning, state.Status)
	assert.Equal(t, 2, state.RetryCount)
	// startedAt is set by the first RUNNING only.
	assert.Equal(t, firstStart, *state.StartedAt)
}

func TestReducerRetryCountFromDecodedStream(t *testing.T) {
	r := NewReducer(0)

	apply := func(ev Event) {
		data, err := json.Marshal(ev)
		require.NoError(t, err)
		var decoded Event
		require.NoError(t, json.Unmarshal(data, &decoded))
		r.Apply(decoded)
	}

	apply(NodeQueued(execID, "a"))
	apply(NodeRunning(execID, "a", 0))
	apply(NodeRunning(execID, "a", 1))

	assert.Equal(t, 1, r.View().NodeStates["a"].RetryCount)
}
