package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventChannel(t *testing.T) {
	assert.Equal(t, "execution:abc:events", EventChannel("abc"))
}

func TestEventWireShape(t *testing.T) {
	ev := NodeRunning("exec-1", "writer", 2)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "NODE_RUNNING", decoded["event"])
	assert.Equal(t, "exec-1", decoded["executionId"])
	assert.NotEmpty(t, decoded["timestamp"])

	payload, ok := decoded["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "writer", payload["nodeId"])
	assert.Equal(t, float64(2), payload["retryCount"])
}

func TestEventWithoutPayloadOmitsField(t *testing.T) {
	data, err := json.Marshal(ExecutionCompleted("exec-1"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	_, present := decoded["payload"]
	assert.False(t, present)
}

func TestEventNodeIDExtraction(t *testing.T) {
	ev := NodeCompleted("exec-1", "writer")
	nodeID, ok := ev.NodeID()
	require.True(t, ok)
	assert.Equal(t, "writer", string(nodeID))

	_, ok = ExecutionCompleted("exec-1").NodeID()
	assert.False(t, ok)
}
