package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExecID = "11111111-1111-1111-1111-111111111111"

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		Hub:          hub,
		Send:         make(chan []byte, buffer),
		ConnectionID: uuid.New().String(),
		UserID:       uuid.New(),
		TenantID:     uuid.New(),
		Role:         "writer",
	}
}

func registerClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	before := hub.ConnectionCount()
	hub.Register(client)
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == before+1
	}, time.Second, 5*time.Millisecond)
}

func TestHubSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 8)
	registerClient(t, hub, client)

	hub.Subscribe(client, testExecID)
	hub.Subscribe(client, testExecID)

	assert.Equal(t, 1, hub.SubscriberCount(testExecID))

	hub.Unsubscribe(client, testExecID)
	hub.Unsubscribe(client, testExecID)

	assert.Equal(t, 0, hub.SubscriberCount(testExecID))
}

func TestHubBroadcastDeliversToSubscribersOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscribed := newTestClient(hub, 8)
	other := newTestClient(hub, 8)
	registerClient(t, hub, subscribed)
	registerClient(t, hub, other)

	hub.Subscribe(subscribed, testExecID)

	ev := realtime.NodeCompleted(testExecID, "a")
	hub.BroadcastEvent(ev)

	select {
	case data := <-subscribed.Send:
		var got realtime.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, realtime.KindNodeCompleted, got.Kind)
		assert.Equal(t, testExecID, got.ExecutionID)
	case <-time.After(time.Second):
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-other.Send:
		t.Fatal("unsubscribed client received an event")
	default:
	}
}

func TestHubOverflowDropsLogEventsSilently(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 1)
	registerClient(t, hub, client)
	hub.Subscribe(client, testExecID)

	// Fill the outbox, then push a droppable event.
	hub.BroadcastEvent(realtime.NodeCompleted(testExecID, "a"))
	hub.BroadcastEvent(realtime.LogEmitted(testExecID, "a", realtime.LogLevelInfo, "noise"))

	// Still connected and subscribed; only the log line was lost.
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Equal(t, 1, hub.SubscriberCount(testExecID))
}

func TestHubOverflowDisconnectsOnLoadBearingEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 1)
	registerClient(t, hub, client)
	hub.Subscribe(client, testExecID)

	hub.BroadcastEvent(realtime.NodeCompleted(testExecID, "a"))
	// A second state event overflows the outbox; the client cannot be
	// allowed to miss it, so it is dropped from the hub.
	hub.BroadcastEvent(realtime.NodeFailed(testExecID, "b", "boom"))

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.SubscriberCount(testExecID))
}

func TestHubUnregisterCleansSubscriptions(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 8)
	registerClient(t, hub, client)
	hub.Subscribe(client, testExecID)

	hub.Unregister(client)
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, hub.SubscriberCount(testExecID))

	// The outbox is closed so the write pump can exit.
	_, open := <-client.Send
	assert.False(t, open)
}
