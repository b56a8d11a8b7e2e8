package websocket

import (
	"encoding/json"
	"sync"

	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Hub fans execution events out to subscribed clients. Each client has a
// bounded outbox; what happens on overflow depends on the event:
//
//   - LOG_EMITTED is droppable and is silently discarded for that client.
//   - Everything else is load-bearing for the client's state machine, so the
//     client gets an ERROR{overflow} and is disconnected rather than fed a
//     stream with holes in it.
type Hub struct {
	clients   map[*Client]bool
	execConns map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		execConns:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			metrics.WebSocketConnectionsActive.Inc()
			log.Debug().
				Str("user_id", client.UserID.String()).
				Str("connection_id", client.ConnectionID).
				Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	for executionID, conns := range h.execConns {
		if conns[client] {
			delete(conns, client)
			metrics.WebSocketSubscriptionsActive.Dec()
			if len(conns) == 0 {
				delete(h.execConns, executionID)
			}
		}
	}

	metrics.WebSocketConnectionsActive.Dec()
	log.Debug().
		Str("user_id", client.UserID.String()).
		Str("connection_id", client.ConnectionID).
		Msg("WebSocket client disconnected")
}

// Subscribe adds the client to an execution's stream. Idempotent.
func (h *Hub) Subscribe(client *Client, executionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.execConns[executionID]; !ok {
		h.execConns[executionID] = make(map[*Client]bool)
	}
	if !h.execConns[executionID][client] {
		h.execConns[executionID][client] = true
		metrics.WebSocketSubscriptionsActive.Inc()
	}
}

// Unsubscribe removes the client from an execution's stream. Idempotent.
func (h *Hub) Unsubscribe(client *Client, executionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.execConns[executionID]; ok {
		if conns[client] {
			delete(conns, client)
			metrics.WebSocketSubscriptionsActive.Dec()
		}
		if len(conns) == 0 {
			delete(h.execConns, executionID)
		}
	}
}

// BroadcastEvent delivers one event to every subscriber of its execution.
func (h *Hub) BroadcastEvent(ev realtime.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := h.execConns[ev.ExecutionID]
	subscribers := make([]*Client, 0, len(conns))
	for client := range conns {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	for _, client := range subscribers {
		select {
		case client.Send <- data:
		default:
			h.handleOverflow(client, ev)
		}
	}
}

func (h *Hub) handleOverflow(client *Client, ev realtime.Event) {
	metrics.WebSocketEventsDroppedTotal.WithLabelValues(string(ev.Kind)).Inc()

	if ev.Kind == realtime.KindLogEmitted {
		return
	}

	// The client missed an event it cannot recover from; tell it why and
	// drop the connection so it reconnects and refetches state.
	errEvent := realtime.ProtocolError(ev.ExecutionID, realtime.ErrCodeOverflow, "event stream overflow, reconnect and refetch state")
	if data, err := json.Marshal(errEvent); err == nil {
		select {
		case client.Send <- data:
		default:
		}
	}

	log.Warn().
		Str("connection_id", client.ConnectionID).
		Str("execution_id", ev.ExecutionID).
		Str("event", string(ev.Kind)).
		Msg("Disconnecting slow WebSocket client")

	h.removeClient(client)
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount(executionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.execConns[executionID])
}
