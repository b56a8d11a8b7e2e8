package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	// sendBufferSize bounds the per-client outbox. See Hub for the overflow
	// policy.
	sendBufferSize = 256
)

// SubscriptionAuthorizer decides whether a client may subscribe to an
// execution's stream.
type SubscriptionAuthorizer interface {
	// Authorize returns a protocol error code (unknown_execution,
	// unauthorized) or "" when the subscription is allowed.
	Authorize(ctx context.Context, executionID string, tenantID uuid.UUID) string
}

type Client struct {
	Hub          *Hub
	Conn         *websocket.Conn
	Send         chan []byte
	ConnectionID string
	UserID       uuid.UUID
	TenantID     uuid.UUID
	Role         string

	authorizer SubscriptionAuthorizer
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, tenantID uuid.UUID, role string, authorizer SubscriptionAuthorizer) *Client {
	return &Client{
		Hub:          hub,
		Conn:         conn,
		Send:         make(chan []byte, sendBufferSize),
		ConnectionID: uuid.New().String(),
		UserID:       userID,
		TenantID:     tenantID,
		Role:         role,
		authorizer:   authorizer,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame; clients parse each frame as a single
			// JSON event record.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg realtime.ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendEvent(realtime.ProtocolError("", realtime.ErrCodeMalformed, "invalid message"))
		return
	}

	switch msg.Action {
	case realtime.ActionSubscribe:
		if msg.ExecutionID == "" {
			c.sendEvent(realtime.ProtocolError("", realtime.ErrCodeMalformed, "executionId is required"))
			return
		}
		if c.authorizer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			code := c.authorizer.Authorize(ctx, msg.ExecutionID, c.TenantID)
			cancel()
			if code != "" {
				c.sendEvent(realtime.ProtocolError(msg.ExecutionID, code, "subscription rejected"))
				return
			}
		}
		c.Hub.Subscribe(c, msg.ExecutionID)
		c.sendEvent(realtime.Ack(msg.ExecutionID, realtime.ActionSubscribe))

	case realtime.ActionUnsubscribe:
		if msg.ExecutionID == "" {
			c.sendEvent(realtime.ProtocolError("", realtime.ErrCodeMalformed, "executionId is required"))
			return
		}
		c.Hub.Unsubscribe(c, msg.ExecutionID)
		c.sendEvent(realtime.Ack(msg.ExecutionID, realtime.ActionUnsubscribe))

	default:
		c.sendEvent(realtime.ProtocolError("", realtime.ErrCodeMalformed, "unknown action"))
	}
}

func (c *Client) sendEvent(ev realtime.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
