// Package realtime defines the execution event contract shared by the
// execution engine (producer) and clients (consumers): event kinds, payload
// shapes, the subscribe protocol, and the client-side reducer.
//
// Transport is out of scope here; the engine publishes events on the redis
// channel returned by EventChannel and the websocket hub fans them out.
package realtime

import (
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
)

// EventKind is the closed vocabulary of server-to-client events.
type EventKind string

const (
	KindConnected EventKind = "CONNECTED"

	KindExecutionStarted   EventKind = "EXECUTION_STARTED"
	KindExecutionCompleted EventKind = "EXECUTION_COMPLETED"
	KindExecutionFailed    EventKind = "EXECUTION_FAILED"
	KindExecutionCancelled EventKind = "EXECUTION_CANCELLED"

	KindNodeQueued    EventKind = "NODE_QUEUED"
	KindNodeRunning   EventKind = "NODE_RUNNING"
	KindNodeCompleted EventKind = "NODE_COMPLETED"
	KindNodeFailed    EventKind = "NODE_FAILED"
	KindNodeSkipped   EventKind = "NODE_SKIPPED"
	KindNodeCacheHit  EventKind = "NODE_CACHE_HIT"

	KindLogEmitted EventKind = "LOG_EMITTED"

	KindResumeStart      EventKind = "RESUME_START"
	KindNodeOutputReused EventKind = "NODE_OUTPUT_REUSED"
	KindResumeComplete   EventKind = "RESUME_COMPLETE"

	KindAck   EventKind = "ACK"
	KindError EventKind = "ERROR"
)

// Protocol-level error codes carried by ERROR events.
const (
	ErrCodeOverflow         = "overflow"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeUnknownExecution = "unknown_execution"
	ErrCodeMalformed        = "malformed"
)

// Log levels carried by LOG_EMITTED events.
const (
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Event is the wire record: UTF-8 JSON with event, executionId, timestamp
// (ISO-8601 UTC) and a kind-specific payload.
type Event struct {
	Kind        EventKind              `json:"event"`
	ExecutionID string                 `json:"executionId"`
	Timestamp   time.Time              `json:"timestamp"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// ClientMessage is what clients send: subscribe/unsubscribe for an
// execution's stream. Both actions are idempotent.
type ClientMessage struct {
	Action      string `json:"action"`
	ExecutionID string `json:"executionId"`
}

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// EventChannel is the redis pub/sub channel carrying one execution's events.
func EventChannel(executionID string) string {
	return "execution:" + executionID + ":events"
}

// EventChannelPattern matches every execution's event channel.
const EventChannelPattern = "execution:*:events"

func newEvent(kind EventKind, executionID string, payload map[string]interface{}) Event {
	return Event{
		Kind:        kind,
		ExecutionID: executionID,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

func ExecutionStarted(executionID string) Event {
	return newEvent(KindExecutionStarted, executionID, nil)
}

func ExecutionCompleted(executionID string) Event {
	return newEvent(KindExecutionCompleted, executionID, nil)
}

func ExecutionFailed(executionID string) Event {
	return newEvent(KindExecutionFailed, executionID, nil)
}

func ExecutionCancelled(executionID string) Event {
	return newEvent(KindExecutionCancelled, executionID, nil)
}

func NodeQueued(executionID string, nodeID models.NodeID) Event {
	return newEvent(KindNodeQueued, executionID, map[string]interface{}{
		"nodeId": string(nodeID),
	})
}

func NodeRunning(executionID string, nodeID models.NodeID, retryCount int) Event {
	return newEvent(KindNodeRunning, executionID, map[string]interface{}{
		"nodeId":     string(nodeID),
		"retryCount": retryCount,
	})
}

func NodeCompleted(executionID string, nodeID models.NodeID) Event {
	return newEvent(KindNodeCompleted, executionID, map[string]interface{}{
		"nodeId": string(nodeID),
	})
}

func NodeFailed(executionID string, nodeID models.NodeID, errMsg string) Event {
	return newEvent(KindNodeFailed, executionID, map[string]interface{}{
		"nodeId": string(nodeID),
		"error":  errMsg,
	})
}

func NodeSkipped(executionID string, nodeID models.NodeID, reason string) Event {
	return newEvent(KindNodeSkipped, executionID, map[string]interface{}{
		"nodeId": string(nodeID),
		"reason": reason,
	})
}

func NodeCacheHit(executionID string, nodeID models.NodeID) Event {
	return newEvent(KindNodeCacheHit, executionID, map[string]interface{}{
		"nodeId": string(nodeID),
	})
}

func LogEmitted(executionID string, nodeID models.NodeID, level, message string) Event {
	return newEvent(KindLogEmitted, executionID, map[string]interface{}{
		"nodeId":  string(nodeID),
		"level":   level,
		"message": message,
	})
}

func ResumeStart(executionID, parentExecutionID string, resumedFrom models.NodeID, skippedCount, rerunCount int) Event {
	return newEvent(KindResumeStart, executionID, map[string]interface{}{
		"parentExecutionId": parentExecutionID,
		"resumedFromNodeId": string(resumedFrom),
		"skippedCount":      skippedCount,
		"rerunCount":        rerunCount,
	})
}

func NodeOutputReused(executionID string, nodeID models.NodeID, sourceExecutionID string) Event {
	return newEvent(KindNodeOutputReused, executionID, map[string]interface{}{
		"nodeId":            string(nodeID),
		"sourceExecutionId": sourceExecutionID,
	})
}

func ResumeComplete(executionID string, status models.ExecutionStatus) Event {
	return newEvent(KindResumeComplete, executionID, map[string]interface{}{
		"status": string(status),
	})
}

func Ack(executionID, action string) Event {
	return newEvent(KindAck, executionID, map[string]interface{}{
		"action": action,
	})
}

func ProtocolError(executionID, code, message string) Event {
	return newEvent(KindError, executionID, map[string]interface{}{
		"code":    code,
		"message": message,
	})
}

func Connected(connectionID, userID, tenantID, role string) Event {
	return newEvent(KindConnected, "", map[string]interface{}{
		"connectionId": connectionID,
		"userId":       userID,
		"tenantId":     tenantID,
		"role":         role,
	})
}

// NodeID extracts the payload's nodeId, if present.
func (e Event) NodeID() (models.NodeID, bool) {
	raw, ok := e.Payload["nodeId"]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return models.NodeID(s), ok
}
