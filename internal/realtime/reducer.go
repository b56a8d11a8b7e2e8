package realtime

import (
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
)

// LogEntry is one LOG_EMITTED line kept in the view's ring buffer.
type LogEntry struct {
	NodeID    models.NodeID `json:"nodeId"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// View is the live per-execution projection a client maintains by reducing
// events in receive order.
type View struct {
	ExecutionStatus models.ExecutionStatus
	NodeStates      map[models.NodeID]*models.NodeExecutionState
	Logs            []LogEntry
	UnknownKinds    []EventKind
}

// Reducer folds a single execution's event stream into a View. It is total:
// unknown event kinds are recorded and ignored, duplicate terminal events
// are idempotent, and transitions that the node state machine forbids are
// dropped. Single-threaded per execution; callers drain each event fully
// before the next.
type Reducer struct {
	view    View
	maxLogs int
}

// NewReducer creates a reducer keeping at most maxLogs recent log entries.
func NewReducer(maxLogs int) *Reducer {
	if maxLogs <= 0 {
		maxLogs = 200
	}
	return &Reducer{
		view: View{
			ExecutionStatus: models.ExecutionStatusPending,
			NodeStates:      make(map[models.NodeID]*models.NodeExecutionState),
		},
		maxLogs: maxLogs,
	}
}

// View returns the current projection. The reducer retains ownership.
func (r *Reducer) View() *View {
	return &r.view
}

// Apply reduces one event into the view.
func (r *Reducer) Apply(ev Event) {
	switch ev.Kind {
	case KindExecutionStarted:
		if !r.view.ExecutionStatus.Terminal() {
			r.view.ExecutionStatus = models.ExecutionStatusRunning
		}
	case KindExecutionCompleted:
		r.terminate(models.ExecutionStatusCompleted)
	case KindExecutionFailed:
		r.terminate(models.ExecutionStatusFailed)
	case KindExecutionCancelled:
		r.terminate(models.ExecutionStatusCancelled)

	case KindNodeQueued:
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			if s.Status == models.NodeStatusPending {
				s.Status = models.NodeStatusQueued
			}
		})
	case KindNodeRunning:
		// Each retry attempt re-announces RUNNING, so running -> running is
		// an idempotent update carrying the new attempt number.
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			switch s.Status {
			case models.NodeStatusPending, models.NodeStatusQueued, models.NodeStatusRunning:
			default:
				return
			}
			s.Status = models.NodeStatusRunning
			if s.StartedAt == nil {
				ts := ev.Timestamp
				s.StartedAt = &ts
			}
			if rc, ok := payloadInt(ev.Payload["retryCount"]); ok {
				s.RetryCount = rc
			}
		})
	case KindNodeCompleted:
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			r.complete(s, ev, models.NodeStatusCompleted, s.Status == models.NodeStatusRunning)
		})
	case KindNodeCacheHit:
		// Substitutes for RUNNING -> COMPLETED: pending goes straight to
		// completed.
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			r.complete(s, ev, models.NodeStatusCompleted, !s.Status.Terminal())
		})
	case KindNodeOutputReused:
		// Resume layering: the predecessor's output was taken from a prior
		// run, so the node is complete in this execution too.
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			r.complete(s, ev, models.NodeStatusCompleted, !s.Status.Terminal())
		})
	case KindNodeFailed:
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			if s.Status != models.NodeStatusRunning {
				return
			}
			s.Status = models.NodeStatusFailed
			if msg, ok := ev.Payload["error"].(string); ok {
				s.Error = msg
			}
			ts := ev.Timestamp
			s.CompletedAt = &ts
		})
	case KindNodeSkipped:
		r.applyNode(ev, func(s *models.NodeExecutionState) {
			if s.Status != models.NodeStatusPending && s.Status != models.NodeStatusQueued {
				return
			}
			s.Status = models.NodeStatusSkipped
			ts := ev.Timestamp
			s.CompletedAt = &ts
		})

	case KindLogEmitted:
		r.appendLog(ev)

	case KindResumeComplete:
		if status, ok := ev.Payload["status"].(string); ok {
			r.terminate(models.ExecutionStatus(status))
		}

	case KindConnected, KindAck, KindError, KindResumeStart:
		// Protocol frames; no view change.

	default:
		r.view.UnknownKinds = append(r.view.UnknownKinds, ev.Kind)
	}
}

// terminate sets the execution status; duplicate terminal events are no-ops.
func (r *Reducer) terminate(status models.ExecutionStatus) {
	if r.view.ExecutionStatus.Terminal() {
		return
	}
	r.view.ExecutionStatus = status
}

func (r *Reducer) complete(s *models.NodeExecutionState, ev Event, status models.NodeExecutionStatus, allowed bool) {
	if !allowed || s.Status.Terminal() {
		return
	}
	s.Status = status
	ts := ev.Timestamp
	s.CompletedAt = &ts
}

// payloadInt reads a numeric payload field whether the event was decoded
// off the wire (JSON numbers arrive as float64) or applied in-process
// straight from a constructor.
func payloadInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func (r *Reducer) applyNode(ev Event, fn func(*models.NodeExecutionState)) {
	nodeID, ok := ev.NodeID()
	if !ok {
		return
	}
	state, exists := r.view.NodeStates[nodeID]
	if !exists {
		state = &models.NodeExecutionState{
			NodeID: nodeID,
			Status: models.NodeStatusPending,
		}
		r.view.NodeStates[nodeID] = state
	}
	fn(state)
}

func (r *Reducer) appendLog(ev Event) {
	nodeID, _ := ev.NodeID()
	level, _ := ev.Payload["level"].(string)
	message, _ := ev.Payload["message"].(string)

	r.view.Logs = append(r.view.Logs, LogEntry{
		NodeID:    nodeID,
		Level:     level,
		Message:   message,
		Timestamp: ev.Timestamp,
	})
	if len(r.view.Logs) > r.maxLogs {
		r.view.Logs = r.view.Logs[len(r.view.Logs)-r.maxLogs:]
	}
}
