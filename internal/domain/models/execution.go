package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the overall status of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal executions are
// immutable.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// NodeExecutionStatus is the status of a single node within a run.
type NodeExecutionStatus string

const (
	NodeStatusPending   NodeExecutionStatus = "pending"   // waiting on dependencies
	NodeStatusQueued    NodeExecutionStatus = "queued"    // dependencies met, awaiting executor
	NodeStatusRunning   NodeExecutionStatus = "running"   // attempt in flight
	NodeStatusCompleted NodeExecutionStatus = "completed" // finished successfully
	NodeStatusFailed    NodeExecutionStatus = "failed"    // failed after all retries
	NodeStatusSkipped   NodeExecutionStatus = "skipped"   // upstream failed or resume elided it
)

// Terminal reports whether the node status is final for this execution.
func (s NodeExecutionStatus) Terminal() bool {
	return s == NodeStatusCompleted || s == NodeStatusFailed || s == NodeStatusSkipped
}

// NodeExecutionState is the runtime state of a single node during a run.
type NodeExecutionState struct {
	NodeID      NodeID              `json:"nodeId"`
	Status      NodeExecutionStatus `json:"status"`
	StartedAt   *time.Time          `json:"startedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	RetryCount  int                 `json:"retryCount"`
	Error       string              `json:"error,omitempty"`
	Output      interface{}         `json:"output,omitempty"`
}

// Execution is a single run of a workflow, created from a valid snapshot.
// WorkflowVersion pins the version that passed validation. Once the status
// is terminal the row is immutable.
type Execution struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"workflowId"`
	TenantID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"tenantId"`
	WorkflowVersion   int             `gorm:"not null" json:"workflowVersion"`
	Status            ExecutionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	TriggeredBy       uuid.UUID       `gorm:"type:uuid;not null" json:"triggeredBy"`
	ParentExecutionID *uuid.UUID      `gorm:"type:uuid" json:"parentExecutionId,omitempty"`
	ResumedFromNodeID *NodeID         `gorm:"size:100" json:"resumedFromNodeId,omitempty"`
	Inputs            JSON            `gorm:"type:jsonb" json:"inputs,omitempty"`
	Outputs           JSON            `gorm:"type:jsonb" json:"outputs,omitempty"`
	NodeStates        NodeStateList   `gorm:"type:jsonb;not null;default:'[]'" json:"nodeStates"`
	CreatedAt         time.Time       `json:"createdAt"`
	StartedAt         *time.Time      `json:"startedAt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`

	// Relations
	Workflow        Workflow   `gorm:"foreignKey:WorkflowID" json:"-"`
	ParentExecution *Execution `gorm:"foreignKey:ParentExecutionID" json:"-"`
}

func (Execution) TableName() string {
	return "executions"
}

// NodeStateMap builds a node-state lookup map.
func (e *Execution) NodeStateMap() map[NodeID]*NodeExecutionState {
	m := make(map[NodeID]*NodeExecutionState, len(e.NodeStates))
	for i := range e.NodeStates {
		m[e.NodeStates[i].NodeID] = &e.NodeStates[i]
	}
	return m
}

// ExecutionLog is a persisted runtime log line, mirrored to subscribers as
// LOG_EMITTED events.
type ExecutionLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ExecutionID uuid.UUID `gorm:"type:uuid;index;not null" json:"executionId"`
	NodeID      NodeID    `gorm:"size:100" json:"nodeId,omitempty"`
	Level       string    `gorm:"size:10;not null" json:"level"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`

	Execution Execution `gorm:"foreignKey:ExecutionID" json:"-"`
}

func (ExecutionLog) TableName() string {
	return "execution_logs"
}
