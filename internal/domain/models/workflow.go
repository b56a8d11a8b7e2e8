package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowStatus is the lifecycle status of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // being edited, not executable
	WorkflowStatusValid    WorkflowStatus = "valid"    // passed validation
	WorkflowStatusInvalid  WorkflowStatus = "invalid"  // failed validation
	WorkflowStatusArchived WorkflowStatus = "archived" // soft-deleted
)

// Workflow is a complete workflow definition. Nodes and edges form a DAG;
// the validator enforces the structural and semantic invariants.
//
// Version implements optimistic concurrency: every update must carry the
// prior version, increments it, and resets Status to draft.
type Workflow struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"tenantId"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null" json:"ownerId"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Status      WorkflowStatus `gorm:"size:20;not null;default:draft;index" json:"status"`
	Version     int            `gorm:"not null;default:1" json:"version"`
	Nodes       NodeList       `gorm:"type:jsonb;not null;default:'[]'" json:"nodes"`
	Edges       EdgeList       `gorm:"type:jsonb;not null;default:'[]'" json:"edges"`
	Tags        StringArray    `gorm:"type:text[]" json:"tags,omitempty"`
	ArchivedAt  *time.Time     `json:"archivedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Versions   []WorkflowVersion `gorm:"foreignKey:WorkflowID" json:"-"`
	Executions []Execution       `gorm:"foreignKey:WorkflowID" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}

// NodeMap builds a node lookup map. O(n) construction, O(1) lookup.
func (w *Workflow) NodeMap() map[NodeID]*Node {
	m := make(map[NodeID]*Node, len(w.Nodes))
	for i := range w.Nodes {
		m[w.Nodes[i].ID] = &w.Nodes[i]
	}
	return m
}

// EdgeMap builds an edge lookup map.
func (w *Workflow) EdgeMap() map[EdgeID]*Edge {
	m := make(map[EdgeID]*Edge, len(w.Edges))
	for i := range w.Edges {
		m[w.Edges[i].ID] = &w.Edges[i]
	}
	return m
}

// WorkflowVersion is an immutable snapshot of the graph at a given version,
// written on every update. Executions pin the version they ran against.
type WorkflowVersion struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID uuid.UUID `gorm:"type:uuid;index;not null" json:"workflowId"`
	Version    int       `gorm:"not null" json:"version"`
	Nodes      NodeList  `gorm:"type:jsonb;not null" json:"nodes"`
	Edges      EdgeList  `gorm:"type:jsonb;not null" json:"edges"`
	CreatedBy  uuid.UUID `gorm:"type:uuid" json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`

	Workflow Workflow `gorm:"foreignKey:WorkflowID" json:"-"`
}

func (WorkflowVersion) TableName() string {
	return "workflow_versions"
}
