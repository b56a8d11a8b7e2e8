package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AgentID identifies an agent definition in the registry.
type AgentID string

// DataType is the closed set of primitive port types. Edges between agent
// nodes require strict type equality; no coercion is applied.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeObject  DataType = "object"
	DataTypeArray   DataType = "array"
)

// AgentCategory groups agents for catalog filtering.
type AgentCategory string

const (
	AgentCategoryLLM         AgentCategory = "llm"
	AgentCategoryRetrieval   AgentCategory = "retrieval"
	AgentCategoryTransform   AgentCategory = "transform"
	AgentCategoryIntegration AgentCategory = "integration"
	AgentCategoryLogic       AgentCategory = "logic"
)

// PortSchema describes a single input or output port of an agent.
type PortSchema struct {
	Name        PortID   `json:"name"`
	Type        DataType `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
}

// RetryPolicy controls node-level retry behavior during execution.
type RetryPolicy struct {
	MaxRetries        int     `json:"maxRetries"`
	BackoffMs         int     `json:"backoffMs"`
	BackoffMultiplier float64 `json:"backoffMultiplier"`
}

func (r RetryPolicy) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RetryPolicy) Scan(value interface{}) error {
	if value == nil {
		*r = RetryPolicy{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RetryPolicy: not a byte slice")
	}
	return json.Unmarshal(bytes, r)
}

// DefaultRetryPolicy applies when an agent definition does not override it.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        3,
	BackoffMs:         1000,
	BackoffMultiplier: 2.0,
}

// AgentDefinition is the blueprint for an agent available in the system.
// Nodes reference definitions by AgentID; the registry used during semantic
// validation is a read-only snapshot of these rows.
type AgentDefinition struct {
	ID            AgentID        `gorm:"primaryKey;size:100" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	Category      AgentCategory  `gorm:"size:20;not null;index" json:"category"`
	InputSchema   PortSchemaList `gorm:"type:jsonb;not null;default:'[]'" json:"inputSchema"`
	OutputSchema  PortSchemaList `gorm:"type:jsonb;not null;default:'[]'" json:"outputSchema"`
	DefaultConfig JSON           `gorm:"type:jsonb;default:'{}'" json:"defaultConfig,omitempty"`
	Cacheable     bool           `gorm:"not null;default:true" json:"cacheable"`
	RetryPolicy   RetryPolicy    `gorm:"type:jsonb" json:"retryPolicy"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (AgentDefinition) TableName() string {
	return "agent_definitions"
}

// InputPort returns the input port schema with the given name.
func (a *AgentDefinition) InputPort(name PortID) (*PortSchema, bool) {
	for i := range a.InputSchema {
		if a.InputSchema[i].Name == name {
			return &a.InputSchema[i], true
		}
	}
	return nil, false
}

// OutputPort returns the output port schema with the given name.
func (a *AgentDefinition) OutputPort(name PortID) (*PortSchema, bool) {
	for i := range a.OutputSchema {
		if a.OutputSchema[i].Name == name {
			return &a.OutputSchema[i], true
		}
	}
	return nil, false
}
