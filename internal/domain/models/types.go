package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// JSON type for JSONB columns
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSON: not a byte slice")
	}
	return json.Unmarshal(bytes, j)
}

// NodeList is a JSONB-backed ordered list of nodes. Order is the canvas
// insertion order and is significant: topological tie-breaks follow it.
type NodeList []Node

func (n NodeList) Value() (driver.Value, error) {
	if n == nil {
		return json.Marshal(NodeList{})
	}
	return json.Marshal(n)
}

func (n *NodeList) Scan(value interface{}) error {
	if value == nil {
		*n = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan NodeList: not a byte slice")
	}
	return json.Unmarshal(bytes, n)
}

// EdgeList is a JSONB-backed ordered list of edges.
type EdgeList []Edge

func (e EdgeList) Value() (driver.Value, error) {
	if e == nil {
		return json.Marshal(EdgeList{})
	}
	return json.Marshal(e)
}

func (e *EdgeList) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan EdgeList: not a byte slice")
	}
	return json.Unmarshal(bytes, e)
}

// PortSchemaList is a JSONB-backed ordered list of port schemas.
type PortSchemaList []PortSchema

func (p PortSchemaList) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PortSchemaList{})
	}
	return json.Marshal(p)
}

func (p *PortSchemaList) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan PortSchemaList: not a byte slice")
	}
	return json.Unmarshal(bytes, p)
}

// NodeStateList is a JSONB-backed list of per-node execution states.
type NodeStateList []NodeExecutionState

func (n NodeStateList) Value() (driver.Value, error) {
	if n == nil {
		return json.Marshal(NodeStateList{})
	}
	return json.Marshal(n)
}

func (n *NodeStateList) Scan(value interface{}) error {
	if value == nil {
		*n = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan NodeStateList: not a byte slice")
	}
	return json.Unmarshal(bytes, n)
}

// StringArray type for text[] columns
type StringArray = pq.StringArray
