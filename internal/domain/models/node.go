package models

// Typed identifiers. Distinct string types so APIs cannot accept the wrong
// kind of ID; equality is by value, no structure is assumed.
type (
	NodeID string
	EdgeID string
	PortID string
)

// NodeType determines a node's execution behavior.
type NodeType string

const (
	NodeTypeAgent  NodeType = "agent"  // executes an AI agent
	NodeTypeTool   NodeType = "tool"   // executes a deterministic tool
	NodeTypeInput  NodeType = "input"  // workflow entry point
	NodeTypeOutput NodeType = "output" // workflow exit point
)

// Position is the node's location on the canvas. Visual only; the validator
// ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeConfig is the per-type configuration record. The discriminator is the
// owning node's Type: agent nodes carry AgentID, tool nodes ToolID, and
// input/output nodes declare a DataType for their single port.
type NodeConfig struct {
	AgentID    AgentID  `json:"agentId,omitempty"`
	ToolID     string   `json:"toolId,omitempty"`
	DataType   DataType `json:"dataType,omitempty"`
	Parameters JSON     `json:"parameters,omitempty"`
}

// Node is a single vertex in the workflow DAG.
type Node struct {
	ID       NodeID     `json:"id"`
	Type     NodeType   `json:"type"`
	Label    string     `json:"label"`
	Position Position   `json:"position"`
	Config   NodeConfig `json:"config"`
}

// IsAgent reports whether the node executes an agent. Only agent nodes
// participate in semantic validation; input/output port types are dynamic.
func (n Node) IsAgent() bool {
	return n.Type == NodeTypeAgent && n.Config.AgentID != ""
}
