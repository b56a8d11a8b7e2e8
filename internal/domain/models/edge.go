package models

import "fmt"

// Edge is a directed connection from a source node's output port to a target
// node's input port.
//
// Invariants enforced by the validator:
//   - source and target reference nodes in the same workflow
//   - no two edges share (source, sourcePort, target, targetPort)
//   - edges never form a cycle
type Edge struct {
	ID         EdgeID `json:"id"`
	Source     NodeID `json:"source"`
	SourcePort PortID `json:"sourcePort"`
	Target     NodeID `json:"target"`
	TargetPort PortID `json:"targetPort"`
}

// PortKey identifies an edge's endpoints up to port granularity. Two edges
// with the same key are duplicates.
func (e Edge) PortKey() string {
	return fmt.Sprintf("%s:%s->%s:%s", e.Source, e.SourcePort, e.Target, e.TargetPort)
}
