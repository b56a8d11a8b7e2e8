package validator

import (
	"fmt"
	"strings"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
)

// AgentRegistry resolves agent definitions during semantic validation.
// Implementations must be read-only for the duration of a validation call.
type AgentRegistry interface {
	Lookup(id models.AgentID) (*models.AgentDefinition, bool)
}

// RegistryMap is a plain map registry, handy for snapshots and tests.
type RegistryMap map[models.AgentID]*models.AgentDefinition

func (m RegistryMap) Lookup(id models.AgentID) (*models.AgentDefinition, bool) {
	def, ok := m[id]
	return def, ok
}

// typesCompatible implements strict type equality. No coercion between
// primitive types is applied.
func typesCompatible(source, target models.DataType) bool {
	return source == target
}

// ValidateTypeCompatibility checks every edge between two agent nodes:
// the source output port's type must equal the target input port's type.
// Unknown agents and unknown ports are reported as TYPE_MISMATCH since the
// edge cannot be typed. Edges touching input, output, or tool nodes are
// skipped; their types are dynamic and checked at execution.
func ValidateTypeCompatibility(w *models.Workflow, registry AgentRegistry) models.ValidationResult {
	nodeMap := w.NodeMap()
	var errs []models.ValidationError

	for _, edge := range w.Edges {
		sourceNode, ok := nodeMap[edge.Source]
		if !ok {
			continue // caught by edge-reference validation
		}
		targetNode, ok := nodeMap[edge.Target]
		if !ok {
			continue
		}
		if !sourceNode.IsAgent() || !targetNode.IsAgent() {
			continue
		}

		sourceAgent, sourceOK := registry.Lookup(sourceNode.Config.AgentID)
		targetAgent, targetOK := registry.Lookup(targetNode.Config.AgentID)

		if !sourceOK {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Message: fmt.Sprintf("unknown agent definition on source node: %s", sourceNode.Config.AgentID),
				NodeIDs: []models.NodeID{edge.Source},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
			continue
		}
		if !targetOK {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Message: fmt.Sprintf("unknown agent definition on target node: %s", targetNode.Config.AgentID),
				NodeIDs: []models.NodeID{edge.Target},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
			continue
		}

		sourcePort, ok := sourceAgent.OutputPort(edge.SourcePort)
		if !ok {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Message: fmt.Sprintf("source agent %s has no output port: %s", sourceAgent.ID, edge.SourcePort),
				NodeIDs: []models.NodeID{edge.Source},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
			continue
		}
		targetPort, ok := targetAgent.InputPort(edge.TargetPort)
		if !ok {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Message: fmt.Sprintf("target agent %s has no input port: %s", targetAgent.ID, edge.TargetPort),
				NodeIDs: []models.NodeID{edge.Target},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
			continue
		}

		if !typesCompatible(sourcePort.Type, targetPort.Type) {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Message: fmt.Sprintf("type mismatch: %s -> %s", sourcePort.Type, targetPort.Type),
				NodeIDs: []models.NodeID{edge.Source, edge.Target},
				EdgeIDs: []models.EdgeID{edge.ID},
			})
		}
	}

	if len(errs) > 0 {
		return models.InvalidResult(errs)
	}
	return models.ValidResult(nil)
}

// ValidateRequiredInputs checks that every required input port of every
// agent node has at least one incoming edge. One error per node, listing all
// missing ports.
func ValidateRequiredInputs(w *models.Workflow, registry AgentRegistry) models.ValidationResult {
	rev := ReverseAdjacency(w)
	edgeMap := w.EdgeMap()
	var errs []models.ValidationError

	for _, node := range w.Nodes {
		if !node.IsAgent() {
			continue
		}
		agent, ok := registry.Lookup(node.Config.AgentID)
		if !ok {
			continue // surfaced by type compatibility
		}

		connected := make(map[models.PortID]bool)
		for _, edgeID := range rev[node.ID] {
			if edge, ok := edgeMap[edgeID]; ok {
				connected[edge.TargetPort] = true
			}
		}

		var missing []string
		for _, port := range agent.InputSchema {
			if port.Required && !connected[port.Name] {
				missing = append(missing, string(port.Name))
			}
		}

		if len(missing) > 0 {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeMissingRequiredInput,
				Message: fmt.Sprintf("missing required inputs: %s", strings.Join(missing, ", ")),
				NodeIDs: []models.NodeID{node.ID},
			})
		}
	}

	if len(errs) > 0 {
		return models.InvalidResult(errs)
	}
	return models.ValidResult(nil)
}
