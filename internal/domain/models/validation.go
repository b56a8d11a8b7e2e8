package models

import "fmt"

// ValidationCode is the closed set of validation error codes. Every code is
// UI-actionable: the canvas highlights the referenced nodes and edges.
type ValidationCode string

const (
	// Structural
	CodeCycleDetected        ValidationCode = "CYCLE_DETECTED"
	CodeInvalidEdgeReference ValidationCode = "INVALID_EDGE_REFERENCE"
	CodeDuplicateEdge        ValidationCode = "DUPLICATE_EDGE"
	CodeNoEntryNode          ValidationCode = "NO_ENTRY_NODE"
	CodeOrphanNode           ValidationCode = "ORPHAN_NODE"

	// Semantic
	CodeTypeMismatch         ValidationCode = "TYPE_MISMATCH"
	CodeMissingRequiredInput ValidationCode = "MISSING_REQUIRED_INPUT"
)

// ValidationError is a single validation failure with highlight context.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Message string         `json:"message"`
	NodeIDs []NodeID       `json:"nodeIds,omitempty"`
	EdgeIDs []EdgeID       `json:"edgeIds,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationResult is the outcome of validating a workflow snapshot.
// When Valid, Errors is empty and ExecutionOrder holds the topological
// order; when invalid, ExecutionOrder is absent.
type ValidationResult struct {
	Valid          bool              `json:"valid"`
	Errors         []ValidationError `json:"errors,omitempty"`
	ExecutionOrder []NodeID          `json:"executionOrder,omitempty"`
}

// ValidResult builds a successful result.
func ValidResult(order []NodeID) ValidationResult {
	return ValidationResult{Valid: true, ExecutionOrder: order}
}

// InvalidResult builds a failed result.
func InvalidResult(errs []ValidationError) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}
