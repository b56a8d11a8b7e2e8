package validator

import "github.com/agentforge-ai/agentforge/internal/domain/models"

// Options control a validation run.
type Options struct {
	// Registry enables semantic validation when non-nil.
	Registry AgentRegistry

	// FailFast returns after the first failing rule's errors instead of
	// collecting across rules.
	FailFast bool
}

// Validate runs all rules over a workflow snapshot in a fixed order:
// edge references, duplicate edges, entry node, cycles, orphans, then the
// semantic rules (type compatibility, required inputs) when a registry is
// present.
//
// Errors accumulate across rules, but a failing edge-reference or cycle
// check stops the run: later rules dereference edge endpoints, and orphan
// reports are only meaningful on an acyclic graph. On success the result
// carries the topological execution order for the same snapshot.
func Validate(w *models.Workflow, opts Options) models.ValidationResult {
	var all []models.ValidationError

	// collect returns true when the run should stop here.
	collect := func(r models.ValidationResult) bool {
		if !r.Valid {
			all = append(all, r.Errors...)
			return opts.FailFast
		}
		return false
	}

	// Later rules dereference edge endpoints, so a reference failure stops
	// the run.
	if r := ValidateEdgeReferences(w); !r.Valid {
		all = append(all, r.Errors...)
		return models.InvalidResult(all)
	}

	if collect(ValidateNoDuplicateEdges(w)) {
		return models.InvalidResult(all)
	}
	if collect(ValidateHasEntryNode(w)) {
		return models.InvalidResult(all)
	}

	// Orphan reports are meaningless on a cyclic graph, so a cycle stops
	// the run.
	if r := ValidateNoCycles(w); !r.Valid {
		all = append(all, r.Errors...)
		return models.InvalidResult(all)
	}

	if collect(ValidateNoOrphans(w)) {
		return models.InvalidResult(all)
	}

	if len(all) > 0 && opts.Registry == nil {
		return models.InvalidResult(all)
	}

	if opts.Registry != nil {
		if collect(ValidateTypeCompatibility(w, opts.Registry)) {
			return models.InvalidResult(all)
		}
		if collect(ValidateRequiredInputs(w, opts.Registry)) {
			return models.InvalidResult(all)
		}
	}

	if len(all) > 0 {
		return models.InvalidResult(all)
	}

	order, err := TopologicalSort(w)
	if err != nil {
		// Unreachable once cycle validation passed; keep the safety net
		// anyway.
		return models.InvalidResult([]models.ValidationError{{
			Code:    models.CodeCycleDetected,
			Message: err.Error(),
		}})
	}
	return models.ValidResult(order)
}

// ValidateStructure runs structural rules only. Used for fast feedback
// while editing.
func ValidateStructure(w *models.Workflow) models.ValidationResult {
	return Validate(w, Options{})
}

// ValidateFull runs structural and semantic rules. Used before execution.
func ValidateFull(w *models.Workflow, registry AgentRegistry) models.ValidationResult {
	return Validate(w, Options{Registry: registry})
}
