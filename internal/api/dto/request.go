package dto

import "github.com/agentforge-ai/agentforge/internal/domain/models"

// Workflow
type CreateWorkflowRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Description string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Nodes       models.NodeList `json:"nodes"`
	Edges       models.EdgeList `json:"edges"`
	Tags        []string        `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
}

type UpdateWorkflowRequest struct {
	Name        *string         `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Nodes       models.NodeList `json:"nodes,omitempty"`
	Edges       models.EdgeList `json:"edges,omitempty"`
	Tags        []string        `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
	Version     int             `json:"version" validate:"required,min=1"`
}

// Execution
type TriggerExecutionRequest struct {
	Inputs models.JSON `json:"inputs,omitempty"`
}

// Pagination
type PaginationRequest struct {
	Page    int    `json:"page" validate:"omitempty,min=1"`
	PerPage int    `json:"perPage" validate:"omitempty,min=1,max=100"`
	OrderBy string `json:"orderBy,omitempty"`
	Order   string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}
