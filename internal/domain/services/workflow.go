package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	"github.com/agentforge-ai/agentforge/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrVersionNotFound      = errors.New("workflow version not found")
	ErrVersionConflict      = repositories.ErrVersionConflict
)

type WorkflowService struct {
	workflowRepo *repositories.WorkflowRepository
	versionRepo  *repositories.WorkflowVersionRepository
	agents       *AgentService
}

func NewWorkflowService(
	workflowRepo *repositories.WorkflowRepository,
	versionRepo *repositories.WorkflowVersionRepository,
	agents *AgentService,
) *WorkflowService {
	if workflowRepo == nil || versionRepo == nil {
		panic("workflow service: workflowRepo and versionRepo are required")
	}
	return &WorkflowService{
		workflowRepo: workflowRepo,
		versionRepo:  versionRepo,
		agents:       agents,
	}
}

type CreateWorkflowInput struct {
	TenantID    uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description string
	Nodes       models.NodeList
	Edges       models.EdgeList
	Tags        []string
}

// Create creates a new workflow in draft status with an initial snapshot.
func (s *WorkflowService) Create(ctx context.Context, input CreateWorkflowInput) (*models.Workflow, error) {
	if input.Name == "" {
		return nil, ErrWorkflowNameRequired
	}
	if input.Nodes == nil {
		input.Nodes = models.NodeList{}
	}
	if input.Edges == nil {
		input.Edges = models.EdgeList{}
	}

	workflow := &models.Workflow{
		TenantID:    input.TenantID,
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.WorkflowStatusDraft,
		Version:     1,
		Nodes:       input.Nodes,
		Edges:       input.Edges,
		Tags:        input.Tags,
	}

	if err := s.workflowRepo.Create(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	version := &models.WorkflowVersion{
		WorkflowID: workflow.ID,
		Version:    1,
		Nodes:      workflow.Nodes,
		Edges:      workflow.Edges,
		CreatedBy:  input.OwnerID,
	}
	if err := s.versionRepo.Create(ctx, version); err != nil {
		log.Error().
			Err(err).
			Str("workflow_id", workflow.ID.String()).
			Msg("Failed to create initial workflow version")
	}

	log.Info().
		Str("workflow_id", workflow.ID.String()).
		Str("tenant_id", input.TenantID.String()).
		Str("name", input.Name).
		Msg("Workflow created")

	return workflow, nil
}

// GetByID returns a workflow scoped to the caller's tenant.
func (s *WorkflowService) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*models.Workflow, error) {
	workflow, err := s.workflowRepo.FindByIDForTenant(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
		}
		return nil, err
	}
	return workflow, nil
}

func (s *WorkflowService) List(ctx context.Context, tenantID uuid.UUID, opts *repositories.ListOptions) ([]models.Workflow, int64, error) {
	workflows, total, err := s.workflowRepo.FindByTenantID(ctx, tenantID, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workflows: %w", err)
	}
	return workflows, total, nil
}

func (s *WorkflowService) Search(ctx context.Context, tenantID uuid.UUID, query string, opts *repositories.ListOptions) ([]models.Workflow, int64, error) {
	workflows, total, err := s.workflowRepo.Search(ctx, tenantID, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search workflows: %w", err)
	}
	return workflows, total, nil
}

type UpdateWorkflowInput struct {
	Name        *string
	Description *string
	Nodes       models.NodeList
	Edges       models.EdgeList
	Tags        []string
	Version     int // expected current version
}

// Update replaces the workflow graph under optimistic concurrency. A stale
// Version returns ErrVersionConflict and leaves the row untouched. Any
// successful update resets the status to draft; the previous validation
// outcome applied to a graph that no longer exists.
func (s *WorkflowService) Update(ctx context.Context, workflowID, tenantID uuid.UUID, input UpdateWorkflowInput, userID uuid.UUID) (*models.Workflow, error) {
	workflow, err := s.GetByID(ctx, workflowID, tenantID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrWorkflowNameRequired
		}
		workflow.Name = *input.Name
	}
	if input.Description != nil {
		workflow.Description = *input.Description
	}
	if input.Nodes != nil {
		workflow.Nodes = input.Nodes
	}
	if input.Edges != nil {
		workflow.Edges = input.Edges
	}
	if input.Tags != nil {
		workflow.Tags = input.Tags
	}

	if err := s.workflowRepo.UpdateGraph(ctx, workflow, input.Version, userID); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	log.Info().
		Str("workflow_id", workflow.ID.String()).
		Int("version", workflow.Version).
		Msg("Workflow updated")

	return workflow, nil
}

// Validate runs the full rule set against the workflow's current graph and
// records the outcome on the row. The returned result carries every error
// found plus the execution order when the graph is valid.
func (s *WorkflowService) Validate(ctx context.Context, workflowID, tenantID uuid.UUID) (*models.ValidationResult, error) {
	workflow, err := s.GetByID(ctx, workflowID, tenantID)
	if err != nil {
		return nil, err
	}

	var registry validator.AgentRegistry
	if s.agents != nil {
		registry, err = s.agents.Registry(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load agent registry: %w", err)
		}
	}

	start := time.Now()
	result := validator.Validate(workflow, validator.Options{Registry: registry})
	metrics.RecordValidation(result.Valid, time.Since(start).Seconds())

	status := models.WorkflowStatusInvalid
	if result.Valid {
		status = models.WorkflowStatusValid
	}
	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, status); err != nil {
		return nil, fmt.Errorf("failed to record validation outcome: %w", err)
	}

	log.Info().
		Str("workflow_id", workflowID.String()).
		Bool("valid", result.Valid).
		Int("errors", len(result.Errors)).
		Msg("Workflow validated")

	return &result, nil
}

// Archive soft-retires a workflow. Archived workflows cannot be executed.
func (s *WorkflowService) Archive(ctx context.Context, workflowID, tenantID uuid.UUID) error {
	if _, err := s.GetByID(ctx, workflowID, tenantID); err != nil {
		return err
	}
	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, models.WorkflowStatusArchived); err != nil {
		return fmt.Errorf("failed to archive workflow: %w", err)
	}
	log.Info().Str("workflow_id", workflowID.String()).Msg("Workflow archived")
	return nil
}

func (s *WorkflowService) Delete(ctx context.Context, workflowID, tenantID uuid.UUID) error {
	if _, err := s.GetByID(ctx, workflowID, tenantID); err != nil {
		return err
	}
	if err := s.workflowRepo.Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	log.Info().Str("workflow_id", workflowID.String()).Msg("Workflow deleted")
	return nil
}

// GetVersions returns all snapshots of a workflow, newest first.
func (s *WorkflowService) GetVersions(ctx context.Context, workflowID, tenantID uuid.UUID) ([]models.WorkflowVersion, error) {
	if _, err := s.GetByID(ctx, workflowID, tenantID); err != nil {
		return nil, err
	}
	versions, err := s.versionRepo.FindByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow versions: %w", err)
	}
	return versions, nil
}

// GetVersion returns a specific snapshot of a workflow.
func (s *WorkflowService) GetVersion(ctx context.Context, workflowID uuid.UUID, version int) (*models.WorkflowVersion, error) {
	v, err := s.versionRepo.FindByWorkflowAndVersion(ctx, workflowID, version)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow %s version %d", ErrVersionNotFound, workflowID, version)
	}
	return v, nil
}
