package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/pkg/queue"
	"github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"github.com/agentforge-ai/agentforge/internal/pkg/validator"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrExecutionTerminal  = errors.New("execution already finished")
	ErrExecutionNotFailed = errors.New("only failed executions can be resumed")
	ErrWorkflowInvalid    = errors.New("workflow failed validation")
)

// cancelFlagTTL bounds how long a cancel flag outlives its execution.
const cancelFlagTTL = time.Hour

type ExecutionService struct {
	executionRepo *repositories.ExecutionRepository
	workflowRepo  *repositories.WorkflowRepository
	versionRepo   *repositories.WorkflowVersionRepository
	agents        *AgentService
	queueClient   *queue.Client
	redisClient   *redis.Client
	publisher     *realtime.Publisher
}

func NewExecutionService(
	executionRepo *repositories.ExecutionRepository,
	workflowRepo *repositories.WorkflowRepository,
	versionRepo *repositories.WorkflowVersionRepository,
	agents *AgentService,
	queueClient *queue.Client,
	redisClient *redis.Client,
	publisher *realtime.Publisher,
) *ExecutionService {
	return &ExecutionService{
		executionRepo: executionRepo,
		workflowRepo:  workflowRepo,
		versionRepo:   versionRepo,
		agents:        agents,
		queueClient:   queueClient,
		redisClient:   redisClient,
		publisher:     publisher,
	}
}

// Trigger validates the workflow's current graph and, when valid, creates a
// pending execution pinned to the current version and hands it to the worker.
// An invalid graph returns ErrWorkflowInvalid alongside the validation result
// so callers can surface the errors.
func (s *ExecutionService) Trigger(ctx context.Context, workflowID, tenantID, userID uuid.UUID, inputs models.JSON) (*models.Execution, *models.ValidationResult, error) {
	workflow, err := s.workflowRepo.FindByIDForTenant(ctx, workflowID, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		return nil, nil, err
	}

	registry, err := s.agents.Registry(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load agent registry: %w", err)
	}

	result := validator.Validate(workflow, validator.Options{Registry: registry})
	if !result.Valid {
		if err := s.workflowRepo.UpdateStatus(ctx, workflowID, models.WorkflowStatusInvalid); err != nil {
			log.Error().Err(err).Str("workflow_id", workflowID.String()).Msg("Failed to record validation outcome")
		}
		return nil, &result, ErrWorkflowInvalid
	}
	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, models.WorkflowStatusValid); err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID.String()).Msg("Failed to record validation outcome")
	}

	execution := &models.Execution{
		WorkflowID:      workflow.ID,
		TenantID:        tenantID,
		WorkflowVersion: workflow.Version,
		Status:          models.ExecutionStatusPending,
		TriggeredBy:     userID,
		Inputs:          inputs,
		NodeStates:      pendingNodeStates(workflow.Nodes),
	}
	if err := s.executionRepo.Create(ctx, execution); err != nil {
		return nil, nil, fmt.Errorf("failed to create execution: %w", err)
	}

	_, err = s.queueClient.EnqueueWorkflowExecution(ctx, queue.WorkflowExecutionPayload{
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		ExecutionID:     execution.ID,
		TenantID:        tenantID,
		TriggeredBy:     &userID,
		Inputs:          inputs,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	log.Info().
		Str("execution_id", execution.ID.String()).
		Str("workflow_id", workflow.ID.String()).
		Int("version", workflow.Version).
		Msg("Execution triggered")

	return execution, &result, nil
}

// Resume creates a child execution of a failed run. Nodes that completed in
// the parent keep their outputs; everything downstream of the failure reruns.
func (s *ExecutionService) Resume(ctx context.Context, executionID, tenantID, userID uuid.UUID) (*models.Execution, error) {
	parent, err := s.executionRepo.FindByIDForTenant(ctx, executionID, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return nil, err
	}
	if parent.Status != models.ExecutionStatusFailed {
		return nil, ErrExecutionNotFailed
	}

	snapshot, err := s.versionRepo.FindByWorkflowAndVersion(ctx, parent.WorkflowID, parent.WorkflowVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow %s version %d", ErrVersionNotFound, parent.WorkflowID, parent.WorkflowVersion)
	}

	states := make(models.NodeStateList, 0, len(snapshot.Nodes))
	parentStates := parent.NodeStateMap()
	var fromNodeID *models.NodeID
	for i := range snapshot.Nodes {
		nodeID := snapshot.Nodes[i].ID
		if ps, ok := parentStates[nodeID]; ok && ps.Status == models.NodeStatusCompleted {
			states = append(states, models.NodeExecutionState{
				NodeID:     nodeID,
				Status:     models.NodeStatusPending,
				Output:     ps.Output,
				RetryCount: 0,
			})
			continue
		}
		if fromNodeID == nil {
			if ps, ok := parentStates[nodeID]; ok && ps.Status == models.NodeStatusFailed {
				id := nodeID
				fromNodeID = &id
			}
		}
		states = append(states, models.NodeExecutionState{
			NodeID: nodeID,
			Status: models.NodeStatusPending,
		})
	}

	child := &models.Execution{
		WorkflowID:        parent.WorkflowID,
		TenantID:          tenantID,
		WorkflowVersion:   parent.WorkflowVersion,
		Status:            models.ExecutionStatusPending,
		TriggeredBy:       userID,
		ParentExecutionID: &parent.ID,
		ResumedFromNodeID: fromNodeID,
		Inputs:            parent.Inputs,
		NodeStates:        states,
	}
	if err := s.executionRepo.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("failed to create resume execution: %w", err)
	}

	payload := queue.WorkflowResumePayload{
		WorkflowID:        parent.WorkflowID,
		WorkflowVersion:   parent.WorkflowVersion,
		ExecutionID:       child.ID,
		ParentExecutionID: parent.ID,
		TenantID:          tenantID,
	}
	if fromNodeID != nil {
		payload.FromNodeID = *fromNodeID
	}
	if _, err := s.queueClient.EnqueueWorkflowResume(ctx, payload); err != nil {
		return nil, fmt.Errorf("failed to enqueue resume: %w", err)
	}

	log.Info().
		Str("execution_id", child.ID.String()).
		Str("parent_execution_id", parent.ID.String()).
		Msg("Execution resume triggered")

	return child, nil
}

// Cancel requests cancellation. A pending execution is finalized immediately;
// a running one stops at the next node boundary when the worker observes the
// flag.
func (s *ExecutionService) Cancel(ctx context.Context, executionID, tenantID uuid.UUID) error {
	execution, err := s.executionRepo.FindByIDForTenant(ctx, executionID, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return err
	}
	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	if err := s.redisClient.RequestCancel(ctx, executionID.String(), cancelFlagTTL); err != nil {
		return fmt.Errorf("failed to set cancel flag: %w", err)
	}

	if execution.Status == models.ExecutionStatusPending {
		if err := s.executionRepo.MarkTerminal(ctx, executionID, models.ExecutionStatusCancelled, nil, execution.NodeStates); err != nil {
			return fmt.Errorf("failed to cancel execution: %w", err)
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, realtime.ExecutionCancelled(executionID.String())); err != nil {
				log.Error().Err(err).Str("execution_id", executionID.String()).Msg("Failed to publish cancel event")
			}
		}
	}

	log.Info().Str("execution_id", executionID.String()).Msg("Execution cancel requested")
	return nil
}

func (s *ExecutionService) GetByID(ctx context.Context, executionID, tenantID uuid.UUID) (*models.Execution, error) {
	execution, err := s.executionRepo.FindByIDForTenant(ctx, executionID, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return nil, err
	}
	return execution, nil
}

func (s *ExecutionService) ListByWorkflow(ctx context.Context, workflowID, tenantID uuid.UUID, opts *repositories.ListOptions) ([]models.Execution, int64, error) {
	if _, err := s.workflowRepo.FindByIDForTenant(ctx, workflowID, tenantID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		return nil, 0, err
	}
	return s.executionRepo.FindByWorkflowID(ctx, workflowID, opts)
}

func (s *ExecutionService) GetLogs(ctx context.Context, executionID, tenantID uuid.UUID, limit int) ([]models.ExecutionLog, error) {
	if _, err := s.GetByID(ctx, executionID, tenantID); err != nil {
		return nil, err
	}
	return s.executionRepo.FindLogs(ctx, executionID, limit)
}

func pendingNodeStates(nodes models.NodeList) models.NodeStateList {
	states := make(models.NodeStateList, 0, len(nodes))
	for i := range nodes {
		states = append(states, models.NodeExecutionState{
			NodeID: nodes[i].ID,
			Status: models.NodeStatusPending,
		})
	}
	return states
}
