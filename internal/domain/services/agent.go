package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/pkg/validator"
)

var ErrAgentNotFound = errors.New("agent not found")

// AgentService exposes the agent catalog and builds registry snapshots for
// validation.
type AgentService struct {
	agentRepo *repositories.AgentRepository
}

func NewAgentService(agentRepo *repositories.AgentRepository) *AgentService {
	return &AgentService{agentRepo: agentRepo}
}

func (s *AgentService) GetByID(ctx context.Context, id models.AgentID) (*models.AgentDefinition, error) {
	agent, err := s.agentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
		}
		return nil, err
	}
	return agent, nil
}

func (s *AgentService) List(ctx context.Context) ([]models.AgentDefinition, error) {
	return s.agentRepo.FindAll(ctx)
}

func (s *AgentService) ListByCategory(ctx context.Context, category models.AgentCategory) ([]models.AgentDefinition, error) {
	return s.agentRepo.FindByCategory(ctx, category)
}

// Registry builds a read-only snapshot of the catalog. The snapshot is
// immutable for the duration of a validation call even if definitions change
// concurrently.
func (s *AgentService) Registry(ctx context.Context) (validator.RegistryMap, error) {
	agents, err := s.agentRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	registry := make(validator.RegistryMap, len(agents))
	for i := range agents {
		registry[agents[i].ID] = &agents[i]
	}
	return registry, nil
}
