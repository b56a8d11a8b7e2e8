package repositories

import (
	"context"
	"errors"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"gorm.io/gorm"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) FindByID(ctx context.Context, id models.AgentID) (*models.AgentDefinition, error) {
	var agent models.AgentDefinition
	err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepository) FindAll(ctx context.Context) ([]models.AgentDefinition, error) {
	var agents []models.AgentDefinition
	err := r.db.WithContext(ctx).Order("id ASC").Find(&agents).Error
	return agents, err
}

func (r *AgentRepository) FindByCategory(ctx context.Context, category models.AgentCategory) ([]models.AgentDefinition, error) {
	var agents []models.AgentDefinition
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id ASC").
		Find(&agents).Error
	return agents, err
}
