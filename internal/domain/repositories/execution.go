package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExecutionRepository struct {
	*BaseRepository[models.Execution]
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{
		BaseRepository: NewBaseRepository[models.Execution](db),
	}
}

func (r *ExecutionRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Execution, error) {
	var exec models.Execution
	err := r.DB().WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&exec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepository) FindByWorkflowID(ctx context.Context, workflowID uuid.UUID, opts *ListOptions) ([]models.Execution, int64, error) {
	var executions []models.Execution
	var total int64

	query := r.DB().WithContext(ctx).Where("workflow_id = ?", workflowID)
	query.Model(&models.Execution{}).Count(&total)

	if opts != nil {
		if opts.OrderBy != "" {
			query = query.Order(opts.OrderBy + " " + opts.Order)
		}
		query = query.Offset(opts.Offset).Limit(opts.Limit)
	}

	err := query.Find(&executions).Error
	return executions, total, err
}

// MarkStarted transitions a pending execution to running. The guard keeps a
// cancelled execution from starting after the fact.
func (r *ExecutionRepository) MarkStarted(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND status = ?", id, models.ExecutionStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ExecutionStatusRunning,
			"started_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// MarkTerminal records the final status, outputs and node states. Terminal
// rows are never updated again.
func (r *ExecutionRepository) MarkTerminal(ctx context.Context, id uuid.UUID, status models.ExecutionStatus, outputs models.JSON, states models.NodeStateList) error {
	return r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND status NOT IN ?", id, []models.ExecutionStatus{
			models.ExecutionStatusCompleted,
			models.ExecutionStatusFailed,
			models.ExecutionStatusCancelled,
		}).
		Updates(map[string]interface{}{
			"status":       status,
			"outputs":      outputs,
			"node_states":  states,
			"completed_at": time.Now(),
		}).Error
}

// SaveNodeStates persists the in-flight node state list mid-run.
func (r *ExecutionRepository) SaveNodeStates(ctx context.Context, id uuid.UUID, states models.NodeStateList) error {
	return r.DB().WithContext(ctx).Model(&models.Execution{}).
		Where("id = ?", id).
		Update("node_states", states).Error
}

func (r *ExecutionRepository) AppendLog(ctx context.Context, entry *models.ExecutionLog) error {
	return r.DB().WithContext(ctx).Create(entry).Error
}

func (r *ExecutionRepository) FindLogs(ctx context.Context, executionID uuid.UUID, limit int) ([]models.ExecutionLog, error) {
	if limit <= 0 {
		limit = 200
	}
	var logs []models.ExecutionLog
	err := r.DB().WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
