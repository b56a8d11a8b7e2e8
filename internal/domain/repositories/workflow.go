package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkflowRepository struct {
	*BaseRepository[models.Workflow]
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{
		BaseRepository: NewBaseRepository[models.Workflow](db),
	}
}

// FindByIDForTenant loads a workflow scoped to the caller's tenant.
func (r *WorkflowRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Workflow, error) {
	var wf models.Workflow
	err := r.DB().WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID, opts *ListOptions) ([]models.Workflow, int64, error) {
	var workflows []models.Workflow
	var total int64

	query := r.DB().WithContext(ctx).Where("tenant_id = ?", tenantID)
	query.Model(&models.Workflow{}).Count(&total)

	if opts != nil {
		if opts.OrderBy != "" {
			query = query.Order(opts.OrderBy + " " + opts.Order)
		}
		query = query.Offset(opts.Offset).Limit(opts.Limit)
	}

	err := query.Find(&workflows).Error
	return workflows, total, err
}

func (r *WorkflowRepository) FindByTags(ctx context.Context, tenantID uuid.UUID, tags []string) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.DB().WithContext(ctx).
		Where("tenant_id = ? AND tags && ?", tenantID, models.StringArray(tags)).
		Find(&workflows).Error
	return workflows, err
}

// UpdateGraph replaces the workflow's nodes, edges and metadata under
// optimistic concurrency. The update only applies when the stored version
// matches expectedVersion; otherwise ErrVersionConflict is returned and
// nothing changes. On success the version increments, the status resets to
// draft, and an immutable snapshot of the new graph is recorded.
func (r *WorkflowRepository) UpdateGraph(ctx context.Context, wf *models.Workflow, expectedVersion int, updatedBy uuid.UUID) error {
	return r.Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Model(&models.Workflow{}).
			Where("id = ? AND version = ?", wf.ID, expectedVersion).
			Updates(map[string]interface{}{
				"name":        wf.Name,
				"description": wf.Description,
				"nodes":       wf.Nodes,
				"edges":       wf.Edges,
				"tags":        wf.Tags,
				"status":      models.WorkflowStatusDraft,
				"version":     expectedVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		snapshot := models.WorkflowVersion{
			WorkflowID: wf.ID,
			Version:    expectedVersion + 1,
			Nodes:      wf.Nodes,
			Edges:      wf.Edges,
			CreatedBy:  updatedBy,
		}
		if err := tx.WithContext(ctx).Create(&snapshot).Error; err != nil {
			return err
		}

		wf.Version = expectedVersion + 1
		wf.Status = models.WorkflowStatusDraft
		return nil
	})
}

// UpdateStatus records a validation outcome without touching the graph.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == models.WorkflowStatusArchived {
		now := time.Now()
		updates["archived_at"] = now
	}

	return r.DB().WithContext(ctx).Model(&models.Workflow{}).
		Where("id = ?", workflowID).
		Updates(updates).Error
}

func (r *WorkflowRepository) Search(ctx context.Context, tenantID uuid.UUID, query string, opts *ListOptions) ([]models.Workflow, int64, error) {
	var workflows []models.Workflow
	var total int64

	dbQuery := r.DB().WithContext(ctx).
		Where("tenant_id = ? AND (name ILIKE ? OR description ILIKE ?)", tenantID, "%"+query+"%", "%"+query+"%")
	dbQuery.Model(&models.Workflow{}).Count(&total)

	if opts != nil {
		dbQuery = dbQuery.Offset(opts.Offset).Limit(opts.Limit).Order(opts.OrderBy + " " + opts.Order)
	}

	err := dbQuery.Find(&workflows).Error
	return workflows, total, err
}

// Version snapshots
type WorkflowVersionRepository struct {
	*BaseRepository[models.WorkflowVersion]
}

func NewWorkflowVersionRepository(db *gorm.DB) *WorkflowVersionRepository {
	return &WorkflowVersionRepository{
		BaseRepository: NewBaseRepository[models.WorkflowVersion](db),
	}
}

func (r *WorkflowVersionRepository) FindByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]models.WorkflowVersion, error) {
	var versions []models.WorkflowVersion
	err := r.DB().WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

func (r *WorkflowVersionRepository) FindByWorkflowAndVersion(ctx context.Context, workflowID uuid.UUID, version int) (*models.WorkflowVersion, error) {
	var v models.WorkflowVersion
	err := r.DB().WithContext(ctx).
		Where("workflow_id = ? AND version = ?", workflowID, version).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
