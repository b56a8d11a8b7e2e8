package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	"github.com/agentforge-ai/agentforge/internal/api/middleware"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/domain/services"
	"github.com/agentforge-ai/agentforge/internal/pkg/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type WorkflowHandler struct {
	workflowSvc *services.WorkflowService
}

func NewWorkflowHandler(workflowSvc *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowSvc: workflowSvc}
}

func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		dto.Unauthorized(w, "authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	opts := repositories.NewListOptions(page, perPage)

	var err error
	workflows, total, err := h.workflowSvc.List(r.Context(), claims.TenantID, opts)
	if search := r.URL.Query().Get("search"); search != "" {
		workflows, total, err = h.workflowSvc.Search(r.Context(), claims.TenantID, search, opts)
	}
	if err != nil {
		dto.InternalServerError(w, "failed to list workflows")
		return
	}

	totalPages := int(total) / opts.Limit
	if int(total)%opts.Limit > 0 {
		totalPages++
	}

	dto.JSONWithMeta(w, http.StatusOK, workflows, &dto.Meta{
		Page:       page,
		PerPage:    opts.Limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		dto.Unauthorized(w, "authentication required")
		return
	}

	var req dto.CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.BadRequest(w, "invalid request body")
		return
	}
	if err := validation.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	workflow, err := h.workflowSvc.Create(r.Context(), services.CreateWorkflowInput{
		TenantID:    claims.TenantID,
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Tags:        req.Tags,
	})
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNameRequired) {
			dto.BadRequest(w, err.Error())
			return
		}
		dto.InternalServerError(w, "failed to create workflow")
		return
	}

	dto.Created(w, workflow)
}

func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	workflow, err := h.workflowSvc.GetByID(r.Context(), workflowID, claims.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to get workflow")
		return
	}

	dto.OK(w, workflow)
}

func (h *WorkflowHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	var req dto.UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.BadRequest(w, "invalid request body")
		return
	}
	if err := validation.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	workflow, err := h.workflowSvc.Update(r.Context(), workflowID, claims.TenantID, services.UpdateWorkflowInput{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Tags:        req.Tags,
		Version:     req.Version,
	}, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWorkflowNotFound):
			dto.NotFound(w, "Workflow")
		case errors.Is(err, services.ErrVersionConflict):
			dto.VersionConflict(w)
		case errors.Is(err, services.ErrWorkflowNameRequired):
			dto.BadRequest(w, err.Error())
		default:
			dto.InternalServerError(w, "failed to update workflow")
		}
		return
	}

	dto.OK(w, workflow)
}

// Validate runs the full rule set and returns every error found, plus the
// execution order when the graph is valid.
func (h *WorkflowHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	result, err := h.workflowSvc.Validate(r.Context(), workflowID, claims.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to validate workflow")
		return
	}

	dto.OK(w, dto.NewValidationResultResponse(result))
}

func (h *WorkflowHandler) Archive(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	if err := h.workflowSvc.Archive(r.Context(), workflowID, claims.TenantID); err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to archive workflow")
		return
	}

	dto.NoContent(w)
}

func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	if err := h.workflowSvc.Delete(r.Context(), workflowID, claims.TenantID); err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to delete workflow")
		return
	}

	dto.NoContent(w)
}

func (h *WorkflowHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	versions, err := h.workflowSvc.GetVersions(r.Context(), workflowID, claims.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to list versions")
		return
	}

	dto.OK(w, versions)
}

func (h *WorkflowHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		dto.BadRequest(w, "invalid version")
		return
	}

	v, err := h.workflowSvc.GetVersion(r.Context(), workflowID, version)
	if err != nil {
		dto.NotFound(w, "Workflow version")
		return
	}

	dto.OK(w, v)
}
