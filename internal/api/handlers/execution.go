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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ExecutionHandler struct {
	executionSvc *services.ExecutionService
}

func NewExecutionHandler(executionSvc *services.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executionSvc: executionSvc}
}

// Trigger validates the workflow and enqueues a run. An invalid graph returns
// 422 with the full validation result; nothing is enqueued.
func (h *ExecutionHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	var req dto.TriggerExecutionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			dto.BadRequest(w, "invalid request body")
			return
		}
	}

	execution, result, err := h.executionSvc.Trigger(r.Context(), workflowID, claims.TenantID, claims.UserID, req.Inputs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWorkflowNotFound):
			dto.NotFound(w, "Workflow")
		case errors.Is(err, services.ErrWorkflowInvalid):
			dto.JSON(w, http.StatusUnprocessableEntity, dto.NewValidationResultResponse(result))
		default:
			dto.InternalServerError(w, "failed to trigger execution")
		}
		return
	}

	dto.Accepted(w, execution)
}

func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	executionID, err := uuid.Parse(chi.URLParam(r, "executionID"))
	if err != nil {
		dto.BadRequest(w, "invalid execution ID")
		return
	}

	execution, err := h.executionSvc.GetByID(r.Context(), executionID, claims.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrExecutionNotFound) {
			dto.NotFound(w, "Execution")
			return
		}
		dto.InternalServerError(w, "failed to get execution")
		return
	}

	dto.OK(w, execution)
}

func (h *ExecutionHandler) ListByWorkflow(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflowID"))
	if err != nil {
		dto.BadRequest(w, "invalid workflow ID")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	opts := repositories.NewListOptions(page, perPage)

	executions, total, err := h.executionSvc.ListByWorkflow(r.Context(), workflowID, claims.TenantID, opts)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			dto.NotFound(w, "Workflow")
			return
		}
		dto.InternalServerError(w, "failed to list executions")
		return
	}

	totalPages := int(total) / opts.Limit
	if int(total)%opts.Limit > 0 {
		totalPages++
	}

	dto.JSONWithMeta(w, http.StatusOK, executions, &dto.Meta{
		Page:       page,
		PerPage:    opts.Limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

func (h *ExecutionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	executionID, err := uuid.Parse(chi.URLParam(r, "executionID"))
	if err != nil {
		dto.BadRequest(w, "invalid execution ID")
		return
	}

	if err := h.executionSvc.Cancel(r.Context(), executionID, claims.TenantID); err != nil {
		switch {
		case errors.Is(err, services.ErrExecutionNotFound):
			dto.NotFound(w, "Execution")
		case errors.Is(err, services.ErrExecutionTerminal):
			dto.Conflict(w, "execution already finished")
		default:
			dto.InternalServerError(w, "failed to cancel execution")
		}
		return
	}

	dto.Accepted(w, map[string]string{"status": "cancelling"})
}

// Resume creates a child execution of a failed run, reusing completed node
// outputs from the parent.
func (h *ExecutionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	executionID, err := uuid.Parse(chi.URLParam(r, "executionID"))
	if err != nil {
		dto.BadRequest(w, "invalid execution ID")
		return
	}

	execution, err := h.executionSvc.Resume(r.Context(), executionID, claims.TenantID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExecutionNotFound):
			dto.NotFound(w, "Execution")
		case errors.Is(err, services.ErrExecutionNotFailed):
			dto.Conflict(w, "only failed executions can be resumed")
		default:
			dto.InternalServerError(w, "failed to resume execution")
		}
		return
	}

	dto.Accepted(w, execution)
}

func (h *ExecutionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	executionID, err := uuid.Parse(chi.URLParam(r, "executionID"))
	if err != nil {
		dto.BadRequest(w, "invalid execution ID")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.executionSvc.GetLogs(r.Context(), executionID, claims.TenantID, limit)
	if err != nil {
		if errors.Is(err, services.ErrExecutionNotFound) {
			dto.NotFound(w, "Execution")
			return
		}
		dto.InternalServerError(w, "failed to get logs")
		return
	}

	dto.OK(w, logs)
}
