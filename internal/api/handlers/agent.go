package handlers

import (
	"errors"
	"net/http"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/domain/services"
	"github.com/go-chi/chi/v5"
)

type AgentHandler struct {
	agentSvc *services.AgentService
}

func NewAgentHandler(agentSvc *services.AgentService) *AgentHandler {
	return &AgentHandler{agentSvc: agentSvc}
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		agents, err := h.agentSvc.ListByCategory(r.Context(), models.AgentCategory(category))
		if err != nil {
			dto.InternalServerError(w, "failed to list agents")
			return
		}
		dto.OK(w, agents)
		return
	}

	agents, err := h.agentSvc.List(r.Context())
	if err != nil {
		dto.InternalServerError(w, "failed to list agents")
		return
	}
	dto.OK(w, agents)
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agentID := models.AgentID(chi.URLParam(r, "agentID"))

	agent, err := h.agentSvc.GetByID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, services.ErrAgentNotFound) {
			dto.NotFound(w, "Agent")
			return
		}
		dto.InternalServerError(w, "failed to get agent")
		return
	}

	dto.OK(w, agent)
}
