package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	ws "github.com/agentforge-ai/agentforge/internal/api/websocket"
	"github.com/agentforge-ai/agentforge/internal/domain/services"
	"github.com/agentforge-ai/agentforge/internal/pkg/crypto"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WebSocketHandler struct {
	hub            *ws.Hub
	jwtManager     *crypto.JWTManager
	executionSvc   *services.ExecutionService
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, jwtManager *crypto.JWTManager, executionSvc *services.ExecutionService, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		jwtManager:     jwtManager,
		executionSvc:   executionSvc,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsedOrigin, err := url.Parse(origin)
	if err != nil {
		log.Warn().Str("origin", origin).Msg("Invalid origin URL")
		return false
	}

	originHost := parsedOrigin.Host
	for _, allowed := range h.allowedOrigins {
		if allowed == origin || allowed == originHost {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			domain := allowed[2:]
			if strings.HasSuffix(originHost, domain) {
				return true
			}
		}
	}

	log.Warn().Str("origin", origin).Strs("allowed", h.allowedOrigins).Msg("WebSocket origin not allowed")
	return false
}

// HandleConnection upgrades the connection and sends CONNECTED. The token
// comes from a query param since browsers cannot set headers on WebSocket
// handshakes.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		dto.Unauthorized(w, "missing token")
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		dto.Unauthorized(w, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.TenantID, claims.Role, &subscriptionAuthorizer{executionSvc: h.executionSvc})
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	connected := realtime.Connected(client.ConnectionID, claims.UserID.String(), claims.TenantID.String(), claims.Role)
	if data, err := json.Marshal(connected); err == nil {
		client.Send <- data
	}

	log.Debug().
		Str("user_id", claims.UserID.String()).
		Str("connection_id", client.ConnectionID).
		Msg("WebSocket client registered")
}

// subscriptionAuthorizer verifies the execution exists and belongs to the
// client's tenant before a subscription is accepted.
type subscriptionAuthorizer struct {
	executionSvc *services.ExecutionService
}

func (a *subscriptionAuthorizer) Authorize(ctx context.Context, executionID string, tenantID uuid.UUID) string {
	id, err := uuid.Parse(executionID)
	if err != nil {
		return realtime.ErrCodeUnknownExecution
	}

	_, err = a.executionSvc.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, services.ErrExecutionNotFound) {
			return realtime.ErrCodeUnknownExecution
		}
		return realtime.ErrCodeUnauthorized
	}
	return ""
}
