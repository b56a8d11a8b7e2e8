package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agentforge-ai/agentforge/internal/api/handlers"
	"github.com/agentforge-ai/agentforge/internal/api/middleware"
	"github.com/agentforge-ai/agentforge/internal/api/websocket"
	"github.com/agentforge-ai/agentforge/internal/domain/services"
	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/agentforge-ai/agentforge/internal/pkg/crypto"
	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	pkgredis "github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Server struct {
	cfg          *config.Config
	router       *chi.Mux
	httpServer   *http.Server
	wsHub        *websocket.Hub
	wsSubscriber *websocket.Subscriber
}

type Services struct {
	Workflow  *services.WorkflowService
	Execution *services.ExecutionService
	Agent     *services.AgentService
}

func NewServer(
	cfg *config.Config,
	svc *Services,
	jwtManager *crypto.JWTManager,
	redisClient *pkgredis.Client,
	db *gorm.DB,
) *Server {
	router := chi.NewRouter()

	// WebSocket hub plus the redis bridge that feeds it execution events.
	wsHub := websocket.NewHub()
	go wsHub.Run()

	wsSubscriber := websocket.NewSubscriber(redisClient.Client, wsHub)
	wsSubscriber.Start()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger())
	router.Use(middleware.Recoverer())
	router.Use(metrics.Middleware)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	allowedOrigins := strings.Split(cfg.App.FrontendURL, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	router.Use(corsHandler.Handler)

	// Handlers
	workflowHandler := handlers.NewWorkflowHandler(svc.Workflow)
	executionHandler := handlers.NewExecutionHandler(svc.Execution)
	agentHandler := handlers.NewAgentHandler(svc.Agent)
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	wsHandler := handlers.NewWebSocketHandler(wsHub, jwtManager, svc.Execution, allowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/health", healthHandler.Liveness)
			r.Get("/health/ready", healthHandler.Readiness)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimiter.Limit(1000, time.Minute))

			// Agent catalog
			r.Get("/agents", agentHandler.List)
			r.Get("/agents/{agentID}", agentHandler.Get)

			// Workflows: reads are open to any role, mutations need writer.
			r.Get("/workflows", workflowHandler.List)
			r.Get("/workflows/{workflowID}", workflowHandler.Get)
			r.Post("/workflows/{workflowID}/validate", workflowHandler.Validate)
			r.Get("/workflows/{workflowID}/versions", workflowHandler.ListVersions)
			r.Get("/workflows/{workflowID}/versions/{version}", workflowHandler.GetVersion)
			r.Get("/workflows/{workflowID}/executions", executionHandler.ListByWorkflow)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireWriter)

				r.Post("/workflows", workflowHandler.Create)
				r.Put("/workflows/{workflowID}", workflowHandler.Update)
				r.Post("/workflows/{workflowID}/archive", workflowHandler.Archive)
				r.Delete("/workflows/{workflowID}", workflowHandler.Delete)
				r.Post("/workflows/{workflowID}/execute", executionHandler.Trigger)
			})

			// Executions
			r.Get("/executions/{executionID}", executionHandler.Get)
			r.Get("/executions/{executionID}/logs", executionHandler.Logs)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireWriter)

				r.Post("/executions/{executionID}/cancel", executionHandler.Cancel)
				r.Post("/executions/{executionID}/resume", executionHandler.Resume)
			})
		})
	})

	// Liveness alias for orchestrators probing outside the API prefix.
	router.Get("/healthz", healthHandler.Liveness)

	// Metrics endpoint (Prometheus)
	router.Handle("/metrics", metrics.Handler())

	// WebSocket
	router.Get("/ws", wsHandler.HandleConnection)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		cfg:          cfg,
		router:       router,
		httpServer:   httpServer,
		wsHub:        wsHub,
		wsSubscriber: wsSubscriber,
	}
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	s.wsSubscriber.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) Hub() *websocket.Hub {
	return s.wsHub
}
