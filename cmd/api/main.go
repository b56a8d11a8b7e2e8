package main

import (
	"github.com/agentforge-ai/agentforge/internal/api"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/domain/services"
	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/agentforge-ai/agentforge/internal/pkg/crypto"
	"github.com/agentforge-ai/agentforge/internal/pkg/database"
	"github.com/agentforge-ai/agentforge/internal/pkg/logger"
	"github.com/agentforge-ai/agentforge/internal/pkg/queue"
	pkgredis "github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.App.Environment, cfg.App.Debug)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Msg("Starting API server")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if err := database.SeedAgents(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed agent catalog")
	}

	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	queueClient := queue.NewClient(&cfg.Redis)
	defer queueClient.Close()

	publisher := realtime.NewPublisher(redisClient.Client, cfg.Worker.LogEventsPerSec)

	// Repositories
	workflowRepo := repositories.NewWorkflowRepository(db)
	versionRepo := repositories.NewWorkflowVersionRepository(db)
	executionRepo := repositories.NewExecutionRepository(db)
	agentRepo := repositories.NewAgentRepository(db)

	// Services
	agentService := services.NewAgentService(agentRepo)
	workflowService := services.NewWorkflowService(workflowRepo, versionRepo, agentService)
	executionService := services.NewExecutionService(
		executionRepo,
		workflowRepo,
		versionRepo,
		agentService,
		queueClient,
		redisClient,
		publisher,
	)

	jwtManager := crypto.NewJWTManager(crypto.JWTConfig{
		Secret:       cfg.JWT.Secret,
		AccessExpiry: cfg.JWT.AccessExpiry,
		Issuer:       cfg.JWT.Issuer,
	})

	server := api.NewServer(cfg, &api.Services{
		Workflow:  workflowService,
		Execution: executionService,
		Agent:     agentService,
	}, jwtManager, redisClient, db)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
