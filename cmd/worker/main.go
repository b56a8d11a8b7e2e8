package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/pkg/cache"
	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/agentforge-ai/agentforge/internal/pkg/database"
	"github.com/agentforge-ai/agentforge/internal/pkg/logger"
	pkgredis "github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/agentforge-ai/agentforge/internal/worker"
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
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Starting worker")

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

	executionRepo := repositories.NewExecutionRepository(db)
	versionRepo := repositories.NewWorkflowVersionRepository(db)
	agentRepo := repositories.NewAgentRepository(db)

	publisher := realtime.NewPublisher(redisClient.Client, cfg.Worker.LogEventsPerSec)
	outputCache := cache.NewNodeOutputCache(redisClient.Client, cfg.Cache.NodeOutputTTL)

	engine := worker.NewEngine(
		executionRepo,
		versionRepo,
		agentRepo,
		outputCache,
		redisClient,
		publisher,
		cfg.Worker.NodeTimeout,
	)

	w := worker.New(cfg, engine)
	if err := w.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start worker")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	w.Shutdown()
	log.Info().Msg("Worker stopped")
}
