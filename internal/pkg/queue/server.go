package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(cfg *config.RedisConfig, concurrency int) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			// Resumes ride the critical queue so an operator retrying a
			// failed run is not stuck behind a backlog of fresh executions.
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			// Node-level retries happen inside the engine; a task-level
			// retry means infrastructure trouble (db, redis), so back off
			// hard instead of hammering.
			RetryDelayFunc:  taskRetryDelay,
			IsFailure:       isTaskFailure,
			ErrorHandler:    asynq.ErrorHandlerFunc(logTaskError),
			ShutdownTimeout: 30 * time.Second,
			Logger:          &asynqLogger{},
		},
	)

	return &Server{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func taskRetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	d := time.Duration(n) * 30 * time.Second
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}

// isTaskFailure keeps worker-shutdown interruptions out of the failure
// stats; asynq requeues those tasks anyway.
func isTaskFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func logTaskError(ctx context.Context, task *asynq.Task, err error) {
	taskID, _ := asynq.GetTaskID(ctx)
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	log.Error().
		Str("task_type", task.Type()).
		Str("task_id", taskID).
		Int("retried", retried).
		Int("max_retry", maxRetry).
		Err(err).
		Msg("Task failed")
}

func (s *Server) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) Start() error {
	log.Info().Msg("Starting queue server...")
	return s.server.Start(s.mux)
}

func (s *Server) Shutdown() {
	log.Info().Msg("Shutting down queue server...")
	s.server.Shutdown()
}

// asynqLogger adapts asynq's logging onto zerolog.
type asynqLogger struct{}

func (l *asynqLogger) Debug(args ...interface{}) {
	log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	log.Fatal().Msg(fmt.Sprint(args...))
}
