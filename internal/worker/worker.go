// Package worker runs workflow executions picked up from the task queue.
// The engine walks the pinned graph snapshot level by level, publishing
// lifecycle events to redis as it goes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	"github.com/agentforge-ai/agentforge/internal/pkg/queue"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type Worker struct {
	server *queue.Server
	engine *Engine
}

func New(cfg *config.Config, engine *Engine) *Worker {
	server := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	w := &Worker{
		server: server,
		engine: engine,
	}

	server.HandleFunc(queue.TypeWorkflowExecution, w.handleWorkflowExecution)
	server.HandleFunc(queue.TypeWorkflowResume, w.handleWorkflowResume)

	return w
}

func (w *Worker) Start() error {
	return w.server.Start()
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleWorkflowExecution(ctx context.Context, task *asynq.Task) error {
	var payload queue.WorkflowExecutionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal execution payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().
		Str("execution_id", payload.ExecutionID.String()).
		Str("workflow_id", payload.WorkflowID.String()).
		Int("version", payload.WorkflowVersion).
		Msg("Processing workflow execution")

	err := w.engine.Execute(ctx, payload.ExecutionID)
	w.recordTask(task.Type(), err)
	return err
}

func (w *Worker) handleWorkflowResume(ctx context.Context, task *asynq.Task) error {
	var payload queue.WorkflowResumePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal resume payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().
		Str("execution_id", payload.ExecutionID.String()).
		Str("parent_execution_id", payload.ParentExecutionID.String()).
		Str("from_node_id", string(payload.FromNodeID)).
		Msg("Processing workflow resume")

	err := w.engine.ExecuteResume(ctx, payload.ExecutionID, payload.ParentExecutionID, payload.FromNodeID)
	w.recordTask(task.Type(), err)
	return err
}

func (w *Worker) recordTask(taskType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QueueTasksProcessed.WithLabelValues(taskType, status).Inc()
}
