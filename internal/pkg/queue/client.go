package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeWorkflowExecution = "workflow:execution"
	TypeWorkflowResume    = "workflow:resume"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.RedisConfig) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// WorkflowExecutionPayload carries everything the worker needs to run a
// workflow. The execution row is created before enqueue so that clients can
// subscribe to events immediately.
type WorkflowExecutionPayload struct {
	WorkflowID      uuid.UUID   `json:"workflowId"`
	WorkflowVersion int         `json:"workflowVersion"`
	ExecutionID     uuid.UUID   `json:"executionId"`
	TenantID        uuid.UUID   `json:"tenantId"`
	TriggeredBy     *uuid.UUID  `json:"triggeredBy,omitempty"`
	Inputs          models.JSON `json:"inputs,omitempty"`
}

func (c *Client) EnqueueWorkflowExecution(ctx context.Context, payload WorkflowExecutionPayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeWorkflowExecution, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := c.client.EnqueueContext(ctx, task)
	if err == nil {
		metrics.QueueTasksTotal.WithLabelValues(TypeWorkflowExecution).Inc()
	}
	return info, err
}

// WorkflowResumePayload re-runs a failed execution, reusing outputs of nodes
// that completed in the parent execution.
type WorkflowResumePayload struct {
	WorkflowID        uuid.UUID    `json:"workflowId"`
	WorkflowVersion   int          `json:"workflowVersion"`
	ExecutionID       uuid.UUID    `json:"executionId"`
	ParentExecutionID uuid.UUID    `json:"parentExecutionId"`
	TenantID          uuid.UUID    `json:"tenantId"`
	FromNodeID        models.NodeID `json:"fromNodeId,omitempty"`
}

func (c *Client) EnqueueWorkflowResume(ctx context.Context, payload WorkflowResumePayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeWorkflowResume, data,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := c.client.EnqueueContext(ctx, task)
	if err == nil {
		metrics.QueueTasksTotal.WithLabelValues(TypeWorkflowResume).Inc()
	}
	return info, err
}
