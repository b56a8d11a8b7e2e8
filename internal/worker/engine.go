package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/domain/repositories"
	"github.com/agentforge-ai/agentforge/internal/pkg/cache"
	"github.com/agentforge-ai/agentforge/internal/pkg/metrics"
	"github.com/agentforge-ai/agentforge/internal/pkg/redis"
	"github.com/agentforge-ai/agentforge/internal/pkg/validator"
	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Engine executes workflow graphs. Nodes run level by level in topological
// order; nodes on the same level have no path between them, so a failure on
// one only skips its own downstream.
//
// The engine owns the per-node state machine and publishes every transition.
// Cancellation is observed at node boundaries via the redis flag.
type Engine struct {
	executions  *repositories.ExecutionRepository
	versions    *repositories.WorkflowVersionRepository
	agents      *repositories.AgentRepository
	outputCache *cache.NodeOutputCache
	redisClient *redis.Client
	publisher   *realtime.Publisher
	nodeTimeout time.Duration
}

func NewEngine(
	executions *repositories.ExecutionRepository,
	versions *repositories.WorkflowVersionRepository,
	agents *repositories.AgentRepository,
	outputCache *cache.NodeOutputCache,
	redisClient *redis.Client,
	publisher *realtime.Publisher,
	nodeTimeout time.Duration,
) *Engine {
	if nodeTimeout <= 0 {
		nodeTimeout = 2 * time.Minute
	}
	return &Engine{
		executions:  executions,
		versions:    versions,
		agents:      agents,
		outputCache: outputCache,
		redisClient: redisClient,
		publisher:   publisher,
		nodeTimeout: nodeTimeout,
	}
}

// resumeInfo carries the lineage of a resumed execution.
type resumeInfo struct {
	parentID   uuid.UUID
	fromNodeID models.NodeID
}

// runState is the mutable state of one engine run.
type runState struct {
	execution *models.Execution
	graph     *models.Workflow
	nodeMap   map[models.NodeID]*models.Node
	incoming  map[models.NodeID][]models.EdgeID
	edges     map[models.EdgeID]*models.Edge
	registry  validator.RegistryMap
	states    map[models.NodeID]*models.NodeExecutionState
	outputs   map[models.NodeID]models.JSON
	resume    *resumeInfo
	startedAt time.Time
}

func (rs *runState) executionID() string {
	return rs.execution.ID.String()
}

// Execute runs a workflow execution to a terminal state.
func (e *Engine) Execute(ctx context.Context, executionID uuid.UUID) error {
	return e.run(ctx, executionID, nil)
}

// ExecuteResume runs a child execution created from a failed parent. Nodes
// whose states were pre-seeded with parent outputs are not re-run; their
// outputs are reused and announced as NODE_OUTPUT_REUSED.
func (e *Engine) ExecuteResume(ctx context.Context, executionID, parentExecutionID uuid.UUID, fromNodeID models.NodeID) error {
	return e.run(ctx, executionID, &resumeInfo{
		parentID:   parentExecutionID,
		fromNodeID: fromNodeID,
	})
}

func (e *Engine) run(ctx context.Context, executionID uuid.UUID, resume *resumeInfo) error {
	execution, err := e.executions.FindByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Str("execution_id", executionID.String()).Msg("Execution not found, dropping task")
			return nil
		}
		return err
	}
	if execution.Status.Terminal() {
		// Cancelled (or otherwise finalized) between enqueue and pickup.
		return nil
	}

	snapshot, err := e.versions.FindByWorkflowAndVersion(ctx, execution.WorkflowID, execution.WorkflowVersion)
	if err != nil {
		return err
	}
	graph := &models.Workflow{
		ID:      execution.WorkflowID,
		Version: execution.WorkflowVersion,
		Nodes:   snapshot.Nodes,
		Edges:   snapshot.Edges,
	}

	registry, err := e.loadRegistry(ctx)
	if err != nil {
		return err
	}

	order, err := validator.TopologicalSort(graph)
	if err != nil {
		return fmt.Errorf("execution %s: %w", executionID, err)
	}
	levels, err := validator.ExecutionLevels(graph)
	if err != nil {
		return fmt.Errorf("execution %s: %w", executionID, err)
	}

	started, err := e.executions.MarkStarted(ctx, execution.ID)
	if err != nil {
		return err
	}
	if !started {
		return nil
	}

	metrics.WorkflowExecutionsInProgress.Inc()
	defer metrics.WorkflowExecutionsInProgress.Dec()
	defer e.publisher.Release(executionID.String())

	rs := &runState{
		execution: execution,
		graph:     graph,
		nodeMap:   graph.NodeMap(),
		incoming:  validator.ReverseAdjacency(graph),
		edges:     graph.EdgeMap(),
		registry:  registry,
		outputs:   make(map[models.NodeID]models.JSON, len(graph.Nodes)),
		resume:    resume,
		startedAt: time.Now(),
	}
	rs.states = e.ensureNodeStates(rs)

	e.publish(ctx, realtime.ExecutionStarted(rs.executionID()))
	if resume != nil {
		reused, rerun := e.countResumePlan(rs)
		e.publish(ctx, realtime.ResumeStart(rs.executionID(), resume.parentID.String(), resume.fromNodeID, reused, rerun))
	}

	status := e.runLevels(ctx, rs, groupByLevel(order, levels))
	return e.finalize(ctx, rs, status)
}

// ensureNodeStates makes sure every graph node has a state entry; older rows
// may predate a node added in a later version.
func (e *Engine) ensureNodeStates(rs *runState) map[models.NodeID]*models.NodeExecutionState {
	existing := rs.execution.NodeStateMap()
	for _, node := range rs.graph.Nodes {
		if _, ok := existing[node.ID]; !ok {
			rs.execution.NodeStates = append(rs.execution.NodeStates, models.NodeExecutionState{
				NodeID: node.ID,
				Status: models.NodeStatusPending,
			})
		}
	}
	return rs.execution.NodeStateMap()
}

// countResumePlan splits the graph into reused and re-run nodes. Pre-seeded
// outputs mark the nodes that completed in the parent execution.
func (e *Engine) countResumePlan(rs *runState) (reused, rerun int) {
	for _, node := range rs.graph.Nodes {
		if st := rs.states[node.ID]; st != nil && st.Output != nil {
			reused++
		} else {
			rerun++
		}
	}
	return reused, rerun
}

// groupByLevel buckets a topological order by execution level. Order within
// a bucket follows the topological order, so ties keep insertion order.
func groupByLevel(order []models.NodeID, levels map[models.NodeID]int) [][]models.NodeID {
	max := 0
	for _, lvl := range levels {
		if lvl > max {
			max = lvl
		}
	}
	buckets := make([][]models.NodeID, max+1)
	for _, id := range order {
		lvl := levels[id]
		buckets[lvl] = append(buckets[lvl], id)
	}
	return buckets
}

// runLevels walks the graph and returns the terminal status.
func (e *Engine) runLevels(ctx context.Context, rs *runState, byLevel [][]models.NodeID) models.ExecutionStatus {
	failed := false

	for _, level := range byLevel {
		for _, nodeID := range level {
			cancelRequested, err := e.redisClient.CancelRequested(ctx, rs.executionID())
			if err != nil {
				log.Error().Err(err).Str("execution_id", rs.executionID()).Msg("Failed to check cancel flag")
			}
			if cancelRequested {
				return models.ExecutionStatusCancelled
			}

			st := rs.states[nodeID]
			node := rs.nodeMap[nodeID]
			if st == nil || node == nil {
				continue
			}

			if reason, blocked := e.upstreamBlocked(rs, nodeID); blocked {
				e.skipNode(ctx, rs, st, reason)
				continue
			}

			if rs.resume != nil && st.Output != nil {
				e.reuseNode(ctx, rs, st)
				continue
			}

			if err := e.runNode(ctx, rs, node, st); err != nil {
				failed = true
			}
		}

		if err := e.executions.SaveNodeStates(ctx, rs.execution.ID, rs.execution.NodeStates); err != nil {
			log.Error().Err(err).Str("execution_id", rs.executionID()).Msg("Failed to persist node states")
		}
	}

	if failed {
		return models.ExecutionStatusFailed
	}
	return models.ExecutionStatusCompleted
}

// upstreamBlocked reports whether any direct predecessor failed or was
// skipped. Skips propagate transitively level by level.
func (e *Engine) upstreamBlocked(rs *runState, nodeID models.NodeID) (string, bool) {
	for _, edgeID := range rs.incoming[nodeID] {
		edge, ok := rs.edges[edgeID]
		if !ok {
			continue
		}
		if st := rs.states[edge.Source]; st != nil {
			if st.Status == models.NodeStatusFailed || st.Status == models.NodeStatusSkipped {
				return fmt.Sprintf("upstream node %s did not complete", edge.Source), true
			}
		}
	}
	return "", false
}

func (e *Engine) skipNode(ctx context.Context, rs *runState, st *models.NodeExecutionState, reason string) {
	now := time.Now()
	st.Status = models.NodeStatusSkipped
	st.CompletedAt = &now

	e.publish(ctx, realtime.NodeSkipped(rs.executionID(), st.NodeID, reason))
	node := rs.nodeMap[st.NodeID]
	metrics.RecordNodeExecution(string(node.Type), string(models.NodeStatusSkipped), 0)
}

// reuseNode replays a parent execution's output without re-running the node.
func (e *Engine) reuseNode(ctx context.Context, rs *runState, st *models.NodeExecutionState) {
	now := time.Now()
	output := outputAsJSON(st.Output)
	rs.outputs[st.NodeID] = output
	st.Status = models.NodeStatusCompleted
	st.CompletedAt = &now

	e.publish(ctx, realtime.NodeOutputReused(rs.executionID(), st.NodeID, rs.resume.parentID.String()))
}

// runNode drives a single node through queued -> running -> terminal,
// retrying per the agent's policy. Cacheable agent outputs are served from
// the output cache when the resolved inputs match a prior run.
func (e *Engine) runNode(ctx context.Context, rs *runState, node *models.Node, st *models.NodeExecutionState) error {
	execID := rs.executionID()

	st.Status = models.NodeStatusQueued
	e.publish(ctx, realtime.NodeQueued(execID, node.ID))

	inputs := rs.resolveInputs(node.ID)

	var def *models.AgentDefinition
	if node.IsAgent() {
		var ok bool
		def, ok = rs.registry.Lookup(node.Config.AgentID)
		if !ok {
			return e.failNode(ctx, rs, node, st, fmt.Errorf("unknown agent definition: %s", node.Config.AgentID), time.Now())
		}

		if def.Cacheable {
			cached, err := e.outputCache.Get(ctx, def.ID, inputs)
			if err != nil {
				log.Error().Err(err).Str("agent_id", string(def.ID)).Msg("Output cache lookup failed")
			}
			if cached != nil {
				now := time.Now()
				rs.outputs[node.ID] = cached.Output
				st.Status = models.NodeStatusCompleted
				st.Output = cached.Output
				st.CompletedAt = &now

				e.publish(ctx, realtime.NodeCacheHit(execID, node.ID))
				metrics.NodeCacheHitsTotal.WithLabelValues(string(def.ID)).Inc()
				metrics.RecordNodeExecution(string(node.Type), "cache_hit", 0)
				return nil
			}
		}
	}

	policy := retryPolicyFor(node, def)
	nodeStart := time.Now()
	st.StartedAt = &nodeStart

	for attempt := 0; ; attempt++ {
		st.Status = models.NodeStatusRunning
		st.RetryCount = attempt
		e.publish(ctx, realtime.NodeRunning(execID, node.ID, attempt))

		output, err := e.invoke(ctx, rs, node, def, inputs)
		if err == nil {
			now := time.Now()
			rs.outputs[node.ID] = output
			st.Status = models.NodeStatusCompleted
			st.Output = output
			st.Error = ""
			st.CompletedAt = &now

			e.publish(ctx, realtime.NodeCompleted(execID, node.ID))
			metrics.RecordNodeExecution(string(node.Type), string(models.NodeStatusCompleted), now.Sub(nodeStart).Seconds())

			if def != nil && def.Cacheable {
				if err := e.outputCache.Set(ctx, def.ID, inputs, output); err != nil {
					log.Error().Err(err).Str("agent_id", string(def.ID)).Msg("Output cache write failed")
				}
			}
			return nil
		}

		if attempt >= policy.MaxRetries {
			return e.failNode(ctx, rs, node, st, err, nodeStart)
		}

		if def != nil {
			metrics.NodeRetriesTotal.WithLabelValues(string(def.ID)).Inc()
		}
		e.emitLog(ctx, rs.execution.ID, node.ID, realtime.LogLevelWarn,
			fmt.Sprintf("attempt %d failed: %v, retrying", attempt+1, err))

		delay := backoffDelay(policy, attempt)
		select {
		case <-ctx.Done():
			return e.failNode(ctx, rs, node, st, ctx.Err(), nodeStart)
		case <-time.After(delay):
		}
	}
}

func (e *Engine) failNode(ctx context.Context, rs *runState, node *models.Node, st *models.NodeExecutionState, cause error, nodeStart time.Time) error {
	now := time.Now()
	st.Status = models.NodeStatusFailed
	st.Error = cause.Error()
	st.CompletedAt = &now

	e.publish(ctx, realtime.NodeFailed(rs.executionID(), node.ID, cause.Error()))
	e.emitLog(ctx, rs.execution.ID, node.ID, realtime.LogLevelError, cause.Error())
	metrics.RecordNodeExecution(string(node.Type), string(models.NodeStatusFailed), now.Sub(nodeStart).Seconds())
	return cause
}

// resolveInputs materializes a node's input map from upstream outputs,
// keyed by target port.
func (rs *runState) resolveInputs(nodeID models.NodeID) models.JSON {
	inputs := models.JSON{}
	for _, edgeID := range rs.incoming[nodeID] {
		edge, ok := rs.edges[edgeID]
		if !ok {
			continue
		}
		source, ok := rs.outputs[edge.Source]
		if !ok {
			continue
		}
		if value, ok := source[string(edge.SourcePort)]; ok {
			inputs[string(edge.TargetPort)] = value
		}
	}
	return inputs
}

// finalize records the terminal status, publishes the terminal event and
// updates metrics. Safe to call after a lost race: MarkTerminal never touches
// an already-terminal row.
func (e *Engine) finalize(ctx context.Context, rs *runState, status models.ExecutionStatus) error {
	execID := rs.executionID()
	duration := time.Since(rs.startedAt).Seconds()

	var outputs models.JSON
	if status == models.ExecutionStatusCompleted {
		outputs = rs.collectOutputs()
	}

	if err := e.executions.MarkTerminal(ctx, rs.execution.ID, status, outputs, rs.execution.NodeStates); err != nil {
		return fmt.Errorf("failed to finalize execution %s: %w", execID, err)
	}

	switch status {
	case models.ExecutionStatusCompleted:
		e.publish(ctx, realtime.ExecutionCompleted(execID))
	case models.ExecutionStatusFailed:
		e.publish(ctx, realtime.ExecutionFailed(execID))
	case models.ExecutionStatusCancelled:
		e.publish(ctx, realtime.ExecutionCancelled(execID))
		if err := e.redisClient.ClearCancel(ctx, execID); err != nil {
			log.Error().Err(err).Str("execution_id", execID).Msg("Failed to clear cancel flag")
		}
	}

	if rs.resume != nil {
		e.publish(ctx, realtime.ResumeComplete(execID, status))
	}

	metrics.RecordWorkflowExecution(rs.execution.WorkflowID.String(), string(status), duration)

	log.Info().
		Str("execution_id", execID).
		Str("status", string(status)).
		Float64("duration_seconds", duration).
		Msg("Execution finished")
	return nil
}

// collectOutputs assembles the workflow-level outputs: the value received by
// each output node, keyed by node ID. Graphs without output nodes fall back
// to the exit nodes' full outputs.
func (rs *runState) collectOutputs() models.JSON {
	result := models.JSON{}
	for _, node := range rs.graph.Nodes {
		if node.Type != models.NodeTypeOutput {
			continue
		}
		if out, ok := rs.outputs[node.ID]; ok {
			result[string(node.ID)] = out["value"]
		}
	}
	if len(result) > 0 {
		return result
	}

	for _, nodeID := range validator.ExitNodes(rs.graph) {
		if out, ok := rs.outputs[nodeID]; ok {
			result[string(nodeID)] = out
		}
	}
	return result
}

func (e *Engine) loadRegistry(ctx context.Context) (validator.RegistryMap, error) {
	agents, err := e.agents.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent registry: %w", err)
	}
	registry := make(validator.RegistryMap, len(agents))
	for i := range agents {
		registry[agents[i].ID] = &agents[i]
	}
	return registry, nil
}

func (e *Engine) publish(ctx context.Context, ev realtime.Event) {
	// Publish failures are logged by the publisher; execution state stays
	// authoritative in the database.
	_ = e.publisher.Publish(ctx, ev)
}

func (e *Engine) emitLog(ctx context.Context, executionID uuid.UUID, nodeID models.NodeID, level, message string) {
	e.publish(ctx, realtime.LogEmitted(executionID.String(), nodeID, level, message))

	entry := &models.ExecutionLog{
		ExecutionID: executionID,
		NodeID:      nodeID,
		Level:       level,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
	if err := e.executions.AppendLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("execution_id", executionID.String()).Msg("Failed to persist execution log")
	}
}

// retryPolicyFor picks the retry policy: agents use their definition's
// policy, tool nodes the default, input/output nodes run once.
func retryPolicyFor(node *models.Node, def *models.AgentDefinition) models.RetryPolicy {
	switch {
	case def != nil:
		return def.RetryPolicy
	case node.Type == models.NodeTypeTool:
		return models.DefaultRetryPolicy
	default:
		return models.RetryPolicy{}
	}
}

func backoffDelay(policy models.RetryPolicy, attempt int) time.Duration {
	base := float64(policy.BackoffMs)
	if base <= 0 {
		base = 100
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return time.Duration(base*math.Pow(multiplier, float64(attempt))) * time.Millisecond
}

// outputAsJSON normalizes a persisted node output back into a JSON map.
// Scalar outputs (never produced by the engine, but tolerated) are wrapped.
func outputAsJSON(v interface{}) models.JSON {
	switch t := v.(type) {
	case models.JSON:
		return t
	case map[string]interface{}:
		return models.JSON(t)
	default:
		return models.JSON{"value": v}
	}
}
