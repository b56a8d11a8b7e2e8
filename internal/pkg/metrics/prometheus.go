package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Validation Metrics
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_workflow_validations_total",
			Help: "Total number of workflow validations",
		},
		[]string{"result"},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentforge_workflow_validation_duration_seconds",
			Help:    "Workflow validation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// Workflow Execution Metrics
	WorkflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_workflow_executions_total",
			Help: "Total number of workflow executions",
		},
		[]string{"status"},
	)

	WorkflowExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentforge_workflow_execution_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"workflow_id"},
	)

	WorkflowExecutionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentforge_workflow_executions_in_progress",
			Help: "Number of workflow executions currently in progress",
		},
	)

	// Node Execution Metrics
	NodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_node_executions_total",
			Help: "Total number of node executions",
		},
		[]string{"node_type", "status"},
	)

	NodeExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentforge_node_execution_duration_seconds",
			Help:    "Node execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"node_type"},
	)

	NodeCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_node_cache_hits_total",
			Help: "Total number of node output cache hits",
		},
		[]string{"agent_id"},
	)

	NodeRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_node_retries_total",
			Help: "Total number of node retry attempts",
		},
		[]string{"agent_id"},
	)

	// WebSocket Metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentforge_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentforge_websocket_subscriptions_active",
			Help: "Number of active execution subscriptions",
		},
	)

	WebSocketEventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_websocket_events_dropped_total",
			Help: "Total number of events dropped due to slow consumers",
		},
		[]string{"event"},
	)

	// Queue Metrics
	QueueTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_queue_tasks_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"task_type"},
	)

	QueueTasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentforge_queue_tasks_processed_total",
			Help: "Total number of tasks processed",
		},
		[]string{"task_type", "status"},
	)
)

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTP metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := r.URL.Path

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordValidation records a validation run
func RecordValidation(valid bool, durationSeconds float64) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	ValidationsTotal.WithLabelValues(result).Inc()
	ValidationDuration.Observe(durationSeconds)
}

// RecordWorkflowExecution records workflow execution metrics
func RecordWorkflowExecution(workflowID, status string, durationSeconds float64) {
	WorkflowExecutionsTotal.WithLabelValues(status).Inc()
	if durationSeconds > 0 {
		WorkflowExecutionDuration.WithLabelValues(workflowID).Observe(durationSeconds)
	}
}

// RecordNodeExecution records node execution metrics
func RecordNodeExecution(nodeType, status string, durationSeconds float64) {
	NodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	if durationSeconds > 0 {
		NodeExecutionDuration.WithLabelValues(nodeType).Observe(durationSeconds)
	}
}
