package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	agentOutcomes   *prometheus.CounterVec
	agentIterations *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the trip planner metrics with reg.
// A nil reg uses the default Prometheus registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, agent and status",
			},
			[]string{"model", "agent_id", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "agent_id", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "agent_id"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		agentOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_loop_outcomes_total",
				Help: "How agent loops ended, by agent and outcome",
			},
			[]string{"agent_id", "outcome"},
		),
		agentIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_loop_iterations",
				Help:    "Iterations used per agent loop",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"agent_id"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, agentID string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, agentID, status, errorType).Inc()

	// Tokens only on success
	if success {
		p.tokensTotal.WithLabelValues(model, agentID, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, agentID, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, agentID).Observe(duration.Seconds())
}

// ObserveToolCall records one tool execution.
func (p *PrometheusRecorder) ObserveToolCall(tool, status string, duration time.Duration) {
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
	p.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveAgentOutcome records how an agent loop ended.
func (p *PrometheusRecorder) ObserveAgentOutcome(agentID, outcome string, iterations int) {
	p.agentOutcomes.WithLabelValues(agentID, outcome).Inc()
	p.agentIterations.WithLabelValues(agentID).Observe(float64(iterations))
}
