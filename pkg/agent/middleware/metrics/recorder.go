// Package metrics provides metrics recording for LLM client operations and tool calls.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording LLM and tool metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, agentID string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveToolCall records one tool execution.
	ObserveToolCall(tool, status string, duration time.Duration)

	// ObserveAgentOutcome records how an agent loop ended.
	ObserveAgentOutcome(agentID, outcome string, iterations int)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// ObserveToolCall does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveToolCall(_, _ string, _ time.Duration) {}

// ObserveAgentOutcome does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveAgentOutcome(_, _ string, _ int) {}
