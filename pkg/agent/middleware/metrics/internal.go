package metrics

import (
	"sync"
	"time"
)

// InternalRecorder aggregates usage per agent in memory.
// It backs the usage endpoint without requiring a Prometheus server.
type InternalRecorder struct {
	agents map[string]*AgentMetrics
	tools  map[string]*ToolMetrics
	mu     sync.RWMutex
}

// AgentMetrics is the aggregated usage of one agent name.
//
//nolint:govet
type AgentMetrics struct {
	PromptTokens     int64            `json:"prompt_tokens"`
	CompletionTokens int64            `json:"completion_tokens"`
	TotalTokens      int64            `json:"total_tokens"`
	RequestCount     int64            `json:"request_count"`
	ErrorCount       int64            `json:"error_count"`
	Outcomes         map[string]int64 `json:"outcomes,omitempty"`
	AgentID          string           `json:"agent_id"`
	LastUpdated      time.Time        `json:"last_updated"`
}

// ToolMetrics is the aggregated usage of one tool.
type ToolMetrics struct {
	Calls    int64  `json:"calls"`
	Failures int64  `json:"failures"`
	Tool     string `json:"tool"`
}

// NewInternalRecorder returns an empty in-memory recorder.
func NewInternalRecorder() *InternalRecorder {
	return &InternalRecorder{
		agents: make(map[string]*AgentMetrics),
		tools:  make(map[string]*ToolMetrics),
	}
}

func (r *InternalRecorder) agent(agentID string) *AgentMetrics {
	a, exists := r.agents[agentID]
	if !exists {
		a = &AgentMetrics{AgentID: agentID, Outcomes: make(map[string]int64)}
		r.agents[agentID] = a
	}
	return a
}

// ObserveRequest records metrics for a completed LLM request.
func (r *InternalRecorder) ObserveRequest(
	_, agentID string,
	promptTokens, completionTokens int,
	success bool,
	_ string,
	_ time.Duration,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.agent(agentID)
	a.RequestCount++
	if success {
		a.PromptTokens += int64(promptTokens)
		a.CompletionTokens += int64(completionTokens)
		a.TotalTokens = a.PromptTokens + a.CompletionTokens
	} else {
		a.ErrorCount++
	}
	a.LastUpdated = time.Now()
}

// ObserveToolCall records one tool execution.
func (r *InternalRecorder) ObserveToolCall(tool, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tools[tool]
	if !exists {
		t = &ToolMetrics{Tool: tool}
		r.tools[tool] = t
	}
	t.Calls++
	if status != statusSuccess {
		t.Failures++
	}
}

// ObserveAgentOutcome records how an agent loop ended.
func (r *InternalRecorder) ObserveAgentOutcome(agentID, outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.agent(agentID)
	a.Outcomes[outcome]++
	a.LastUpdated = time.Now()
}

// Snapshot is a point-in-time copy of the aggregated usage.
type Snapshot struct {
	Agents map[string]AgentMetrics `json:"agents"`
	Tools  map[string]ToolMetrics  `json:"tools"`
}

// Snapshot returns a copy of all aggregated metrics.
func (r *InternalRecorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Agents: make(map[string]AgentMetrics, len(r.agents)),
		Tools:  make(map[string]ToolMetrics, len(r.tools)),
	}
	for id, a := range r.agents {
		cp := *a
		cp.Outcomes = make(map[string]int64, len(a.Outcomes))
		for k, v := range a.Outcomes {
			cp.Outcomes[k] = v
		}
		snap.Agents[id] = cp
	}
	for name, t := range r.tools {
		snap.Tools[name] = *t
	}
	return snap
}

// Reset clears all metrics.
func (r *InternalRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*AgentMetrics)
	r.tools = make(map[string]*ToolMetrics)
}

// multiRecorder fans each observation out to several recorders.
type multiRecorder []Recorder

// Tee returns a Recorder that forwards to every non-nil recorder.
func Tee(recorders ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) ObserveRequest(model, agentID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	for _, r := range m {
		r.ObserveRequest(model, agentID, promptTokens, completionTokens, success, errorType, duration)
	}
}

func (m multiRecorder) ObserveToolCall(tool, status string, duration time.Duration) {
	for _, r := range m {
		r.ObserveToolCall(tool, status, duration)
	}
}

func (m multiRecorder) ObserveAgentOutcome(agentID, outcome string, iterations int) {
	for _, r := range m {
		r.ObserveAgentOutcome(agentID, outcome, iterations)
	}
}
