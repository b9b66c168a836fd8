package toolloop_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/toolloop"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/dispatch"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/tools"
)

// scriptedLLM replays responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []llm.CompletionResponse
	errs      []error
	requests  []llm.CompletionRequest
	fallback  func(n int) (llm.CompletionResponse, error)
}

func (m *scriptedLLM) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	if n < len(m.errs) && m.errs[n] != nil {
		return llm.CompletionResponse{}, m.errs[n]
	}
	if n < len(m.responses) {
		return m.responses[n], nil
	}
	if m.fallback != nil {
		return m.fallback(n)
	}
	return llm.CompletionResponse{}, errors.New("no more mock responses")
}

func (m *scriptedLLM) GetModelName() string { return "mock-model" }

func toolCall(id, name, args string) llm.CompletionResponse {
	return llm.CompletionResponse{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func newDispatcher(t *testing.T, execs map[string]tools.Executor) *dispatch.Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	for _, def := range tools.Catalog() {
		exec := execs[def.Name]
		if exec == nil {
			exec = func(context.Context, any) (any, error) { return map[string]any{"ok": true}, nil }
		}
		d := def
		require.NoError(t, reg.Register(&d, exec))
	}
	return dispatch.New(reg, nil, nil)
}

func newConfig(t *testing.T, d toolloop.Dispatcher) *toolloop.Config {
	t.Helper()
	return &toolloop.Config{
		Name: "weatherAgent",
		Conversation: contextmgr.NewContextManager("weatherAgent",
			llm.NewSystemMessage("Plan with multiple steps."),
			llm.NewUserMessage("What is the weather in Rome between 2025-06-01 and 2025-06-07?"),
		),
		Dispatcher: d,
	}
}

func TestRun_DirectAnswer(t *testing.T) {
	client := &scriptedLLM{responses: []llm.CompletionResponse{{Content: "It will be sunny."}}}
	cfg := newConfig(t, newDispatcher(t, nil))

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeFinalAnswer, out.Kind)
	assert.Equal(t, 1, out.Consultations)
	assert.NoError(t, out.Err)
	assert.Equal(t, 3, cfg.Conversation.GetMessageCount())

	// Every consultation offers the tool catalog.
	require.Len(t, client.requests, 1)
	assert.Len(t, client.requests[0].Tools, 5)
}

func TestRun_AlwaysCallingToolsStopsAtTen(t *testing.T) {
	client := &scriptedLLM{fallback: func(n int) (llm.CompletionResponse, error) {
		return toolCall(fmt.Sprintf("c%d", n), tools.GetCoordinates, `{"place":"Rome"}`), nil
	}}
	cfg := newConfig(t, newDispatcher(t, nil))

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeMaxIterations, out.Kind)
	assert.Equal(t, 10, out.Consultations)
	assert.Equal(t, 10, out.Iterations)
	assert.NoError(t, out.Err)
	// seed + 10 × (assistant + tool result)
	assert.Equal(t, 22, cfg.Conversation.GetMessageCount())
}

func TestRun_CustomIterationBudget(t *testing.T) {
	client := &scriptedLLM{fallback: func(n int) (llm.CompletionResponse, error) {
		return toolCall(fmt.Sprintf("c%d", n), tools.GetWeatherData, `{"lat":1,"lon":2}`), nil
	}}
	cfg := newConfig(t, newDispatcher(t, nil))
	cfg.MaxIterations = 3

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeMaxIterations, out.Kind)
	assert.Equal(t, 3, out.Consultations)
}

func TestRun_ToolThenAnswer(t *testing.T) {
	var place any
	client := &scriptedLLM{responses: []llm.CompletionResponse{
		toolCall("a", tools.GetCoordinates, `{"place":"Rome"}`),
		{Content: "Rome: 20-28°C."},
	}}
	cfg := newConfig(t, newDispatcher(t, map[string]tools.Executor{
		tools.GetCoordinates: func(_ context.Context, args any) (any, error) {
			place = args.(map[string]any)["place"]
			return map[string]float64{"lat": 41.9, "lon": 12.5}, nil
		},
	}))

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeFinalAnswer, out.Kind)
	assert.Equal(t, 2, out.Consultations)
	assert.Equal(t, "Rome", place)

	// Second consultation sees the assistant tool call followed by its result.
	second := client.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, llm.RoleTool, second[3].Role)
	assert.Equal(t, "a", second[3].ToolCallID)
}

func TestRun_EmptyResponseIsNoMessage(t *testing.T) {
	client := &scriptedLLM{responses: []llm.CompletionResponse{{StopReason: "stop"}}}
	cfg := newConfig(t, newDispatcher(t, nil))

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeNoMessage, out.Kind)
	assert.Equal(t, 2, cfg.Conversation.GetMessageCount(), "nothing appended for an empty response")
}

// stuckDispatcher never appends anything.
type stuckDispatcher struct{ calls int }

func (s *stuckDispatcher) Definitions() []tools.ToolDefinition { return tools.Catalog() }

func (s *stuckDispatcher) Dispatch(context.Context, []llm.ToolCall, *contextmgr.ContextManager) int {
	s.calls++
	return 0
}

func TestRun_NoProgressIsStuck(t *testing.T) {
	client := &scriptedLLM{fallback: func(int) (llm.CompletionResponse, error) {
		return toolCall("s", tools.GetHotelsData, "{}"), nil
	}}
	d := &stuckDispatcher{}
	cfg := newConfig(t, d)

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeStuck, out.Kind)
	assert.Equal(t, 1, out.Consultations)
	assert.Equal(t, 1, d.calls)
}

func TestRun_LLMError(t *testing.T) {
	boom := errors.New("upstream 503")
	client := &scriptedLLM{errs: []error{boom}}
	cfg := newConfig(t, newDispatcher(t, nil))

	out := toolloop.New(client, nil).Run(context.Background(), cfg)

	assert.Equal(t, toolloop.OutcomeLLMError, out.Kind)
	assert.ErrorIs(t, out.Err, boom)
}

func TestRun_CancelledContext(t *testing.T) {
	client := &scriptedLLM{responses: []llm.CompletionResponse{{Content: "never"}}}
	cfg := newConfig(t, newDispatcher(t, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := toolloop.New(client, nil).Run(ctx, cfg)

	assert.Equal(t, toolloop.OutcomeLLMError, out.Kind)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, client.requests)
}

func TestRun_RequiresDispatcher(t *testing.T) {
	cfg := newConfig(t, nil)
	cfg.Dispatcher = nil

	out := toolloop.New(&scriptedLLM{}, nil).Run(context.Background(), cfg)
	assert.ErrorIs(t, out.Err, toolloop.ErrNoDispatcher)
}

func TestFinalize(t *testing.T) {
	client := &scriptedLLM{responses: []llm.CompletionResponse{{Content: "Sunny, 18-27°C."}}}
	cfg := newConfig(t, newDispatcher(t, nil))
	loop := toolloop.New(client, nil)

	answer, err := loop.Finalize(context.Background(), cfg, "Respond only with a one-sentence weather forecast.")

	require.NoError(t, err)
	assert.Equal(t, "Sunny, 18-27°C.", answer)

	req := client.requests[0]
	assert.Empty(t, req.Tools, "final consultation is made without tools")
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleSystem, req.Messages[2].Role)
	assert.Equal(t, 2, cfg.Conversation.GetMessageCount(), "conversation is not modified")
}

func TestFinalize_EmptyContent(t *testing.T) {
	client := &scriptedLLM{responses: []llm.CompletionResponse{{}}}
	cfg := newConfig(t, newDispatcher(t, nil))

	_, err := toolloop.New(client, nil).Finalize(context.Background(), cfg, "answer")
	assert.ErrorIs(t, err, toolloop.ErrNoMessage)
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "final_answer", toolloop.OutcomeFinalAnswer.String())
	assert.Equal(t, "max_iterations", toolloop.OutcomeMaxIterations.String())
	assert.Equal(t, "OutcomeKind(99)", toolloop.OutcomeKind(99).String())
}

// agentLabelLLM records the agent id carried by each request context.
type agentLabelLLM struct {
	labels []string
}

func (m *agentLabelLLM) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	label, _ := ctx.Value(logx.AgentIDKey).(string)
	m.labels = append(m.labels, label)
	return llm.CompletionResponse{Content: "done"}, nil
}

func (m *agentLabelLLM) GetModelName() string { return "mock-model" }

func TestRun_AgentLabelOnContext(t *testing.T) {
	t.Run("from config name", func(t *testing.T) {
		client := &agentLabelLLM{}
		cfg := newConfig(t, newDispatcher(t, nil))

		loop := toolloop.New(client, logx.NewLogger("planner"))
		loop.Run(context.Background(), cfg)
		_, err := loop.Finalize(context.Background(), cfg, "Answer now.")

		require.NoError(t, err)
		assert.Equal(t, []string{"weatherAgent", "weatherAgent"}, client.labels)
	})

	t.Run("from logger when unnamed", func(t *testing.T) {
		client := &agentLabelLLM{}
		cfg := newConfig(t, newDispatcher(t, nil))
		cfg.Name = ""

		loop := toolloop.New(client, logx.NewLogger("planner").WithAgentID("hotelsAgent"))
		loop.Run(context.Background(), cfg)

		assert.Equal(t, []string{"hotelsAgent"}, client.labels)
	})
}
