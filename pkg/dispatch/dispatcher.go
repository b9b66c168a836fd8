// Package dispatch executes the tool calls requested by the model and feeds
// their results back into the agent's conversation.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/tools"
)

const (
	statusSuccess = "success"
	statusError   = "error"
	statusUnknown = "unknown_tool"

	defaultFailureMessage = "Tool failed"
)

// Dispatcher routes tool calls to registered executors.
// It holds no per-conversation state and may be shared by concurrent agent loops.
type Dispatcher struct {
	registry *tools.Registry
	recorder metrics.Recorder
	logger   *logx.Logger
}

// New creates a dispatcher over registry. A nil recorder disables metrics.
func New(registry *tools.Registry, recorder metrics.Recorder, logger *logx.Logger) *Dispatcher {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if logger == nil {
		logger = logx.NewLogger("dispatch")
	}
	return &Dispatcher{registry: registry, recorder: recorder, logger: logger}
}

// Definitions returns the tool schemas offered to the model.
func (d *Dispatcher) Definitions() []tools.ToolDefinition {
	return d.registry.Definitions()
}

// Dispatch executes calls in order and appends their results to conv.
// It never fails: unknown tools and executor errors become messages the
// model can read. It returns the number of messages appended.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []llm.ToolCall, conv *contextmgr.ContextManager) int {
	before := conv.GetMessageCount()
	for i := range calls {
		conv.Append(d.handle(ctx, &calls[i])...)
	}
	return conv.GetMessageCount() - before
}

func (d *Dispatcher) handle(ctx context.Context, call *llm.ToolCall) []llm.CompletionMessage {
	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		d.logger.Warn("⚠️  Model requested unknown tool %q", call.Name)
		d.recorder.ObserveToolCall(call.Name, statusUnknown, 0)
		return []llm.CompletionMessage{
			llm.NewToolMessage(call.ID, errorPayload(err.Error())),
			llm.NewAssistantMessage(fmt.Sprintf("Got %s result.", call.Name)),
		}
	}

	args := tools.ParseArguments(call.Arguments)
	start := time.Now()
	result, err := execute(ctx, tool.Exec, args)
	duration := time.Since(start)

	var content string
	if err == nil {
		content, err = encodeResult(result)
	}
	if err != nil {
		d.logger.Error("Error executing tool: %s: %v", call.Name, err)
		d.recorder.ObserveToolCall(call.Name, statusError, duration)
		msg := err.Error()
		if msg == "" {
			msg = defaultFailureMessage
		}
		return []llm.CompletionMessage{
			llm.NewToolMessage(call.ID, errorPayload(msg)),
			llm.NewAssistantMessage(fmt.Sprintf("Failed to get %s result.", call.Name)),
		}
	}

	logx.Debug(ctx, "dispatch", "tool %s completed in %v", call.Name, duration)
	d.recorder.ObserveToolCall(call.Name, statusSuccess, duration)
	return []llm.CompletionMessage{llm.NewToolMessage(call.ID, content)}
}

// execute runs the executor, converting a panic into an error.
func execute(ctx context.Context, exec tools.Executor, args any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return exec(ctx, args)
}

func encodeResult(result any) (string, error) {
	if result == nil {
		return "{}", nil
	}
	encoded, err := marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	if encoded == "null" {
		return "{}", nil
	}
	return encoded, nil
}

func errorPayload(msg string) string {
	encoded, err := marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error":"` + defaultFailureMessage + `"}`
	}
	return encoded
}

// marshal encodes v compactly without HTML escaping.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err //nolint:wrapcheck // wrapped by callers
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
