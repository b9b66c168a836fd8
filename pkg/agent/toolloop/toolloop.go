// Package toolloop runs the bounded consult-dispatch cycle of a single agent.
package toolloop

import (
	"context"
	"fmt"
	"time"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/tools"
)

// DefaultMaxIterations bounds how many times the model may be consulted with tools.
const DefaultMaxIterations = 10

// Dispatcher executes tool calls and appends their results to the conversation.
type Dispatcher interface {
	Definitions() []tools.ToolDefinition
	Dispatch(ctx context.Context, calls []llm.ToolCall, conv *contextmgr.ContextManager) int
}

// ToolLoop manages LLM interactions with tool calling.
type ToolLoop struct {
	llmClient llm.LLMClient
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{
		llmClient: llmClient,
		logger:    logger,
	}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config struct {
	// Name labels logs and metrics, e.g. "weatherAgent".
	Name string

	// Conversation is owned by the caller and grows as the loop runs.
	Conversation *contextmgr.ContextManager

	Dispatcher Dispatcher

	// MaxIterations defaults to DefaultMaxIterations.
	MaxIterations int

	// MaxTokens and Temperature default to the llm package defaults.
	MaxTokens   int
	Temperature float32

	// DebugLogging logs every message sent to the model.
	DebugLogging bool
}

// Run consults the model until it stops calling tools, returns nothing,
// stops making progress, or MaxIterations is reached.
func (tl *ToolLoop) Run(ctx context.Context, cfg *Config) Outcome {
	if cfg.Conversation == nil {
		return Outcome{Kind: OutcomeLLMError, Err: fmt.Errorf("conversation is required")}
	}
	if cfg.Dispatcher == nil {
		return Outcome{Kind: OutcomeLLMError, Err: ErrNoDispatcher}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	ctx = tl.agentContext(ctx, cfg)

	toolDefs := cfg.Dispatcher.Definitions()
	out := Outcome{}

	for iteration := 0; iteration < maxIterations; iteration++ {
		out.Iterations = iteration + 1

		if err := ctx.Err(); err != nil {
			out.Kind, out.Err = OutcomeLLMError, err
			return out
		}

		req := tl.request(cfg, cfg.Conversation.GetMessages())
		req.Tools = toolDefs

		if cfg.DebugLogging {
			tl.logMessages(req.Messages)
		}

		tl.logger.Info("🔄 Starting LLM call to model '%s' with %d messages, %d tools (%s iteration %d)",
			tl.llmClient.GetModelName(), len(req.Messages), len(toolDefs), cfg.Name, iteration)

		start := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		duration := time.Since(start)
		out.Consultations++

		if err != nil {
			tl.logger.Error("❌ LLM call failed after %.3gs: %v", duration.Seconds(), err)
			out.Kind, out.Err = OutcomeLLMError, err
			return out
		}
		if resp.Empty() {
			tl.logger.Warn("⚠️  %s received no message at iteration %d", cfg.Name, iteration)
			out.Kind = OutcomeNoMessage
			return out
		}

		tl.logger.Info("✅ LLM call completed in %.3gs, response length: %d chars, tool calls: %d",
			duration.Seconds(), len(resp.Content), len(resp.ToolCalls))

		cfg.Conversation.Append(resp.Message())

		if len(resp.ToolCalls) == 0 {
			out.Kind = OutcomeFinalAnswer
			return out
		}

		added := cfg.Dispatcher.Dispatch(ctx, resp.ToolCalls, cfg.Conversation)
		if added == 0 {
			tl.logger.Warn("⚠️  %s made no progress dispatching %d tool calls", cfg.Name, len(resp.ToolCalls))
			out.Kind = OutcomeStuck
			return out
		}
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", maxIterations)
	out.Kind = OutcomeMaxIterations
	return out
}

// agentContext labels ctx with the agent name, falling back to the logger's
// agent so metrics stay attributed when the config carries no name.
func (tl *ToolLoop) agentContext(ctx context.Context, cfg *Config) context.Context {
	name := cfg.Name
	if name == "" {
		name = tl.logger.GetAgentID()
	}
	return logx.WithAgentID(ctx, name)
}

// Finalize asks the model for a final answer: the conversation plus one
// system instruction, without tools. The conversation itself is not modified.
func (tl *ToolLoop) Finalize(ctx context.Context, cfg *Config, instruction string) (string, error) {
	if cfg.Conversation == nil {
		return "", fmt.Errorf("conversation is required")
	}
	ctx = tl.agentContext(ctx, cfg)

	messages := append(cfg.Conversation.GetMessages(), llm.NewSystemMessage(instruction))
	req := tl.request(cfg, messages)

	tl.logger.Info("%s - response", cfg.Name)
	resp, err := tl.llmClient.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("final answer: %w", err)
	}
	if resp.Content == "" {
		return "", ErrNoMessage
	}
	return resp.Content, nil
}

func (tl *ToolLoop) request(cfg *Config, messages []llm.CompletionMessage) llm.CompletionRequest {
	req := llm.NewCompletionRequest(messages)
	if cfg.MaxTokens > 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		req.Temperature = cfg.Temperature
	}
	return req
}

// logMessages logs detailed message information for debugging.
func (tl *ToolLoop) logMessages(messages []llm.CompletionMessage) {
	tl.logger.Info("📝 DEBUG - Messages sent to LLM:")
	for i := range messages {
		msg := &messages[i]
		contentPreview := msg.Content
		if len(contentPreview) > 100 {
			contentPreview = contentPreview[:100] + "..."
		}

		toolInfo := ""
		if len(msg.ToolCalls) > 0 {
			toolInfo = fmt.Sprintf(", ToolCalls: %d", len(msg.ToolCalls))
		}
		if msg.ToolCallID != "" {
			toolInfo += ", ToolCallID: " + msg.ToolCallID
		}

		tl.logger.Info("  [%d] Role: %s, Content: %q%s", i, msg.Role, contentPreview, toolInfo)

		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			tl.logger.Info("    ToolCall[%d] ID=%s Name=%s Args=%s", j, tc.ID, tc.Name, tc.Arguments)
		}
	}
}
