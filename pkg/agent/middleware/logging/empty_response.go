// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"strings"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/tools"
)

// maxLoggedContent bounds each logged message.
const maxLoggedContent = 2000

// EmptyResponseLoggingMiddleware logs debugging information when the model
// returns neither text nor tool calls, then passes the response through unchanged.
func EmptyResponseLoggingMiddleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm-middleware")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if (err == nil && resp.Empty()) || llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
					logEmptyResponseDebugInfo(logger, next.GetModelName(), &req, resp.StopReason)
				}
				return resp, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}

func logEmptyResponseDebugInfo(logger *logx.Logger, model string, req *llm.CompletionRequest, stopReason string) {
	logger.Warn("🚨 EMPTY RESPONSE FROM %s (stop reason %q)", model, stopReason)
	for i := range req.Messages {
		msg := &req.Messages[i]
		logger.Warn("Message [%d] Role: %s, ToolCalls: %d, Content: %s",
			i, msg.Role, len(msg.ToolCalls), llmerrors.SanitizePrompt(msg.Content, maxLoggedContent))
	}
	logger.Warn("  - Temperature: %v, Max Tokens: %d, Tools: %s",
		req.Temperature, req.MaxTokens, strings.Join(toolNames(req.Tools), ", "))
}

func toolNames(defs []tools.ToolDefinition) []string {
	names := make([]string, len(defs))
	for i := range defs {
		names[i] = defs[i].Name
	}
	return names
}
