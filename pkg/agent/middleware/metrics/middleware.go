package metrics

import (
	"context"
	"errors"
	"time"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken, including tool call arguments.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
		for _, call := range req.Messages[i].ToolCalls {
			promptText += call.Arguments + "\n"
		}
	}
	promptTokens = utils.CountTokensSimple(promptText)

	completionTokens = utils.CountTokensSimple(resp.Content)
	for _, call := range resp.ToolCalls {
		completionTokens += utils.CountTokensSimple(call.Arguments)
	}

	return promptTokens, completionTokens
}

// Middleware returns a middleware function that records metrics for LLM operations.
// The agent label is read from the context (logx.AgentIDKey).
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}
	if recorder == nil {
		recorder = Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = getErrorType(err)
				}

				agentID := agentIDFrom(ctx)
				recorder.ObserveRequest(model, agentID, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("🎯 LLM Request: model=%s agent=%s tokens=%d+%d=%d status=%s duration=%dms",
						model, agentID, promptTokens, completionTokens, promptTokens+completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

func agentIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(logx.AgentIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// getErrorType classifies errors for metrics labeling.
func getErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		var llmErr *llmerrors.Error
		if errors.As(err, &llmErr) {
			return llmErr.Type.String()
		}
		return "unknown"
	}
}
