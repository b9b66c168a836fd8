// Package retry provides retry middleware for LLM clients.
package retry

import (
	"context"
	"errors"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/resilience"
)

// Middleware retries failed consultations with exponential backoff per opts.
// Errors are classified with llmerrors.Retryable unless opts.Classifier is set.
// When a retryable error survives every attempt it is wrapped in a
// ServiceUnavailable error; non-retryable errors pass through unchanged.
func Middleware(opts resilience.Options) llm.Middleware {
	if opts.Classifier == nil {
		opts.Classifier = llmerrors.Retryable
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewLogger("llm-retry")
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				attempts := 0
				callOpts := opts
				callOpts.Name = "LLM call to " + next.GetModelName()

				resp, err := resilience.Do(ctx, func(ctx context.Context) (llm.CompletionResponse, error) {
					attempts++
					return next.Complete(ctx, req)
				}, callOpts)
				if err == nil {
					return resp, nil
				}

				if attempts > 0 && ctx.Err() == nil && opts.Classifier(err) && !errors.Is(err, context.Canceled) {
					return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(err, attempts)
				}
				return llm.CompletionResponse{}, err //nolint:wrapcheck // non-retryable errors pass through unchanged
			},
			next.GetModelName,
		)
	}
}
