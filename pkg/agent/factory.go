// Package agent builds the model client every trip agent consults.
package agent

import (
	"fmt"

	"tripplanner/pkg/agent/internal/llmimpl/anthropic"
	"tripplanner/pkg/agent/internal/llmimpl/google"
	"tripplanner/pkg/agent/internal/llmimpl/ollama"
	"tripplanner/pkg/agent/internal/llmimpl/openaiofficial"
	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/middleware/logging"
	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/agent/middleware/resilience/retry"
	"tripplanner/pkg/agent/middleware/resilience/timeout"
	"tripplanner/pkg/config"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/resilience"
)

// NewLLMClient creates the configured model client wrapped in the middleware chain.
// The API key is read from the decrypted secrets or the environment.
func NewLLMClient(cfg *config.Config, recorder metrics.Recorder, logger *logx.Logger) (llm.LLMClient, error) {
	rawClient, err := NewRawClient(&cfg.Model)
	if err != nil {
		return nil, err
	}
	return Wrap(rawClient, cfg, recorder, logger), nil
}

// NewRawClient creates the provider client for model without middleware.
func NewRawClient(model *config.ModelConfig) (llm.LLMClient, error) {
	provider := model.Provider
	if provider == "" {
		var err error
		provider, err = config.GetModelProvider(model.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to determine provider for model %s: %w", model.Name, err)
		}
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	switch provider {
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, model.Name, model.BaseURL), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, model.Name), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model.Name), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(apiKey, model.Name), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Wrap applies the middleware chain to rawClient in this order:
// Metrics -> EmptyResponseLogging -> Retry -> Timeout -> RawClient.
// The timeout sits innermost so every attempt gets its own deadline.
func Wrap(rawClient llm.LLMClient, cfg *config.Config, recorder metrics.Recorder, logger *logx.Logger) llm.LLMClient {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	retryOpts := resilience.Options{
		Retries:    cfg.Retry.Retries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxElapsed: cfg.Retry.MaxElapsed,
		Logger:     logger,
	}
	return llm.Chain(rawClient,
		metrics.Middleware(recorder, nil, logger),
		logging.EmptyResponseLoggingMiddleware(logger),
		retry.Middleware(retryOpts),
		timeout.Middleware(cfg.Agent.ModelTimeout),
	)
}
