// Package ollama provides the Ollama client implementation for the LLM interface.
// Ollama is a local LLM runtime that allows running open-source models.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/tools"
)

// DefaultHost is the local Ollama server.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewOllamaClientWithModel creates a client for model served at hostURL.
// An unparseable hostURL falls back to DefaultHost.
func NewOllamaClientWithModel(hostURL, model string) llm.LLMClient {
	return newClient(hostURL, model, http.DefaultClient)
}

func newClient(hostURL, model string, httpClient *http.Client) *Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		parsedURL, _ = url.Parse(DefaultHost)
		hostURL = DefaultHost
	}
	return &Client{
		client:  api.NewClient(parsedURL, httpClient),
		model:   strings.TrimPrefix(model, "ollama:"),
		hostURL: hostURL,
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessagesToOllama(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}
	if len(in.Tools) > 0 {
		req.Tools, err = convertToolsToOllama(in.Tools)
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("tool conversion error: %v", err))
		}
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: getStopReason(&response),
		ToolCalls:  convertToolCallsFromOllama(response.Message.ToolCalls),
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// convertMessagesToOllama converts the conversation; Ollama accepts tool results as role "tool".
func convertMessagesToOllama(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))
	for _, msg := range llm.NormalizeToolTurns(messages) {
		ollamaMsg := api.Message{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			call, err := toolCallToOllama(tc)
			if err != nil {
				return nil, err
			}
			ollamaMsg.ToolCalls = append(ollamaMsg.ToolCalls, call)
		}
		result = append(result, ollamaMsg)
	}
	return result, nil
}

// toolCallToOllama decodes the raw argument text through Ollama's own JSON form.
// Arguments that are not a JSON object are sent as {}.
func toolCallToOllama(tc *llm.ToolCall) (api.ToolCall, error) {
	args := strings.TrimSpace(tc.Arguments)
	if !strings.HasPrefix(args, "{") || !json.Valid([]byte(args)) {
		args = "{}"
	}
	wire := fmt.Sprintf(`{"id":%q,"function":{"name":%q,"arguments":%s}}`, tc.ID, tc.Name, args)

	var call api.ToolCall
	if err := json.Unmarshal([]byte(wire), &call); err != nil {
		return api.ToolCall{}, fmt.Errorf("tool call %s: %w", tc.Name, err)
	}
	return call, nil
}

// convertToolsToOllama renders the catalog as OpenAI-style function tools, which Ollama accepts.
func convertToolsToOllama(toolDefs []tools.ToolDefinition) (api.Tools, error) {
	wire := make([]map[string]any, len(toolDefs))
	for i := range toolDefs {
		td := &toolDefs[i]
		wire[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        td.Name,
				"description": td.Description,
				"parameters":  td.InputSchema.JSONSchema(),
			},
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}
	var out api.Tools
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal tools: %w", err)
	}
	return out, nil
}

// convertToolCallsFromOllama extracts tool calls, generating ids when Ollama omits them.
func convertToolCallsFromOllama(calls []api.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]llm.ToolCall, len(calls))
	for i := range calls {
		call := &calls[i]
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		result[i] = llm.ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: string(args),
		}
	}
	return result
}

// getStopReason converts Ollama's done_reason to our stop reason format.
func getStopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to llmerrors types.
func classifyError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &llmerrors.Error{
			Type:    llmerrors.ClassifyStatus(statusErr.StatusCode),
			Status:  statusErr.StatusCode,
			Err:     err,
			Message: fmt.Sprintf("Ollama API error: %s", statusErr.ErrorMessage),
		}
	}

	errStr := err.Error()
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled or timed out")
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "Ollama server not reachable")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Ollama model not found")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "Ollama API error")
	}
}
