// Package anthropic provides the Anthropic Claude client implementation for the LLM interface.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/tools"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient.
//
//nolint:govet // Simple client struct, logical grouping preferred
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClient creates a client for DefaultModel.
func NewClaudeClient(apiKey string) llm.LLMClient {
	return NewClaudeClientWithModel(apiKey, DefaultModel)
}

// NewClaudeClientWithModel creates a raw client; middleware is applied at a higher level.
func NewClaudeClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &ClaudeClient{
		client: anthropic.NewClient(reqOpts...),
		model:  anthropic.Model(model),
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, messages, err := buildMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(in.Tools) > 0 {
		params.Tools = convertTools(in.Tools)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, nil
	}

	out := llm.CompletionResponse{StopReason: string(resp.StopReason)}
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			use := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        use.ID,
				Name:      use.Name,
				Arguments: string(use.Input),
			})
		}
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// buildMessages converts a conversation to Anthropic's format.
// Leading system messages become the system prompt; later ones (such as a
// final-answer instruction) become user text. Tool results are sent as
// tool_result blocks and consecutive same-role turns are merged so roles
// strictly alternate starting with the user.
func buildMessages(messages []llm.CompletionMessage) (string, []anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var out []anthropic.MessageParam
	seenConversation := false

	push := func(role anthropic.MessageParamRole, block anthropic.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: []anthropic.ContentBlockParamUnion{block}})
	}

	for _, msg := range llm.NormalizeToolTurns(messages) {
		switch msg.Role {
		case llm.RoleSystem:
			if !seenConversation {
				systemParts = append(systemParts, msg.Content)
				continue
			}
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case llm.RoleUser:
			seenConversation = true
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case llm.RoleTool:
			seenConversation = true
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		case llm.RoleAssistant:
			seenConversation = true
			if msg.Content != "" {
				push(anthropic.MessageParamRoleAssistant, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				push(anthropic.MessageParamRoleAssistant, anthropic.NewToolUseBlock(tc.ID, toolInput(tc.Arguments), tc.Name))
			}
		default:
			return "", nil, fmt.Errorf("unsupported role %q", msg.Role)
		}
	}

	if len(out) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if out[0].Role != anthropic.MessageParamRoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", out[0].Role)
	}
	return strings.Join(systemParts, "\n\n"), out, nil
}

// toolInput passes well-formed JSON objects through and replaces anything else with {}.
func toolInput(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return json.RawMessage(`{}`)
}

func convertTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(defs))
	for i := range defs {
		def := &defs[i]
		schema := def.InputSchema.JSONSchema()
		out[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   def.InputSchema.Required,
			},
		}}
	}
	return out
}

// classifyError maps Anthropic SDK errors to llmerrors types.
func classifyError(err error) *llmerrors.Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	case errors.Is(err, context.Canceled):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &llmerrors.Error{
			Type:     llmerrors.ClassifyStatus(apiErr.StatusCode),
			Status:   apiErr.StatusCode,
			Err:      err,
			BodyStub: llmerrors.SanitizePrompt(apiErr.RawJSON(), 200),
		}
	}
	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
}
