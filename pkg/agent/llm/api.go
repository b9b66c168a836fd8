// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"

	"tripplanner/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
	// RoleTool carries the result of a tool call back to the model.
	RoleTool CompletionRole = "tool"
)

const (
	// DefaultMaxTokens bounds a single completion.
	DefaultMaxTokens = 4096

	// TemperatureDefault keeps agent answers focused.
	TemperatureDefault = 0.3
)

// ToolCall is one function invocation requested by the model.
// Arguments hold the raw argument text exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// CompletionMessage represents a message in a conversation.
//
//nolint:govet // fieldalignment: logical grouping preferred
type CompletionMessage struct {
	Role       CompletionRole `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`  // Assistant messages only
	ToolCallID string         `json:"tool_call_id,omitempty"` // Tool messages only
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents the model's reply.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // Why the response stopped, as reported by the provider
}

// Empty reports whether the model returned neither text nor tool calls.
func (r *CompletionResponse) Empty() bool {
	return r.Content == "" && len(r.ToolCalls) == 0
}

// Message converts the response into the assistant message appended to a conversation.
func (r *CompletionResponse) Message() CompletionMessage {
	return CompletionMessage{
		Role:      RoleAssistant,
		Content:   r.Content,
		ToolCalls: append([]ToolCall(nil), r.ToolCalls...),
	}
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Keep name for backward compatibility
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message with plain text.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// NewToolMessage creates a tool result message answering the call with the given id.
func NewToolMessage(toolCallID, content string) CompletionMessage {
	return CompletionMessage{Role: RoleTool, ToolCallID: toolCallID, Content: content}
}
