package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func roles(msgs []CompletionMessage) []string {
	out := make([]string, len(msgs))
	for i := range msgs {
		out[i] = string(msgs[i].Role) + ":" + msgs[i].ToolCallID + msgs[i].Content
	}
	return out
}

func TestNormalizeToolTurns_DefersNotes(t *testing.T) {
	in := []CompletionMessage{
		NewSystemMessage("sys"),
		NewUserMessage("go"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Name: "nope"}, {ID: "b", Name: "getCoordinates"}}},
		NewToolMessage("a", `{"error":"Unknown tool: nope"}`),
		NewAssistantMessage("Got nope result."),
		NewToolMessage("b", `{"lat":1,"lon":2}`),
		NewAssistantMessage("done"),
	}

	got := NormalizeToolTurns(in)

	assert.Equal(t, []string{
		"system:sys",
		"user:go",
		"assistant:",
		`tool:a{"error":"Unknown tool: nope"}`,
		`tool:b{"lat":1,"lon":2}`,
		"assistant:Got nope result.",
		"assistant:done",
	}, roles(got))
	assert.Equal(t, "assistant:Got nope result.", roles(in)[4], "input untouched")
}

func TestNormalizeToolTurns_AlreadyOrdered(t *testing.T) {
	in := []CompletionMessage{
		NewUserMessage("go"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a"}}},
		NewToolMessage("a", "{}"),
		NewAssistantMessage("Failed to get x result."),
		NewSystemMessage("final"),
	}
	assert.Equal(t, in, NormalizeToolTurns(in))
}

func TestNormalizeToolTurns_UnansweredCallsKeepNotes(t *testing.T) {
	in := []CompletionMessage{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a"}}},
		NewAssistantMessage("note"),
	}
	assert.Equal(t, in, NormalizeToolTurns(in))
}
