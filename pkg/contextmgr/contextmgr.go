// Package contextmgr holds the per-agent conversation transcript.
package contextmgr

import (
	"fmt"
	"sort"
	"strings"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/utils"
)

// ContextManager is the ordered message list of one agent run.
// It is owned by a single agent and is not safe for concurrent use.
type ContextManager struct {
	messages []llm.CompletionMessage
	agentID  string
}

// NewContextManager creates a context manager seeded with the given messages.
func NewContextManager(agentID string, seed ...llm.CompletionMessage) *ContextManager {
	cm := &ContextManager{
		messages: make([]llm.CompletionMessage, 0, len(seed)+8),
		agentID:  agentID,
	}
	cm.messages = append(cm.messages, seed...)
	return cm
}

// AgentID returns the owning agent's identifier.
func (cm *ContextManager) AgentID() string {
	return cm.agentID
}

// Append adds messages to the end of the transcript.
func (cm *ContextManager) Append(msgs ...llm.CompletionMessage) {
	cm.messages = append(cm.messages, msgs...)
}

// AddMessage stores a role/content pair in the context.
func (cm *ContextManager) AddMessage(role llm.CompletionRole, content string) {
	cm.messages = append(cm.messages, llm.CompletionMessage{Role: role, Content: content})
}

// GetMessages returns a copy of all messages in the context.
func (cm *ContextManager) GetMessages() []llm.CompletionMessage {
	result := make([]llm.CompletionMessage, len(cm.messages))
	copy(result, cm.messages)
	return result
}

// GetMessageCount returns the number of messages in the context.
func (cm *ContextManager) GetMessageCount() int {
	return len(cm.messages)
}

// Last returns the most recent message, if any.
func (cm *ContextManager) Last() (llm.CompletionMessage, bool) {
	if len(cm.messages) == 0 {
		return llm.CompletionMessage{}, false
	}
	return cm.messages[len(cm.messages)-1], true
}

// CountTokens estimates the transcript size in tokens.
func (cm *ContextManager) CountTokens() int {
	total := 0
	for i := range cm.messages {
		m := &cm.messages[i]
		total += utils.CountTokensSimple(m.Content)
		for _, call := range m.ToolCalls {
			total += utils.CountTokensSimple(call.Name) + utils.CountTokensSimple(call.Arguments)
		}
	}
	return total
}

// GetContextSummary returns a brief summary of the context state.
func (cm *ContextManager) GetContextSummary() string {
	if len(cm.messages) == 0 {
		return "Empty context"
	}

	roleCounts := make(map[string]int)
	for i := range cm.messages {
		roleCounts[string(cm.messages[i].Role)]++
	}
	roles := make([]string, 0, len(roleCounts))
	for role := range roleCounts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	breakdown := make([]string, 0, len(roles))
	for _, role := range roles {
		breakdown = append(breakdown, fmt.Sprintf("%s: %d", role, roleCounts[role]))
	}

	return fmt.Sprintf("%d messages (%d tokens) - %s",
		len(cm.messages), cm.CountTokens(), strings.Join(breakdown, ", "))
}
