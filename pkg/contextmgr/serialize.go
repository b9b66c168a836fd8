package contextmgr

import (
	"encoding/json"
	"fmt"

	"tripplanner/pkg/agent/llm"
)

// SerializedContext is the persisted form of a transcript.
type SerializedContext struct {
	AgentID  string                  `json:"agent_id,omitempty"`
	Messages []llm.CompletionMessage `json:"messages"`
}

// Serialize converts the ContextManager state to JSON bytes.
func (cm *ContextManager) Serialize() ([]byte, error) {
	sc := SerializedContext{
		AgentID:  cm.agentID,
		Messages: cm.messages,
	}
	if sc.Messages == nil {
		sc.Messages = []llm.CompletionMessage{}
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	return data, nil
}

// Deserialize restores the ContextManager state from JSON bytes.
// This replaces all existing state in the context manager.
func (cm *ContextManager) Deserialize(data []byte) error {
	var sc SerializedContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("failed to unmarshal context: %w", err)
	}
	cm.agentID = sc.AgentID
	cm.messages = sc.Messages
	if cm.messages == nil {
		cm.messages = make([]llm.CompletionMessage, 0)
	}
	return nil
}
