package llm

// NormalizeToolTurns reorders a conversation so every assistant tool call
// batch is immediately followed by its tool results. Plain assistant notes
// recorded while calls are still unanswered are moved after the last result.
// The input slice is not modified.
func NormalizeToolTurns(messages []CompletionMessage) []CompletionMessage {
	out := make([]CompletionMessage, 0, len(messages))
	var deferred []CompletionMessage
	pending := map[string]bool{}

	flush := func() {
		out = append(out, deferred...)
		deferred = deferred[:0]
		clear(pending)
	}

	for i := range messages {
		msg := messages[i]
		switch {
		case msg.Role == RoleTool:
			out = append(out, msg)
			delete(pending, msg.ToolCallID)
			if len(pending) == 0 {
				flush()
			}
		case len(pending) > 0 && msg.Role == RoleAssistant && len(msg.ToolCalls) == 0:
			deferred = append(deferred, msg)
		default:
			flush()
			out = append(out, msg)
			if msg.Role == RoleAssistant {
				for _, tc := range msg.ToolCalls {
					pending[tc.ID] = true
				}
			}
		}
	}
	flush()
	return out
}
