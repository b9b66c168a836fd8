package contextmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/agent/llm"
)

func TestSerializeRoundTrip(t *testing.T) {
	cm := NewContextManager("weather",
		llm.NewSystemMessage("Plan with multiple steps."),
		llm.NewUserMessage("What is the weather in Rome?"),
	)
	cm.Append(
		llm.CompletionMessage{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: "c1", Name: "getCoordinates", Arguments: `{"place":"Rome"}`}},
		},
		llm.NewToolMessage("c1", `{"lat":41.9,"lon":12.5}`),
	)

	data, err := cm.Serialize()
	require.NoError(t, err)

	restored := NewContextManager("")
	require.NoError(t, restored.Deserialize(data))

	assert.Equal(t, "weather", restored.AgentID())
	assert.Equal(t, cm.GetMessages(), restored.GetMessages())
}

func TestSerializeEmpty(t *testing.T) {
	data, err := NewContextManager("x").Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent_id":"x","messages":[]}`, string(data))
}

func TestDeserializeInvalid(t *testing.T) {
	cm := NewContextManager("x")
	assert.Error(t, cm.Deserialize([]byte("{not json")))
}
