package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/llmerrors"
	"tripplanner/pkg/tools"
)

func fakeOllama(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOllamaClientWithModel(t *testing.T) {
	tests := []struct {
		name     string
		hostURL  string
		model    string
		wantHost string
		wantName string
	}{
		{"valid host", "http://localhost:11434", "phi4:latest", "http://localhost:11434", "phi4:latest"},
		{"custom host", "http://192.168.1.100:11434", "llama3.1:8b", "http://192.168.1.100:11434", "llama3.1:8b"},
		{"invalid URL falls back", "not-a-valid-url", "mistral:7b", DefaultHost, "mistral:7b"},
		{"explicit prefix stripped", DefaultHost, "ollama:phi4", DefaultHost, "phi4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(tt.hostURL, tt.model, http.DefaultClient)
			assert.Equal(t, tt.wantHost, client.hostURL)
			assert.Equal(t, tt.wantName, client.GetModelName())
		})
	}
}

func TestComplete_ToolCall(t *testing.T) {
	var captured map[string]any
	// Ollama frames responses as newline-delimited JSON even when streaming is off.
	srv := fakeOllama(t, http.StatusOK,
		`{"model":"mistral-nemo:latest","created_at":"2025-06-01T00:00:00Z","done":true,"done_reason":"stop",`+
			`"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"getCoordinates","arguments":{"place":"Rome"}}}]}}`,
		&captured)

	client := newClient(srv.URL, "mistral-nemo:latest", srv.Client())
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("Plan with multiple steps."),
		llm.NewUserMessage("What is the weather in Rome?"),
	})
	req.Tools = tools.Catalog()

	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_0", resp.ToolCalls[0].ID)
	assert.Equal(t, "getCoordinates", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"place":"Rome"}`, resp.ToolCalls[0].Arguments)

	assert.Equal(t, false, captured["stream"])
	sent := captured["tools"].([]any)
	require.Len(t, sent, 5)
	fn := sent[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "getCoordinates", fn["name"])
}

func TestComplete_ServerError(t *testing.T) {
	srv := fakeOllama(t, http.StatusServiceUnavailable, `{"error":"server busy"}`, nil)

	client := newClient(srv.URL, "phi4", srv.Client())
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))

	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeTransient))
}

func TestConvertMessagesToOllama(t *testing.T) {
	_, err := convertMessagesToOllama(nil)
	assert.Error(t, err)

	msgs, err := convertMessagesToOllama([]llm.CompletionMessage{
		llm.NewUserMessage("go"),
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "a", Name: "getCoordinates", Arguments: `{"place":"Rome"}`}}},
		llm.NewToolMessage("a", `{"lat":41.9,"lon":12.5}`),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "getCoordinates", msgs[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", msgs[2].Role)
	assert.Equal(t, "a", msgs[2].ToolCallID)
}

func TestGetStopReason(t *testing.T) {
	assert.Equal(t, "incomplete", getStopReason(&api.ChatResponse{}))
	assert.Equal(t, "max_tokens", getStopReason(&api.ChatResponse{Done: true, DoneReason: "length"}))
	assert.Equal(t, "end_turn", getStopReason(&api.ChatResponse{Done: true}))
}
