package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/tools"
)

func newRegistry(t *testing.T, execs map[string]tools.Executor) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, def := range tools.Catalog() {
		exec, ok := execs[def.Name]
		if !ok {
			continue
		}
		d := def
		require.NoError(t, r.Register(&d, exec))
	}
	return r
}

func TestDispatch_KnownToolAppendsResult(t *testing.T) {
	var gotArgs any
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetCoordinates: func(_ context.Context, args any) (any, error) {
			gotArgs = args
			return map[string]float64{"lat": 48.85, "lon": 2.35}, nil
		},
	})
	rec := metrics.NewInternalRecorder()
	d := New(reg, rec, nil)
	conv := contextmgr.NewContextManager("weather")

	added := d.Dispatch(context.Background(), []llm.ToolCall{
		{ID: "a", Name: tools.GetCoordinates, Arguments: `{"place":"Paris"}`},
	}, conv)

	require.Equal(t, 1, added)
	assert.Equal(t, map[string]any{"place": "Paris"}, gotArgs)

	msg := conv.GetMessages()[0]
	assert.Equal(t, llm.RoleTool, msg.Role)
	assert.Equal(t, "a", msg.ToolCallID)
	assert.JSONEq(t, `{"lat":48.85,"lon":2.35}`, msg.Content)
	assert.Equal(t, int64(1), rec.Snapshot().Tools[tools.GetCoordinates].Calls)
}

func TestDispatch_NilResultBecomesEmptyObject(t *testing.T) {
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetWeatherData: func(context.Context, any) (any, error) { return nil, nil },
	})
	conv := contextmgr.NewContextManager("weather")

	New(reg, nil, nil).Dispatch(context.Background(), []llm.ToolCall{{ID: "w", Name: tools.GetWeatherData, Arguments: "{}"}}, conv)

	assert.Equal(t, "{}", conv.GetMessages()[0].Content)
}

func TestDispatch_UnknownToolDoesNotDisturbBatch(t *testing.T) {
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetCoordinates: func(context.Context, any) (any, error) { return []string{"ok"}, nil },
	})
	conv := contextmgr.NewContextManager("flights")

	added := New(reg, nil, nil).Dispatch(context.Background(), []llm.ToolCall{
		{ID: "x", Name: "getTeleport", Arguments: "{}"},
		{ID: "y", Name: tools.GetCoordinates, Arguments: `{"place":"Rome"}`},
	}, conv)

	require.Equal(t, 3, added)
	msgs := conv.GetMessages()

	assert.Equal(t, llm.RoleTool, msgs[0].Role)
	assert.Equal(t, "x", msgs[0].ToolCallID)
	assert.JSONEq(t, `{"error":"Unknown tool: getTeleport"}`, msgs[0].Content)

	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Got getTeleport result.", msgs[1].Content)

	assert.Equal(t, "y", msgs[2].ToolCallID)
	assert.Equal(t, `["ok"]`, msgs[2].Content)
}

func TestDispatch_ExecutorFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"message kept", errors.New("kaboom"), "kaboom"},
		{"empty message", errors.New(""), "Tool failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, map[string]tools.Executor{
				tools.GetHotelsData: func(context.Context, any) (any, error) { return nil, tt.err },
			})
			rec := metrics.NewInternalRecorder()
			conv := contextmgr.NewContextManager("hotels")

			added := New(reg, rec, nil).Dispatch(context.Background(), []llm.ToolCall{{ID: "c", Name: tools.GetHotelsData, Arguments: "{}"}}, conv)
			require.Equal(t, 2, added)

			msgs := conv.GetMessages()
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(msgs[0].Content), &payload))
			assert.Equal(t, tt.wantMsg, payload["error"])
			assert.Equal(t, "c", msgs[0].ToolCallID)
			assert.Equal(t, "Failed to get getHotelsData result.", msgs[1].Content)
			assert.Equal(t, int64(1), rec.Snapshot().Tools[tools.GetHotelsData].Failures)
		})
	}
}

func TestDispatch_PanicIsRecovered(t *testing.T) {
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetFlightsData: func(context.Context, any) (any, error) { panic("nil map") },
	})
	conv := contextmgr.NewContextManager("flights")

	added := New(reg, nil, nil).Dispatch(context.Background(), []llm.ToolCall{{ID: "p", Name: tools.GetFlightsData}}, conv)

	require.Equal(t, 2, added)
	assert.JSONEq(t, `{"error":"nil map"}`, conv.GetMessages()[0].Content)
}

func TestDispatch_UnencodableResultIsFailure(t *testing.T) {
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetWeatherData: func(context.Context, any) (any, error) { return make(chan int), nil },
	})
	conv := contextmgr.NewContextManager("weather")

	added := New(reg, nil, nil).Dispatch(context.Background(), []llm.ToolCall{{ID: "z", Name: tools.GetWeatherData}}, conv)

	require.Equal(t, 2, added)
	assert.Equal(t, "Failed to get getWeatherData result.", conv.GetMessages()[1].Content)
}

func TestDispatch_RawStringArguments(t *testing.T) {
	var got any
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetCoordinates: func(_ context.Context, args any) (any, error) {
			got = args
			return map[string]any{}, nil
		},
	})

	New(reg, nil, nil).Dispatch(context.Background(),
		[]llm.ToolCall{{ID: "s", Name: tools.GetCoordinates, Arguments: " 'Paris' "}},
		contextmgr.NewContextManager("weather"))

	assert.Equal(t, "Paris", got)
}

func TestDispatch_NoCallsNoMessages(t *testing.T) {
	conv := contextmgr.NewContextManager("weather")
	assert.Zero(t, New(tools.NewRegistry(), nil, nil).Dispatch(context.Background(), nil, conv))
	assert.Zero(t, conv.GetMessageCount())
}

func TestDefinitions(t *testing.T) {
	reg := newRegistry(t, map[string]tools.Executor{
		tools.GetCoordinates: func(context.Context, any) (any, error) { return nil, nil },
		tools.GetWeatherData: func(context.Context, any) (any, error) { return nil, nil },
	})
	defs := New(reg, nil, nil).Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, tools.GetCoordinates, defs[0].Name)
}
