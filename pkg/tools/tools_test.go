package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, any) (any, error) { return nil, nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	def := CoordinatesDefinition()
	require.NoError(t, r.Register(&def, noop))

	tool, err := r.Lookup(GetCoordinates)
	require.NoError(t, err)
	assert.Equal(t, GetCoordinates, tool.Definition.Name)
	assert.NotNil(t, tool.Exec)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("getTeleport")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "getTeleport", unknown.Name)
	assert.Equal(t, "Unknown tool: getTeleport", err.Error())
}

func TestRegistry_RejectsDuplicatesAndSealed(t *testing.T) {
	r := NewRegistry()
	def := WeatherDefinition()
	require.NoError(t, r.Register(&def, noop))
	assert.Error(t, r.Register(&def, noop))

	r.Seal()
	hotels := HotelsDefinition()
	assert.Error(t, r.Register(&hotels, noop))
}

func TestRegistry_RejectsMissingExecutor(t *testing.T) {
	r := NewRegistry()
	def := WeatherDefinition()
	assert.Error(t, r.Register(&def, nil))
	assert.Error(t, r.Register(&ToolDefinition{}, noop))
}

func TestRegistry_DefinitionsKeepOrder(t *testing.T) {
	r := NewRegistry()
	for _, def := range Catalog() {
		d := def
		require.NoError(t, r.Register(&d, noop))
	}
	assert.Equal(t, []string{GetCoordinates, GetNearbyAirports, GetWeatherData, GetFlightsData, GetHotelsData}, r.Names())
	assert.Len(t, r.Definitions(), 5)
}

func TestCatalog_Schemas(t *testing.T) {
	flights := FlightsDefinition()
	assert.ElementsMatch(t, []string{"fromIata", "toIata", "start", "end"}, flights.InputSchema.Required)

	schema := flights.InputSchema.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props := schema["properties"].(map[string]any)
	fromIata := props["fromIata"].(map[string]any)
	assert.Equal(t, "array", fromIata["type"])
	assert.Equal(t, 1, fromIata["minItems"])
	assert.Equal(t, map[string]any{"type": "string"}, fromIata["items"])

	hotels := HotelsDefinition()
	assert.Equal(t, "number", hotels.InputSchema.Properties["travellers"].Type)
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"json object", `{"place":"Paris"}`, map[string]any{"place": "Paris"}},
		{"padded json", "  {\"lat\": 1.5}\n", map[string]any{"lat": 1.5}},
		{"json string", `"Paris"`, "Paris"},
		{"single quoted", `'Paris'`, "Paris"},
		{"bare text", "Paris", "Paris"},
		{"single outside double", `'"Paris"'`, `"Paris"`},
		{"broken json in double quotes", `"Par"is"`, `Par"is`},
		{"double then single", `"'Par"is'"`, `Par"is`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArguments(tt.raw))
		})
	}
}

func TestDecodeArguments(t *testing.T) {
	var args struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	require.NoError(t, DecodeArguments(ParseArguments(`{"lat":48.85,"lon":2.35}`), &args))
	assert.InDelta(t, 48.85, args.Lat, 1e-9)
	assert.InDelta(t, 2.35, args.Lon, 1e-9)

	assert.Error(t, DecodeArguments(nil, &args))
	assert.Error(t, DecodeArguments("Paris", &args))
}
