package tools

// Tool names exposed to the model.
const (
	GetCoordinates    = "getCoordinates"
	GetNearbyAirports = "getNearbyAirports"
	GetWeatherData    = "getWeatherData"
	GetFlightsData    = "getFlightsData"
	GetHotelsData     = "getHotelsData"
)

func minItems(n int) *int { return &n }

// CoordinatesDefinition looks up the coordinates of a place.
func CoordinatesDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        GetCoordinates,
		Description: "Get coordinates for a given location",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"place": {Type: "string", Description: "The location for which to get coordinates"},
			},
			Required: []string{"place"},
		},
	}
}

// NearbyAirportsDefinition finds airports near coordinates.
func NearbyAirportsDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        GetNearbyAirports,
		Description: "Get the IATA codes of the nearest airports to given coordinates",
		InputSchema: latLonSchema(),
	}
}

// WeatherDefinition fetches the forecast at coordinates.
func WeatherDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        GetWeatherData,
		Description: "Get weather data for a given location coordinates",
		InputSchema: latLonSchema(),
	}
}

// FlightsDefinition searches round-trip flights between airport sets.
func FlightsDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        GetFlightsData,
		Description: "Get flights data for a given origin airport IATA codes and destination airport IATA codes between a start and end date",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"fromIata": {
					Type:        "array",
					Items:       &Property{Type: "string"},
					MinItems:    minItems(1),
					Description: "List of origin airport IATA codes",
				},
				"toIata": {
					Type:        "array",
					Items:       &Property{Type: "string"},
					MinItems:    minItems(1),
					Description: "List of destination airport IATA codes",
				},
				"start": {Type: "string", Description: "Start date (YYYY-MM-DD)"},
				"end":   {Type: "string", Description: "End date (YYYY-MM-DD)"},
			},
			Required: []string{"fromIata", "toIata", "start", "end"},
		},
	}
}

// HotelsDefinition searches hotels at a destination.
func HotelsDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        GetHotelsData,
		Description: "Get hotels data for a given destination for a given number of guests between a start and end date",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"to":         {Type: "string", Description: "Destination city or place name"},
				"travellers": {Type: "number", Description: "Guests (adults)"},
				"start":      {Type: "string", Description: "Start date (YYYY-MM-DD)"},
				"end":        {Type: "string", Description: "End date (YYYY-MM-DD)"},
			},
			Required: []string{"to", "travellers", "start", "end"},
		},
	}
}

// Catalog returns every trip tool definition in the order they are offered to the model.
func Catalog() []ToolDefinition {
	return []ToolDefinition{
		CoordinatesDefinition(),
		NearbyAirportsDefinition(),
		WeatherDefinition(),
		FlightsDefinition(),
		HotelsDefinition(),
	}
}

func latLonSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"lat": {Type: "number", Description: "Latitude"},
			"lon": {Type: "number", Description: "Longitude"},
		},
		Required: []string{"lat", "lon"},
	}
}
