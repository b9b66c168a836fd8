package services

import (
	"context"
	"errors"
	"fmt"

	"tripplanner/pkg/tools"
)

// Geocoder resolves place names.
type Geocoder interface {
	Get(ctx context.Context, place string) (Coordinates, error)
}

// AirportFinder lists airports near a position.
type AirportFinder interface {
	NearbyAirports(ctx context.Context, lat, lon float64) []string
}

// WeatherSource returns forecasts for a position.
type WeatherSource interface {
	Get(ctx context.Context, lat, lon float64) (map[string]any, error)
}

// FlightSearcher searches round-trip flights.
type FlightSearcher interface {
	Get(ctx context.Context, q FlightsQuery) (map[string]any, error)
}

// HotelSearcher searches stays.
type HotelSearcher interface {
	Get(ctx context.Context, q HotelsQuery) (map[string]any, error)
}

// Set is the collection of backends the tools run against. A nil backend
// makes its tool fail with a "not configured" error.
type Set struct {
	Coordinates Geocoder
	Airports    AirportFinder
	Weather     WeatherSource
	Flights     FlightSearcher
	Hotels      HotelSearcher
}

type coordinatesArgs struct {
	Place string `json:"place"`
}

type latLonArgs struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (a *latLonArgs) values() (float64, float64, error) {
	if a.Lat == nil || a.Lon == nil {
		return 0, 0, errors.New("lat/lon required")
	}
	return *a.Lat, *a.Lon, nil
}

// NewRegistry binds every catalog tool to its backend and seals the registry.
func NewRegistry(set Set) (*tools.Registry, error) {
	executors := map[string]tools.Executor{
		tools.GetCoordinates:    set.getCoordinates,
		tools.GetNearbyAirports: set.getNearbyAirports,
		tools.GetWeatherData:    set.getWeatherData,
		tools.GetFlightsData:    set.getFlightsData,
		tools.GetHotelsData:     set.getHotelsData,
	}

	reg := tools.NewRegistry()
	for _, def := range tools.Catalog() {
		d := def
		if err := reg.Register(&d, executors[d.Name]); err != nil {
			return nil, fmt.Errorf("register %s: %w", d.Name, err)
		}
	}
	reg.Seal()
	return reg, nil
}

func notConfigured(tool string) error {
	return fmt.Errorf("%s is not configured", tool)
}

func (s Set) getCoordinates(ctx context.Context, args any) (any, error) {
	if s.Coordinates == nil {
		return nil, notConfigured(tools.GetCoordinates)
	}
	var a coordinatesArgs
	// Arguments that were not JSON arrive as the bare place name.
	if place, ok := args.(string); ok {
		a.Place = place
	} else if err := tools.DecodeArguments(args, &a); err != nil {
		return nil, err
	}
	return s.Coordinates.Get(ctx, a.Place)
}

func (s Set) getNearbyAirports(ctx context.Context, args any) (any, error) {
	if s.Airports == nil {
		return nil, notConfigured(tools.GetNearbyAirports)
	}
	var a latLonArgs
	if err := tools.DecodeArguments(args, &a); err != nil {
		return nil, err
	}
	lat, lon, err := a.values()
	if err != nil {
		return nil, err
	}
	return s.Airports.NearbyAirports(ctx, lat, lon), nil
}

func (s Set) getWeatherData(ctx context.Context, args any) (any, error) {
	if s.Weather == nil {
		return nil, notConfigured(tools.GetWeatherData)
	}
	var a latLonArgs
	if err := tools.DecodeArguments(args, &a); err != nil {
		return nil, err
	}
	lat, lon, err := a.values()
	if err != nil {
		return nil, err
	}
	return s.Weather.Get(ctx, lat, lon)
}

func (s Set) getFlightsData(ctx context.Context, args any) (any, error) {
	if s.Flights == nil {
		return nil, notConfigured(tools.GetFlightsData)
	}
	var q FlightsQuery
	if err := tools.DecodeArguments(args, &q); err != nil {
		return nil, err
	}
	return s.Flights.Get(ctx, q)
}

func (s Set) getHotelsData(ctx context.Context, args any) (any, error) {
	if s.Hotels == nil {
		return nil, notConfigured(tools.GetHotelsData)
	}
	var q HotelsQuery
	if err := tools.DecodeArguments(args, &q); err != nil {
		return nil, err
	}
	return s.Hotels.Get(ctx, q)
}
