// Package services implements the external lookups behind the agent tools:
// geocoding, nearby airports, weather, flights and hotels.
package services

import (
	"math"
	"time"

	"tripplanner/pkg/httpclient"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/resilience"
)

// Upstream endpoints.
const (
	NominatimURL   = "https://nominatim.openstreetmap.org/search"
	OpenWeatherURL = "https://api.openweathermap.org/data/3.0/onecall"
	SerpAPIURL     = "https://serpapi.com/search.json"
)

// Defaults shared by the services.
const (
	DefaultTimeout            = 20 * time.Second
	DefaultCoordinatesTimeout = 8 * time.Second
	DefaultLanguage           = "en"
	DefaultCurrency           = "EUR"
	DefaultUserAgent          = "Travel Agent/1.0 (https://travel-agent.pages.dev/)"
)

// Coordinates is a resolved WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both values are finite and in range.
func (c Coordinates) Valid() bool {
	return ValidCoords(c.Lat, c.Lon)
}

// ValidCoords reports whether lat and lon form a usable position.
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Options holds what every HTTP-backed service needs.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Options struct {
	BaseURL  string              // Overrides the public endpoint, mainly for tests
	Client   *httpclient.Client  // Shared outbound client; a fresh one when nil
	Timeout  time.Duration       // Per-request timeout
	Retry    *resilience.Options // nil means resilience.DefaultOptions
	Logger   *logx.Logger
	Language string
	Currency string
}

func (o Options) withDefaults(baseURL string, timeout time.Duration, component string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Client == nil {
		o.Client = httpclient.New(nil)
	}
	if o.Timeout <= 0 {
		o.Timeout = timeout
	}
	retry := resilience.DefaultOptions()
	if o.Retry != nil {
		retry = *o.Retry
	}
	if o.Logger == nil {
		o.Logger = logx.NewLogger(component)
	}
	if retry.Name == "" {
		retry.Name = component
	}
	if retry.Logger == nil {
		retry.Logger = o.Logger
	}
	o.Retry = &retry
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	return o
}

// nonEmptyArray reports whether v is a JSON array with at least one element.
func nonEmptyArray(v any) bool {
	arr, ok := v.([]any)
	return ok && len(arr) > 0
}
