package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/resilience"
)

// WeatherService fetches forecasts from the OpenWeather One Call 3.0 API.
type WeatherService struct {
	opts   Options
	apiKey string
}

// NewWeatherService creates the forecast client.
func NewWeatherService(apiKey string, opts Options) *WeatherService {
	return &WeatherService{
		opts:   opts.withDefaults(OpenWeatherURL, DefaultTimeout, "weather"),
		apiKey: apiKey,
	}
}

// Get returns the raw One Call payload for lat/lon. A payload without daily
// forecasts is a not-found error.
func (s *WeatherService) Get(ctx context.Context, lat, lon float64) (map[string]any, error) {
	if !ValidCoords(lat, lon) {
		return nil, errors.New("Invalid parameters") //nolint:stylecheck // surfaced verbatim to the model
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", s.apiKey)

	data, err := resilience.Do(ctx, func(ctx context.Context) (map[string]any, error) {
		var out map[string]any
		if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL, query, nil, s.opts.Timeout, &out); err != nil {
			return nil, err
		}
		if out == nil {
			return nil, apperr.NewRemoteAPIError("Fetching weather data failed", nil)
		}
		return out, nil
	}, *s.opts.Retry)
	if err != nil {
		s.opts.Logger.Error("WeatherService.get: %v", err)
		return nil, err
	}

	if !nonEmptyArray(data["daily"]) {
		s.opts.Logger.Error("WeatherService.get: no daily forecast for (%.4f, %.4f)", lat, lon)
		return nil, apperr.NewNotFoundError("No weather data found")
	}
	return data, nil
}
