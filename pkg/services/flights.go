package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/resilience"
)

const flightsEngine = "google_flights"

// FlightsQuery is a round trip between any of the origin and destination airports.
type FlightsQuery struct {
	FromIata []string `json:"fromIata"`
	ToIata   []string `json:"toIata"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

// FlightsService searches round trips through SerpAPI's Google Flights engine.
type FlightsService struct {
	opts   Options
	apiKey string
}

// NewFlightsService creates the flight search client. apiKey is required.
func NewFlightsService(apiKey string, opts Options) (*FlightsService, error) {
	if apiKey == "" {
		return nil, errors.New("api_key is required")
	}
	return &FlightsService{
		opts:   opts.withDefaults(SerpAPIURL, DefaultTimeout, "flights"),
		apiKey: apiKey,
	}, nil
}

// Get returns the raw search payload. Best flights, other flights and
// airports must all be present, otherwise the result is a not-found error.
func (s *FlightsService) Get(ctx context.Context, q FlightsQuery) (map[string]any, error) {
	if len(q.FromIata) == 0 || len(q.ToIata) == 0 || q.Start == "" || q.End == "" {
		return nil, errors.New("Invalid parameters") //nolint:stylecheck // surfaced verbatim to the model
	}

	query := url.Values{}
	query.Set("engine", flightsEngine)
	query.Set("api_key", s.apiKey)
	query.Set("hl", s.opts.Language)
	query.Set("currency", s.opts.Currency)
	query.Set("departure_id", strings.Join(q.FromIata, ","))
	query.Set("arrival_id", strings.Join(q.ToIata, ","))
	query.Set("outbound_date", q.Start)
	query.Set("return_date", q.End)

	data, err := resilience.Do(ctx, func(ctx context.Context) (map[string]any, error) {
		var out map[string]any
		if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL, query, nil, s.opts.Timeout, &out); err != nil {
			return nil, err
		}
		if out == nil {
			return nil, apperr.NewRemoteAPIError("Fetching flights data failed", nil)
		}
		return out, nil
	}, *s.opts.Retry)
	if err != nil {
		s.opts.Logger.Error("FlightsService.get: %v", err)
		return nil, err
	}

	if !nonEmptyArray(data["best_flights"]) || !nonEmptyArray(data["other_flights"]) || !nonEmptyArray(data["airports"]) {
		s.opts.Logger.Error("FlightsService.get: no flights %v → %v", q.FromIata, q.ToIata)
		return nil, apperr.NewNotFoundError("No flights data found")
	}
	return data, nil
}
