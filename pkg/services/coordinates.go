package services

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/resilience"
)

// CoordinatesCache remembers resolved places between requests.
type CoordinatesCache interface {
	Get(ctx context.Context, place string) (Coordinates, bool, error)
	Set(ctx context.Context, place string, c Coordinates) error
}

// CoordinatesService resolves place names through Nominatim.
type CoordinatesService struct {
	opts      Options
	userAgent string
	cache     CoordinatesCache
}

// NewCoordinatesService creates the geocoder. cache may be nil.
func NewCoordinatesService(opts Options, cache CoordinatesCache) *CoordinatesService {
	return &CoordinatesService{
		opts:      opts.withDefaults(NominatimURL, DefaultCoordinatesTimeout, "coordinates"),
		userAgent: DefaultUserAgent,
		cache:     cache,
	}
}

// Nominatim sends coordinates as strings; raw values are parsed after the
// call so junk is a missing place rather than a failed request.
type nominatimPlace struct {
	Lat json.RawMessage `json:"lat"`
	Lon json.RawMessage `json:"lon"`
}

// parseCoord accepts a JSON string or number and returns NaN for anything else.
func parseCoord(raw json.RawMessage) float64 {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Get resolves place to coordinates. An empty place is a validation error and
// a place Nominatim cannot locate is a not-found error.
func (s *CoordinatesService) Get(ctx context.Context, place string) (Coordinates, error) {
	q := strings.TrimSpace(place)
	if q == "" {
		return Coordinates{}, apperr.NewValidationError("Place is required", nil)
	}

	if s.cache != nil {
		c, ok, err := s.cache.Get(ctx, q)
		if err != nil {
			s.opts.Logger.Warn("⚠️  Coordinates cache read failed for %q: %v", q, err)
		} else if ok {
			s.opts.Logger.Debug("Coordinates cache hit for %q", q)
			return c, nil
		}
	}

	query := url.Values{}
	query.Set("q", q)
	query.Set("limit", "1")
	query.Set("format", "json")
	headers := map[string]string{
		"User-Agent":      s.userAgent,
		"Accept-Language": s.opts.Language,
	}

	places, err := resilience.Do(ctx, func(ctx context.Context) ([]nominatimPlace, error) {
		var out []nominatimPlace
		if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL, query, headers, s.opts.Timeout, &out); err != nil {
			return nil, err
		}
		if out == nil {
			return nil, apperr.NewRemoteAPIError("CoordinatesService - fetching coordinates failed.", nil)
		}
		return out, nil
	}, *s.opts.Retry)
	if err != nil {
		s.opts.Logger.Error("CoordinatesService.get: %v", err)
		return Coordinates{}, err
	}

	if len(places) == 0 {
		return Coordinates{}, apperr.NewNotFoundError("No coordinates found")
	}
	c := Coordinates{Lat: parseCoord(places[0].Lat), Lon: parseCoord(places[0].Lon)}
	if !c.Valid() {
		return Coordinates{}, apperr.NewNotFoundError("No coordinates found")
	}

	s.opts.Logger.Info("📍 Resolved coordinates for place: %s (%.4f, %.4f)", place, c.Lat, c.Lon)

	if s.cache != nil {
		if err := s.cache.Set(ctx, q, c); err != nil {
			s.opts.Logger.Warn("⚠️  Coordinates cache write failed for %q: %v", q, err)
		}
	}
	return c, nil
}
