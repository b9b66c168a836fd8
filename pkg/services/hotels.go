package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/resilience"
)

const hotelsEngine = "google_hotels"

// HotelsQuery is a stay at a destination for a number of adults.
type HotelsQuery struct {
	To         string `json:"to"`
	Travellers int    `json:"travellers"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// HotelsService searches stays through SerpAPI's Google Hotels engine.
type HotelsService struct {
	opts   Options
	apiKey string
}

// NewHotelsService creates the hotel search client. apiKey is required.
func NewHotelsService(apiKey string, opts Options) (*HotelsService, error) {
	if apiKey == "" {
		return nil, errors.New("api_key is required")
	}
	return &HotelsService{
		opts:   opts.withDefaults(SerpAPIURL, DefaultTimeout, "hotels"),
		apiKey: apiKey,
	}, nil
}

// Get returns the raw search payload. A payload without ads is still
// returned; the model can work from the organic properties.
func (s *HotelsService) Get(ctx context.Context, q HotelsQuery) (map[string]any, error) {
	if q.To == "" || q.Travellers <= 0 || q.Start == "" || q.End == "" {
		return nil, errors.New("Invalid parameters") //nolint:stylecheck // surfaced verbatim to the model
	}

	query := url.Values{}
	query.Set("engine", hotelsEngine)
	query.Set("api_key", s.apiKey)
	query.Set("hl", s.opts.Language)
	query.Set("currency", s.opts.Currency)
	query.Set("q", q.To)
	query.Set("check_in_date", q.Start)
	query.Set("check_out_date", q.End)
	query.Set("adults", strconv.Itoa(q.Travellers))
	query.Set("children", "0")

	data, err := resilience.Do(ctx, func(ctx context.Context) (map[string]any, error) {
		var out map[string]any
		if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL, query, nil, s.opts.Timeout, &out); err != nil {
			return nil, err
		}
		if out == nil {
			return nil, apperr.NewRemoteAPIError("Fetching hotels data failed", nil)
		}
		return out, nil
	}, *s.opts.Retry)
	if err != nil {
		s.opts.Logger.Error("HotelsService.get: %v", err)
		return nil, err
	}

	if !nonEmptyArray(data["ads"]) {
		s.opts.Logger.Warn("⚠️  HotelsService.get: no hotel ads for %s", q.To)
	}
	return data, nil
}
