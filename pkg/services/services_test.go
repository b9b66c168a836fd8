package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/httpclient"
	"tripplanner/pkg/resilience"
)

func testOptions(url string) Options {
	return Options{
		BaseURL: url,
		Retry:   &resilience.Options{Retries: 2, BaseDelay: time.Millisecond, MaxElapsed: time.Second},
	}
}

func jsonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]Coordinates
}

func (c *mapCache) Get(_ context.Context, place string) (Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[place]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, place string, v Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[place] = v
	return nil
}

func TestCoordinates_Resolves(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Rome", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		writeJSON(w, http.StatusOK, `[{"lat":"41.8933203","lon":"12.4829321","display_name":"Roma"}]`)
	})

	c, err := NewCoordinatesService(testOptions(srv.URL), nil).Get(context.Background(), "  Rome ")

	require.NoError(t, err)
	assert.InDelta(t, 41.8933203, c.Lat, 1e-9)
	assert.InDelta(t, 12.4829321, c.Lon, 1e-9)
}

func TestCoordinates_Validation(t *testing.T) {
	_, err := NewCoordinatesService(testOptions("http://unused.invalid"), nil).Get(context.Background(), "   ")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestCoordinates_NotFound(t *testing.T) {
	for name, body := range map[string]string{
		"no results":   `[]`,
		"out of range": `[{"lat":"123","lon":"12"}]`,
		"garbage":      `[{"lat":"north","lon":"12"}]`,
		"missing lon":  `[{"lat":"41.9"}]`,
		"null lat":     `[{"lat":null,"lon":"12"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int32
			srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				writeJSON(w, http.StatusOK, body)
			})
			_, err := NewCoordinatesService(testOptions(srv.URL), nil).Get(context.Background(), "Atlantis")
			assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
			assert.Equal(t, int32(1), hits.Load(), "a place that cannot be located is not retried")
		})
	}
}

func TestCoordinates_NumericValues(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"lat":41.9,"lon":12.49}]`)
	})

	c, err := NewCoordinatesService(testOptions(srv.URL), nil).Get(context.Background(), "Rome")

	require.NoError(t, err)
	assert.InDelta(t, 41.9, c.Lat, 1e-9)
	assert.InDelta(t, 12.49, c.Lon, 1e-9)
}

func TestCoordinates_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			writeJSON(w, http.StatusInternalServerError, `{"error":"busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"lat":"48.85","lon":"2.35"}]`)
	})

	c, err := NewCoordinatesService(testOptions(srv.URL), nil).Get(context.Background(), "Paris")

	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.InDelta(t, 48.85, c.Lat, 1e-9)
}

func TestCoordinates_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"error":"bad query"}`)
	})

	_, err := NewCoordinatesService(testOptions(srv.URL), nil).Get(context.Background(), "Paris")

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCoordinates_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `[{"lat":"41.89","lon":"12.48"}]`)
	})
	cache := &mapCache{data: map[string]Coordinates{}}
	svc := NewCoordinatesService(testOptions(srv.URL), cache)

	first, err := svc.Get(context.Background(), "Rome")
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), "Rome")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWeather_Get(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "41.89", r.URL.Query().Get("lat"))
		assert.Equal(t, "12.48", r.URL.Query().Get("lon"))
		assert.Equal(t, "ow-key", r.URL.Query().Get("appid"))
		writeJSON(w, http.StatusOK, `{"daily":[{"temp":{"min":18.2,"max":27.9}}]}`)
	})

	data, err := NewWeatherService("ow-key", testOptions(srv.URL)).Get(context.Background(), 41.89, 12.48)

	require.NoError(t, err)
	assert.Len(t, data["daily"], 1)
}

func TestWeather_NoDailyIsNotFound(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"current":{}}`)
	})

	_, err := NewWeatherService("k", testOptions(srv.URL)).Get(context.Background(), 1, 2)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestWeather_InvalidCoordinates(t *testing.T) {
	_, err := NewWeatherService("k", testOptions("http://unused.invalid")).Get(context.Background(), 95, 2)
	assert.EqualError(t, err, "Invalid parameters")
}

func TestFlights_Get(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_flights", q.Get("engine"))
		assert.Equal(t, "serp-key", q.Get("api_key"))
		assert.Equal(t, "en", q.Get("hl"))
		assert.Equal(t, "EUR", q.Get("currency"))
		assert.Equal(t, "CDG,ORY", q.Get("departure_id"))
		assert.Equal(t, "FCO", q.Get("arrival_id"))
		assert.Equal(t, "2025-06-01", q.Get("outbound_date"))
		assert.Equal(t, "2025-06-07", q.Get("return_date"))
		writeJSON(w, http.StatusOK, `{"best_flights":[{"price":180}],"other_flights":[{"price":240}],"airports":[{"departure":[]}]}`)
	})
	svc, err := NewFlightsService("serp-key", testOptions(srv.URL))
	require.NoError(t, err)

	data, err := svc.Get(context.Background(), FlightsQuery{
		FromIata: []string{"CDG", "ORY"}, ToIata: []string{"FCO"}, Start: "2025-06-01", End: "2025-06-07",
	})

	require.NoError(t, err)
	assert.Contains(t, data, "best_flights")
}

func TestFlights_MissingSectionsIsNotFound(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"best_flights":[{"price":180}],"other_flights":[],"airports":[{}]}`)
	})
	svc, err := NewFlightsService("k", testOptions(srv.URL))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), FlightsQuery{FromIata: []string{"CDG"}, ToIata: []string{"FCO"}, Start: "a", End: "b"})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestFlights_RequiresKeyAndParams(t *testing.T) {
	_, err := NewFlightsService("", Options{})
	assert.EqualError(t, err, "api_key is required")

	svc, err := NewFlightsService("k", testOptions("http://unused.invalid"))
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), FlightsQuery{ToIata: []string{"FCO"}, Start: "a", End: "b"})
	assert.EqualError(t, err, "Invalid parameters")
}

func TestHotels_Get(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_hotels", q.Get("engine"))
		assert.Equal(t, "Rome", q.Get("q"))
		assert.Equal(t, "2", q.Get("adults"))
		assert.Equal(t, "0", q.Get("children"))
		assert.Equal(t, "2025-06-01", q.Get("check_in_date"))
		assert.Equal(t, "2025-06-07", q.Get("check_out_date"))
		assert.Equal(t, "USD", q.Get("currency"))
		writeJSON(w, http.StatusOK, `{"properties":[{"name":"Hotel Artemide"}]}`)
	})
	opts := testOptions(srv.URL)
	opts.Currency = "USD"
	svc, err := NewHotelsService("k", opts)
	require.NoError(t, err)

	// No ads is not an error.
	data, err := svc.Get(context.Background(), HotelsQuery{To: "Rome", Travellers: 2, Start: "2025-06-01", End: "2025-06-07"})

	require.NoError(t, err)
	assert.Contains(t, data, "properties")
}

func TestHotels_InvalidParams(t *testing.T) {
	svc, err := NewHotelsService("k", testOptions("http://unused.invalid"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), HotelsQuery{To: "Rome", Start: "a", End: "b"})
	assert.EqualError(t, err, "Invalid parameters")
}

func TestValidCoords(t *testing.T) {
	assert.True(t, ValidCoords(0, 0))
	assert.True(t, ValidCoords(-90, 180))
	assert.False(t, ValidCoords(90.1, 0))
	assert.False(t, ValidCoords(0, -180.5))
}
