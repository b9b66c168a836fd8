package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripplanner/pkg/agent"
	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/api"
	"tripplanner/pkg/config"
	"tripplanner/pkg/dispatch"
	"tripplanner/pkg/httpclient"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/persistence"
	"tripplanner/pkg/planner"
	"tripplanner/pkg/resilience"
	"tripplanner/pkg/services"
	"tripplanner/pkg/services/coordcache"
)

// app holds everything a running trip planner needs.
type app struct {
	cfg      *config.Config
	planner  *planner.Planner
	store    *persistence.TripStore
	usage    *metrics.InternalRecorder
	registry *prometheus.Registry
	closers  []func() error
	logger   *logx.Logger
}

// newApp wires configuration into services, tools, the model client and the planner.
// Optional backends (Redis cache, airports database, trip store) are skipped
// with a warning when they are not configured or not reachable.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		usage:  metrics.NewInternalRecorder(),
		logger: logx.NewLogger("tripplanner"),
	}

	recorder := metrics.Recorder(a.usage)
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		recorder = metrics.Tee(a.usage, metrics.NewPrometheusRecorder(a.registry))
	}

	set := a.services()
	registry, err := services.NewRegistry(set)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	client, err := agent.NewLLMClient(cfg, recorder, logx.NewLogger("llm"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	opts := []planner.Option{
		planner.WithRecorder(recorder),
		planner.WithMaxIterations(cfg.Agent.MaxIterations),
		planner.WithModelParams(cfg.Model.MaxTokens, cfg.Model.Temperature),
		planner.WithDebugLogging(cfg.Agent.DebugLLMMessages),
	}
	if cfg.Store.Path != "" {
		store, err := persistence.OpenTripStore(cfg.Store.Path)
		if err != nil {
			a.logger.Warn("⚠️  Trip history disabled: %v", err)
		} else {
			a.store = store
			a.closers = append(a.closers, store.Close)
			opts = append(opts, planner.WithStore(store))
		}
	}

	a.planner = planner.New(client, dispatch.New(registry, recorder, logx.NewLogger("dispatch")), opts...)
	a.logger.Info("✅ Trip planner ready (model %s, provider %s)", client.GetModelName(), cfg.Model.Provider)
	return a, nil
}

// services builds the tool backends. A backend without credentials is left nil.
func (a *app) services() services.Set {
	cfg := a.cfg
	retry := resilience.Options{
		Retries:    cfg.Retry.Retries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxElapsed: cfg.Retry.MaxElapsed,
	}
	client := httpclient.New(nil)
	opts := services.Options{
		Client:   client,
		Timeout:  cfg.Tools.HTTPTimeout,
		Retry:    &retry,
		Language: cfg.Tools.Language,
		Currency: cfg.Tools.Currency,
	}

	var set services.Set

	var cache services.CoordinatesCache
	if cfg.Redis.URL != "" {
		redisCache, err := coordcache.Connect(cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			a.logger.Warn("⚠️  Coordinates cache disabled: %v", err)
		} else {
			cache = redisCache
			a.closers = append(a.closers, redisCache.Close)
		}
	}
	coordOpts := opts
	coordOpts.Timeout = cfg.Tools.CoordinatesTimeout
	set.Coordinates = services.NewCoordinatesService(coordOpts, cache)

	if dbURL := secretOr(config.EnvAirportsDBURL, cfg.Airports.DatabaseURL); dbURL != "" {
		repo, err := services.OpenAirportsRepo(dbURL)
		if err != nil {
			a.logger.Warn("⚠️  Nearby airports disabled: %v", err)
		} else {
			set.Airports = repo
			a.closers = append(a.closers, repo.Close)
		}
	}

	if key := secretOr(config.EnvOpenWeatherAPIKey, ""); key != "" {
		set.Weather = services.NewWeatherService(key, opts)
	} else {
		a.logger.Warn("⚠️  %s not set; weather lookups will fail", config.EnvOpenWeatherAPIKey)
	}

	serpKey := secretOr(config.EnvSerpAPIKey, "")
	if flights, err := services.NewFlightsService(serpKey, opts); err == nil {
		set.Flights = flights
	} else {
		a.logger.Warn("⚠️  Flight search disabled: %v", err)
	}
	if hotels, err := services.NewHotelsService(serpKey, opts); err == nil {
		set.Hotels = hotels
	} else {
		a.logger.Warn("⚠️  Hotel search disabled: %v", err)
	}
	return set
}

// server builds the HTTP API over the planner.
func (a *app) server() *api.Server {
	opts := []api.Option{
		api.WithUsage(a.usage),
		api.WithRequestTimeout(a.cfg.Agent.RequestTimeout),
		api.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
		api.WithListLimit(a.cfg.Store.ListLimit),
	}
	if a.store != nil {
		opts = append(opts, api.WithHistory(a.store))
	}
	if a.registry != nil {
		opts = append(opts, api.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	return api.NewServer(a.planner, opts...)
}

// Close releases every opened backend, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close: %v", err)
		}
	}
	a.closers = nil
}

// secretOr returns the named secret, or fallback when it is not set.
func secretOr(name, fallback string) string {
	if v, err := config.GetSecret(name); err == nil && v != "" {
		return v
	}
	return fallback
}
