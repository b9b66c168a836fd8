// Package api exposes trip planning over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/persistence"
	"tripplanner/pkg/trip"
)

const (
	// maxBodyBytes bounds a trip request body.
	maxBodyBytes = 64 << 10

	shutdownTimeout = 10 * time.Second
)

// TripPlanner plans one validated trip request. It never fails; agents that
// could not answer are represented by placeholders.
type TripPlanner interface {
	PlanTrip(ctx context.Context, req trip.Request) trip.Result
}

// TripHistory reads previously planned trips.
type TripHistory interface {
	GetTrip(ctx context.Context, id string) (*trip.Result, error)
	ListTrips(ctx context.Context, limit int) ([]persistence.TripSummary, error)
	GetTranscripts(ctx context.Context, tripID string) ([]*contextmgr.ContextManager, error)
}

// UsageReporter reports aggregated model and tool usage.
type UsageReporter interface {
	Snapshot() metrics.Snapshot
}

// Server is the HTTP entry point.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Server struct {
	planner        TripPlanner
	history        TripHistory
	usage          UsageReporter
	metricsHandler http.Handler
	logger         *logx.Logger
	allowedOrigins []string
	requestTimeout time.Duration
	listLimit      int
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the trip history endpoints.
func WithHistory(history TripHistory) Option {
	return func(s *Server) { s.history = history }
}

// WithUsage enables GET /api/v1/usage.
func WithUsage(usage UsageReporter) Option {
	return func(s *Server) { s.usage = usage }
}

// WithMetricsHandler serves handler at GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) { s.metricsHandler = handler }
}

// WithRequestTimeout bounds how long one trip may be planned for.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithListLimit sets the default page size of the trip list.
func WithListLimit(n int) Option {
	return func(s *Server) { s.listLimit = n }
}

// WithLogger overrides the server logger.
func WithLogger(logger *logx.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a server around planner.
func NewServer(planner TripPlanner, opts ...Option) *Server {
	s := &Server{
		planner:   planner,
		logger:    logx.NewLogger("api"),
		listLimit: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the route table without CORS.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/trips", s.handlePlanTrip).Methods(http.MethodPost)
	if s.history != nil {
		v1.HandleFunc("/trips", s.handleListTrips).Methods(http.MethodGet)
		v1.HandleFunc("/trips/{id}", s.handleGetTrip).Methods(http.MethodGet)
		v1.HandleFunc("/trips/{id}/transcripts", s.handleGetTranscripts).Methods(http.MethodGet)
	}
	if s.usage != nil {
		v1.HandleFunc("/usage", s.handleUsage).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the full handler: routes wrapped in CORS and request ids.
func (s *Server) Handler() http.Handler {
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(withRequestID(s.Router()))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌍 Trip planner listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		s.logger.Info("🛑 Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
