package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/trip"
	"tripplanner/pkg/version"
)

const requestIDHeader = "X-Request-ID"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// TranscriptsResponse is the body of GET /api/v1/trips/{id}/transcripts.
type TranscriptsResponse struct {
	TripID      string                          `json:"trip_id"`
	Transcripts []contextmgr.SerializedContext `json:"transcripts"`
}

// withRequestID tags every request with an id, reusing the caller's when given.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePlanTrip handles POST /api/v1/trips.
func (s *Server) handlePlanTrip(w http.ResponseWriter, r *http.Request) {
	var raw trip.RawRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		s.writeError(w, r, apperr.NewValidationError("Invalid JSON body", nil))
		return
	}

	req, err := trip.NewRequest(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	ctx = logx.WithAgentID(ctx, "request-"+w.Header().Get(requestIDHeader))

	result := s.planner.PlanTrip(ctx, req)
	s.writeJSON(w, http.StatusOK, result)
}

// handleListTrips handles GET /api/v1/trips?limit=N.
func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	limit := s.listLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, apperr.NewValidationError("Invalid limit", []string{"limit must be a positive integer"}))
			return
		}
		limit = n
	}

	trips, err := s.history.ListTrips(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trips)
}

// handleGetTrip handles GET /api/v1/trips/{id}.
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.GetTrip(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleGetTranscripts handles GET /api/v1/trips/{id}/transcripts.
func (s *Server) handleGetTranscripts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.history.GetTrip(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	convs, err := s.history.GetTranscripts(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := TranscriptsResponse{TripID: id, Transcripts: make([]contextmgr.SerializedContext, 0, len(convs))}
	for _, cm := range convs {
		resp.Transcripts = append(resp.Transcripts, contextmgr.SerializedContext{
			AgentID:  cm.AgentID(),
			Messages: cm.GetMessages(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.usage.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// writeError answers with the error envelope. Untyped errors are logged and
// reported as internal errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("❌ %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		s.logger.Debug("%s %s rejected: %v", r.Method, r.URL.Path, verr.Fields())
	}
	s.writeJSON(w, status, apperr.ToBody(err))
}
