package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/trip"
)

// ErrTripNotFound is returned when a requested trip does not exist.
var ErrTripNotFound = apperr.NewNotFoundError("Trip not found") //nolint:gochecknoglobals

// TripSummary is one row of the trip history.
//
//nolint:govet // struct alignment optimization not critical for this type.
type TripSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Complete  bool      `json:"complete"`
}

// TripStore saves planned trips and the transcripts that produced them.
type TripStore struct {
	db     *sql.DB
	logger *logx.Logger
	now    func() time.Time
}

// NewTripStore wraps an opened database (see Open).
func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{
		db:     db,
		logger: logx.NewLogger("persistence"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OpenTripStore opens the database at dbPath and returns a store on it.
func OpenTripStore(dbPath string) (*TripStore, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return NewTripStore(db), nil
}

// Close closes the database.
func (s *TripStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SaveTrip stores result and the agent transcripts in one transaction and
// returns the new trip id.
func (s *TripStore) SaveTrip(ctx context.Context, result *trip.Result, transcripts []*contextmgr.ContextManager) (string, error) {
	id := uuid.NewString()
	now := s.now().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trips (id, created_at, from_place, to_place, travellers, start_date, end_date, budget, weather, flight, hotel, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, now, result.From, result.To, result.Travellers, result.Start, result.End, result.Budget,
		nullable(result.Weather), nullable(result.Flight), nullable(result.Hotel), result.Complete())
	if err != nil {
		return "", fmt.Errorf("failed to insert trip: %w", err)
	}

	for _, conv := range transcripts {
		data, err := conv.Serialize()
		if err != nil {
			return "", fmt.Errorf("failed to serialize %s transcript: %w", conv.AgentID(), err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO agent_contexts (trip_id, agent_id, messages_json, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(trip_id, agent_id) DO UPDATE SET
				messages_json = excluded.messages_json,
				updated_at = excluded.updated_at
		`, id, conv.AgentID(), string(data), now)
		if err != nil {
			return "", fmt.Errorf("failed to save agent context: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit trip: %w", err)
	}

	s.logger.Info("💾 Saved trip %s (%s → %s, %d transcripts)", id, result.From, result.To, len(transcripts))
	return id, nil
}

// GetTrip returns a stored trip, or ErrTripNotFound.
func (s *TripStore) GetTrip(ctx context.Context, id string) (*trip.Result, error) {
	var (
		r                      trip.Result
		weather, flight, hotel sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, from_place, to_place, travellers, start_date, end_date, budget, weather, flight, hotel
		FROM trips WHERE id = ?
	`, id).Scan(&r.ID, &r.From, &r.To, &r.Travellers, &r.Start, &r.End, &r.Budget, &weather, &flight, &hotel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	r.Weather = fromNullable(weather)
	r.Flight = fromNullable(flight)
	r.Hotel = fromNullable(hotel)
	return &r, nil
}

// ListTrips returns the most recent trips first. limit <= 0 means 50.
func (s *TripStore) ListTrips(ctx context.Context, limit int) ([]TripSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, from_place, to_place, start_date, end_date, complete
		FROM trips ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trips := []TripSummary{}
	for rows.Next() {
		var (
			t         TripSummary
			createdAt string
		)
		if err := rows.Scan(&t.ID, &createdAt, &t.From, &t.To, &t.Start, &t.End, &t.Complete); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for trip %s: %w", t.ID, err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}
	return trips, nil
}

// GetTranscripts restores the agent conversations of a trip, ordered by agent.
func (s *TripStore) GetTranscripts(ctx context.Context, tripID string) ([]*contextmgr.ContextManager, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, messages_json FROM agent_contexts
		WHERE trip_id = ? ORDER BY agent_id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var convs []*contextmgr.ContextManager
	for rows.Next() {
		var agentID, messagesJSON string
		if err := rows.Scan(&agentID, &messagesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan agent context: %w", err)
		}
		conv := contextmgr.NewContextManager(agentID)
		if err := conv.Deserialize([]byte(messagesJSON)); err != nil {
			return nil, fmt.Errorf("agent context %s: %w", agentID, err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent contexts: %w", err)
	}
	return convs, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
