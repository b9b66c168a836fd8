package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/apperr"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/trip"
)

func newStore(t *testing.T) *TripStore {
	t.Helper()
	store, err := OpenTripStore(filepath.Join(t.TempDir(), "trips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() *trip.Result {
	weather := "Sunny in Rome, 18-27°C."
	hotel := "Hotel Artemide."
	r := trip.NewResult(trip.Request{
		From: "Paris", To: "Rome", Travellers: 2, Start: "2025-06-01", End: "2025-06-07", Budget: 1500,
	}, &weather, nil, &hotel)
	return &r
}

func TestSaveAndGetTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.SaveTrip(ctx, sampleResult(), nil)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := store.GetTrip(ctx, id)
	require.NoError(t, err)

	want := sampleResult()
	want.ID = id
	assert.Equal(t, want, got)
	assert.Nil(t, got.Flight, "missing answers stay null")
}

func TestGetTripNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetTrip(context.Background(), "does-not-exist")

	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestTranscriptsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	weather := contextmgr.NewContextManager("weatherAgent",
		llm.NewSystemMessage("Plan with multiple steps."),
		llm.NewUserMessage("What is the weather in Rome?"),
	)
	weather.Append(llm.CompletionMessage{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "getCoordinates", Arguments: `{"place":"Rome"}`}},
	}, llm.NewToolMessage("c1", `{"lat":41.89,"lon":12.48}`))
	hotels := contextmgr.NewContextManager("hotelsAgent", llm.NewUserMessage("Best hotel?"))

	id, err := store.SaveTrip(ctx, sampleResult(), []*contextmgr.ContextManager{weather, hotels})
	require.NoError(t, err)

	convs, err := store.GetTranscripts(ctx, id)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "hotelsAgent", convs[0].AgentID())
	assert.Equal(t, "weatherAgent", convs[1].AgentID())
	assert.Equal(t, weather.GetMessages(), convs[1].GetMessages())

	none, err := store.GetTranscripts(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListTripsNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	first, err := store.SaveTrip(ctx, sampleResult(), nil)
	require.NoError(t, err)

	complete := sampleResult()
	flight := "AF1404."
	complete.Flight = &flight
	second, err := store.SaveTrip(ctx, complete, nil)
	require.NoError(t, err)

	trips, err := store.ListTrips(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, second, trips[0].ID)
	assert.True(t, trips[0].Complete)
	assert.Equal(t, first, trips[1].ID)
	assert.False(t, trips[1].Complete)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 1, 0, 0, time.UTC), trips[1].CreatedAt)

	limited, err := store.ListTrips(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestMigrateFromVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = GetSchemaVersion(raw)
	require.NoError(t, err)
	for _, stmt := range schemaV1 {
		_, err = raw.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, setSchemaVersion(raw, 1))
	_, err = raw.Exec(`INSERT INTO trips (id, created_at, from_place, to_place, travellers, start_date, end_date, budget)
		VALUES ('old', '2024-01-01T00:00:00Z', 'Oslo', 'Bergen', 1, '2024-02-01', '2024-02-03', 300)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err := OpenTripStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	trips, err := store.ListTrips(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "old", trips[0].ID)
	assert.False(t, trips[0].Complete)
}
