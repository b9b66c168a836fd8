package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"tripplanner/pkg/logx"
)

// nearbyAirportsQuery calls the stored function that ranks airports by distance.
const nearbyAirportsQuery = `SELECT iata FROM get_nearby_airports($1, $2)`

// AirportsRepo finds airports near a position in the airports database.
type AirportsRepo struct {
	db      *sql.DB
	timeout time.Duration
	logger  *logx.Logger
}

// OpenAirportsRepo connects to the Postgres airports database.
func OpenAirportsRepo(databaseURL string) (*AirportsRepo, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open airports database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to airports database: %w", err)
	}
	return NewAirportsRepo(db), nil
}

// NewAirportsRepo wraps an existing connection pool.
func NewAirportsRepo(db *sql.DB) *AirportsRepo {
	return &AirportsRepo{
		db:      db,
		timeout: DefaultTimeout,
		logger:  logx.NewLogger("airports"),
	}
}

// NearbyAirports returns the IATA codes closest to lat/lon. Database failures
// are logged and yield an empty list so the agent can carry on.
func (r *AirportsRepo) NearbyAirports(ctx context.Context, lat, lon float64) []string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	codes := []string{}
	rows, err := r.db.QueryContext(ctx, nearbyAirportsQuery, lat, lon)
	if err != nil {
		r.logger.Info("getNearbyAirports: %v", err)
		return codes
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var iata sql.NullString
		if err := rows.Scan(&iata); err != nil {
			r.logger.Info("getNearbyAirports: %v", err)
			return []string{}
		}
		if iata.Valid && iata.String != "" {
			codes = append(codes, iata.String)
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.Info("getNearbyAirports: %v", err)
		return []string{}
	}

	r.logger.Info("getNearbyAirports: %d iata codes near (%.4f, %.4f)", len(codes), lat, lon)
	return codes
}

// Close releases the connection pool.
func (r *AirportsRepo) Close() error {
	return r.db.Close()
}
