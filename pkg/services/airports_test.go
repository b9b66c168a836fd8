package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearbyAirports(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(sqlmock.Sqlmock)
		expected  []string
	}{
		{
			name: "returns iata codes in database order",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(nearbyAirportsQuery)).
					WithArgs(41.89, 12.48).
					WillReturnRows(sqlmock.NewRows([]string{"iata"}).AddRow("FCO").AddRow("CIA").AddRow(nil))
			},
			expected: []string{"FCO", "CIA"},
		},
		{
			name: "query error yields empty list",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(nearbyAirportsQuery)).
					WillReturnError(errors.New("function get_nearby_airports does not exist"))
			},
			expected: []string{},
		},
		{
			name: "row error yields empty list",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(nearbyAirportsQuery)).
					WillReturnRows(sqlmock.NewRows([]string{"iata"}).AddRow("FCO").RowError(0, errors.New("broken")))
			},
			expected: []string{},
		},
		{
			name: "no airports nearby",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(nearbyAirportsQuery)).
					WillReturnRows(sqlmock.NewRows([]string{"iata"}))
			},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.mockSetup(mock)

			codes := NewAirportsRepo(db).NearbyAirports(context.Background(), 41.89, 12.48)

			assert.NotNil(t, codes)
			assert.Equal(t, tt.expected, codes)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
