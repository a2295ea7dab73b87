package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartrail/booking-backend/internal/models"
)

func newRouteRepoMock(t *testing.T) (*RouteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRouteRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRoutePricing(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newRouteRepoMock(t)
		routeID := uuid.New()
		abstractID := uuid.New()

		mock.ExpectQuery(`FROM concrete_routes cr\s+JOIN abstract_routes ar`).
			WithArgs(routeID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "train_name", "train_type", "active_days", "transfer_cost", "departure_time_of_day",
			}).AddRow(abstractID, "Night Express", "IC", []byte("{1,3,5}"), 2.5, "22:30"))

		segRows := sqlmock.NewRows([]string{
			"id", "abstract_route_id", "segment_number", "from_station_id", "to_station_id", "base_cost", "duration_minutes",
		}).
			AddRow(uuid.New(), abstractID, 2, uuid.New(), uuid.New(), 10.0, 45).
			AddRow(uuid.New(), abstractID, 3, uuid.New(), uuid.New(), 12.0, 60)
		mock.ExpectQuery(`JOIN abstract_route_segments ars`).
			WithArgs(routeID, 2, 3).
			WillReturnRows(segRows)

		pricing, err := repo.RoutePricing(routeID, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 2.5, pricing.TransferCost)
		assert.Equal(t, []float64{10.0, 12.0}, pricing.SegmentCosts)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Route", func(t *testing.T) {
		repo, mock := newRouteRepoMock(t)
		routeID := uuid.New()

		mock.ExpectQuery(`FROM concrete_routes cr\s+JOIN abstract_routes ar`).
			WithArgs(routeID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.RoutePricing(routeID, 1, 2)
		var notFound *models.NotFoundError
		assert.ErrorAs(t, err, &notFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestArrivingSegments(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newRouteRepoMock(t)
		stationID := uuid.New()
		routeA := uuid.New()
		routeB := uuid.New()
		arrival := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{
			"id", "concrete_route_id", "segment_number", "from_station_id", "to_station_id", "departure", "arrival",
		}).
			AddRow(uuid.New(), routeA, 3, uuid.New(), stationID, arrival.Add(-time.Hour), arrival).
			AddRow(uuid.New(), routeB, 1, uuid.New(), stationID, arrival, arrival.Add(time.Hour))
		mock.ExpectQuery(`FROM concrete_route_segments\s+WHERE to_station_id =`).
			WithArgs(stationID, routeA, routeB).
			WillReturnRows(rows)

		segments, err := repo.ArrivingSegments(stationID, []uuid.UUID{routeA, routeB})
		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, routeA, segments[0].ConcreteRouteID)
		assert.Equal(t, 3, segments[0].SegmentNumber)
		assert.Equal(t, stationID, segments[0].ToStationID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Routes Skips Query", func(t *testing.T) {
		repo, mock := newRouteRepoMock(t)

		segments, err := repo.ArrivingSegments(uuid.New(), nil)
		require.NoError(t, err)
		assert.Empty(t, segments)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
