package database

import "github.com/jmoiron/sqlx"

// AvailabilityStore aggregates the read surface the seat-map engine
// needs: route segments, per-segment carriage bitmaps, and the live
// locks that mask them.
type AvailabilityStore struct {
	*RouteRepository
	*CarriageRepository
	*SeatLockRepository
}

// NewAvailabilityStore creates an AvailabilityStore over one connection.
func NewAvailabilityStore(db *sqlx.DB) *AvailabilityStore {
	return &AvailabilityStore{
		RouteRepository:    NewRouteRepository(db),
		CarriageRepository: NewCarriageRepository(db),
		SeatLockRepository: NewSeatLockRepository(db),
	}
}
