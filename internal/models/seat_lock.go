package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockStatus represents the stored status of a seat lock.
// Matches PostgreSQL ENUM: seat_lock_status
type LockStatus string

const (
	LockStatusActive     LockStatus = "active"     // seats held, waiting for payment
	LockStatusProcessing LockStatus = "processing" // payment commit in flight
	LockStatusCompleted  LockStatus = "completed"  // tickets issued
	LockStatusCancelled  LockStatus = "cancelled"  // released by the user
)

// lockTransitions enumerates the legal status transitions. Completed and
// cancelled are terminal. Expiry is a derived read-time condition, not a
// stored transition.
var lockTransitions = map[LockStatus][]LockStatus{
	LockStatusActive:     {LockStatusProcessing, LockStatusCancelled},
	LockStatusProcessing: {LockStatusCompleted},
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition.
func (s LockStatus) CanTransitionTo(next LockStatus) bool {
	for _, allowed := range lockTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LockedSeat describes one held seat-leg inside a seat lock. Train and
// station fields are a denormalized snapshot taken at hold time for
// display, so listing holds does not re-walk the timetable.
type LockedSeat struct {
	CarriageTypeID     uuid.UUID `json:"carriage_type_id"`
	ConcreteRouteID    uuid.UUID `json:"concrete_route_id"`
	StartSegment       int       `json:"start_segment"`
	EndSegment         int       `json:"end_segment"`
	SeatNumber         int       `json:"seat_number"`
	CarriageNumber     int       `json:"carriage_number"`
	Price              float64   `json:"price"`
	PassengerName      string    `json:"passenger_name"`
	PassengerBirthDate time.Time `json:"passenger_birth_date"`
	Departure          time.Time `json:"departure"`
	Arrival            time.Time `json:"arrival"`
	TrainName          string    `json:"train_name"`
	FromStationID      uuid.UUID `json:"from_station_id"`
	ToStationID        uuid.UUID `json:"to_station_id"`
}

// OverlapsRange reports whether the held segment range intersects
// [start, end] on the same concrete route.
func (s *LockedSeat) OverlapsRange(routeID uuid.UUID, start, end int) bool {
	return s.ConcreteRouteID == routeID && s.StartSegment <= end && s.EndSegment >= start
}

// LockedSeatList is stored as a JSONB column on seat_locks.
type LockedSeatList []LockedSeat

// Value implements the driver.Valuer interface
func (l LockedSeatList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(LockedSeatList{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *LockedSeatList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LockedSeatList", src)
	}
	return json.Unmarshal(raw, l)
}

// SeatLock is a time-boxed, non-final reservation of specific seats. Locks
// are never deleted, only terminally marked; an Active lock past its
// expiration is inert to every reader regardless of the stored status.
type SeatLock struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Status    LockStatus     `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt time.Time      `json:"expires_at" db:"expires_at"`
	RouteIDs  UUIDArray      `json:"route_ids" db:"route_ids"`
	Seats     LockedSeatList `json:"seats" db:"seats"`
}

// IsExpired reports whether the lock's hold window has passed at the given
// instant. Callers must always combine this with a status check: filtering
// by status alone is never sufficient.
func (l *SeatLock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// HoldsSeat reports whether the lock holds the (carriage type, seat) pair
// over a range overlapping [start, end] on the given concrete route.
func (l *SeatLock) HoldsSeat(routeID uuid.UUID, carriageTypeID uuid.UUID, seatNumber, start, end int) bool {
	for i := range l.Seats {
		s := &l.Seats[i]
		if s.CarriageTypeID == carriageTypeID && s.SeatNumber == seatNumber && s.OverlapsRange(routeID, start, end) {
			return true
		}
	}
	return false
}

// TotalPrice sums the prices of all held seats.
func (l *SeatLock) TotalPrice() float64 {
	var total float64
	for i := range l.Seats {
		total += l.Seats[i].Price
	}
	return total
}
