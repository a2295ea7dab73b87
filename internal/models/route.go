package models

import (
	"time"

	"github.com/google/uuid"
)

// AbstractRoute is a timetable template. One abstract route generates many
// dated ConcreteRoutes according to its active-days pattern.
type AbstractRoute struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	TrainName          string    `json:"train_name" db:"train_name"`
	TrainType          string    `json:"train_type" db:"train_type"`
	ActiveDays         IntArray  `json:"active_days" db:"active_days"` // 0=Sunday .. 6=Saturday
	TransferCost       float64   `json:"transfer_cost" db:"transfer_cost"`
	DepartureTimeOfDay string    `json:"departure_time_of_day" db:"departure_time_of_day"` // "15:04"
}

// AbstractRouteSegment is one template leg between two consecutive stations.
// Segment numbers are 1-based and strictly increasing along the route.
type AbstractRouteSegment struct {
	ID              uuid.UUID `json:"id" db:"id"`
	AbstractRouteID uuid.UUID `json:"abstract_route_id" db:"abstract_route_id"`
	SegmentNumber   int       `json:"segment_number" db:"segment_number"`
	FromStationID   uuid.UUID `json:"from_station_id" db:"from_station_id"`
	ToStationID     uuid.UUID `json:"to_station_id" db:"to_station_id"`
	BaseCost        float64   `json:"base_cost" db:"base_cost"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
}

// ConcreteRoute is one dated instantiation of an abstract route. The train
// fields are denormalized from the abstract route by the repository so that
// callers get pricing and carriage-resolution inputs in one read.
type ConcreteRoute struct {
	ID              uuid.UUID `json:"id" db:"id"`
	AbstractRouteID uuid.UUID `json:"abstract_route_id" db:"abstract_route_id"`
	DepartureDate   time.Time `json:"departure_date" db:"departure_date"`
	TrainName       string    `json:"train_name" db:"train_name"`
	TrainType       string    `json:"train_type" db:"train_type"`
	TransferCost    float64   `json:"transfer_cost" db:"transfer_cost"`
}

// RoutePricing bundles the pricing inputs for one segment range: the
// route-level transfer surcharge and the base cost of every covered
// segment, in segment order.
type RoutePricing struct {
	TransferCost float64
	SegmentCosts []float64
}

// ConcreteRouteSegment is one dated leg with absolute UTC timestamps.
// Invariants: Departure < Arrival; segment numbers within one concrete
// route are unique and monotonic with time.
type ConcreteRouteSegment struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConcreteRouteID uuid.UUID `json:"concrete_route_id" db:"concrete_route_id"`
	SegmentNumber   int       `json:"segment_number" db:"segment_number"`
	FromStationID   uuid.UUID `json:"from_station_id" db:"from_station_id"`
	ToStationID     uuid.UUID `json:"to_station_id" db:"to_station_id"`
	Departure       time.Time `json:"departure" db:"departure"`
	Arrival         time.Time `json:"arrival" db:"arrival"`
}
