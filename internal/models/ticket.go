package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus represents the status of a sold ticket.
// Matches PostgreSQL ENUM: ticket_status
type TicketStatus string

const (
	TicketStatusPayed     TicketStatus = "payed"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
)

// Ticket is the permanent record of one sold seat-leg. Created only by a
// successful payment commit; the status is mutated only by cancellation.
type Ticket struct {
	ID                 uuid.UUID    `json:"id" db:"id"`
	SeatLockID         uuid.UUID    `json:"seat_lock_id" db:"seat_lock_id"`
	ConcreteRouteID    uuid.UUID    `json:"concrete_route_id" db:"concrete_route_id"`
	UserID             uuid.UUID    `json:"user_id" db:"user_id"`
	StartSegment       int          `json:"start_segment" db:"start_segment"`
	EndSegment         int          `json:"end_segment" db:"end_segment"`
	Departure          time.Time    `json:"departure" db:"departure"`
	Arrival            time.Time    `json:"arrival" db:"arrival"`
	Price              float64      `json:"price" db:"price"`
	PassengerName      string       `json:"passenger_name" db:"passenger_name"`
	PassengerBirthDate time.Time    `json:"passenger_birth_date" db:"passenger_birth_date"`
	CarriageTypeID     uuid.UUID    `json:"carriage_type_id" db:"carriage_type_id"`
	CarriageNumber     int          `json:"carriage_number" db:"carriage_number"`
	SeatNumber         int          `json:"seat_number" db:"seat_number"`
	PurchasedAt        time.Time    `json:"purchased_at" db:"purchased_at"`
	Status             TicketStatus `json:"status" db:"status"`
}
