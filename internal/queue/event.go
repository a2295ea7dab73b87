package queue

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys on the booking.events exchange.
const (
	EventHoldCreated      = "hold.created"
	EventTicketsPurchased = "tickets.purchased"
	EventTicketCancelled  = "ticket.cancelled"
)

// Event is the envelope every published message uses.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// HoldEvent describes a newly created seat hold.
type HoldEvent struct {
	LockID    uuid.UUID `json:"lock_id"`
	UserID    uuid.UUID `json:"user_id"`
	SeatCount int       `json:"seat_count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PurchaseEvent describes a hold committed into tickets.
type PurchaseEvent struct {
	LockID      uuid.UUID   `json:"lock_id"`
	UserID      uuid.UUID   `json:"user_id"`
	TicketIDs   []uuid.UUID `json:"ticket_ids"`
	TicketCount int         `json:"ticket_count"`
	TotalPrice  float64     `json:"total_price"`
}

// CancelEvent describes a cancelled ticket.
type CancelEvent struct {
	TicketID        uuid.UUID `json:"ticket_id"`
	UserID          uuid.UUID `json:"user_id"`
	ConcreteRouteID uuid.UUID `json:"concrete_route_id"`
	Price           float64   `json:"price"`
}
