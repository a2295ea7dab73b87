package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatRequest is one requested seat-leg inside a booking call.
type SeatRequest struct {
	ConcreteRouteID    uuid.UUID `json:"concrete_route_id" binding:"required"`
	CarriageNumber     int       `json:"carriage_number" binding:"required"`
	SeatNumber         int       `json:"seat_number" binding:"required"`
	StartSegment       int       `json:"start_segment" binding:"required"`
	EndSegment         int       `json:"end_segment" binding:"required"`
	PassengerName      string    `json:"passenger_name" binding:"required"`
	PassengerBirthDate time.Time `json:"passenger_birth_date" binding:"required"`
}

// Validate checks the structural invariants of a seat request.
func (r *SeatRequest) Validate() error {
	if r.StartSegment < 1 {
		return NewValidationError("start_segment must be at least 1")
	}
	if r.EndSegment < r.StartSegment {
		return NewValidationError("end_segment must not be before start_segment")
	}
	if r.SeatNumber < 1 {
		return NewValidationError("seat_number must be at least 1")
	}
	if r.CarriageNumber < 1 {
		return NewValidationError("carriage_number must be at least 1")
	}
	if r.PassengerName == "" {
		return NewValidationError("passenger_name is required")
	}
	return nil
}

// BookPlacesRequest asks for one hold covering every listed seat. The
// batch is all-or-nothing: if any seat cannot be held, no hold is created.
type BookPlacesRequest struct {
	Seats []SeatRequest `json:"seats" binding:"required"`
}

// Validate checks the request and every seat in it.
func (r *BookPlacesRequest) Validate() error {
	if len(r.Seats) == 0 {
		return NewValidationError("at least one seat is required")
	}
	for i := range r.Seats {
		if err := r.Seats[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HeldSeatResponse is one held seat resolved for display.
type HeldSeatResponse struct {
	ConcreteRouteID uuid.UUID `json:"concrete_route_id"`
	TrainName       string    `json:"train_name"`
	FromStation     string    `json:"from_station"`
	ToStation       string    `json:"to_station"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	CarriageNumber  int       `json:"carriage_number"`
	SeatNumber      int       `json:"seat_number"`
	Price           float64   `json:"price"`
	PassengerName   string    `json:"passenger_name"`
}

// SeatLockResponse describes a hold to the client.
type SeatLockResponse struct {
	LockID     uuid.UUID          `json:"lock_id"`
	Status     LockStatus         `json:"status"`
	ExpiresAt  time.Time          `json:"expires_at"`
	TTLSeconds int                `json:"ttl_seconds"`
	TotalPrice float64            `json:"total_price"`
	Seats      []HeldSeatResponse `json:"seats"`
}
