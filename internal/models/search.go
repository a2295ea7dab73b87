package models

import (
	"time"

	"github.com/google/uuid"
)

// ItinerarySearchRequest represents a passenger's itinerary query
type ItinerarySearchRequest struct {
	From       string     `json:"from" binding:"required"` // Origin station name
	To         string     `json:"to" binding:"required"`   // Destination station name
	Date       *time.Time `json:"date,omitempty"`          // Optional: travel date (defaults to today)
	DirectOnly bool       `json:"direct_only,omitempty"`   // Skip the multi-transfer search
	Limit      int        `json:"limit,omitempty"`         // Optional: max results (default: 20)
}

// Validate validates the search request
func (r *ItinerarySearchRequest) Validate() error {
	if r.From == "" {
		return NewValidationError("origin station is required")
	}
	if r.To == "" {
		return NewValidationError("destination station is required")
	}
	if r.Limit < 0 {
		return NewValidationError("limit cannot be negative")
	}
	return nil
}

// StationMatch reports how a typed station name resolved.
type StationMatch struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Matched       bool       `json:"matched"`
	OriginalInput string     `json:"original_input"`
}

// ItineraryLeg is one contiguous stretch of segments on a single concrete
// route, with price range and seat availability attached.
type ItineraryLeg struct {
	ConcreteRouteID uuid.UUID `json:"concrete_route_id"`
	TrainName       string    `json:"train_name"`
	FromStationID   uuid.UUID `json:"from_station_id"`
	FromStation     string    `json:"from_station"`
	ToStationID     uuid.UUID `json:"to_station_id"`
	ToStation       string    `json:"to_station"`
	StartSegment    int       `json:"start_segment"`
	EndSegment      int       `json:"end_segment"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	MinPrice        float64   `json:"min_price"`
	MaxPrice        float64   `json:"max_price"`
	SeatsAvailable  int       `json:"seats_available"`
}

// Itinerary is an ordered sequence of legs from origin to destination.
type Itinerary struct {
	Legs            []ItineraryLeg `json:"legs"`
	Departure       time.Time      `json:"departure"`
	Arrival         time.Time      `json:"arrival"`
	DurationMinutes int            `json:"duration_minutes"`
	Transfers       int            `json:"transfers"`
	MinPrice        float64        `json:"min_price"`
	MaxPrice        float64        `json:"max_price"`
	SeatsAvailable  int            `json:"seats_available"` // bottleneck across legs
}

// ItinerarySearchResponse represents the search results returned to the passenger
type ItinerarySearchResponse struct {
	Status       string       `json:"status"`  // "success", "partial", "error"
	Message      string       `json:"message"` // Human-readable message
	FromStation  StationMatch `json:"from_station"`
	ToStation    StationMatch `json:"to_station"`
	Results      []Itinerary  `json:"results"`
	SearchTimeMs int64        `json:"search_time_ms"`
}

// AvailabilityResponse reports free seats for a route segment range.
type AvailabilityResponse struct {
	ConcreteRouteID uuid.UUID      `json:"concrete_route_id"`
	StartSegment    int            `json:"start_segment"`
	EndSegment      int            `json:"end_segment"`
	TotalFree       int            `json:"total_free"`
	ByCarriageType  map[string]int `json:"by_carriage_type"`
	FreeSeats       []int          `json:"free_seats,omitempty"` // only for a single carriage type query
	SeatFree        *bool          `json:"seat_free,omitempty"`  // only for a single seat query
}
