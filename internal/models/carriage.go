package models

import "github.com/google/uuid"

// CarriageTemplate describes one carriage type within a train type: its
// ordinal position in the train, seat count, price multiplier and layout.
type CarriageTemplate struct {
	ID              uuid.UUID `json:"id" db:"id"`
	TrainType       string    `json:"train_type" db:"train_type"`
	CarriageNumber  int       `json:"carriage_number" db:"carriage_number"`
	SeatCount       int       `json:"seat_count" db:"seat_count"`
	PriceMultiplier float64   `json:"price_multiplier" db:"price_multiplier"`
	LayoutID        string    `json:"layout_id" db:"layout_id"`
}

// CarriageAvailability is the per-segment occupancy row: one bitmap per
// (concrete route segment, carriage type) pair actually serving the
// segment. Exactly one row exists per pair.
type CarriageAvailability struct {
	SegmentID      uuid.UUID  `json:"segment_id" db:"segment_id"`
	CarriageTypeID uuid.UUID  `json:"carriage_type_id" db:"carriage_type_id"`
	SeatCount      int        `json:"seat_count" db:"seat_count"`
	Bitmap         SeatBitmap `json:"bitmap" db:"bitmap"`
}
