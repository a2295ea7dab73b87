package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account view this service consumes. Account
// management lives in a separate system; the booking core only needs to
// know that a caller exists and is not blocked.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Blocked   bool      `json:"blocked" db:"blocked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
