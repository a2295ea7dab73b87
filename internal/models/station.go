package models

import "github.com/google/uuid"

// Station is immutable reference data describing one stop in the network.
type Station struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Region string    `json:"region" db:"region"`
}
