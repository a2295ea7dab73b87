package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartrail/booking-backend/internal/models"
)

// StationRepository handles station reference data lookups
type StationRepository struct {
	db *sqlx.DB
}

// NewStationRepository creates a new StationRepository
func NewStationRepository(db *sqlx.DB) *StationRepository {
	return &StationRepository{db: db}
}

// FindByName resolves a typed station name, exact match first and
// case-insensitive prefix match as a fallback.
func (r *StationRepository) FindByName(name string) (*models.Station, error) {
	var station models.Station
	err := r.db.Get(&station, `SELECT id, name, region FROM stations WHERE name = $1`, name)
	if err == nil {
		return &station, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to search stations: %w", err)
	}

	err = r.db.Get(&station, `
		SELECT id, name, region FROM stations
		WHERE name ILIKE $1 || '%'
		ORDER BY name
		LIMIT 1`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search stations: %w", err)
	}
	return &station, nil
}

// Names resolves station IDs to display names in one query.
func (r *StationRepository) Names(ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`SELECT id, name FROM stations WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build station names query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.Station
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch station names: %w", err)
	}
	for _, s := range rows {
		names[s.ID] = s.Name
	}
	return names, nil
}
