package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartrail/booking-backend/internal/models"
)

// CarriageRepository handles per-segment occupancy bitmap reads. Bitmap
// writes happen only inside the commit/cancel transactions owned by the
// TicketRepository.
type CarriageRepository struct {
	db *sqlx.DB
}

// NewCarriageRepository creates a new CarriageRepository
func NewCarriageRepository(db *sqlx.DB) *CarriageRepository {
	return &CarriageRepository{db: db}
}

// AvailabilityForSegment returns every (carriage type, bitmap) row serving
// one concrete route segment, with the template seat count attached.
func (r *CarriageRepository) AvailabilityForSegment(segmentID uuid.UUID) ([]models.CarriageAvailability, error) {
	var rows []models.CarriageAvailability
	query := `
		SELECT ca.segment_id, ca.carriage_type_id, ca.bitmap, ct.seat_count
		FROM carriage_availability ca
		JOIN carriage_templates ct ON ct.id = ca.carriage_type_id
		WHERE ca.segment_id = $1
		ORDER BY ct.carriage_number`
	if err := r.db.Select(&rows, query, segmentID); err != nil {
		return nil, fmt.Errorf("failed to fetch carriage availability: %w", err)
	}
	return rows, nil
}
