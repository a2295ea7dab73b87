package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartrail/booking-backend/internal/models"
)

// TicketRepository owns the two transactional legs of the commit protocol:
// converting a hold into permanent tickets plus occupancy flips, and
// reversing one ticket. Either everything inside a call is persisted or
// nothing is.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `
		SELECT id, seat_lock_id, concrete_route_id, user_id, start_segment, end_segment,
		       departure, arrival, price, passenger_name, passenger_birth_date,
		       carriage_type_id, carriage_number, seat_number, purchased_at, status
		FROM tickets
		WHERE id = $1`
	err := r.db.Get(&ticket, query, id)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("ticket", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket: %w", err)
	}
	return &ticket, nil
}

// TicketsForUser returns the user's tickets, newest purchase first.
func (r *TicketRepository) TicketsForUser(userID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	query := `
		SELECT id, seat_lock_id, concrete_route_id, user_id, start_segment, end_segment,
		       departure, arrival, price, passenger_name, passenger_birth_date,
		       carriage_type_id, carriage_number, seat_number, purchased_at, status
		FROM tickets
		WHERE user_id = $1
		ORDER BY purchased_at DESC`
	if err := r.db.Select(&tickets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to fetch user tickets: %w", err)
	}
	return tickets, nil
}

// CommitLock executes the payment commit for one hold inside a single
// transaction: CAS the lock Active -> Processing (extending its expiry by
// the grace window), materialize one payed ticket per held seat, flip every
// covered occupancy bit free -> occupied, then Processing -> Completed.
// Any failure rolls the whole commit back; a lost CAS or an already
// occupied bit surfaces as a conflict.
func (r *TicketRepository) CommitLock(lock *models.SeatLock, grace time.Duration, now time.Time) ([]models.Ticket, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE seat_locks
		SET status = 'processing', expires_at = expires_at + make_interval(secs => $2)
		WHERE id = $1 AND status = 'active'`,
		lock.ID, grace.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to mark lock processing: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, models.NewConflictError("lock %s is no longer active", lock.ID)
	}

	tickets := make([]models.Ticket, 0, len(lock.Seats))
	for i := range lock.Seats {
		seat := &lock.Seats[i]

		ticket := models.Ticket{
			ID:                 uuid.New(),
			SeatLockID:         lock.ID,
			ConcreteRouteID:    seat.ConcreteRouteID,
			UserID:             lock.UserID,
			StartSegment:       seat.StartSegment,
			EndSegment:         seat.EndSegment,
			Departure:          seat.Departure,
			Arrival:            seat.Arrival,
			Price:              seat.Price,
			PassengerName:      seat.PassengerName,
			PassengerBirthDate: seat.PassengerBirthDate,
			CarriageTypeID:     seat.CarriageTypeID,
			CarriageNumber:     seat.CarriageNumber,
			SeatNumber:         seat.SeatNumber,
			PurchasedAt:        now,
			Status:             models.TicketStatusPayed,
		}

		_, err = tx.Exec(`
			INSERT INTO tickets (
				id, seat_lock_id, concrete_route_id, user_id, start_segment, end_segment,
				departure, arrival, price, passenger_name, passenger_birth_date,
				carriage_type_id, carriage_number, seat_number, purchased_at, status
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
			)`,
			ticket.ID, ticket.SeatLockID, ticket.ConcreteRouteID, ticket.UserID,
			ticket.StartSegment, ticket.EndSegment, ticket.Departure, ticket.Arrival,
			ticket.Price, ticket.PassengerName, ticket.PassengerBirthDate,
			ticket.CarriageTypeID, ticket.CarriageNumber, ticket.SeatNumber,
			ticket.PurchasedAt, ticket.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ticket: %w", err)
		}

		if err := flipSeatBits(tx, seat.ConcreteRouteID, seat.CarriageTypeID, seat.SeatNumber, seat.StartSegment, seat.EndSegment, false); err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	result, err = tx.Exec(`UPDATE seat_locks SET status = 'completed' WHERE id = $1 AND status = 'processing'`, lock.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete lock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, models.NewConflictError("lock %s left processing state mid-commit", lock.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return tickets, nil
}

// CancelTicket reverses one payed ticket inside a single transaction: the
// status flips to cancelled and every covered occupancy bit is restored
// occupied -> free. A bit that is already free is a hard conflict, not
// auto-resolved, because it indicates corrupted inventory.
func (r *TicketRepository) CancelTicket(ticket *models.Ticket) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE tickets SET status = 'cancelled' WHERE id = $1 AND status = 'payed'`, ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewConflictError("ticket %s is not payed", ticket.ID)
	}

	if err := flipSeatBits(tx, ticket.ConcreteRouteID, ticket.CarriageTypeID, ticket.SeatNumber, ticket.StartSegment, ticket.EndSegment, true); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

// flipSeatBits flips one seat's bit on every covered segment of a route
// range, under row locks. toFree selects the direction; finding the bit
// already in the target state aborts with a conflict.
func flipSeatBits(tx *sqlx.Tx, routeID, carriageTypeID uuid.UUID, seatNumber, start, end int, toFree bool) error {
	type segmentRow struct {
		ID            uuid.UUID `db:"id"`
		SegmentNumber int       `db:"segment_number"`
	}

	var segments []segmentRow
	err := tx.Select(&segments, `
		SELECT id, segment_number
		FROM concrete_route_segments
		WHERE concrete_route_id = $1 AND segment_number BETWEEN $2 AND $3
		ORDER BY segment_number`, routeID, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch covered segments: %w", err)
	}
	if len(segments) != end-start+1 {
		return models.NewNotFoundError("segment range", fmt.Sprintf("%s[%d,%d]", routeID, start, end))
	}

	for _, seg := range segments {
		var bitmap models.SeatBitmap
		err := tx.Get(&bitmap, `
			SELECT bitmap FROM carriage_availability
			WHERE segment_id = $1 AND carriage_type_id = $2
			FOR UPDATE`, seg.ID, carriageTypeID)
		if err == sql.ErrNoRows {
			return models.NewNotFoundError("carriage availability", fmt.Sprintf("%s/%s", seg.ID, carriageTypeID))
		}
		if err != nil {
			return fmt.Errorf("failed to lock availability row: %w", err)
		}

		if toFree {
			if bitmap.IsFree(seatNumber) {
				return models.NewConflictError("seat %d already free on segment %d", seatNumber, seg.SegmentNumber)
			}
			bitmap.MarkFree(seatNumber)
		} else {
			if !bitmap.IsFree(seatNumber) {
				return models.NewConflictError("seat %d already occupied on segment %d", seatNumber, seg.SegmentNumber)
			}
			bitmap.MarkOccupied(seatNumber)
		}

		_, err = tx.Exec(`
			UPDATE carriage_availability SET bitmap = $3
			WHERE segment_id = $1 AND carriage_type_id = $2`,
			seg.ID, carriageTypeID, bitmap)
		if err != nil {
			return fmt.Errorf("failed to update availability bitmap: %w", err)
		}
	}
	return nil
}
