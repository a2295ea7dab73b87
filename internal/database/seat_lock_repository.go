package database

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smartrail/booking-backend/internal/models"
)

// SeatLockRepository handles seat lock (hold) database operations. Locks
// are created in a transaction that serializes hold creation per concrete
// route, so two concurrent holds for the same seat and range cannot both
// succeed.
type SeatLockRepository struct {
	db *sqlx.DB
}

// NewSeatLockRepository creates a new SeatLockRepository
func NewSeatLockRepository(db *sqlx.DB) *SeatLockRepository {
	return &SeatLockRepository{db: db}
}

// CreateLock persists a new Active lock. Inside one transaction it takes a
// per-route advisory lock, re-checks every requested seat against the
// currently live holds, and inserts the row. A competing live hold for any
// requested seat aborts the whole batch with a conflict.
func (r *SeatLockRepository) CreateLock(lock *models.SeatLock, now time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Advisory locks are taken in sorted order so that concurrent
	// multi-route holds cannot deadlock each other.
	routes := append([]string(nil), lock.RouteIDs...)
	sort.Strings(routes)
	for _, routeID := range routes {
		if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, routeID); err != nil {
			return fmt.Errorf("failed to take route advisory lock: %w", err)
		}
	}

	var live []models.SeatLock
	err = tx.Select(&live, `
		SELECT id, user_id, status, created_at, expires_at, route_ids, seats
		FROM seat_locks
		WHERE status = 'active' AND expires_at > $1 AND route_ids && $2::uuid[]`,
		now, pq.Array([]string(lock.RouteIDs)))
	if err != nil {
		return fmt.Errorf("failed to fetch live locks: %w", err)
	}

	for i := range lock.Seats {
		seat := &lock.Seats[i]
		for j := range live {
			if live[j].HoldsSeat(seat.ConcreteRouteID, seat.CarriageTypeID, seat.SeatNumber, seat.StartSegment, seat.EndSegment) {
				return models.NewConflictError("seat %d in carriage %d is already held", seat.SeatNumber, seat.CarriageNumber)
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO seat_locks (id, user_id, status, created_at, expires_at, route_ids, seats)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		lock.ID, lock.UserID, lock.Status, lock.CreatedAt, lock.ExpiresAt, lock.RouteIDs, lock.Seats)
	if err != nil {
		return fmt.Errorf("failed to insert seat lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seat lock: %w", err)
	}
	return nil
}

// GetByID retrieves a lock by ID
func (r *SeatLockRepository) GetByID(id uuid.UUID) (*models.SeatLock, error) {
	var lock models.SeatLock
	query := `
		SELECT id, user_id, status, created_at, expires_at, route_ids, seats
		FROM seat_locks
		WHERE id = $1`
	err := r.db.Get(&lock, query, id)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("seat lock", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seat lock: %w", err)
	}
	return &lock, nil
}

// ActiveLocksForRoute returns every Active, non-expired lock referencing
// the given concrete route. Expiry is evaluated against the caller's
// clock, never against the stored status alone.
func (r *SeatLockRepository) ActiveLocksForRoute(routeID uuid.UUID, now time.Time) ([]models.SeatLock, error) {
	var locks []models.SeatLock
	query := `
		SELECT id, user_id, status, created_at, expires_at, route_ids, seats
		FROM seat_locks
		WHERE status = 'active' AND expires_at > $1 AND route_ids @> ARRAY[$2]::uuid[]`
	if err := r.db.Select(&locks, query, now, routeID.String()); err != nil {
		return nil, fmt.Errorf("failed to fetch route locks: %w", err)
	}
	return locks, nil
}

// ActiveLocksForUser returns the user's Active, non-expired locks, newest
// first.
func (r *SeatLockRepository) ActiveLocksForUser(userID uuid.UUID, now time.Time) ([]models.SeatLock, error) {
	var locks []models.SeatLock
	query := `
		SELECT id, user_id, status, created_at, expires_at, route_ids, seats
		FROM seat_locks
		WHERE user_id = $1 AND status = 'active' AND expires_at > $2
		ORDER BY created_at DESC`
	if err := r.db.Select(&locks, query, userID, now); err != nil {
		return nil, fmt.Errorf("failed to fetch user locks: %w", err)
	}
	return locks, nil
}

// UpdateStatus performs a compare-and-swap on the stored lock status. It
// returns false when the stored status no longer matches, which is how a
// losing concurrent transition observes the race.
func (r *SeatLockRepository) UpdateStatus(id uuid.UUID, from, to models.LockStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, models.NewConflictError("illegal lock transition %s -> %s", from, to)
	}

	result, err := r.db.Exec(`UPDATE seat_locks SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update lock status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// ExpireStaleLocks demotes Active locks past their expiration to the
// terminal cancelled state. Readers never rely on this: expiry is always
// evaluated lazily wherever locks are consulted. The sweep only keeps the
// stored state tidy.
func (r *SeatLockRepository) ExpireStaleLocks(now time.Time) (int, error) {
	result, err := r.db.Exec(`
		UPDATE seat_locks SET status = 'cancelled'
		WHERE status = 'active' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale locks: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
