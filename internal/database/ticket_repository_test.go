package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartrail/booking-backend/internal/models"
)

func newTicketRepoMock(t *testing.T) (*TicketRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTicketRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func commitLockFixture() *models.SeatLock {
	routeID := uuid.New()
	now := time.Now().UTC()
	return &models.SeatLock{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    models.LockStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
		RouteIDs:  models.UUIDArray{routeID.String()},
		Seats: models.LockedSeatList{
			{
				ConcreteRouteID: routeID,
				CarriageTypeID:  uuid.New(),
				SeatNumber:      3,
				CarriageNumber:  1,
				StartSegment:    1,
				EndSegment:      1,
				Price:           36.75,
				PassengerName:   "Jamie Passenger",
			},
		},
	}
}

func TestCommitLock(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		lock := commitLockFixture()
		now := time.Now().UTC()
		segmentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_locks`).
			WithArgs(lock.ID, float64(300)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO tickets`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM concrete_route_segments`).
			WithArgs(lock.Seats[0].ConcreteRouteID, 1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "segment_number"}).
				AddRow(segmentID, 1))
		// Seat 3 is bit 2: 0x04 set means free. The commit must clear
		// exactly that bit and leave the rest of the map untouched.
		mock.ExpectQuery(`SELECT bitmap FROM carriage_availability`).
			WithArgs(segmentID, lock.Seats[0].CarriageTypeID).
			WillReturnRows(sqlmock.NewRows([]string{"bitmap"}).AddRow([]byte{0xFF, 0x03}))
		mock.ExpectExec(`UPDATE carriage_availability`).
			WithArgs(segmentID, lock.Seats[0].CarriageTypeID, []byte{0xFB, 0x03}).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seat_locks SET status = 'completed'`).
			WithArgs(lock.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tickets, err := repo.CommitLock(lock, 5*time.Minute, now)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, lock.ID, tickets[0].SeatLockID)
		assert.Equal(t, lock.UserID, tickets[0].UserID)
		assert.Equal(t, models.TicketStatusPayed, tickets[0].Status)
		assert.Equal(t, now, tickets[0].PurchasedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost CAS", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		lock := commitLockFixture()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_locks`).
			WithArgs(lock.ID, float64(300)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.CommitLock(lock, 5*time.Minute, time.Now().UTC())
		var conflict *models.ConflictError
		assert.ErrorAs(t, err, &conflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Already Occupied", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		lock := commitLockFixture()
		segmentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seat_locks`).
			WithArgs(lock.ID, float64(300)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO tickets`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM concrete_route_segments`).
			WithArgs(lock.Seats[0].ConcreteRouteID, 1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "segment_number"}).
				AddRow(segmentID, 1))
		// Bit for seat 3 already cleared.
		mock.ExpectQuery(`SELECT bitmap FROM carriage_availability`).
			WithArgs(segmentID, lock.Seats[0].CarriageTypeID).
			WillReturnRows(sqlmock.NewRows([]string{"bitmap"}).AddRow([]byte{0xFB, 0x03}))
		mock.ExpectRollback()

		_, err := repo.CommitLock(lock, 5*time.Minute, time.Now().UTC())
		var conflict *models.ConflictError
		assert.ErrorAs(t, err, &conflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelTicket(t *testing.T) {
	ticketFixture := func() *models.Ticket {
		return &models.Ticket{
			ID:              uuid.New(),
			ConcreteRouteID: uuid.New(),
			CarriageTypeID:  uuid.New(),
			SeatNumber:      3,
			StartSegment:    1,
			EndSegment:      1,
			Status:          models.TicketStatusPayed,
		}
	}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		ticket := ticketFixture()
		segmentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tickets SET status = 'cancelled'`).
			WithArgs(ticket.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM concrete_route_segments`).
			WithArgs(ticket.ConcreteRouteID, 1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "segment_number"}).
				AddRow(segmentID, 1))
		// Seat 3 occupied, as a sold seat must be. Cancelling restores
		// the pre-commit bitmap bit for bit.
		mock.ExpectQuery(`SELECT bitmap FROM carriage_availability`).
			WithArgs(segmentID, ticket.CarriageTypeID).
			WillReturnRows(sqlmock.NewRows([]string{"bitmap"}).AddRow([]byte{0xFB, 0x03}))
		mock.ExpectExec(`UPDATE carriage_availability`).
			WithArgs(segmentID, ticket.CarriageTypeID, []byte{0xFF, 0x03}).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CancelTicket(ticket))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Payed", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		ticket := ticketFixture()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tickets SET status = 'cancelled'`).
			WithArgs(ticket.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CancelTicket(ticket)
		var conflict *models.ConflictError
		assert.ErrorAs(t, err, &conflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Already Free", func(t *testing.T) {
		repo, mock := newTicketRepoMock(t)
		ticket := ticketFixture()
		segmentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tickets SET status = 'cancelled'`).
			WithArgs(ticket.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM concrete_route_segments`).
			WithArgs(ticket.ConcreteRouteID, 1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "segment_number"}).
				AddRow(segmentID, 1))
		// Inventory corruption: the seat is free although a payed ticket
		// references it.
		mock.ExpectQuery(`SELECT bitmap FROM carriage_availability`).
			WithArgs(segmentID, ticket.CarriageTypeID).
			WillReturnRows(sqlmock.NewRows([]string{"bitmap"}).AddRow([]byte{0xFF, 0x03}))
		mock.ExpectRollback()

		err := repo.CancelTicket(ticket)
		var conflict *models.ConflictError
		assert.ErrorAs(t, err, &conflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTicketGetByID(t *testing.T) {
	repo, mock := newTicketRepoMock(t)

	t.Run("Not Found", func(t *testing.T) {
		ticketID := uuid.New()

		mock.ExpectQuery(`FROM tickets`).
			WithArgs(ticketID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ticketID)
		var notFound *models.NotFoundError
		assert.ErrorAs(t, err, &notFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
