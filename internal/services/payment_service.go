package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/models"
)

// TicketStore is the ticket persistence surface the payment service needs.
// CommitLock and CancelTicket run their seat-map mutations inside a single
// database transaction.
type TicketStore interface {
	GetByID(id uuid.UUID) (*models.Ticket, error)
	TicketsForUser(userID uuid.UUID) ([]models.Ticket, error)
	CommitLock(lock *models.SeatLock, grace time.Duration, now time.Time) ([]models.Ticket, error)
	CancelTicket(ticket *models.Ticket) error
}

// PaymentService converts holds into tickets and cancels sold tickets.
type PaymentService struct {
	tickets     TicketStore
	locks       ReservationStore
	users       UserDirectory
	events      EventPublisher
	commitGrace time.Duration
	clock       Clock
	logger      *logrus.Logger
}

func NewPaymentService(
	tickets TicketStore,
	locks ReservationStore,
	users UserDirectory,
	events EventPublisher,
	commitGrace time.Duration,
	clock Clock,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		tickets:     tickets,
		locks:       locks,
		users:       users,
		events:      events,
		commitGrace: commitGrace,
		clock:       clock,
		logger:      logger,
	}
}

// checkUser confirms the caller still exists and may transact.
func (s *PaymentService) checkUser(userID uuid.UUID) error {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundError("user", userID.String())
	}
	if user.Blocked {
		return models.NewAuthorizationError("user is blocked from booking")
	}
	return nil
}

// PayTickets commits an active hold: every held seat becomes a ticket and
// is marked occupied on the seat maps. The commit is guarded by a
// compare-and-set on the hold status, so a hold that expired, was
// cancelled, or is already being paid is rejected without side effects.
func (s *PaymentService) PayTickets(userID, lockID uuid.UUID) ([]models.Ticket, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	lock, err := s.locks.GetByID(lockID)
	if err != nil {
		return nil, err
	}
	if lock.UserID != userID {
		return nil, models.NewAuthorizationError("hold %s belongs to another user", lockID)
	}

	now := s.clock.Now()
	if lock.Status != models.LockStatusActive {
		return nil, models.NewConflictError("hold %s is not active", lockID)
	}
	if lock.IsExpired(now) {
		return nil, models.NewConflictError("hold %s has expired", lockID)
	}

	tickets, err := s.tickets.CommitLock(lock, s.commitGrace, now)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lock_id":      lockID,
		"user_id":      userID,
		"ticket_count": len(tickets),
		"total_price":  lock.TotalPrice(),
	}).Info("Hold committed to tickets")

	if s.events != nil {
		s.events.TicketsPurchased(tickets)
	}
	return tickets, nil
}

// CancelTicket voids a sold ticket and frees its seat on every covered
// segment. Only tickets in the payed state can be cancelled.
func (s *PaymentService) CancelTicket(userID, ticketID uuid.UUID) error {
	if err := s.checkUser(userID); err != nil {
		return err
	}

	ticket, err := s.tickets.GetByID(ticketID)
	if err != nil {
		return err
	}
	if ticket.UserID != userID {
		return models.NewAuthorizationError("ticket %s belongs to another user", ticketID)
	}
	if ticket.Status != models.TicketStatusPayed {
		return models.NewConflictError("ticket %s is not payed", ticketID)
	}

	if err := s.tickets.CancelTicket(ticket); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"user_id":   userID,
	}).Info("Ticket cancelled")

	if s.events != nil {
		s.events.TicketCancelled(ticket)
	}
	return nil
}

// GetTickets lists the caller's tickets, newest purchase first.
func (s *PaymentService) GetTickets(userID uuid.UUID) ([]models.Ticket, error) {
	return s.tickets.TicketsForUser(userID)
}
