package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/models"
)

// ReservationStore is the lock persistence surface the reservation
// service needs.
type ReservationStore interface {
	CreateLock(lock *models.SeatLock, now time.Time) error
	GetByID(id uuid.UUID) (*models.SeatLock, error)
	UpdateStatus(id uuid.UUID, from, to models.LockStatus) (bool, error)
	ActiveLocksForUser(userID uuid.UUID, now time.Time) ([]models.SeatLock, error)
}

// TimetableStore resolves routes, their segments and carriage templates.
type TimetableStore interface {
	ConcreteRoute(id uuid.UUID) (*models.ConcreteRoute, error)
	SegmentsInRange(routeID uuid.UUID, start, end int) ([]models.ConcreteRouteSegment, error)
	CarriageTemplate(trainType string, carriageNumber int) (*models.CarriageTemplate, error)
}

// UserDirectory looks up booking users.
type UserDirectory interface {
	GetUser(id uuid.UUID) (*models.User, error)
}

// StationDirectory resolves station names for display.
type StationDirectory interface {
	Names(ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// EventPublisher receives booking lifecycle notifications. Implementations
// must not block the request path on delivery failures.
type EventPublisher interface {
	HoldCreated(lock *models.SeatLock)
	TicketsPurchased(tickets []models.Ticket)
	TicketCancelled(ticket *models.Ticket)
}

// ReservationService creates and releases seat holds. A hold covers every
// seat of one booking request and keeps them out of availability until it
// expires, is cancelled, or is converted into tickets by payment.
type ReservationService struct {
	locks        ReservationStore
	timetable    TimetableStore
	users        UserDirectory
	stations     StationDirectory
	availability *AvailabilityService
	pricing      *PricingService
	events       EventPublisher
	holdTTL      time.Duration
	clock        Clock
	logger       *logrus.Logger
}

func NewReservationService(
	locks ReservationStore,
	timetable TimetableStore,
	users UserDirectory,
	stations StationDirectory,
	availability *AvailabilityService,
	pricing *PricingService,
	events EventPublisher,
	holdTTL time.Duration,
	clock Clock,
	logger *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		locks:        locks,
		timetable:    timetable,
		users:        users,
		stations:     stations,
		availability: availability,
		pricing:      pricing,
		events:       events,
		holdTTL:      holdTTL,
		clock:        clock,
		logger:       logger,
	}
}

// BookPlaces validates every requested seat and creates a single hold
// covering all of them. The batch is atomic: if any seat is taken,
// already departed, or otherwise invalid, no hold is created.
func (s *ReservationService) BookPlaces(userID uuid.UUID, req *models.BookPlacesRequest) (*models.SeatLockResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", userID.String())
	}
	if user.Blocked {
		return nil, models.NewAuthorizationError("user is blocked from booking")
	}

	now := s.clock.Now()
	seats := make(models.LockedSeatList, 0, len(req.Seats))
	routeSet := make(map[uuid.UUID]struct{})

	for i := range req.Seats {
		seat, err := s.resolveSeat(&req.Seats[i], now)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *seat)
		routeSet[seat.ConcreteRouteID] = struct{}{}
	}

	routeIDs := make(models.UUIDArray, 0, len(routeSet))
	for id := range routeSet {
		routeIDs = append(routeIDs, id.String())
	}

	lock := &models.SeatLock{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    models.LockStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.holdTTL),
		RouteIDs:  routeIDs,
		Seats:     seats,
	}

	if err := s.locks.CreateLock(lock, now); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lock_id":    lock.ID,
		"user_id":    userID,
		"seat_count": len(seats),
		"expires_at": lock.ExpiresAt,
	}).Info("Seat hold created")

	if s.events != nil {
		s.events.HoldCreated(lock)
	}

	return s.buildLockResponse(lock, now)
}

// resolveSeat checks a single seat request against the timetable and the
// live availability picture, and snapshots the fields the hold stores.
func (s *ReservationService) resolveSeat(req *models.SeatRequest, now time.Time) (*models.LockedSeat, error) {
	route, err := s.timetable.ConcreteRoute(req.ConcreteRouteID)
	if err != nil {
		return nil, err
	}

	template, err := s.timetable.CarriageTemplate(route.TrainType, req.CarriageNumber)
	if err != nil {
		return nil, err
	}
	if req.SeatNumber > template.SeatCount {
		return nil, models.NewValidationError("seat %d does not exist in carriage %d", req.SeatNumber, req.CarriageNumber)
	}

	segments, err := s.timetable.SegmentsInRange(req.ConcreteRouteID, req.StartSegment, req.EndSegment)
	if err != nil {
		return nil, err
	}
	if len(segments) != req.EndSegment-req.StartSegment+1 {
		return nil, models.NewNotFoundError("segment range", req.ConcreteRouteID.String())
	}

	departure := segments[0].Departure
	arrival := segments[len(segments)-1].Arrival
	if !departure.After(now) {
		return nil, models.NewValidationError("route %s has already departed", req.ConcreteRouteID)
	}
	if req.PassengerBirthDate.After(now) {
		return nil, models.NewValidationError("passenger birth date is in the future")
	}

	free, err := s.availability.IsSeatFree(req.ConcreteRouteID, req.StartSegment, req.EndSegment, template.ID, req.SeatNumber)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, models.NewConflictError("seat %d in carriage %d is not available for the requested range", req.SeatNumber, req.CarriageNumber)
	}

	price, err := s.pricing.PriceForCarriage(req.ConcreteRouteID, req.StartSegment, req.EndSegment, template)
	if err != nil {
		return nil, err
	}

	return &models.LockedSeat{
		CarriageTypeID:     template.ID,
		ConcreteRouteID:    req.ConcreteRouteID,
		StartSegment:       req.StartSegment,
		EndSegment:         req.EndSegment,
		SeatNumber:         req.SeatNumber,
		CarriageNumber:     req.CarriageNumber,
		Price:              price,
		PassengerName:      req.PassengerName,
		PassengerBirthDate: req.PassengerBirthDate,
		Departure:          departure,
		Arrival:            arrival,
		TrainName:          route.TrainName,
		FromStationID:      segments[0].FromStationID,
		ToStationID:        segments[len(segments)-1].ToStationID,
	}, nil
}

// CancelBookPlaces releases an active hold. Only the active state can be
// cancelled; holds that are mid-payment or already finished stay as they are.
func (s *ReservationService) CancelBookPlaces(lockID uuid.UUID) error {
	if _, err := s.locks.GetByID(lockID); err != nil {
		return err
	}

	ok, err := s.locks.UpdateStatus(lockID, models.LockStatusActive, models.LockStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewConflictError("hold %s is not active", lockID)
	}

	s.logger.WithField("lock_id", lockID).Info("Seat hold cancelled")
	return nil
}

// GetBooks lists the caller's live holds with station names resolved.
func (s *ReservationService) GetBooks(userID uuid.UUID) ([]models.SeatLockResponse, error) {
	now := s.clock.Now()
	locks, err := s.locks.ActiveLocksForUser(userID, now)
	if err != nil {
		return nil, err
	}

	responses := make([]models.SeatLockResponse, 0, len(locks))
	for i := range locks {
		resp, err := s.buildLockResponse(&locks[i], now)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, nil
}

func (s *ReservationService) buildLockResponse(lock *models.SeatLock, now time.Time) (*models.SeatLockResponse, error) {
	stationIDs := make([]uuid.UUID, 0, len(lock.Seats)*2)
	for i := range lock.Seats {
		stationIDs = append(stationIDs, lock.Seats[i].FromStationID, lock.Seats[i].ToStationID)
	}
	names, err := s.stations.Names(stationIDs)
	if err != nil {
		return nil, err
	}

	held := make([]models.HeldSeatResponse, 0, len(lock.Seats))
	for i := range lock.Seats {
		seat := &lock.Seats[i]
		held = append(held, models.HeldSeatResponse{
			ConcreteRouteID: seat.ConcreteRouteID,
			TrainName:       seat.TrainName,
			FromStation:     names[seat.FromStationID],
			ToStation:       names[seat.ToStationID],
			Departure:       seat.Departure,
			Arrival:         seat.Arrival,
			CarriageNumber:  seat.CarriageNumber,
			SeatNumber:      seat.SeatNumber,
			Price:           seat.Price,
			PassengerName:   seat.PassengerName,
		})
	}

	ttl := int(lock.ExpiresAt.Sub(now).Seconds())
	if ttl < 0 {
		ttl = 0
	}

	return &models.SeatLockResponse{
		LockID:     lock.ID,
		Status:     lock.Status,
		ExpiresAt:  lock.ExpiresAt,
		TTLSeconds: ttl,
		TotalPrice: lock.TotalPrice(),
		Seats:      held,
	}, nil
}
