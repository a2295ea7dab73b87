package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartrail/booking-backend/internal/models"
)

type fakeReservationStore struct {
	locks map[uuid.UUID]*models.SeatLock
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{locks: make(map[uuid.UUID]*models.SeatLock)}
}

func (f *fakeReservationStore) CreateLock(lock *models.SeatLock, now time.Time) error {
	stored := *lock
	f.locks[lock.ID] = &stored
	return nil
}

func (f *fakeReservationStore) GetByID(id uuid.UUID) (*models.SeatLock, error) {
	lock, ok := f.locks[id]
	if !ok {
		return nil, models.NewNotFoundError("seat lock", id.String())
	}
	copied := *lock
	return &copied, nil
}

func (f *fakeReservationStore) UpdateStatus(id uuid.UUID, from, to models.LockStatus) (bool, error) {
	lock, ok := f.locks[id]
	if !ok {
		return false, models.NewNotFoundError("seat lock", id.String())
	}
	if lock.Status != from || !from.CanTransitionTo(to) {
		return false, nil
	}
	lock.Status = to
	return true, nil
}

func (f *fakeReservationStore) ActiveLocksForUser(userID uuid.UUID, now time.Time) ([]models.SeatLock, error) {
	var out []models.SeatLock
	for _, lock := range f.locks {
		if lock.UserID == userID && lock.Status == models.LockStatusActive && !lock.IsExpired(now) {
			out = append(out, *lock)
		}
	}
	return out, nil
}

type fakeTimetable struct {
	routes    map[uuid.UUID]*models.ConcreteRoute
	segments  map[uuid.UUID][]models.ConcreteRouteSegment
	templates map[string][]models.CarriageTemplate // keyed by train type
}

func (f *fakeTimetable) ConcreteRoute(id uuid.UUID) (*models.ConcreteRoute, error) {
	route, ok := f.routes[id]
	if !ok {
		return nil, models.NewNotFoundError("concrete route", id.String())
	}
	return route, nil
}

func (f *fakeTimetable) SegmentsInRange(routeID uuid.UUID, start, end int) ([]models.ConcreteRouteSegment, error) {
	var out []models.ConcreteRouteSegment
	for _, seg := range f.segments[routeID] {
		if seg.SegmentNumber >= start && seg.SegmentNumber <= end {
			out = append(out, seg)
		}
	}
	return out, nil
}

func (f *fakeTimetable) CarriageTemplate(trainType string, carriageNumber int) (*models.CarriageTemplate, error) {
	for _, tmpl := range f.templates[trainType] {
		if tmpl.CarriageNumber == carriageNumber {
			copied := tmpl
			return &copied, nil
		}
	}
	return nil, models.NewNotFoundError("carriage template", trainType)
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetUser(id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

type fakeStations struct {
	byName map[string]*models.Station
	names  map[uuid.UUID]string
}

func (f *fakeStations) FindByName(name string) (*models.Station, error) {
	return f.byName[name], nil
}

func (f *fakeStations) Names(ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// reservationFixture wires a reservation service over one two-segment
// route with a single 10-seat first-class carriage.
type reservationFixture struct {
	svc            *ReservationService
	store          *fakeReservationStore
	availStore     *fakeAvailabilityStore
	clock          *fakeClock
	userID         uuid.UUID
	routeID        uuid.UUID
	carriageTypeID uuid.UUID
	departure      time.Time
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	departure := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	routeID := uuid.New()
	carriageTypeID := uuid.New()
	userID := uuid.New()
	stA, stB, stC := uuid.New(), uuid.New(), uuid.New()
	segID1, segID2 := uuid.New(), uuid.New()

	segments := []models.ConcreteRouteSegment{
		{ID: segID1, ConcreteRouteID: routeID, SegmentNumber: 1, FromStationID: stA, ToStationID: stB,
			Departure: departure, Arrival: departure.Add(time.Hour)},
		{ID: segID2, ConcreteRouteID: routeID, SegmentNumber: 2, FromStationID: stB, ToStationID: stC,
			Departure: departure.Add(70 * time.Minute), Arrival: departure.Add(2 * time.Hour)},
	}

	timetable := &fakeTimetable{
		routes: map[uuid.UUID]*models.ConcreteRoute{
			routeID: {ID: routeID, TrainName: "Night Express", TrainType: "IC", TransferCost: 2.5},
		},
		segments: map[uuid.UUID][]models.ConcreteRouteSegment{routeID: segments},
		templates: map[string][]models.CarriageTemplate{
			"IC": {{ID: carriageTypeID, TrainType: "IC", CarriageNumber: 1, SeatCount: 10, PriceMultiplier: 1.5}},
		},
	}

	availStore := &fakeAvailabilityStore{
		segments: map[uuid.UUID][]models.ConcreteRouteSegment{routeID: segments},
		rows: map[uuid.UUID][]models.CarriageAvailability{
			segID1: {{SegmentID: segID1, CarriageTypeID: carriageTypeID, SeatCount: 10, Bitmap: models.NewSeatBitmap(10)}},
			segID2: {{SegmentID: segID2, CarriageTypeID: carriageTypeID, SeatCount: 10, Bitmap: models.NewSeatBitmap(10)}},
		},
	}

	pricingStore := &fakePricingStore{
		pricing: map[uuid.UUID]models.RoutePricing{
			routeID: {TransferCost: 2.5, SegmentCosts: []float64{10, 12}},
		},
		templates: map[uuid.UUID][]models.CarriageTemplate{
			routeID: timetable.templates["IC"],
		},
	}

	users := &fakeUsers{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Name: "Jamie Passenger"},
	}}
	stations := &fakeStations{names: map[uuid.UUID]string{
		stA: "Northgate", stB: "Midtown", stC: "Harbour",
	}}

	clock := &fakeClock{now: now}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := newFakeReservationStore()
	svc := NewReservationService(
		store,
		timetable,
		users,
		stations,
		NewAvailabilityService(availStore, clock, logger),
		NewPricingService(pricingStore),
		nil,
		20*time.Minute,
		clock,
		logger,
	)

	return &reservationFixture{
		svc:            svc,
		store:          store,
		availStore:     availStore,
		clock:          clock,
		userID:         userID,
		routeID:        routeID,
		carriageTypeID: carriageTypeID,
		departure:      departure,
	}
}

func (fx *reservationFixture) request(seat int) *models.BookPlacesRequest {
	return &models.BookPlacesRequest{Seats: []models.SeatRequest{{
		ConcreteRouteID:    fx.routeID,
		CarriageNumber:     1,
		SeatNumber:         seat,
		StartSegment:       1,
		EndSegment:         2,
		PassengerName:      "Jamie Passenger",
		PassengerBirthDate: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
	}}}
}

func TestBookPlacesCreatesHold(t *testing.T) {
	fx := newReservationFixture(t)

	resp, err := fx.svc.BookPlaces(fx.userID, fx.request(3))
	require.NoError(t, err)

	assert.Equal(t, models.LockStatusActive, resp.Status)
	assert.Equal(t, fx.clock.now.Add(20*time.Minute), resp.ExpiresAt)
	assert.Equal(t, 20*60, resp.TTLSeconds)
	// (10 + 12 + 2.5) * 1.5
	assert.InDelta(t, 36.75, resp.TotalPrice, 0.001)
	require.Len(t, resp.Seats, 1)
	assert.Equal(t, "Night Express", resp.Seats[0].TrainName)
	assert.Equal(t, "Northgate", resp.Seats[0].FromStation)
	assert.Equal(t, "Harbour", resp.Seats[0].ToStation)

	stored, err := fx.store.GetByID(resp.LockID)
	require.NoError(t, err)
	assert.Equal(t, fx.userID, stored.UserID)
	assert.Equal(t, models.UUIDArray{fx.routeID.String()}, stored.RouteIDs)
}

func TestBookPlacesSeatAlreadyHeld(t *testing.T) {
	fx := newReservationFixture(t)

	// A live hold for seat 3 from another user is visible to availability.
	fx.availStore.locks = []models.SeatLock{{
		ID:        uuid.New(),
		Status:    models.LockStatusActive,
		ExpiresAt: fx.clock.now.Add(10 * time.Minute),
		RouteIDs:  models.UUIDArray{fx.routeID.String()},
		Seats: models.LockedSeatList{
			{ConcreteRouteID: fx.routeID, CarriageTypeID: fx.carriageTypeID, SeatNumber: 3, StartSegment: 2, EndSegment: 2},
		},
	}}

	_, err := fx.svc.BookPlaces(fx.userID, fx.request(3))
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, fx.store.locks)
}

func TestBookPlacesBatchIsAllOrNothing(t *testing.T) {
	fx := newReservationFixture(t)

	// Seat 5 occupied on segment 1; the batch asks for seats 4 and 5.
	fx.availStore.rows[fx.availStore.segments[fx.routeID][0].ID][0].Bitmap.MarkOccupied(5)

	req := fx.request(4)
	second := req.Seats[0]
	second.SeatNumber = 5
	req.Seats = append(req.Seats, second)

	_, err := fx.svc.BookPlaces(fx.userID, req)
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, fx.store.locks)
}

func TestBookPlacesUnknownUser(t *testing.T) {
	fx := newReservationFixture(t)

	_, err := fx.svc.BookPlaces(uuid.New(), fx.request(3))
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestBookPlacesBlockedUser(t *testing.T) {
	fx := newReservationFixture(t)
	blocked := uuid.New()
	fx.svc.users.(*fakeUsers).users[blocked] = &models.User{ID: blocked, Blocked: true}

	_, err := fx.svc.BookPlaces(blocked, fx.request(3))
	var authz *models.AuthorizationError
	assert.ErrorAs(t, err, &authz)
}

func TestBookPlacesDepartedRoute(t *testing.T) {
	fx := newReservationFixture(t)
	fx.clock.now = fx.departure.Add(time.Minute)

	_, err := fx.svc.BookPlaces(fx.userID, fx.request(3))
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestBookPlacesFutureBirthDate(t *testing.T) {
	fx := newReservationFixture(t)
	req := fx.request(3)
	req.Seats[0].PassengerBirthDate = fx.clock.now.Add(24 * time.Hour)

	_, err := fx.svc.BookPlaces(fx.userID, req)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestBookPlacesSeatBeyondCarriage(t *testing.T) {
	fx := newReservationFixture(t)

	_, err := fx.svc.BookPlaces(fx.userID, fx.request(11))
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestCancelBookPlaces(t *testing.T) {
	fx := newReservationFixture(t)
	resp, err := fx.svc.BookPlaces(fx.userID, fx.request(3))
	require.NoError(t, err)

	require.NoError(t, fx.svc.CancelBookPlaces(resp.LockID))

	stored, err := fx.store.GetByID(resp.LockID)
	require.NoError(t, err)
	assert.Equal(t, models.LockStatusCancelled, stored.Status)

	// A second cancel finds the hold no longer active.
	err = fx.svc.CancelBookPlaces(resp.LockID)
	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestCancelBookPlacesUnknownLock(t *testing.T) {
	fx := newReservationFixture(t)

	err := fx.svc.CancelBookPlaces(uuid.New())
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetBooksListsOnlyLiveHolds(t *testing.T) {
	fx := newReservationFixture(t)
	resp, err := fx.svc.BookPlaces(fx.userID, fx.request(3))
	require.NoError(t, err)

	books, err := fx.svc.GetBooks(fx.userID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, resp.LockID, books[0].LockID)

	fx.clock.now = fx.clock.now.Add(25 * time.Minute)
	books, err = fx.svc.GetBooks(fx.userID)
	require.NoError(t, err)
	assert.Empty(t, books)
}
