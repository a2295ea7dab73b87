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

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeAvailabilityStore struct {
	segments map[uuid.UUID][]models.ConcreteRouteSegment
	rows     map[uuid.UUID][]models.CarriageAvailability
	locks    []models.SeatLock
}

func (f *fakeAvailabilityStore) SegmentsInRange(routeID uuid.UUID, start, end int) ([]models.ConcreteRouteSegment, error) {
	var out []models.ConcreteRouteSegment
	for _, seg := range f.segments[routeID] {
		if seg.SegmentNumber >= start && seg.SegmentNumber <= end {
			out = append(out, seg)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityStore) AvailabilityForSegment(segmentID uuid.UUID) ([]models.CarriageAvailability, error) {
	return f.rows[segmentID], nil
}

func (f *fakeAvailabilityStore) ActiveLocksForRoute(routeID uuid.UUID, now time.Time) ([]models.SeatLock, error) {
	var out []models.SeatLock
	for _, lock := range f.locks {
		for _, id := range lock.RouteIDs {
			if id == routeID.String() {
				out = append(out, lock)
				break
			}
		}
	}
	return out, nil
}

func mustParseBitmap(t *testing.T, s string) models.SeatBitmap {
	t.Helper()
	b, err := models.ParseSeatBitmap(s)
	require.NoError(t, err)
	return b
}

// availabilityFixture builds one route with two segments served by a
// single 10-seat carriage type.
func availabilityFixture(t *testing.T, seg1, seg2 string) (*fakeAvailabilityStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	routeID := uuid.New()
	carriageTypeID := uuid.New()
	segID1 := uuid.New()
	segID2 := uuid.New()

	store := &fakeAvailabilityStore{
		segments: map[uuid.UUID][]models.ConcreteRouteSegment{
			routeID: {
				{ID: segID1, ConcreteRouteID: routeID, SegmentNumber: 1},
				{ID: segID2, ConcreteRouteID: routeID, SegmentNumber: 2},
			},
		},
		rows: map[uuid.UUID][]models.CarriageAvailability{
			segID1: {{SegmentID: segID1, CarriageTypeID: carriageTypeID, SeatCount: 10, Bitmap: mustParseBitmap(t, seg1)}},
			segID2: {{SegmentID: segID2, CarriageTypeID: carriageTypeID, SeatCount: 10, Bitmap: mustParseBitmap(t, seg2)}},
		},
	}
	return store, routeID, carriageTypeID
}

func newAvailabilityService(store *fakeAvailabilityStore, clock Clock) *AvailabilityService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAvailabilityService(store, clock, logger)
}

func TestFreeSeatsIntersectSegmentBitmaps(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111100000", "1010101010")
	svc := newAvailabilityService(store, &fakeClock{now: time.Now().UTC()})

	count, err := svc.FreeSeatCount(routeID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	seats, err := svc.FreeSeatNumbers(routeID, 1, 2, carriageTypeID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, seats)
}

func TestActiveHoldMasksSeat(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111100000", "1111100000")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.locks = []models.SeatLock{{
		ID:        uuid.New(),
		Status:    models.LockStatusActive,
		ExpiresAt: now.Add(20 * time.Minute),
		RouteIDs:  models.UUIDArray{routeID.String()},
		Seats: models.LockedSeatList{
			{ConcreteRouteID: routeID, CarriageTypeID: carriageTypeID, SeatNumber: 1, StartSegment: 1, EndSegment: 2},
		},
	}}
	svc := newAvailabilityService(store, &fakeClock{now: now})

	free, err := svc.IsSeatFree(routeID, 1, 2, carriageTypeID, 1)
	require.NoError(t, err)
	assert.False(t, free)

	count, err := svc.FreeSeatCount(routeID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestExpiredHoldReleasesSeatWithoutSweep(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111100000", "1111100000")
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: created}

	// Stored status is still active; only the clock has moved on.
	store.locks = []models.SeatLock{{
		ID:        uuid.New(),
		Status:    models.LockStatusActive,
		ExpiresAt: created.Add(20 * time.Minute),
		RouteIDs:  models.UUIDArray{routeID.String()},
		Seats: models.LockedSeatList{
			{ConcreteRouteID: routeID, CarriageTypeID: carriageTypeID, SeatNumber: 1, StartSegment: 1, EndSegment: 2},
		},
	}}
	svc := newAvailabilityService(store, clock)

	free, err := svc.IsSeatFree(routeID, 1, 2, carriageTypeID, 1)
	require.NoError(t, err)
	assert.False(t, free)

	clock.now = created.Add(25 * time.Minute)
	free, err = svc.IsSeatFree(routeID, 1, 2, carriageTypeID, 1)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestHoldOnDisjointRangeDoesNotMask(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111111111", "1111111111")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.locks = []models.SeatLock{{
		ID:        uuid.New(),
		Status:    models.LockStatusActive,
		ExpiresAt: now.Add(20 * time.Minute),
		RouteIDs:  models.UUIDArray{routeID.String()},
		Seats: models.LockedSeatList{
			{ConcreteRouteID: routeID, CarriageTypeID: carriageTypeID, SeatNumber: 1, StartSegment: 1, EndSegment: 1},
		},
	}}
	svc := newAvailabilityService(store, &fakeClock{now: now})

	free, err := svc.IsSeatFree(routeID, 2, 2, carriageTypeID, 1)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCarriageTypeMissingASegmentIsExcluded(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111111111", "1111111111")
	// Second carriage type only serves segment 1.
	otherType := uuid.New()
	segID1 := store.segments[routeID][0].ID
	store.rows[segID1] = append(store.rows[segID1], models.CarriageAvailability{
		SegmentID: segID1, CarriageTypeID: otherType, SeatCount: 8, Bitmap: models.NewSeatBitmap(8),
	})
	svc := newAvailabilityService(store, &fakeClock{now: time.Now().UTC()})

	counts, err := svc.FreeSeatsByCarriageType(routeID, 1, 2)
	require.NoError(t, err)
	assert.Contains(t, counts, carriageTypeID)
	assert.NotContains(t, counts, otherType)
}

func TestInvalidRangeRejected(t *testing.T) {
	store, routeID, _ := availabilityFixture(t, "1111111111", "1111111111")
	svc := newAvailabilityService(store, &fakeClock{now: time.Now().UTC()})

	_, err := svc.FreeSeatCount(routeID, 2, 1)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.FreeSeatCount(routeID, 0, 1)
	assert.ErrorAs(t, err, &validation)
}

func TestUnknownRouteRangeNotFound(t *testing.T) {
	store, _, _ := availabilityFixture(t, "1111111111", "1111111111")
	svc := newAvailabilityService(store, &fakeClock{now: time.Now().UTC()})

	_, err := svc.FreeSeatCount(uuid.New(), 1, 2)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSeatNumberOutOfRange(t *testing.T) {
	store, routeID, carriageTypeID := availabilityFixture(t, "1111111111", "1111111111")
	svc := newAvailabilityService(store, &fakeClock{now: time.Now().UTC()})

	_, err := svc.IsSeatFree(routeID, 1, 2, carriageTypeID, 11)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}
