package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartrail/booking-backend/internal/models"
)

// AvailabilityStore is the read surface the availability engine needs.
type AvailabilityStore interface {
	SegmentsInRange(routeID uuid.UUID, start, end int) ([]models.ConcreteRouteSegment, error)
	AvailabilityForSegment(segmentID uuid.UUID) ([]models.CarriageAvailability, error)
	ActiveLocksForRoute(routeID uuid.UUID, now time.Time) ([]models.SeatLock, error)
}

// AvailabilityService computes which seats are free for a route segment
// range. A seat is free iff its bit is set in the AND of every covered
// segment's bitmap and no live hold references it over an overlapping
// range. The computation is side-effect free; it takes no locks.
type AvailabilityService struct {
	store  AvailabilityStore
	clock  Clock
	logger *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(store AvailabilityStore, clock Clock, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// carriageRange is the per-carriage-type result of one range computation:
// the AND-mask with live holds already subtracted, plus the seat count.
type carriageRange struct {
	SeatCount int
	Mask      models.SeatBitmap
}

// rangeAvailability produces the free-seat mask per carriage type for
// [start, end] on one route. Every derived answer (counts, seat lists,
// single-seat checks) comes from this one computation so they cannot
// drift apart.
func (s *AvailabilityService) rangeAvailability(routeID uuid.UUID, start, end int) (map[uuid.UUID]carriageRange, error) {
	if start < 1 || end < start {
		return nil, models.NewValidationError("invalid segment range [%d, %d]", start, end)
	}

	segments, err := s.store.SegmentsInRange(routeID, start, end)
	if err != nil {
		return nil, err
	}
	if len(segments) != end-start+1 {
		return nil, models.NewNotFoundError("segment range", routeID.String())
	}

	// Collect bitmaps per carriage type across all covered segments.
	type group struct {
		seatCount int
		bitmaps   []models.SeatBitmap
	}
	groups := make(map[uuid.UUID]*group)
	for _, seg := range segments {
		rows, err := s.store.AvailabilityForSegment(seg.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			g, ok := groups[row.CarriageTypeID]
			if !ok {
				g = &group{seatCount: row.SeatCount}
				groups[row.CarriageTypeID] = g
			}
			g.bitmaps = append(g.bitmaps, row.Bitmap)
		}
	}

	now := s.clock.Now()
	locks, err := s.store.ActiveLocksForRoute(routeID, now)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]carriageRange, len(groups))
	for typeID, g := range groups {
		// A carriage type missing a row on any covered segment does not
		// serve the whole range.
		if len(g.bitmaps) != len(segments) {
			continue
		}

		mask := g.bitmaps[0].Clone()
		for _, b := range g.bitmaps[1:] {
			mask = mask.And(b)
		}

		for i := range locks {
			lock := &locks[i]
			// Expiry is evaluated lazily here, never trusted to the
			// stored status.
			if lock.Status != models.LockStatusActive || lock.IsExpired(now) {
				continue
			}
			for j := range lock.Seats {
				seat := &lock.Seats[j]
				if seat.CarriageTypeID == typeID && seat.OverlapsRange(routeID, start, end) {
					mask.MarkOccupied(seat.SeatNumber)
				}
			}
		}

		result[typeID] = carriageRange{SeatCount: g.seatCount, Mask: mask}
	}

	return result, nil
}

// FreeSeatCount returns the total number of free seats across all carriage
// types for the range.
func (s *AvailabilityService) FreeSeatCount(routeID uuid.UUID, start, end int) (int, error) {
	ranges, err := s.rangeAvailability(routeID, start, end)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, cr := range ranges {
		total += cr.Mask.FreeCount(cr.SeatCount)
	}
	return total, nil
}

// FreeSeatsByCarriageType returns the free-seat count per carriage type.
func (s *AvailabilityService) FreeSeatsByCarriageType(routeID uuid.UUID, start, end int) (map[uuid.UUID]int, error) {
	ranges, err := s.rangeAvailability(routeID, start, end)
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(ranges))
	for typeID, cr := range ranges {
		counts[typeID] = cr.Mask.FreeCount(cr.SeatCount)
	}
	return counts, nil
}

// FreeSeatNumbers returns the sorted free seat numbers for one carriage
// type over the range.
func (s *AvailabilityService) FreeSeatNumbers(routeID uuid.UUID, start, end int, carriageTypeID uuid.UUID) ([]int, error) {
	ranges, err := s.rangeAvailability(routeID, start, end)
	if err != nil {
		return nil, err
	}
	cr, ok := ranges[carriageTypeID]
	if !ok {
		return nil, models.NewNotFoundError("carriage type", carriageTypeID.String())
	}
	return cr.Mask.FreeSeats(cr.SeatCount), nil
}

// IsSeatFree checks one seat for the range.
func (s *AvailabilityService) IsSeatFree(routeID uuid.UUID, start, end int, carriageTypeID uuid.UUID, seatNumber int) (bool, error) {
	ranges, err := s.rangeAvailability(routeID, start, end)
	if err != nil {
		return false, err
	}
	cr, ok := ranges[carriageTypeID]
	if !ok {
		return false, models.NewNotFoundError("carriage type", carriageTypeID.String())
	}
	if seatNumber < 1 || seatNumber > cr.SeatCount {
		return false, models.NewValidationError("seat %d out of range for carriage type", seatNumber)
	}
	return cr.Mask.IsFree(seatNumber), nil
}
