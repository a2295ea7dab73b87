package services

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/config"
	"github.com/smartrail/booking-backend/internal/models"
)

// maxTransfers bounds the connection search. Itineraries with more
// changes are never useful in practice and blow up the state space.
const maxTransfers = 3

// SearchTimetable is the timetable surface the search engine reads.
type SearchTimetable interface {
	DepartingSegments(stationID uuid.UUID, from, to time.Time) ([]models.ConcreteRouteSegment, error)
	ArrivingSegments(stationID uuid.UUID, routeIDs []uuid.UUID) ([]models.ConcreteRouteSegment, error)
	ConcreteRoute(id uuid.UUID) (*models.ConcreteRoute, error)
}

// StationResolver resolves stations by name and names by id.
type StationResolver interface {
	FindByName(name string) (*models.Station, error)
	Names(ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// SearchCache is an optional response cache in front of the engine.
type SearchCache interface {
	Get(ctx context.Context, key string) (*models.ItinerarySearchResponse, bool)
	Set(ctx context.Context, key string, resp *models.ItinerarySearchResponse)
}

// SearchService finds direct and connecting itineraries between two
// stations, with live price ranges and seat counts on every leg.
type SearchService struct {
	timetable    SearchTimetable
	stations     StationResolver
	availability *AvailabilityService
	pricing      *PricingService
	cache        SearchCache
	cfg          config.SearchConfig
	clock        Clock
	logger       *logrus.Logger
}

func NewSearchService(
	timetable SearchTimetable,
	stations StationResolver,
	availability *AvailabilityService,
	pricing *PricingService,
	cache SearchCache,
	cfg config.SearchConfig,
	clock Clock,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		timetable:    timetable,
		stations:     stations,
		availability: availability,
		pricing:      pricing,
		cache:        cache,
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
	}
}

// Search resolves both station names, then runs one bounded search per
// departure leaving the origin inside the direct window. Departures are
// searched concurrently on a worker pool sharing one per-invocation
// timetable cache, so each station's departure list is fetched at most once.
func (s *SearchService) Search(ctx context.Context, req *models.ItinerarySearchRequest) (*models.ItinerarySearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	resp := &models.ItinerarySearchResponse{
		FromStation: models.StationMatch{OriginalInput: req.From},
		ToStation:   models.StationMatch{OriginalInput: req.To},
	}

	from, err := s.stations.FindByName(req.From)
	if err != nil {
		return nil, err
	}
	to, err := s.stations.FindByName(req.To)
	if err != nil {
		return nil, err
	}
	if from != nil {
		resp.FromStation = models.StationMatch{ID: &from.ID, Name: from.Name, Matched: true, OriginalInput: req.From}
	}
	if to != nil {
		resp.ToStation = models.StationMatch{ID: &to.ID, Name: to.Name, Matched: true, OriginalInput: req.To}
	}
	if from == nil || to == nil {
		resp.Status = "error"
		resp.Message = "one or more stations could not be resolved"
		resp.SearchTimeMs = time.Since(started).Milliseconds()
		return resp, nil
	}
	if from.ID == to.ID {
		return nil, models.NewValidationError("origin and destination are the same station")
	}

	now := s.clock.Now()
	windowStart := now
	if req.Date != nil && req.Date.After(now) {
		windowStart = req.Date.UTC()
	}

	limit := req.Limit
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	key := s.cacheKey(from.ID, to.ID, windowStart, req.DirectOnly, limit)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	itineraries, err := s.runSearch(ctx, from.ID, to.ID, windowStart, req.DirectOnly)
	if err != nil {
		return nil, err
	}
	if len(itineraries) > limit {
		itineraries = itineraries[:limit]
	}
	if err := s.resolveStationNames(itineraries); err != nil {
		return nil, err
	}

	resp.Results = itineraries
	resp.SearchTimeMs = time.Since(started).Milliseconds()
	if len(itineraries) == 0 {
		resp.Status = "success"
		resp.Message = "no itineraries found"
	} else {
		resp.Status = "success"
		resp.Message = fmt.Sprintf("found %d itineraries", len(itineraries))
	}

	s.logger.WithFields(logrus.Fields{
		"from":           from.Name,
		"to":             to.Name,
		"results":        len(itineraries),
		"direct_only":    req.DirectOnly,
		"search_time_ms": resp.SearchTimeMs,
	}).Info("Itinerary search completed")

	if s.cache != nil {
		s.cache.Set(ctx, key, resp)
	}
	return resp, nil
}

func (s *SearchService) cacheKey(from, to uuid.UUID, windowStart time.Time, directOnly bool, limit int) string {
	return fmt.Sprintf("search:%s:%s:%s:%t:%d",
		from, to, windowStart.Truncate(time.Minute).Format(time.RFC3339), directOnly, limit)
}

// timetableCache memoizes per-station departure lists and route lookups
// for the duration of one search invocation. It is shared by all workers.
type timetableCache struct {
	timetable SearchTimetable
	from      time.Time
	to        time.Time

	mu         sync.Mutex
	departures map[uuid.UUID][]models.ConcreteRouteSegment
	routes     map[uuid.UUID]*models.ConcreteRoute
}

func newTimetableCache(timetable SearchTimetable, from, to time.Time) *timetableCache {
	return &timetableCache{
		timetable:  timetable,
		from:       from,
		to:         to,
		departures: make(map[uuid.UUID][]models.ConcreteRouteSegment),
		routes:     make(map[uuid.UUID]*models.ConcreteRoute),
	}
}

func (c *timetableCache) departuresFrom(stationID uuid.UUID) ([]models.ConcreteRouteSegment, error) {
	c.mu.Lock()
	segs, ok := c.departures[stationID]
	c.mu.Unlock()
	if ok {
		return segs, nil
	}

	segs, err := c.timetable.DepartingSegments(stationID, c.from, c.to)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.departures[stationID] = segs
	c.mu.Unlock()
	return segs, nil
}

func (c *timetableCache) route(id uuid.UUID) (*models.ConcreteRoute, error) {
	c.mu.Lock()
	route, ok := c.routes[id]
	c.mu.Unlock()
	if ok {
		return route, nil
	}

	route, err := c.timetable.ConcreteRoute(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.routes[id] = route
	c.mu.Unlock()
	return route, nil
}

// runSearch fans the origin departures out over the worker pool and merges
// the per-departure results into one ordered, deduplicated list. Direct-only
// searches skip the expansion entirely and match origin departures against
// destination arrivals on the same routes.
func (s *SearchService) runSearch(ctx context.Context, fromID, toID uuid.UUID, windowStart time.Time, directOnly bool) ([]models.Itinerary, error) {
	cache := newTimetableCache(s.timetable, windowStart, windowStart.Add(s.cfg.Horizon))

	originSegs, err := cache.departuresFrom(fromID)
	if err != nil {
		return nil, err
	}
	directCutoff := windowStart.Add(s.cfg.DirectWindow)
	seeds := make([]models.ConcreteRouteSegment, 0, len(originSegs))
	for _, seg := range originSegs {
		if !seg.Departure.After(directCutoff) {
			seeds = append(seeds, seg)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	if directOnly {
		return s.directSearch(cache, seeds, toID)
	}

	workers := s.cfg.Workers
	if workers > len(seeds) {
		workers = len(seeds)
	}

	seedCh := make(chan models.ConcreteRouteSegment)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		found    []models.Itinerary
		firstErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seedCh {
				itinerary, err := s.searchFromSeed(cache, seed, toID)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				if err == nil && itinerary != nil {
					found = append(found, *itinerary)
				}
				mu.Unlock()
			}
		}()
	}

	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		seedCh <- seed
	}
	close(seedCh)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dedupeAndSort(found), nil
}

// directSearch finds single-train itineraries with one batched arrival
// lookup: every route departing the origin is checked for a later segment
// arriving at the destination. No expansion, no transfers.
func (s *SearchService) directSearch(cache *timetableCache, seeds []models.ConcreteRouteSegment, toID uuid.UUID) ([]models.Itinerary, error) {
	routeSet := make(map[uuid.UUID]struct{}, len(seeds))
	routeIDs := make([]uuid.UUID, 0, len(seeds))
	for _, seed := range seeds {
		if _, ok := routeSet[seed.ConcreteRouteID]; ok {
			continue
		}
		routeSet[seed.ConcreteRouteID] = struct{}{}
		routeIDs = append(routeIDs, seed.ConcreteRouteID)
	}

	arrivals, err := s.timetable.ArrivingSegments(toID, routeIDs)
	if err != nil {
		return nil, err
	}
	arrivalByRoute := make(map[uuid.UUID]models.ConcreteRouteSegment, len(arrivals))
	for _, arr := range arrivals {
		arrivalByRoute[arr.ConcreteRouteID] = arr
	}

	var found []models.Itinerary
	for i := range seeds {
		seed := &seeds[i]
		arr, ok := arrivalByRoute[seed.ConcreteRouteID]
		if !ok || arr.SegmentNumber < seed.SegmentNumber {
			// The route never reaches the destination, or passes it
			// before calling at the origin.
			continue
		}
		leg, err := s.buildLeg(cache, seed, &arr)
		if err != nil {
			return nil, err
		}
		itinerary := models.Itinerary{
			Legs:           []models.ItineraryLeg{*leg},
			Departure:      leg.Departure,
			Arrival:        leg.Arrival,
			SeatsAvailable: leg.SeatsAvailable,
			MinPrice:       leg.MinPrice,
			MaxPrice:       leg.MaxPrice,
		}
		itinerary.DurationMinutes = int(itinerary.Arrival.Sub(itinerary.Departure) / time.Minute)
		found = append(found, itinerary)
	}
	return dedupeAndSort(found), nil
}

// searchState is one node of the connection search: a station reached at a
// time, on a route, after a number of transfers. States form a chain back
// to the origin through prev, which is unwound to build the itinerary.
type searchState struct {
	station   uuid.UUID
	arrival   time.Time
	transfers int
	routeID   uuid.UUID
	segment   int
	edge      *models.ConcreteRouteSegment
	prev      *searchState
}

func (st *searchState) betterThan(other *searchState) bool {
	if !st.arrival.Equal(other.arrival) {
		return st.arrival.Before(other.arrival)
	}
	return st.transfers < other.transfers
}

type stateHeap []*searchState

func (h stateHeap) Len() int            { return len(h) }
func (h stateHeap) Less(i, j int) bool  { return h[i].betterThan(h[j]) }
func (h stateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x interface{}) { *h = append(*h, x.(*searchState)) }
func (h *stateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return st
}

type routeAtStation struct {
	station uuid.UUID
	route   uuid.UUID
}

// searchFromSeed runs a Dijkstra-style expansion from the state reached by
// taking one departure out of the origin. States are ordered by arrival
// time, then transfer count, so the first time the destination is popped
// it is popped with the best reachable (arrival, transfers) pair for this
// seed. Staying on the arriving route costs nothing; changing routes costs
// a transfer and requires the minimum connection time.
func (s *SearchService) searchFromSeed(cache *timetableCache, seed models.ConcreteRouteSegment, toID uuid.UUID) (*models.Itinerary, error) {
	start := &searchState{
		station: seed.ToStationID,
		arrival: seed.Arrival,
		routeID: seed.ConcreteRouteID,
		segment: seed.SegmentNumber,
		edge:    &seed,
	}

	pq := &stateHeap{start}
	heap.Init(pq)
	best := map[routeAtStation]*searchState{
		{station: start.station, route: start.routeID}: start,
	}

	for pq.Len() > 0 {
		st := heap.Pop(pq).(*searchState)
		if st.station == toID {
			return s.buildItinerary(cache, st)
		}

		departures, err := cache.departuresFrom(st.station)
		if err != nil {
			return nil, err
		}
		for i := range departures {
			seg := &departures[i]
			next, ok := s.relax(st, seg)
			if !ok {
				continue
			}
			key := routeAtStation{station: next.station, route: next.routeID}
			if known, seen := best[key]; seen && !next.betterThan(known) {
				continue
			}
			best[key] = next
			heap.Push(pq, next)
		}
	}
	return nil, nil
}

// relax tries to extend a state with one departing segment.
func (s *SearchService) relax(st *searchState, seg *models.ConcreteRouteSegment) (*searchState, bool) {
	sameRoute := seg.ConcreteRouteID == st.routeID && seg.SegmentNumber == st.segment+1

	transfers := st.transfers
	if sameRoute {
		if seg.Departure.Before(st.arrival) {
			return nil, false
		}
	} else {
		if st.transfers+1 > maxTransfers {
			return nil, false
		}
		if seg.Departure.Before(st.arrival.Add(s.cfg.MinConnection)) {
			return nil, false
		}
		transfers = st.transfers + 1
	}

	return &searchState{
		station:   seg.ToStationID,
		arrival:   seg.Arrival,
		transfers: transfers,
		routeID:   seg.ConcreteRouteID,
		segment:   seg.SegmentNumber,
		edge:      seg,
		prev:      st,
	}, true
}

// buildItinerary unwinds a goal state into legs. Consecutive segments on
// the same concrete route collapse into one leg, priced and measured for
// availability over its whole segment range.
func (s *SearchService) buildItinerary(cache *timetableCache, goal *searchState) (*models.Itinerary, error) {
	var path []*models.ConcreteRouteSegment
	for st := goal; st != nil; st = st.prev {
		path = append(path, st.edge)
	}
	// path was collected goal-first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	var legs []models.ItineraryLeg
	for i := 0; i < len(path); {
		j := i
		for j+1 < len(path) && path[j+1].ConcreteRouteID == path[i].ConcreteRouteID {
			j++
		}
		leg, err := s.buildLeg(cache, path[i], path[j])
		if err != nil {
			return nil, err
		}
		legs = append(legs, *leg)
		i = j + 1
	}

	itinerary := &models.Itinerary{
		Legs:           legs,
		Departure:      legs[0].Departure,
		Arrival:        legs[len(legs)-1].Arrival,
		Transfers:      len(legs) - 1,
		SeatsAvailable: legs[0].SeatsAvailable,
	}
	itinerary.DurationMinutes = int(itinerary.Arrival.Sub(itinerary.Departure) / time.Minute)
	for _, leg := range legs {
		itinerary.MinPrice += leg.MinPrice
		itinerary.MaxPrice += leg.MaxPrice
		if leg.SeatsAvailable < itinerary.SeatsAvailable {
			itinerary.SeatsAvailable = leg.SeatsAvailable
		}
	}
	return itinerary, nil
}

func (s *SearchService) buildLeg(cache *timetableCache, first, last *models.ConcreteRouteSegment) (*models.ItineraryLeg, error) {
	route, err := cache.route(first.ConcreteRouteID)
	if err != nil {
		return nil, err
	}
	minPrice, maxPrice, err := s.pricing.PriceRange(first.ConcreteRouteID, first.SegmentNumber, last.SegmentNumber)
	if err != nil {
		return nil, err
	}
	seats, err := s.availability.FreeSeatCount(first.ConcreteRouteID, first.SegmentNumber, last.SegmentNumber)
	if err != nil {
		return nil, err
	}

	return &models.ItineraryLeg{
		ConcreteRouteID: first.ConcreteRouteID,
		TrainName:       route.TrainName,
		FromStationID:   first.FromStationID,
		ToStationID:     last.ToStationID,
		StartSegment:    first.SegmentNumber,
		EndSegment:      last.SegmentNumber,
		Departure:       first.Departure,
		Arrival:         last.Arrival,
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		SeatsAvailable:  seats,
	}, nil
}

// dedupeAndSort removes itineraries with identical leg sequences and
// orders the rest by arrival time, then transfer count, then departure.
func dedupeAndSort(itineraries []models.Itinerary) []models.Itinerary {
	seen := make(map[string]struct{}, len(itineraries))
	out := itineraries[:0]
	for _, it := range itineraries {
		key := itineraryKey(&it)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Arrival.Equal(out[j].Arrival) {
			return out[i].Arrival.Before(out[j].Arrival)
		}
		if out[i].Transfers != out[j].Transfers {
			return out[i].Transfers < out[j].Transfers
		}
		return out[i].Departure.Before(out[j].Departure)
	})
	return out
}

func itineraryKey(it *models.Itinerary) string {
	var b strings.Builder
	for _, leg := range it.Legs {
		fmt.Fprintf(&b, "%s:%d-%d;", leg.ConcreteRouteID, leg.StartSegment, leg.EndSegment)
	}
	return b.String()
}

// resolveStationNames fills in display names with one batched lookup.
func (s *SearchService) resolveStationNames(itineraries []models.Itinerary) error {
	idSet := make(map[uuid.UUID]struct{})
	for i := range itineraries {
		for j := range itineraries[i].Legs {
			idSet[itineraries[i].Legs[j].FromStationID] = struct{}{}
			idSet[itineraries[i].Legs[j].ToStationID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	names, err := s.stations.Names(ids)
	if err != nil {
		return err
	}
	for i := range itineraries {
		for j := range itineraries[i].Legs {
			leg := &itineraries[i].Legs[j]
			leg.FromStation = names[leg.FromStationID]
			leg.ToStation = names[leg.ToStationID]
		}
	}
	return nil
}
