package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartrail/booking-backend/internal/models"
)

// RouteRepository handles timetable reads: concrete routes, their dated
// segments, and the carriage templates serving them. All reads are
// non-transactional; route data is reference data to the booking core.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// ConcreteRoute retrieves one dated route with its train fields
// denormalized from the abstract template.
func (r *RouteRepository) ConcreteRoute(id uuid.UUID) (*models.ConcreteRoute, error) {
	var route models.ConcreteRoute
	query := `
		SELECT cr.id, cr.abstract_route_id, cr.departure_date,
		       ar.train_name, ar.train_type, ar.transfer_cost
		FROM concrete_routes cr
		JOIN abstract_routes ar ON ar.id = cr.abstract_route_id
		WHERE cr.id = $1`
	err := r.db.Get(&route, query, id)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("route", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch concrete route: %w", err)
	}
	return &route, nil
}

// SegmentsInRange returns the route's segments with segment number in
// [start, end], ordered by segment number.
func (r *RouteRepository) SegmentsInRange(routeID uuid.UUID, start, end int) ([]models.ConcreteRouteSegment, error) {
	var segments []models.ConcreteRouteSegment
	query := `
		SELECT id, concrete_route_id, segment_number, from_station_id, to_station_id,
		       departure, arrival
		FROM concrete_route_segments
		WHERE concrete_route_id = $1 AND segment_number BETWEEN $2 AND $3
		ORDER BY segment_number`
	if err := r.db.Select(&segments, query, routeID, start, end); err != nil {
		return nil, fmt.Errorf("failed to fetch route segments: %w", err)
	}
	return segments, nil
}

// DepartingSegments returns concrete segments leaving a station inside the
// time window, ordered by departure.
func (r *RouteRepository) DepartingSegments(stationID uuid.UUID, from, to time.Time) ([]models.ConcreteRouteSegment, error) {
	var segments []models.ConcreteRouteSegment
	query := `
		SELECT id, concrete_route_id, segment_number, from_station_id, to_station_id,
		       departure, arrival
		FROM concrete_route_segments
		WHERE from_station_id = $1 AND departure >= $2 AND departure < $3
		ORDER BY departure`
	if err := r.db.Select(&segments, query, stationID, from, to); err != nil {
		return nil, fmt.Errorf("failed to fetch departing segments: %w", err)
	}
	return segments, nil
}

// ArrivingSegments returns segments arriving at a station on any of the
// given concrete routes.
func (r *RouteRepository) ArrivingSegments(stationID uuid.UUID, routeIDs []uuid.UUID) ([]models.ConcreteRouteSegment, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, concrete_route_id, segment_number, from_station_id, to_station_id,
		       departure, arrival
		FROM concrete_route_segments
		WHERE to_station_id = ? AND concrete_route_id IN (?)
		ORDER BY arrival`, stationID, routeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build arriving segments query: %w", err)
	}
	query = r.db.Rebind(query)

	var segments []models.ConcreteRouteSegment
	if err := r.db.Select(&segments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch arriving segments: %w", err)
	}
	return segments, nil
}

// CarriageTemplate resolves the template for a carriage ordinal within a
// train type.
func (r *RouteRepository) CarriageTemplate(trainType string, carriageNumber int) (*models.CarriageTemplate, error) {
	var tmpl models.CarriageTemplate
	query := `
		SELECT id, train_type, carriage_number, seat_count, price_multiplier, layout_id
		FROM carriage_templates
		WHERE train_type = $1 AND carriage_number = $2`
	err := r.db.Get(&tmpl, query, trainType, carriageNumber)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("carriage template", fmt.Sprintf("%s/%d", trainType, carriageNumber))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch carriage template: %w", err)
	}
	return &tmpl, nil
}

// CarriageTypesForRoute returns all carriage templates serving a concrete
// route, ordered by carriage number.
func (r *RouteRepository) CarriageTypesForRoute(routeID uuid.UUID) ([]models.CarriageTemplate, error) {
	var templates []models.CarriageTemplate
	query := `
		SELECT ct.id, ct.train_type, ct.carriage_number, ct.seat_count,
		       ct.price_multiplier, ct.layout_id
		FROM carriage_templates ct
		JOIN abstract_routes ar ON ar.train_type = ct.train_type
		JOIN concrete_routes cr ON cr.abstract_route_id = ar.id
		WHERE cr.id = $1
		ORDER BY ct.carriage_number`
	if err := r.db.Select(&templates, query, routeID); err != nil {
		return nil, fmt.Errorf("failed to fetch carriage types: %w", err)
	}
	return templates, nil
}

// RoutePricing loads the abstract route behind a concrete route together
// with its template segments covering [start, end], and bundles their
// pricing inputs in segment order.
func (r *RouteRepository) RoutePricing(routeID uuid.UUID, start, end int) (*models.RoutePricing, error) {
	var route models.AbstractRoute
	err := r.db.Get(&route, `
		SELECT ar.id, ar.train_name, ar.train_type, ar.active_days,
		       ar.transfer_cost, ar.departure_time_of_day
		FROM concrete_routes cr
		JOIN abstract_routes ar ON ar.id = cr.abstract_route_id
		WHERE cr.id = $1`, routeID)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("route", routeID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch abstract route: %w", err)
	}

	var segments []models.AbstractRouteSegment
	err = r.db.Select(&segments, `
		SELECT ars.id, ars.abstract_route_id, ars.segment_number, ars.from_station_id,
		       ars.to_station_id, ars.base_cost, ars.duration_minutes
		FROM concrete_routes cr
		JOIN abstract_route_segments ars ON ars.abstract_route_id = cr.abstract_route_id
		WHERE cr.id = $1 AND ars.segment_number BETWEEN $2 AND $3
		ORDER BY ars.segment_number`, routeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch segment costs: %w", err)
	}

	costs := make([]float64, len(segments))
	for i := range segments {
		costs[i] = segments[i].BaseCost
	}
	return &models.RoutePricing{TransferCost: route.TransferCost, SegmentCosts: costs}, nil
}
