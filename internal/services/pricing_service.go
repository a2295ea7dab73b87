package services

import (
	"github.com/google/uuid"
	"github.com/smartrail/booking-backend/internal/models"
)

// PricingStore is the read surface the price engine needs.
type PricingStore interface {
	RoutePricing(routeID uuid.UUID, start, end int) (*models.RoutePricing, error)
	CarriageTypesForRoute(routeID uuid.UUID) ([]models.CarriageTemplate, error)
}

// PricingService computes prices from timetable data. Base price for a
// segment range is the sum of covered segment base costs plus the route's
// transfer surcharge; the per-carriage price scales it by the carriage
// type's multiplier.
type PricingService struct {
	store PricingStore
}

// NewPricingService creates a new PricingService
func NewPricingService(store PricingStore) *PricingService {
	return &PricingService{store: store}
}

// BasePrice returns the unscaled price for the range.
func (s *PricingService) BasePrice(routeID uuid.UUID, start, end int) (float64, error) {
	if start < 1 || end < start {
		return 0, models.NewValidationError("invalid segment range [%d, %d]", start, end)
	}

	pricing, err := s.store.RoutePricing(routeID, start, end)
	if err != nil {
		return 0, err
	}
	if len(pricing.SegmentCosts) != end-start+1 {
		return 0, models.NewNotFoundError("segment range", routeID.String())
	}

	price := pricing.TransferCost
	for _, cost := range pricing.SegmentCosts {
		price += cost
	}
	return price, nil
}

// PriceForCarriage returns the price for the range in one carriage type.
func (s *PricingService) PriceForCarriage(routeID uuid.UUID, start, end int, template *models.CarriageTemplate) (float64, error) {
	base, err := s.BasePrice(routeID, start, end)
	if err != nil {
		return 0, err
	}
	return base * template.PriceMultiplier, nil
}

// PriceRange returns the minimum and maximum per-carriage price across all
// carriage types serving the route.
func (s *PricingService) PriceRange(routeID uuid.UUID, start, end int) (float64, float64, error) {
	base, err := s.BasePrice(routeID, start, end)
	if err != nil {
		return 0, 0, err
	}

	templates, err := s.store.CarriageTypesForRoute(routeID)
	if err != nil {
		return 0, 0, err
	}
	if len(templates) == 0 {
		return 0, 0, models.NewNotFoundError("carriage types for route", routeID.String())
	}

	min, max := 0.0, 0.0
	for i, tmpl := range templates {
		price := base * tmpl.PriceMultiplier
		if i == 0 || price < min {
			min = price
		}
		if i == 0 || price > max {
			max = price
		}
	}
	return min, max, nil
}
