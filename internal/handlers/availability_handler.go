package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/models"
	"github.com/smartrail/booking-backend/internal/services"
)

// AvailabilityHandler serves free-seat queries for a route segment range.
type AvailabilityHandler struct {
	availability *services.AvailabilityService
	logger       *logrus.Logger
}

func NewAvailabilityHandler(availability *services.AvailabilityService, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, logger: logger}
}

// GetAvailability handles GET /api/v1/routes/:id/availability
//
// Query parameters: start_segment and end_segment are required.
// carriage_type narrows the answer to one carriage type and lists its
// free seat numbers; seat additionally answers for a single seat.
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	start, err := strconv.Atoi(c.Query("start_segment"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_segment is required and must be an integer"})
		return
	}
	end, err := strconv.Atoi(c.Query("end_segment"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_segment is required and must be an integer"})
		return
	}

	resp := models.AvailabilityResponse{
		ConcreteRouteID: routeID,
		StartSegment:    start,
		EndSegment:      end,
	}

	byType, err := h.availability.FreeSeatsByCarriageType(routeID, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	resp.ByCarriageType = make(map[string]int, len(byType))
	for typeID, count := range byType {
		resp.ByCarriageType[typeID.String()] = count
		resp.TotalFree += count
	}

	if raw := c.Query("carriage_type"); raw != "" {
		carriageTypeID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid carriage_type"})
			return
		}

		if seatRaw := c.Query("seat"); seatRaw != "" {
			seat, err := strconv.Atoi(seatRaw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "seat must be an integer"})
				return
			}
			free, err := h.availability.IsSeatFree(routeID, start, end, carriageTypeID, seat)
			if err != nil {
				respondError(c, h.logger, err)
				return
			}
			resp.SeatFree = &free
		} else {
			seats, err := h.availability.FreeSeatNumbers(routeID, start, end, carriageTypeID)
			if err != nil {
				respondError(c, h.logger, err)
				return
			}
			resp.FreeSeats = seats
		}
	}

	c.JSON(http.StatusOK, resp)
}
