package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/middleware"
	"github.com/smartrail/booking-backend/internal/models"
	"github.com/smartrail/booking-backend/internal/services"
)

// BookingHandler serves seat hold creation, listing and cancellation.
type BookingHandler struct {
	reservations *services.ReservationService
	logger       *logrus.Logger
}

func NewBookingHandler(reservations *services.ReservationService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{reservations: reservations, logger: logger}
}

// BookPlaces handles POST /api/v1/bookings
func (h *BookingHandler) BookPlaces(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.BookPlacesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	lock, err := h.reservations.BookPlaces(userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, lock)
}

// GetBooks handles GET /api/v1/bookings
func (h *BookingHandler) GetBooks(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	locks, err := h.reservations.GetBooks(userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": locks})
}

// CancelBookPlaces handles DELETE /api/v1/bookings/:id
func (h *BookingHandler) CancelBookPlaces(c *gin.Context) {
	lockID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := h.reservations.CancelBookPlaces(lockID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}
