package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/middleware"
	"github.com/smartrail/booking-backend/internal/services"
)

// PaymentHandler serves hold payment, ticket listing and ticket cancellation.
type PaymentHandler struct {
	payments *services.PaymentService
	logger   *logrus.Logger
}

func NewPaymentHandler(payments *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// PayTickets handles POST /api/v1/bookings/:id/pay
func (h *PaymentHandler) PayTickets(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	lockID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	tickets, err := h.payments.PayTickets(userID, lockID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tickets": tickets})
}

// GetTickets handles GET /api/v1/tickets
func (h *PaymentHandler) GetTickets(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	tickets, err := h.payments.GetTickets(userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// CancelTicket handles POST /api/v1/tickets/:id/cancel
func (h *PaymentHandler) CancelTicket(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	if err := h.payments.CancelTicket(userID, ticketID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ticket cancelled"})
}
