package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/models"
	"github.com/smartrail/booking-backend/internal/services"
)

// SearchHandler serves itinerary searches.
type SearchHandler struct {
	search *services.SearchService
	logger *logrus.Logger
}

func NewSearchHandler(search *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req models.ItinerarySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.search.Search(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
