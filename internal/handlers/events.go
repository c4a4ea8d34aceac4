package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyaltix/internal/models"
)

// CreateEvent - POST /api/events
// Создать событие
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := parseInt64(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// QuotePrice - GET /api/events/:id/quote?user_id=
// Текущая цена билета для пользователя, без покупки
func (h *Handlers) QuotePrice(c *gin.Context) {
	id, ok := parseInt64(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		if userID, ok = parseInt64(raw); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
	}

	quote, err := h.services.Tickets.Quote(c.Request.Context(), id, userID)
	if err != nil {
		handleServiceError(c, err, "Failed to quote price")
		return
	}

	c.JSON(http.StatusOK, quote)
}
