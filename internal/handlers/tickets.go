package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyaltix/internal/models"
)

const maxSearchResults = 100

// PurchaseTicket - POST /api/tickets/purchase
// Купить билет по динамической цене и начислить баллы
func (h *Handlers) PurchaseTicket(c *gin.Context) {
	var req models.PurchaseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Tickets.Purchase(c.Request.Context(), req.EventID, req.UserID, req.SeatNumber)
	if err != nil {
		handleServiceError(c, err, "Failed to purchase ticket")
		return
	}

	c.JSON(http.StatusCreated, models.PurchaseTicketResponse{
		Ticket:  result.Ticket,
		Loyalty: result.Account,
	})
}

// GetTicket - GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id, ok := parseInt64(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.services.Tickets.GetTicket(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ListTickets - GET /api/tickets?user_id=
func (h *Handlers) ListTickets(c *gin.Context) {
	userID, ok := parseInt64(c.Query("user_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	tickets, err := h.services.Tickets.ListTickets(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, models.ListTicketsResponse(tickets))
}

// SearchTickets - GET /api/tickets/search?user_id=&event_id=
// Поиск по индексу Elasticsearch
func (h *Handlers) SearchTickets(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	var userID, eventID int64
	var ok bool
	if raw := c.Query("user_id"); raw != "" {
		if userID, ok = parseInt64(raw); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
	}
	if raw := c.Query("event_id"); raw != "" {
		if eventID, ok = parseInt64(raw); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
	}
	if userID == 0 && eventID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or event_id is required"})
		return
	}

	tickets, err := h.searcher.SearchTickets(c.Request.Context(), userID, eventID, maxSearchResults)
	if err != nil {
		handleServiceError(c, err, "Failed to search tickets")
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	c.JSON(http.StatusOK, models.ListTicketsResponse(tickets))
}
