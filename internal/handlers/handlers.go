package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/logger"
	"loyaltix/internal/models"
	"loyaltix/internal/service"
)

// TicketSearcher ищет билеты в поисковом индексе
type TicketSearcher interface {
	SearchTickets(ctx context.Context, userID, eventID int64, limit int) ([]models.Ticket, error)
}

type Handlers struct {
	services *service.Services
	searcher TicketSearcher
}

// NewHandlers создает обработчики; searcher может быть nil, если Elasticsearch не настроен
func NewHandlers(services *service.Services, searcher TicketSearcher) *Handlers {
	return &Handlers{
		services: services,
		searcher: searcher,
	}
}

// handleServiceError переводит ошибки сервисов в HTTP статусы
func handleServiceError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient points"})
	case errors.Is(err, apperrors.ErrEventFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Event is sold out"})
	case errors.Is(err, apperrors.ErrInvalidCapacity),
		errors.Is(err, apperrors.ErrPointsOverflow),
		errors.Is(err, apperrors.ErrPriceOverflow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.WithContext(c.Request.Context()).Error(msg, "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// parseInt64 читает положительный int64 из строки пути или запроса
func parseInt64(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
