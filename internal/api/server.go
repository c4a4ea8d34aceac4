package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loyaltix/internal/cache"
	"loyaltix/internal/clock"
	"loyaltix/internal/config"
	"loyaltix/internal/database"
	"loyaltix/internal/handlers"
	"loyaltix/internal/messaging"
	"loyaltix/internal/metrics"
	"loyaltix/internal/middleware"
	"loyaltix/internal/repository"
	"loyaltix/internal/search"
	"loyaltix/internal/service"
	"loyaltix/internal/tracing"
)

const poolMonitorInterval = 30 * time.Second

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    cache.Cache
	search   *search.ElasticsearchClient
	metrics  *metrics.Metrics
	services *service.Services
	repos    *repository.Repositories
	cancel   context.CancelFunc
}

// NewServer собирает зависимости по конфигурации; всё, что открыто до ошибки, закрывается
func NewServer(ctx context.Context, cfg *config.Config, esCfg config.ElasticsearchConfig) (srv *Server, err error) {
	gin.SetMode(cfg.GinMode)

	bgCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		metrics: metrics.New(),
		cancel:  cancel,
	}
	defer func() {
		if err != nil {
			s.Cleanup()
		}
	}()

	if _, err := tracing.InitTracing(cfg.Tracing); err != nil {
		return nil, err
	}

	if err := s.openStorage(ctx, bgCtx); err != nil {
		return nil, err
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATSEnabled {
		s.nats, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			return nil, err
		}
		publisher = s.nats
	}

	if cfg.ValkeyEnabled {
		s.cache, err = cache.NewValkey(ctx, cfg.Valkey)
		if err != nil {
			return nil, err
		}
	} else {
		s.cache = cache.NewInMemoryCache()
	}

	// nil interface, не typed nil: handlers отвечают 503 без Elasticsearch
	var searcher handlers.TicketSearcher
	if esCfg.Enabled {
		s.search, err = search.NewElasticsearchClient(ctx, esCfg)
		if err != nil {
			return nil, err
		}
		searcher = s.search
	}

	s.services = service.NewServices(s.repos, publisher, s.cache, cfg.CacheTTL, clock.NewSystem(), s.metrics)

	s.router = gin.New()
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Tracing())
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())

	s.setupRoutes(handlers.NewHandlers(s.services, searcher))

	slog.Info("API server configured",
		"storage", cfg.Storage,
		"nats", cfg.NATSEnabled,
		"valkey", cfg.ValkeyEnabled,
		"elasticsearch", esCfg.Enabled,
		"tracing", cfg.Tracing.Enabled,
	)

	return s, nil
}

func (s *Server) openStorage(ctx, bgCtx context.Context) error {
	switch s.config.Storage {
	case config.StorageMemory:
		s.repos = repository.NewMemoryRepositories()
		return nil
	case config.StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE %q", s.config.Storage)
	}

	db, err := database.Connect(ctx, s.config.Database)
	if err != nil {
		return err
	}
	s.db = db

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ids, err := repository.NewIDSource(s.config.IDSource, s.config.SnowflakeNode, db)
	if err != nil {
		return err
	}

	s.repos = repository.NewRepositories(db, ids)

	if err := s.metrics.RegisterDB(db.DB, "loyaltix"); err != nil {
		slog.Warn("Failed to register DB pool metrics", "error", err)
	}
	go db.MonitorPool(bgCtx, poolMonitorInterval)

	return nil
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes(h *handlers.Handlers) {
	api := s.router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("/:id", h.GetEvent)
			events.GET("/:id/quote", h.QuotePrice)
		}

		tickets := api.Group("/tickets")
		{
			tickets.POST("/purchase", h.PurchaseTicket)
			tickets.GET("/search", h.SearchTickets)
			tickets.GET("/:id", h.GetTicket)
			tickets.GET("", h.ListTickets)
		}

		loyalty := api.Group("/loyalty")
		{
			loyalty.POST("/award", h.AwardPoints)
			loyalty.POST("/redeem", h.RedeemPoints)
			loyalty.GET("/:user_id", h.GetLoyaltyAccount)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "loyaltix-api",
			"storage": s.config.Storage,
		})
		return
	}

	health := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   health.Status,
		"service":  "loyaltix-api",
		"storage":  s.config.Storage,
		"database": health,
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Error closing cache", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil {
		slog.Error("Error flushing traces", "error", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
