package consumers

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/nats-io/stan.go"

	"loyaltix/internal/config"
	"loyaltix/internal/database"
	"loyaltix/internal/messaging"
	"loyaltix/internal/models"
	"loyaltix/internal/repository"
	"loyaltix/internal/search"
)

const queueGroup = "consumers"

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(ctx context.Context, cfg *config.Config, esCfg config.ElasticsearchConfig) (*ConsumerService, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	ids, err := repository.NewIDSource(cfg.IDSource, cfg.SnowflakeNode, db)
	if err != nil {
		natsClient.Close()
		db.Close()
		return nil, err
	}
	repos := repository.NewRepositories(db, ids)

	var indexer TicketIndexer
	if esCfg.Enabled {
		es, err := search.NewElasticsearchClient(ctx, esCfg)
		if err != nil {
			natsClient.Close()
			db.Close()
			return nil, err
		}
		indexer = es
	}

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: NewHandlers(repos, indexer),
	}, nil
}

// Repositories exposes the stores for jobs running in the same process
func (cs *ConsumerService) Repositories() *repository.Repositories {
	return cs.repos
}

func (cs *ConsumerService) DB() *sql.DB {
	return cs.db.DB
}

// Publisher exposes the NATS client for jobs running in the same process
func (cs *ConsumerService) Publisher() messaging.Publisher {
	return cs.nats
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subscriptions := []struct {
		subject string
		handler stan.MsgHandler
	}{
		{models.EventTicketPurchased, cs.handlers.HandleTicketPurchased},
		{models.EventPointsAwarded, cs.handlers.HandlePointsAwarded},
		{models.EventPointsRedeemed, cs.handlers.HandlePointsRedeemed},
		{models.EventTierCorrected, cs.handlers.HandleTierCorrected},
	}

	for _, s := range subscriptions {
		sub, err := cs.nats.SubscribeQueue(s.subject, queueGroup, s.handler)
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close keeps durable queue subscriptions registered on the server
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
