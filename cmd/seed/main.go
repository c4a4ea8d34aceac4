package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"loyaltix/internal/clock"
	"loyaltix/internal/config"
	"loyaltix/internal/database"
	"loyaltix/internal/logger"
	"loyaltix/internal/messaging"
	"loyaltix/internal/metrics"
	"loyaltix/internal/repository"
	"loyaltix/internal/service"
)

var (
	seedPath = pflag.StringP("file", "f", "seed.yaml", "YAML file with events and accounts to create")
	dryRun   = pflag.Bool("dry-run", false, "Validate the file and show what would be created without making changes")
)

func main() {
	pflag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting seeder...", "file", *seedPath, "dry_run", *dryRun)

	f, err := os.Open(*seedPath)
	if err != nil {
		logger.Fatal("Failed to open seed file", "error", err)
	}
	seed, err := parseSeedFile(f)
	f.Close()
	if err != nil {
		logger.Fatal("Invalid seed file", "error", err)
	}

	if *dryRun {
		for _, e := range seed.Events {
			slog.Info("Would create event", "title", e.Title, "ticket_price", e.TicketPrice, "total_tickets", e.TotalTickets, "tickets_sold", e.TicketsSold)
		}
		for _, a := range seed.Accounts {
			slog.Info("Would award points", "user_id", a.UserID, "amount", a.Amount)
		}
		slog.Info("Dry run completed", "events", len(seed.Events), "accounts", len(seed.Accounts))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	ids, err := repository.NewIDSource(cfg.IDSource, cfg.SnowflakeNode, db)
	if err != nil {
		logger.Fatal("Failed to create id source", "error", err)
	}

	// Без NATS и кеша: API читает аккаунты из базы после истечения TTL
	services := service.NewServices(repository.NewRepositories(db, ids), messaging.NoopPublisher{}, nil, 0, clock.NewSystem(), metrics.New())

	summary, err := applySeed(ctx, services, seed)
	if err != nil {
		logger.Fatal("Seeding failed", "error", err, "events_created", summary.Events, "accounts_created", summary.Accounts)
	}

	slog.Info("Seeding completed successfully!", "events", summary.Events, "accounts", summary.Accounts)
}
