package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"loyaltix/internal/config"
	"loyaltix/internal/database"
	"loyaltix/internal/logger"
	"loyaltix/internal/repository"
	"loyaltix/internal/search"
)

var (
	batchSize = pflag.Int("batch-size", 1000, "Tickets per bulk request")
	timeout   = pflag.Duration("timeout", 30*time.Minute, "Give up after this long")
)

func main() {
	pflag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	esCfg := config.LoadElasticsearchConfig()
	if !esCfg.Enabled {
		logger.Fatal("Elasticsearch is disabled, set ELASTICSEARCH_ENABLED=true")
	}
	if *batchSize <= 0 {
		logger.Fatal("batch-size must be positive", "batch_size", *batchSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(ctx, esCfg)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	// ID source не нужен: reindex только читает
	repos := repository.NewRepositories(db, nil)

	start := time.Now()
	total, err := reindex(ctx, repos.Tickets, es, *batchSize)
	if err != nil {
		logger.Fatal("Reindex failed", "error", err, "indexed", total)
	}

	slog.Info("Reindex completed", "indexed", total, "duration_ms", time.Since(start).Milliseconds())
}
