package main

import (
	"context"
	"fmt"
	"log/slog"

	"loyaltix/internal/models"
	"loyaltix/internal/repository"
)

type bulkIndexer interface {
	BulkIndex(ctx context.Context, tickets []models.Ticket) error
}

// reindex copies every stored ticket into the search index, batchSize at a time
func reindex(ctx context.Context, tickets repository.TicketStore, indexer bulkIndexer, batchSize int) (int, error) {
	var total int
	var after int64

	for {
		batch, err := tickets.List(ctx, after, batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list tickets after %d: %w", after, err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		if err := indexer.BulkIndex(ctx, batch); err != nil {
			return total, fmt.Errorf("failed to index tickets %d..%d: %w", batch[0].ID, batch[len(batch)-1].ID, err)
		}
		total += len(batch)
		after = batch[len(batch)-1].ID

		slog.Info("Indexed batch", "count", len(batch), "total", total, "last_id", after)

		if len(batch) < batchSize {
			return total, nil
		}
	}
}
