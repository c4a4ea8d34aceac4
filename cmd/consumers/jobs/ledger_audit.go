package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loyaltix/internal/clock"
	"loyaltix/internal/loyalty"
	"loyaltix/internal/messaging"
	"loyaltix/internal/metrics"
	"loyaltix/internal/models"
	"loyaltix/internal/repository"
)

const (
	DefaultAuditInterval  = 5 * time.Minute
	DefaultAuditBatchSize = 500
)

// Report summarizes one audit pass
type Report struct {
	Checked   int
	Corrected int
}

// LedgerAuditJob re-derives every account's tier from its point total and repairs mismatches
type LedgerAuditJob struct {
	repos     *repository.Repositories
	publisher messaging.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int

	ticker *time.Ticker
	done   chan struct{}
}

func NewLedgerAuditJob(repos *repository.Repositories, publisher messaging.Publisher, clk clock.Clock, m *metrics.Metrics, interval time.Duration, batchSize int) *LedgerAuditJob {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if interval <= 0 {
		interval = DefaultAuditInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultAuditBatchSize
	}
	return &LedgerAuditJob{
		repos:     repos,
		publisher: publisher,
		clock:     clk,
		metrics:   m,
		interval:  interval,
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every tick until Stop
func (j *LedgerAuditJob) Start(ctx context.Context) {
	slog.Info("Starting ledger audit job", "interval", j.interval, "batch_size", j.batchSize)

	j.ticker = time.NewTicker(j.interval)

	go func() {
		j.runLogged(ctx)
		for {
			select {
			case <-j.ticker.C:
				j.runLogged(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Ledger audit job stopped")
				return
			}
		}
	}()
}

func (j *LedgerAuditJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *LedgerAuditJob) runLogged(ctx context.Context) {
	start := time.Now()
	report, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("Ledger audit failed", "error", err, "checked", report.Checked, "corrected", report.Corrected)
		return
	}
	slog.Info("Ledger audit completed",
		"checked", report.Checked,
		"corrected", report.Corrected,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// RunOnce walks all accounts in user ID order, batch by batch
func (j *LedgerAuditJob) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	var after int64

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		accounts, err := j.repos.Ledger.List(ctx, after, j.batchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list accounts after %d: %w", after, err)
		}
		if len(accounts) == 0 {
			return report, nil
		}

		for i := range accounts {
			report.Checked++
			if loyalty.Consistent(&accounts[i]) {
				continue
			}

			corrected, err := j.correct(ctx, accounts[i].UserID)
			if err != nil {
				return report, err
			}
			if corrected {
				report.Corrected++
			}
		}

		after = accounts[len(accounts)-1].UserID
		if len(accounts) < j.batchSize {
			return report, nil
		}
	}
}

// correct re-reads the account under its user lock; a concurrent write may already have fixed it
func (j *LedgerAuditJob) correct(ctx context.Context, userID int64) (bool, error) {
	var event *models.TierCorrectedEvent
	now := j.clock.Now()

	err := j.repos.Tx.WithinTx(ctx, []repository.LockKey{repository.UserLock(userID)}, func(ctx context.Context, st repository.Stores) error {
		account, err := st.Ledger.Get(ctx, userID)
		if err != nil {
			return err
		}
		if account == nil || loyalty.Consistent(account) {
			return nil
		}

		oldTier := account.Tier
		account.Tier = loyalty.TierForPoints(account.Points)
		account.UpdatedAt = now
		if err := st.Ledger.Put(ctx, account); err != nil {
			return err
		}

		event = &models.TierCorrectedEvent{
			UserID:    userID,
			Points:    account.Points,
			OldTier:   oldTier,
			NewTier:   account.Tier,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to correct tier for user %d: %w", userID, err)
	}
	if event == nil {
		return false, nil
	}

	slog.Warn("Loyalty tier corrected",
		"user_id", userID,
		"points", event.Points,
		"old_tier", event.OldTier,
		"new_tier", event.NewTier,
	)
	j.metrics.TierCorrections.Inc()

	if err := j.publisher.Publish(models.EventTierCorrected, event); err != nil {
		slog.Error("Failed to publish tier correction", "user_id", userID, "error", err)
	}
	return true, nil
}
