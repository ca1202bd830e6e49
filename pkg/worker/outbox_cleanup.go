package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/medisched/hms-api/internal/repository"
	"github.com/medisched/hms-api/pkg/logger"
)

// OutboxCleaner periodically purges processed outbox events older than
// the retention window, keeping the outbox table from growing without
// bound. Pending and failed events are never touched.
type OutboxCleaner struct {
	repo            repository.OutboxRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
}

func NewOutboxCleaner(repo repository.OutboxRepository, retentionDays int, cleanupInterval time.Duration, logger *logger.Logger) *OutboxCleaner {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &OutboxCleaner{
		repo:            repo,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          logger,
	}
}

func (w *OutboxCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	w.logger.Info("starting outbox cleaner", "retention_days", w.retentionDays)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down outbox cleaner")
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.logger.Error(err, "failed to clean up outbox events")
			}
		}
	}
}

func (w *OutboxCleaner) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete processed events: %w", err)
	}

	if rows > 0 {
		w.logger.Info("purged processed outbox events", "count", rows, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
