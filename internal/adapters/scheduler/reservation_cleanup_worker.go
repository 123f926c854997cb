package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredReclaimer releases expired reservations back to available stock.
type ExpiredReclaimer interface {
	CleanupExpiredReservations(ctx context.Context) error
}

// ReservationCleanupWorker runs the expiry safety net. Expiry is enforced at
// tick granularity only, so a reservation may outlive its nominal hold by up
// to one interval.
type ReservationCleanupWorker struct {
	logger   *slog.Logger
	service  ExpiredReclaimer
	interval time.Duration
}

const defaultCleanupInterval = 60 * time.Second

func NewReservationCleanupWorker(logger *slog.Logger, service ExpiredReclaimer, interval time.Duration) *ReservationCleanupWorker {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &ReservationCleanupWorker{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Run executes the periodic cleanup sweep until context cancellation.
func (w *ReservationCleanupWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.service.CleanupExpiredReservations(ctx); err != nil {
			w.logger.ErrorContext(ctx, "reservation cleanup sweep failed",
				"module", "scheduler.reservation_cleanup",
				"layer", "adapter",
				"operation", "cleanup_expired_reservations",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
