package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// StatusAdvancer advances campaign lifecycle state one sweep at a time.
type StatusAdvancer interface {
	UpdateCampaignStatuses(ctx context.Context) error
}

// CampaignStatusWorker ticks the campaign state machine on a fixed interval.
// A failed sweep is logged and the next tick simply retries; activation
// itself is guarded by conditional status updates, so the worker needs no
// coordination of its own.
type CampaignStatusWorker struct {
	logger   *slog.Logger
	service  StatusAdvancer
	interval time.Duration
}

const defaultStatusInterval = 30 * time.Second

func NewCampaignStatusWorker(logger *slog.Logger, service StatusAdvancer, interval time.Duration) *CampaignStatusWorker {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	return &CampaignStatusWorker{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Run executes the periodic status sweep until context cancellation.
func (w *CampaignStatusWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.service.UpdateCampaignStatuses(ctx); err != nil {
			w.logger.ErrorContext(ctx, "campaign status sweep failed",
				"module", "scheduler.campaign_status",
				"layer", "adapter",
				"operation", "update_campaign_statuses",
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
