package application

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/metrics"
)

// UpdateCampaignStatuses advances campaign lifecycle state against the wall
// clock. SCHEDULED campaigns inside their window become ACTIVE and get their
// counters initialized; the conditional status update makes initialization
// exactly-once even when multiple workers tick concurrently. ACTIVE
// campaigns past their end become ENDED; outstanding reservations keep
// running toward their own expiry.
func (s *Service) UpdateCampaignStatuses(ctx context.Context) error {
	now := s.clock.Now()

	scheduled, err := s.campaigns.ListByStatus(ctx, domain.CampaignScheduled)
	if err != nil {
		return err
	}
	for _, campaign := range scheduled {
		switch {
		case campaign.EndsAt.Before(now) || campaign.EndsAt.Equal(now):
			// Window fully elapsed before activation ever ran.
			if _, err := s.campaigns.UpdateStatus(ctx, campaign.CampaignID, domain.CampaignScheduled, domain.CampaignEnded, now); err != nil {
				s.logSchedulerSkip(ctx, "update_campaign_statuses", campaign, err)
			}
		case !campaign.StartsAt.After(now):
			won, err := s.campaigns.UpdateStatus(ctx, campaign.CampaignID, domain.CampaignScheduled, domain.CampaignActive, now)
			if err != nil {
				s.logSchedulerSkip(ctx, "update_campaign_statuses", campaign, err)
				continue
			}
			if !won {
				continue
			}
			if err := s.InitializeStock(ctx, campaign); err != nil {
				s.logger.ErrorContext(ctx, "stock initialization failed on activation",
					"operation", "update_campaign_statuses",
					"outcome", "failure",
					"campaign_id", campaign.CampaignID,
					"error", err,
				)
				continue
			}
			s.logger.InfoContext(ctx, "campaign activated",
				"operation", "update_campaign_statuses",
				"outcome", "success",
				"campaign_id", campaign.CampaignID,
				"product_count", len(campaign.Products),
			)
		}
	}

	active, err := s.campaigns.ListByStatus(ctx, domain.CampaignActive)
	if err != nil {
		return err
	}
	for _, campaign := range active {
		if campaign.EndsAt.After(now) {
			// Check the counter so an ACTIVE campaign whose counter store was
			// flushed gets rebuilt from the reservation log.
			s.rebuildMissingCounters(ctx, campaign)
			continue
		}
		if _, err := s.campaigns.UpdateStatus(ctx, campaign.CampaignID, domain.CampaignActive, domain.CampaignEnded, now); err != nil {
			s.logSchedulerSkip(ctx, "update_campaign_statuses", campaign, err)
			continue
		}
		s.logger.InfoContext(ctx, "campaign ended",
			"operation", "update_campaign_statuses",
			"outcome", "success",
			"campaign_id", campaign.CampaignID,
		)
	}
	return nil
}

func (s *Service) rebuildMissingCounters(ctx context.Context, campaign domain.Campaign) {
	for _, entry := range campaign.Products {
		_, ok, err := s.counters.AvailableStock(ctx, campaign.CampaignID, entry.ProductID)
		if err != nil {
			s.logger.ErrorContext(ctx, "counter read failed",
				"operation", "update_campaign_statuses",
				"outcome", "failure",
				"campaign_id", campaign.CampaignID,
				"product_id", entry.ProductID,
				"error", err,
			)
			continue
		}
		if ok {
			continue
		}
		if _, err := s.RebuildStock(ctx, campaign.CampaignID, entry.ProductID); err != nil {
			s.logger.ErrorContext(ctx, "counter rebuild failed",
				"operation", "update_campaign_statuses",
				"outcome", "failure",
				"campaign_id", campaign.CampaignID,
				"product_id", entry.ProductID,
				"error", err,
			)
		}
	}
}

// CleanupExpiredReservations releases every ACTIVE reservation whose expiry
// passed. This is the safety net reclaiming stock from abandoned checkouts.
// Per-reservation failures are logged and skipped so one bad record cannot
// stall the sweep; the next tick retries whatever remains.
func (s *Service) CleanupExpiredReservations(ctx context.Context) error {
	now := s.clock.Now()
	expired, err := s.reservations.ListExpired(ctx, now, s.cfg.CleanupBatchSize)
	if err != nil {
		return err
	}

	released := 0
	for _, reservation := range expired {
		if err := s.Release(ctx, reservation.ReservationID); err != nil {
			// A concurrent confirm or release beat the sweep; nothing leaked.
			if errors.Is(err, domain.ErrReservationAlreadyProcessed) {
				continue
			}
			s.logger.WarnContext(ctx, "expired reservation release failed",
				"operation", "cleanup_expired_reservations",
				"outcome", "failure",
				"reservation_id", reservation.ReservationID,
				"error", err,
			)
			continue
		}
		released++
		metrics.ReservationsReleased.Inc()
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "cleanup sweep completed",
			"operation", "cleanup_expired_reservations",
			"outcome", "success",
			"batch_size", len(expired),
			"released_count", released,
		)
	}
	return nil
}

func (s *Service) logSchedulerSkip(ctx context.Context, operation string, campaign domain.Campaign, err error) {
	s.logger.WarnContext(ctx, "campaign transition failed",
		"operation", operation,
		"outcome", "failure",
		"campaign_id", campaign.CampaignID,
		"error", err,
	)
}
