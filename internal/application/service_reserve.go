package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/metrics"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

// Reserve places a time-limited hold on campaign stock.
//
// The decrement-then-check-then-compensate sequence on the available-stock
// counter is the oversell guard: the counter store's atomic decrement is the
// single serialization point, so concurrent calls for the last unit resolve
// without application-level locking. If the durable reservation write fails
// after the counters moved, both counter mutations are reversed before the
// error surfaces; a failed reversal is logged as an integrity event.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (domain.Reservation, error) {
	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.ObserveReserve(outcome, time.Since(start).Seconds())
	}()

	if req.Quantity < 1 {
		return domain.Reservation{}, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	if req.BuyerID == "" {
		return domain.Reservation{}, fmt.Errorf("%w: buyer id is required", domain.ErrInvalidInput)
	}

	campaign, err := s.campaigns.GetByID(ctx, req.CampaignID)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	if err := checkSaleWindow(campaign, req.BuyerTier, now); err != nil {
		metrics.CountRejection(rejectionReason(err))
		return domain.Reservation{}, err
	}

	entry, ok := campaign.Product(req.ProductID)
	if !ok {
		return domain.Reservation{}, domain.ErrProductNotInCampaign
	}

	counts, err := s.counters.BuyerCounts(ctx, req.CampaignID, req.ProductID, req.BuyerID)
	if err != nil {
		return domain.Reservation{}, ledgerErr(err)
	}
	if counts.Reserved+counts.Confirmed+int64(req.Quantity) > int64(entry.PerBuyerLimit) {
		metrics.CountRejection("user_limit")
		return domain.Reservation{}, domain.ErrUserLimitExceeded
	}

	remaining, err := s.counters.DecrementStock(ctx, req.CampaignID, req.ProductID, int64(req.Quantity))
	if err != nil {
		return domain.Reservation{}, ledgerErr(err)
	}
	if remaining < 0 {
		if _, compErr := s.counters.IncrementStock(ctx, req.CampaignID, req.ProductID, int64(req.Quantity)); compErr != nil {
			s.logIntegrity(ctx, "sold_out_rollback", req, compErr)
		}
		metrics.CountRejection("sold_out")
		return domain.Reservation{}, domain.ErrSoldOut
	}

	if err := s.counters.AddReserved(ctx, req.CampaignID, req.ProductID, req.BuyerID, int64(req.Quantity), campaign.EndsAt); err != nil {
		if _, compErr := s.counters.IncrementStock(ctx, req.CampaignID, req.ProductID, int64(req.Quantity)); compErr != nil {
			s.logIntegrity(ctx, "reserved_increment_rollback", req, compErr)
		}
		return domain.Reservation{}, ledgerErr(err)
	}

	payload, _ := json.Marshal(reservationEventPayload{
		CampaignID: req.CampaignID,
		ProductID:  req.ProductID,
		BuyerID:    req.BuyerID,
		Quantity:   req.Quantity,
		Status:     string(domain.ReservationActive),
		OccurredAt: now,
	})
	reservation, err := s.reservations.CreateWithOutboxTx(ctx, ports.ReservationCreateParams{
		CampaignID: req.CampaignID,
		ProductID:  req.ProductID,
		BuyerID:    req.BuyerID,
		Quantity:   req.Quantity,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.HoldDuration),
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    EventReservationCreated,
		PartitionKey: partitionKey(req.CampaignID, req.ProductID),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		// Two-phase compensation: the counters moved but the durable write
		// failed, so stock would leak silently without this reversal.
		if _, compErr := s.counters.IncrementStock(ctx, req.CampaignID, req.ProductID, int64(req.Quantity)); compErr != nil {
			s.logIntegrity(ctx, "persist_failure_stock_rollback", req, compErr)
		}
		if compErr := s.counters.SubtractReserved(ctx, req.CampaignID, req.ProductID, req.BuyerID, int64(req.Quantity)); compErr != nil {
			s.logIntegrity(ctx, "persist_failure_reserved_rollback", req, compErr)
		}
		return domain.Reservation{}, fmt.Errorf("persist reservation: %w", err)
	}

	outcome = "success"
	return reservation, nil
}

// checkSaleWindow enforces the campaign time window and early-access tier
// gating against the wall clock, independent of the SCHEDULED/ACTIVE/ENDED
// status field since those transitions trail on the scheduler interval.
// CANCELLED is an operator decision, not a clock artifact, so it closes the
// sale immediately regardless of the window.
func checkSaleWindow(campaign domain.Campaign, buyerTier string, now time.Time) error {
	if campaign.Status == domain.CampaignCancelled {
		return domain.ErrCampaignEnded
	}
	earlyStart := campaign.EarlyAccessStart()
	if now.Before(earlyStart) {
		return domain.ErrCampaignNotStarted
	}
	if now.Before(campaign.StartsAt) && !campaign.TierEligible(buyerTier) {
		remaining := campaign.StartsAt.Sub(now)
		minutes := int((remaining + time.Minute - 1) / time.Minute)
		return &domain.EarlyAccessError{MinutesUntilOpen: minutes}
	}
	if now.After(campaign.EndsAt) {
		return domain.ErrCampaignEnded
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case err == domain.ErrCampaignNotStarted:
		return "not_started"
	case err == domain.ErrCampaignEnded:
		return "ended"
	default:
		return "early_access"
	}
}

func partitionKey(campaignID, productID uuid.UUID) string {
	return campaignID.String() + ":" + productID.String()
}

// logIntegrity records a failed counter compensation. These are the critical
// events an operator must reconcile by rebuilding the product's counter from
// the reservation log.
func (s *Service) logIntegrity(ctx context.Context, step string, req ReserveRequest, err error) {
	s.logger.ErrorContext(ctx, "counter compensation failed",
		"operation", "reserve",
		"outcome", "integrity_violation",
		"step", step,
		"campaign_id", req.CampaignID,
		"product_id", req.ProductID,
		"buyer_id", req.BuyerID,
		"quantity", req.Quantity,
		"error", err,
	)
}
