package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

// Confirm transitions a reservation ACTIVE -> COMPLETED after checkout
// succeeds. The conditional status update is the race arbiter: when a
// cleanup sweep releases the reservation at the same moment, exactly one
// caller wins and the other observes ErrReservationAlreadyProcessed with no
// side effects.
func (s *Service) Confirm(ctx context.Context, reservationID uuid.UUID) (domain.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if reservation.Terminal() {
		return domain.Reservation{}, domain.ErrReservationAlreadyProcessed
	}

	now := s.clock.Now()
	won, err := s.reservations.MarkCompleted(ctx, reservationID, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !won {
		return domain.Reservation{}, domain.ErrReservationAlreadyProcessed
	}
	reservation.Status = domain.ReservationCompleted
	reservation.CompletedAt = &now

	// The transition is the commit point. Counter and reporting updates after
	// it are applied best-effort: a failure here is an integrity event to
	// reconcile, not a reason to hand the buyer a second transition attempt.
	campaign, err := s.campaigns.GetByID(ctx, reservation.CampaignID)
	var expiresAt time.Time
	if err != nil {
		// A zero expiry keeps the confirmed key's current TTL. Expiring it
		// at now would delete the counter and reopen the buyer's limit.
		s.logLifecycleIntegrity(ctx, "confirm", "campaign_read_for_expiry", reservation, err)
	} else {
		expiresAt = campaign.EndsAt
	}
	if err := s.counters.ConfirmReserved(ctx, reservation.CampaignID, reservation.ProductID, reservation.BuyerID, int64(reservation.Quantity), expiresAt); err != nil {
		s.logLifecycleIntegrity(ctx, "confirm", "confirm_counter_move", reservation, err)
	}
	if err := s.campaigns.AddConfirmedSold(ctx, reservation.CampaignID, reservation.ProductID, reservation.Quantity); err != nil {
		s.logLifecycleIntegrity(ctx, "confirm", "confirmed_sold_increment", reservation, err)
	}
	s.enqueueLifecycleEvent(ctx, EventReservationConfirmed, reservation, now)

	return reservation, nil
}

// Release expires a reservation and returns its units to available stock.
// A missing reservation is a no-op success; a terminal one is rejected with
// ErrReservationAlreadyProcessed and has no side effect, so the cleanup
// sweep and an explicit release can race harmlessly.
func (s *Service) Release(ctx context.Context, reservationID uuid.UUID) error {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			return nil
		}
		return err
	}
	if reservation.Terminal() {
		return domain.ErrReservationAlreadyProcessed
	}

	now := s.clock.Now()
	won, err := s.reservations.MarkExpired(ctx, reservationID, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrReservationAlreadyProcessed
	}
	reservation.Status = domain.ReservationExpired
	reservation.ExpiredAt = &now

	if err := s.counters.ReleaseReserved(ctx, reservation.CampaignID, reservation.ProductID, reservation.BuyerID, int64(reservation.Quantity)); err != nil {
		s.logLifecycleIntegrity(ctx, "release", "release_counter_move", reservation, err)
	}
	s.enqueueLifecycleEvent(ctx, EventReservationExpired, reservation, now)

	return nil
}

func (s *Service) enqueueLifecycleEvent(ctx context.Context, eventType string, reservation domain.Reservation, at time.Time) {
	payload, _ := json.Marshal(reservationEventPayload{
		ReservationID: reservation.ReservationID,
		CampaignID:    reservation.CampaignID,
		ProductID:     reservation.ProductID,
		BuyerID:       reservation.BuyerID,
		Quantity:      reservation.Quantity,
		Status:        string(reservation.Status),
		OccurredAt:    at,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey(reservation.CampaignID, reservation.ProductID),
		Payload:      payload,
		OccurredAt:   at,
	}); err != nil {
		s.logger.WarnContext(ctx, "lifecycle event enqueue failed",
			"operation", eventType,
			"outcome", "failure",
			"reservation_id", reservation.ReservationID,
			"error", err,
		)
	}
}

func (s *Service) logLifecycleIntegrity(ctx context.Context, operation, step string, reservation domain.Reservation, err error) {
	s.logger.ErrorContext(ctx, "counter update failed after transition",
		"operation", operation,
		"outcome", "integrity_violation",
		"step", step,
		"reservation_id", reservation.ReservationID,
		"campaign_id", reservation.CampaignID,
		"product_id", reservation.ProductID,
		"buyer_id", reservation.BuyerID,
		"quantity", reservation.Quantity,
		"error", err,
	)
}
