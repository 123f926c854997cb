package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

// CampaignRepository persists campaign definitions. This core reads mostly;
// create exists for seeding and tooling, authoring lives elsewhere.
type CampaignRepository interface {
	Create(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	GetByID(ctx context.Context, campaignID uuid.UUID) (domain.Campaign, error)
	ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)
	// UpdateStatus transitions status only when the stored value still equals
	// from, reporting whether this caller won the transition. The guard makes
	// scheduler activation exactly-once even with competing workers.
	UpdateStatus(ctx context.Context, campaignID uuid.UUID, from, to domain.CampaignStatus, at time.Time) (bool, error)
	// AddConfirmedSold bumps the product entry's running confirmed-sold total.
	AddConfirmedSold(ctx context.Context, campaignID, productID uuid.UUID, qty int) error
}

// ReservationCreateParams captures the reserve-time write. The reservation
// row and its lifecycle outbox event commit in one transaction.
type ReservationCreateParams struct {
	CampaignID uuid.UUID
	ProductID  uuid.UUID
	BuyerID    string
	Quantity   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// ReservationRepository is the durable reservation log. Terminal transitions
// are conditional updates against the ACTIVE status so only the first caller
// to observe an open reservation can move it.
type ReservationRepository interface {
	CreateWithOutboxTx(ctx context.Context, params ReservationCreateParams, event OutboxEvent) (domain.Reservation, error)
	GetByID(ctx context.Context, reservationID uuid.UUID) (domain.Reservation, error)
	// MarkCompleted transitions ACTIVE -> COMPLETED; ok is false when the
	// reservation was not ACTIVE anymore.
	MarkCompleted(ctx context.Context, reservationID uuid.UUID, at time.Time) (bool, error)
	// MarkExpired transitions ACTIVE -> EXPIRED under the same guard.
	MarkExpired(ctx context.Context, reservationID uuid.UUID, at time.Time) (bool, error)
	// ListExpired returns ACTIVE reservations whose expiry passed before now.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error)
	// SumOpenQuantity totals ACTIVE and COMPLETED quantities for a product,
	// used to rebuild the available-stock counter from the durable log.
	SumOpenQuantity(ctx context.Context, campaignID, productID uuid.UUID) (int64, error)
}

// OutboxEvent is the write-side lifecycle event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is durable outbox state including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for lifecycle events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
