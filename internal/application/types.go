package application

import (
	"time"

	"github.com/google/uuid"
)

// ReserveRequest carries one buyer's attempt to hold campaign stock. The
// buyer tier is supplied by the caller; this core only consumes it.
type ReserveRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	ProductID  uuid.UUID `json:"product_id"`
	BuyerID    string    `json:"buyer_id"`
	Quantity   int       `json:"quantity"`
	BuyerTier  string    `json:"buyer_tier"`
}

// ProductView is a campaign product with its live available stock.
type ProductView struct {
	ProductID           uuid.UUID `json:"product_id"`
	SalePriceCents      int64     `json:"sale_price_cents"`
	ReferencePriceCents int64     `json:"reference_price_cents"`
	StockLimit          int       `json:"stock_limit"`
	PerBuyerLimit       int       `json:"per_buyer_limit"`
	ConfirmedSold       int       `json:"confirmed_sold"`
	AvailableStock      int64     `json:"available_stock"`
}

// CampaignView is the read model served to sale pages.
type CampaignView struct {
	CampaignID         uuid.UUID     `json:"campaign_id"`
	Name               string        `json:"name"`
	StartsAt           time.Time     `json:"starts_at"`
	EndsAt             time.Time     `json:"ends_at"`
	Status             string        `json:"status"`
	EarlyAccessMinutes int           `json:"early_access_minutes"`
	EarlyAccessTiers   []string      `json:"early_access_tiers"`
	Products           []ProductView `json:"products"`
}

const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationExpired   = "reservation.expired"
)

// reservationEventPayload is the outbox payload for lifecycle events.
type reservationEventPayload struct {
	ReservationID uuid.UUID `json:"reservation_id,omitempty"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	ProductID     uuid.UUID `json:"product_id"`
	BuyerID       string    `json:"buyer_id"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
