package postgres

import (
	"time"

	"github.com/google/uuid"
)

type campaignModel struct {
	CampaignID         uuid.UUID `gorm:"column:campaign_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string    `gorm:"column:name"`
	StartsAt           time.Time `gorm:"column:starts_at"`
	EndsAt             time.Time `gorm:"column:ends_at"`
	Status             string    `gorm:"column:status"`
	EarlyAccessMinutes int       `gorm:"column:early_access_minutes"`
	EarlyAccessTiers   string    `gorm:"column:early_access_tiers"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (campaignModel) TableName() string { return "campaigns" }

type campaignProductModel struct {
	ID                  int64     `gorm:"column:id;primaryKey"`
	CampaignID          uuid.UUID `gorm:"column:campaign_id"`
	ProductID           uuid.UUID `gorm:"column:product_id"`
	SalePriceCents      int64     `gorm:"column:sale_price_cents"`
	ReferencePriceCents int64     `gorm:"column:reference_price_cents"`
	StockLimit          int       `gorm:"column:stock_limit"`
	PerBuyerLimit       int       `gorm:"column:per_buyer_limit"`
	ConfirmedSold       int       `gorm:"column:confirmed_sold"`
	Position            int       `gorm:"column:position"`
}

func (campaignProductModel) TableName() string { return "campaign_products" }

type reservationModel struct {
	ReservationID uuid.UUID  `gorm:"column:reservation_id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID    uuid.UUID  `gorm:"column:campaign_id"`
	ProductID     uuid.UUID  `gorm:"column:product_id"`
	BuyerID       string     `gorm:"column:buyer_id"`
	Quantity      int        `gorm:"column:quantity"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ExpiresAt     time.Time  `gorm:"column:expires_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	ExpiredAt     *time.Time `gorm:"column:expired_at"`
}

func (reservationModel) TableName() string { return "reservations" }

type saleOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (saleOutboxModel) TableName() string { return "sale_outbox" }
