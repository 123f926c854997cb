package postgres

import (
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles all Postgres-backed ports for bootstrap wiring.
type Repositories struct {
	Campaigns    ports.CampaignRepository
	Reservations ports.ReservationRepository
	Outbox       ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Campaigns:    &campaignRepository{db: db},
		Reservations: &reservationRepository{db: db},
		Outbox:       &outboxRepository{db: db},
	}
}
