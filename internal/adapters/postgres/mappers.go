package postgres

import (
	"strings"

	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

func toDomainCampaign(rec campaignModel, products []campaignProductModel) domain.Campaign {
	campaign := domain.Campaign{
		CampaignID:         rec.CampaignID,
		Name:               rec.Name,
		StartsAt:           rec.StartsAt,
		EndsAt:             rec.EndsAt,
		Status:             domain.CampaignStatus(rec.Status),
		EarlyAccessMinutes: rec.EarlyAccessMinutes,
		EarlyAccessTiers:   splitTiers(rec.EarlyAccessTiers),
		Products:           make([]domain.ProductEntry, 0, len(products)),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	for _, p := range products {
		campaign.Products = append(campaign.Products, domain.ProductEntry{
			ProductID:           p.ProductID,
			SalePriceCents:      p.SalePriceCents,
			ReferencePriceCents: p.ReferencePriceCents,
			StockLimit:          p.StockLimit,
			PerBuyerLimit:       p.PerBuyerLimit,
			ConfirmedSold:       p.ConfirmedSold,
		})
	}
	return campaign
}

func splitTiers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tiers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tiers = append(tiers, trimmed)
		}
	}
	return tiers
}

func joinTiers(tiers []string) string {
	return strings.Join(tiers, ",")
}

func toDomainReservation(rec reservationModel) domain.Reservation {
	return domain.Reservation{
		ReservationID: rec.ReservationID,
		CampaignID:    rec.CampaignID,
		ProductID:     rec.ProductID,
		BuyerID:       rec.BuyerID,
		Quantity:      rec.Quantity,
		Status:        domain.ReservationStatus(rec.Status),
		CreatedAt:     rec.CreatedAt,
		ExpiresAt:     rec.ExpiresAt,
		CompletedAt:   rec.CompletedAt,
		ExpiredAt:     rec.ExpiredAt,
	}
}
