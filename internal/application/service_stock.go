package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

// InitializeStock seeds each product's available-stock counter to its stock
// limit, expiring at campaign end. Re-running resets the counters, so the
// scheduler invokes it exactly once per activation.
func (s *Service) InitializeStock(ctx context.Context, campaign domain.Campaign) error {
	for _, entry := range campaign.Products {
		if err := s.counters.InitializeStock(ctx, campaign.CampaignID, entry.ProductID, int64(entry.StockLimit), campaign.EndsAt); err != nil {
			return ledgerErr(err)
		}
	}
	return nil
}

// AvailableStock reads a product's live counter for display. Negative
// transient reads and missing keys clamp to zero; the internal invariant
// never persists a negative value.
func (s *Service) AvailableStock(ctx context.Context, campaignID, productID uuid.UUID) (int64, error) {
	value, ok, err := s.counters.AvailableStock(ctx, campaignID, productID)
	if err != nil {
		return 0, ledgerErr(err)
	}
	if !ok || value < 0 {
		return 0, nil
	}
	return value, nil
}

// RebuildStock recomputes a product's available-stock counter from the
// durable reservation log as stockLimit minus all ACTIVE and COMPLETED
// quantities. Counters are authoritative but rebuildable: after counter
// store loss this replays the log instead of defaulting to zero.
func (s *Service) RebuildStock(ctx context.Context, campaignID, productID uuid.UUID) (int64, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	entry, ok := campaign.Product(productID)
	if !ok {
		return 0, domain.ErrProductNotInCampaign
	}

	held, err := s.reservations.SumOpenQuantity(ctx, campaignID, productID)
	if err != nil {
		return 0, err
	}
	value := int64(entry.StockLimit) - held
	if err := s.counters.SetStock(ctx, campaignID, productID, value, campaign.EndsAt); err != nil {
		return 0, ledgerErr(err)
	}
	s.logger.InfoContext(ctx, "stock counter rebuilt",
		"operation", "rebuild_stock",
		"outcome", "success",
		"campaign_id", campaignID,
		"product_id", productID,
		"held_quantity", held,
		"available", value,
	)
	return value, nil
}

// GetCampaign returns the campaign read model with live per-product stock.
func (s *Service) GetCampaign(ctx context.Context, campaignID uuid.UUID) (CampaignView, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return CampaignView{}, err
	}

	view := CampaignView{
		CampaignID:         campaign.CampaignID,
		Name:               campaign.Name,
		StartsAt:           campaign.StartsAt,
		EndsAt:             campaign.EndsAt,
		Status:             string(campaign.Status),
		EarlyAccessMinutes: campaign.EarlyAccessMinutes,
		EarlyAccessTiers:   campaign.EarlyAccessTiers,
		Products:           make([]ProductView, 0, len(campaign.Products)),
	}
	for _, entry := range campaign.Products {
		available, err := s.AvailableStock(ctx, campaign.CampaignID, entry.ProductID)
		if err != nil {
			return CampaignView{}, err
		}
		view.Products = append(view.Products, ProductView{
			ProductID:           entry.ProductID,
			SalePriceCents:      entry.SalePriceCents,
			ReferencePriceCents: entry.ReferencePriceCents,
			StockLimit:          entry.StockLimit,
			PerBuyerLimit:       entry.PerBuyerLimit,
			ConfirmedSold:       entry.ConfirmedSold,
			AvailableStock:      available,
		})
	}
	return view, nil
}
