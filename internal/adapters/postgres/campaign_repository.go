package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"gorm.io/gorm"
)

type campaignRepository struct {
	db *gorm.DB
}

func (r *campaignRepository) Create(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	if err := campaign.Validate(); err != nil {
		return domain.Campaign{}, err
	}
	now := time.Now().UTC()
	rec := campaignModel{
		Name:               campaign.Name,
		StartsAt:           campaign.StartsAt,
		EndsAt:             campaign.EndsAt,
		Status:             string(domain.CampaignScheduled),
		EarlyAccessMinutes: campaign.EarlyAccessMinutes,
		EarlyAccessTiers:   joinTiers(campaign.EarlyAccessTiers),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if campaign.Status != "" {
		rec.Status = string(campaign.Status)
	}

	var products []campaignProductModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		products = make([]campaignProductModel, 0, len(campaign.Products))
		for i, entry := range campaign.Products {
			products = append(products, campaignProductModel{
				CampaignID:          rec.CampaignID,
				ProductID:           entry.ProductID,
				SalePriceCents:      entry.SalePriceCents,
				ReferencePriceCents: entry.ReferencePriceCents,
				StockLimit:          entry.StockLimit,
				PerBuyerLimit:       entry.PerBuyerLimit,
				ConfirmedSold:       entry.ConfirmedSold,
				Position:            i,
			})
		}
		return tx.Create(&products).Error
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return toDomainCampaign(rec, products), nil
}

func (r *campaignRepository) GetByID(ctx context.Context, campaignID uuid.UUID) (domain.Campaign, error) {
	var rec campaignModel
	if err := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Campaign{}, domain.ErrCampaignNotFound
		}
		return domain.Campaign{}, err
	}
	products, err := r.productsFor(ctx, []uuid.UUID{campaignID})
	if err != nil {
		return domain.Campaign{}, err
	}
	return toDomainCampaign(rec, products[campaignID]), nil
}

func (r *campaignRepository) ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	var rows []campaignModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("starts_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CampaignID)
	}
	products, err := r.productsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Campaign, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainCampaign(row, products[row.CampaignID]))
	}
	return result, nil
}

func (r *campaignRepository) productsFor(ctx context.Context, campaignIDs []uuid.UUID) (map[uuid.UUID][]campaignProductModel, error) {
	var rows []campaignProductModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id IN ?", campaignIDs).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	grouped := make(map[uuid.UUID][]campaignProductModel, len(campaignIDs))
	for _, row := range rows {
		grouped[row.CampaignID] = append(grouped[row.CampaignID], row)
	}
	return grouped, nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, campaignID uuid.UUID, from, to domain.CampaignStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&campaignModel{}).
		Where("campaign_id = ?", campaignID).
		Where("status = ?", string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&campaignModel{}).Where("campaign_id = ?", campaignID).Count(&exists).Error; err != nil {
			return false, err
		}
		if exists == 0 {
			return false, domain.ErrCampaignNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *campaignRepository) AddConfirmedSold(ctx context.Context, campaignID, productID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&campaignProductModel{}).
		Where("campaign_id = ?", campaignID).
		Where("product_id = ?", productID).
		Update("confirmed_sold", gorm.Expr("confirmed_sold + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotInCampaign
	}
	return nil
}
