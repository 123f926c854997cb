package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
	"gorm.io/gorm"
)

type reservationRepository struct {
	db *gorm.DB
}

func (r *reservationRepository) CreateWithOutboxTx(ctx context.Context, params ports.ReservationCreateParams, event ports.OutboxEvent) (domain.Reservation, error) {
	var result domain.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := reservationModel{
			CampaignID: params.CampaignID,
			ProductID:  params.ProductID,
			BuyerID:    params.BuyerID,
			Quantity:   params.Quantity,
			Status:     string(domain.ReservationActive),
			CreatedAt:  params.CreatedAt,
			ExpiresAt:  params.ExpiresAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		payload := event.Payload
		if len(payload) == 0 {
			payload = []byte(`{}`)
		}
		var payloadObj map[string]any
		if err := json.Unmarshal(payload, &payloadObj); err == nil {
			payloadObj["reservation_id"] = rec.ReservationID.String()
			if adjusted, mErr := json.Marshal(payloadObj); mErr == nil {
				payload = adjusted
			}
		}

		outbox := saleOutboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      string(payload),
			CreatedAt:    event.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainReservation(rec)
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (domain.Reservation, error) {
	var rec reservationModel
	if err := r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}
	return toDomainReservation(rec), nil
}

// MarkCompleted wins only when the row is still ACTIVE; the conditional
// update is what enforces the single-transition invariant under races.
func (r *reservationRepository) MarkCompleted(ctx context.Context, reservationID uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, reservationID, string(domain.ReservationCompleted), "completed_at", at)
}

func (r *reservationRepository) MarkExpired(ctx context.Context, reservationID uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, reservationID, string(domain.ReservationExpired), "expired_at", at)
}

func (r *reservationRepository) transition(ctx context.Context, reservationID uuid.UUID, to, stampColumn string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("reservation_id = ?", reservationID).
		Where("status = ?", string(domain.ReservationActive)).
		Updates(map[string]any{
			"status":    to,
			stampColumn: at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reservationRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	var rows []reservationModel
	query := r.db.WithContext(ctx).
		Where("status = ?", string(domain.ReservationActive)).
		Where("expires_at < ?", before).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainReservation(row))
	}
	return result, nil
}

func (r *reservationRepository) SumOpenQuantity(ctx context.Context, campaignID, productID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Select("SUM(quantity)").
		Where("campaign_id = ?", campaignID).
		Where("product_id = ?", productID).
		Where("status IN ?", []string{string(domain.ReservationActive), string(domain.ReservationCompleted)}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
